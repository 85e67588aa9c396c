package main

import "github.com/opencafe/intake/internal/cmd"

func main() {
	cmd.Execute()
}
