package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/opencafe/intake/internal/config"
	dbpkg "github.com/opencafe/intake/internal/db"
)

var (
	seedAdminUsername string
	seedAdminPassword string
	seedAdminName     string
)

// seedCmd prepares a fresh database: lookup rows plus, when requested, the
// first admin account. That account has to come from the shell before the
// HTTP user management is reachable.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed lookup data and optionally create the first admin user",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedAdminUsername, "admin-username", "", "username for the initial admin account")
	seedCmd.Flags().StringVar(&seedAdminPassword, "admin-password", "", "password for the initial admin account (min 8 characters)")
	seedCmd.Flags().StringVar(&seedAdminName, "admin-name", "", "display name for the initial admin account")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := dbpkg.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("failed to seed defaults: %w", err)
	}
	fmt.Println("seeded statuses, user types, customer types and default department")

	if seedAdminUsername == "" && seedAdminPassword == "" {
		return nil
	}
	if seedAdminUsername == "" || seedAdminPassword == "" {
		return fmt.Errorf("both --admin-username and --admin-password are required to create the admin account")
	}
	if len(seedAdminPassword) < 8 {
		return fmt.Errorf("admin password must be at least 8 characters")
	}
	if seedAdminName == "" {
		seedAdminName = seedAdminUsername
	}

	userType, err := store.GetUserTypeByName(ctx, "Admin")
	if err != nil {
		return fmt.Errorf("failed to look up admin user type: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seedAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	u := &dbpkg.User{
		Username:     seedAdminUsername,
		Name:         seedAdminName,
		PasswordHash: string(hash),
		UserTypeID:   userType.ID,
	}
	if err := store.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	fmt.Printf("created admin user %s\n", u.Username)
	return nil
}
