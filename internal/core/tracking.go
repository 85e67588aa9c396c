package core

import (
	"context"
	"fmt"
	"math/rand/v2"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 4

	// The original generation loop was unbounded; cap it so a nearly full
	// code space fails loudly instead of spinning.
	maxCodeAttempts = 100
)

// codeExistsFunc reports whether a tracking code is already taken.
type codeExistsFunc func(ctx context.Context, code string) (bool, error)

func randomCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(buf)
}

// generateCode draws random 4-character codes until one passes the existence
// check. The check is advisory; the UNIQUE constraint on items.code is the
// real guarantee, and callers retry the insert on a constraint violation.
func generateCode(ctx context.Context, exists codeExistsFunc) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := randomCode()

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check tracking code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", ErrCodeSpaceExhausted
}
