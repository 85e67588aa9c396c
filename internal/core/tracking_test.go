package core

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRandomCode_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		code := randomCode()
		if len(code) != codeLength {
			t.Fatalf("expected %d characters, got %q", codeLength, code)
		}
		for _, ch := range code {
			if !strings.ContainsRune(codeAlphabet, ch) {
				t.Fatalf("code %q contains %q outside the alphabet", code, ch)
			}
		}
	}
}

func TestGenerateCode_SkipsTakenCodes(t *testing.T) {
	calls := 0
	exists := func(ctx context.Context, code string) (bool, error) {
		calls++
		return calls <= 3, nil
	}

	code, err := generateCode(context.Background(), exists)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(code) != codeLength {
		t.Errorf("expected %d characters, got %q", codeLength, code)
	}
	if calls != 4 {
		t.Errorf("expected 4 existence checks, got %d", calls)
	}
}

func TestGenerateCode_ExhaustsAttempts(t *testing.T) {
	exists := func(ctx context.Context, code string) (bool, error) {
		return true, nil
	}

	_, err := generateCode(context.Background(), exists)
	if !errors.Is(err, ErrCodeSpaceExhausted) {
		t.Fatalf("expected ErrCodeSpaceExhausted, got %v", err)
	}
}

func TestGenerateCode_PropagatesCheckError(t *testing.T) {
	boom := errors.New("database gone")
	exists := func(ctx context.Context, code string) (bool, error) {
		return false, boom
	}

	_, err := generateCode(context.Background(), exists)
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped check error, got %v", err)
	}
}
