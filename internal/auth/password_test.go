package auth

import (
	"strings"
	"testing"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if hash == "Abc12345" {
		t.Fatal("hash must not equal the plaintext password")
	}

	if err := VerifyPassword(hash, "Abc12345"); err != nil {
		t.Errorf("expected correct password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "Abc12346"); err == nil {
		t.Error("expected wrong password to fail verification")
	}
}

func TestHashPasswordProducesDistinctHashes(t *testing.T) {
	first, err := HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	second, err := HashPassword("Abc12345")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	if first == second {
		t.Error("expected salted hashes to differ for the same password")
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name       string
		password   string
		valid      bool
		violations int
	}{
		{name: "Valid", password: "Abc12345", valid: true, violations: 0},
		{name: "TooShort", password: "Ab1", valid: false, violations: 1},
		{name: "MissingUpper", password: "abc12345", valid: false, violations: 1},
		{name: "MissingLower", password: "ABC12345", valid: false, violations: 1},
		{name: "MissingDigit", password: "Abcdefgh", valid: false, violations: 1},
		{name: "AllViolations", password: "", valid: false, violations: 4},
		{name: "TooLong", password: "Ab1" + strings.Repeat("x", 130), valid: false, violations: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidatePasswordStrength(tt.password)
			if result.IsValid != tt.valid {
				t.Errorf("expected valid=%v, got %v (errors: %v)", tt.valid, result.IsValid, result.Errors)
			}
			if len(result.Errors) != tt.violations {
				t.Errorf("expected %d violations, got %d: %v", tt.violations, len(result.Errors), result.Errors)
			}
		})
	}
}

func TestGenerateRandomPassword(t *testing.T) {
	password, err := GenerateRandomPassword(DefaultRandomPasswordLength)
	if err != nil {
		t.Fatalf("failed to generate password: %v", err)
	}
	if len(password) != DefaultRandomPasswordLength {
		t.Errorf("expected length %d, got %d", DefaultRandomPasswordLength, len(password))
	}
	for _, ch := range password {
		if !strings.ContainsRune(randomPasswordCharset, ch) {
			t.Errorf("unexpected character %q in generated password", ch)
		}
	}

	other, err := GenerateRandomPassword(DefaultRandomPasswordLength)
	if err != nil {
		t.Fatalf("failed to generate password: %v", err)
	}
	if password == other {
		t.Error("expected consecutive passwords to differ")
	}
}

func TestGenerateRandomPasswordDefaultsLength(t *testing.T) {
	password, err := GenerateRandomPassword(0)
	if err != nil {
		t.Fatalf("failed to generate password: %v", err)
	}
	if len(password) != DefaultRandomPasswordLength {
		t.Errorf("expected fallback length %d, got %d", DefaultRandomPasswordLength, len(password))
	}
}
