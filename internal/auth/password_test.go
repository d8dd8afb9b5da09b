package auth

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/medremind/internal/apperror"
)

// =========================================================================
// HELPER
// =========================================================================

// newTestPasswordService returns a PasswordService with bcrypt cost 4 so
// each hash takes milliseconds.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

// =========================================================================
// Hash TESTS
// =========================================================================

func TestNewPasswordService_UsesTenRounds(t *testing.T) {
	ps := NewPasswordService()
	if ps.Cost() != 10 {
		t.Fatalf("Cost() = %d, want 10", ps.Cost())
	}
}

func TestHash_EmbedsConfiguredCost(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		t.Fatalf("bcrypt.Cost() error = %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("cost = %d, want %d", cost, bcrypt.MinCost)
	}
}

func TestHash_SamePasswordProducesDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("same-password")
	hash2, _ := ps.Hash("same-password")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password (salt must be random)")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got error: %v", err)
	}

	_, err := ps.Hash(strings.Repeat("a", 73))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Hash() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// Verify TESTS
// =========================================================================

func TestVerify_CorrectPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	ok, err := ps.Verify(hash, "correct-horse-battery-staple")
	if err != nil || !ok {
		t.Errorf("Verify() = (%v, %v), want (true, nil)", ok, err)
	}
}

func TestVerify_WrongPasswordIsNotAnError(t *testing.T) {
	ps := newTestPasswordService()

	hash, _ := ps.Hash("the-real-password")

	for _, attempt := range []string{"the-wrong-password", "", "the-real-password "} {
		ok, err := ps.Verify(hash, attempt)
		if err != nil {
			t.Fatalf("Verify(%q) error = %v, want nil", attempt, err)
		}
		if ok {
			t.Errorf("Verify(%q) = true, want false", attempt)
		}
	}
}

// bcrypt ignores input past 72 bytes; a longer password sharing that prefix
// must not verify.
func TestVerify_RejectsInputPastLimit(t *testing.T) {
	ps := newTestPasswordService()

	pw := strings.Repeat("a", MaxPasswordBytes)
	hash, err := ps.Hash(pw)
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	ok, err := ps.Verify(hash, pw)
	if err != nil || !ok {
		t.Fatalf("Verify(72 bytes) = %v, %v, want true, nil", ok, err)
	}

	for _, suffix := range []string{"b", "DIFFERENT"} {
		ok, err := ps.Verify(hash, pw+suffix)
		if err != nil {
			t.Fatalf("Verify(+%q) error = %v, want nil", suffix, err)
		}
		if ok {
			t.Errorf("Verify(+%q) = true, want false", suffix)
		}
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	ps := newTestPasswordService()

	tests := []struct {
		name string
		hash string
	}{
		{"garbage", "not-a-valid-bcrypt-hash"},
		{"empty", ""},
		{"truncated", "$2a$10$N9qo8uLOickgx2ZMRZoMye"},
		{"bad prefix", "$9z$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := ps.Verify(tt.hash, "password")
			if ok {
				t.Fatal("Verify() = true for a malformed hash")
			}
			if !errors.Is(err, apperror.ErrInvalidCredentialFormat) {
				t.Errorf("Verify() error = %v, want ErrInvalidCredentialFormat", err)
			}
		})
	}
}

// A hash made at one cost must verify with a service configured for another.
func TestVerify_AcceptsForeignCost(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("legacy"), 5)
	if err != nil {
		t.Fatalf("GenerateFromPassword: %v", err)
	}

	ok, err := newTestPasswordService().Verify(string(hash), "legacy")
	if err != nil || !ok {
		t.Errorf("Verify() = (%v, %v), want (true, nil)", ok, err)
	}
}

// =========================================================================
// ROUND-TRIP TEST
// =========================================================================

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
		other    string
	}{
		{"simple alphanumeric", "hello123", "hello124"},
		{"special characters", "p@$$w0rd!#%", "p@$$w0rd!#"},
		{"unicode", "пароль-密码", "пароль-密"},
		{"whitespace", "  leading and trailing  ", "leading and trailing"},
		{"empty-ish", " ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hash, err := ps.Hash(tc.password)
			if err != nil {
				t.Fatalf("Hash(%q) error = %v", tc.password, err)
			}

			if ok, err := ps.Verify(hash, tc.password); err != nil || !ok {
				t.Errorf("Verify(own password) = (%v, %v)", ok, err)
			}
			if ok, err := ps.Verify(hash, tc.other); err != nil || ok {
				t.Errorf("Verify(%q) = (%v, %v), want (false, nil)", tc.other, ok, err)
			}
		})
	}
}
