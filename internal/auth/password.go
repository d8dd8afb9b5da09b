// Package auth hashes and verifies account passwords.
//
// WHY BCRYPT?
// bcrypt is a password hashing function specifically designed to be slow.
// It generates a random salt per call and embeds it (and the cost) in the
// output, so the stored string is all Verify needs:
//
//	$2a$10$<22-char salt><31-char hash>
//	 ^   ^
//	 |   cost (10 rounds → 2^10 = 1024 iterations)
//	 version
//
// The hashing happens on the client: the backend only ever receives and
// returns the hash string.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/medremind/internal/apperror"
)

// DefaultCost is the bcrypt work factor used for every stored password.
//
// Hashes already stored by earlier app versions were produced with 10 rounds,
// and a phone has to pay this cost on every signup, so it stays at 10.
// Verify accepts any cost; the cost is read back out of the hash.
const DefaultCost = 10

// MaxPasswordBytes is the bcrypt input limit. Longer input is rejected rather
// than silently truncated.
const MaxPasswordBytes = 72

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests; using a lower cost (e.g. 4) makes tests run much faster
// without compromising the logic being tested.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with DefaultCost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: DefaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost
// (bcrypt.MinCost is 4). Use it in tests in other packages.
//
// Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Cost returns the work factor new hashes are produced with.
func (p *PasswordService) Cost() int {
	return p.cost
}

// Hash hashes the given plaintext password with a fresh random salt.
//
// Returns an error if the plaintext is longer than 72 bytes.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > MaxPasswordBytes {
		return "", apperror.ValidationFailed("password",
			fmt.Sprintf("password must be %d bytes or fewer", MaxPasswordBytes))
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify checks whether plaintext matches a stored bcrypt hash.
//
// THREE OUTCOMES:
//   - (true, nil)   → password matches
//   - (false, nil)  → wrong password
//   - (false, err)  → the stored hash is unreadable; err wraps
//     apperror.ErrInvalidCredentialFormat
//
// Keeping "wrong password" out of the error path lets the session layer tell
// a typo apart from a corrupt user record.
//
// bcrypt.CompareHashAndPassword compares in constant time. It only reads
// the first MaxPasswordBytes of plaintext, so longer input never matches:
// Hash refuses to produce a hash for it.
func (p *PasswordService) Verify(hash, plaintext string) (bool, error) {
	if len(plaintext) > MaxPasswordBytes {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		// ErrHashTooShort, InvalidHashPrefixError, InvalidCostError, ...
		return false, fmt.Errorf("auth: %w: %v", apperror.ErrInvalidCredentialFormat, err)
	}
}
