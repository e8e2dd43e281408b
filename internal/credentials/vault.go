package credentials

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// workFactor matches the cost the rest of the stack was provisioned for.
const workFactor = 10

// Vault hashes and verifies user secrets. bcrypt embeds salt and cost in
// the hash, and CompareHashAndPassword is constant time, so verification
// needs no external parameters and leaks no timing signal.
type Vault struct {
	cost int
}

// NewVault returns a Vault with the fixed work factor.
func NewVault() *Vault {
	return &Vault{cost: workFactor}
}

// Hash derives a salted one-way hash of secret.
func (v *Vault) Hash(secret string) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("secret is required")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), v.cost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(h), nil
}

// Verify reports whether secret matches hash.
func (v *Vault) Verify(secret, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
