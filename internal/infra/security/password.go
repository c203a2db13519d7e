package security

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher hashes the admin password. Cost below bcrypt.MinCost falls back to the default.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), h.cost())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	if hash == "" {
		return bcrypt.ErrMismatchedHashAndPassword
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ResolveAdminHash prefers a configured bcrypt hash and otherwise hashes the plain password.
// Both empty yields "", which leaves admin access disabled.
func (h BcryptHasher) ResolveAdminHash(hash, plain string) (string, error) {
	hash = strings.TrimSpace(hash)
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return "", errors.New("security: ADMIN_PASSWORD_HASH is not a bcrypt hash")
		}
		return hash, nil
	}
	if plain == "" {
		return "", nil
	}
	return h.Hash(plain)
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}
