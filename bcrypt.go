package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// BcryptHasher implements PasswordHasher on top of bcrypt
type BcryptHasher struct {
	Cost int
}

var _ PasswordHasher = BcryptHasher{}

// NewBcryptHasher returns a hasher using cost, or the package default
// when cost is outside the bcrypt range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = passwordHashCost()
	}
	return BcryptHasher{Cost: cost}
}

func (h BcryptHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	cost := h.Cost
	if cost == 0 {
		cost = passwordHashCost()
	}

	d, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(d), err
}

func (h BcryptHasher) ComparePasswordAndHash(password, hash string) error {
	return ComparePasswordAndHash(password, hash)
}

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	return BcryptHasher{}.HashPassword(password)
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatchedHashAndPassword
		}
		return err
	}
	return nil
}

// dummyDigest is compared against when there is no stored digest so that
// every lookup outcome costs one hash comparison
var dummyDigest = sync.OnceValue(func() string {
	d, err := bcrypt.GenerateFromPassword([]byte("go-signin/no-such-account"), passwordHashCost())
	if err != nil {
		return ""
	}
	return string(d)
})
