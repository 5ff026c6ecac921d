package memdefault

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

// BcryptHasher is the default collab.PasswordHasher, grounded on the
// teacher's bcrypt-backed auth service.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher builds a hasher at the given cost, falling back to
// bcrypt.DefaultCost when cost is out of bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", domainerrors.StoreError("hash_password", err)
	}
	return string(out), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if err == bcrypt.ErrMismatchedHashAndPassword {
		return false, nil
	}
	return false, domainerrors.StoreError("verify_password", err)
}

func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != h.cost
}
