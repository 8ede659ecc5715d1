package shortid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// Length of a public promotion token.
const Length = 6

// MaxAttempts bounds the collision re-roll loop in Unique.
const MaxAttempts = 10

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var maxIdx = big.NewInt(int64(len(charset)))

var ErrExhausted = errors.New("could not generate a unique short id")

// Generate returns a random Base62 token of Length characters.
func Generate() (string, error) {
	b := make([]byte, Length)
	for i := range b {
		n, err := rand.Int(rand.Reader, maxIdx)
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}

// Unique re-rolls Generate until exists reports the candidate as free.
func Unique(exists func(string) (bool, error)) (string, error) {
	return unique(Generate, exists)
}

func unique(gen func() (string, error), exists func(string) (bool, error)) (string, error) {
	for range MaxAttempts {
		candidate, err := gen()
		if err != nil {
			return "", fmt.Errorf("generate short id: %w", err)
		}
		taken, err := exists(candidate)
		if err != nil {
			return "", fmt.Errorf("check short id: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrExhausted
}
