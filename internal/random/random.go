// Package random generates random tokens from a cryptographically secure
// source.
package random

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// Alphabets for String.
const (
	ASCIIAlphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	Base64URL         = ASCIIAlphanumeric + "-_"
	Hex               = "0123456789abcdef"
)

// ErrEmptyAlphabet is returned when String is given no characters to choose from.
var ErrEmptyAlphabet = errors.New("alphabet is empty")

// ErrNegativeLength is returned when a negative length is requested.
var ErrNegativeLength = errors.New("length is negative")

// Bytes returns n random bytes.
func Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrNegativeLength
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("reading random bytes: %w", err)
	}
	return b, nil
}

// HexString returns n random bytes encoded as 2n hex characters.
func HexString(n int) (string, error) {
	b, err := Bytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// String returns n characters chosen uniformly from alphabet.
func String(n int, alphabet string) (string, error) {
	if n < 0 {
		return "", ErrNegativeLength
	}
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return "", ErrEmptyAlphabet
	}

	limit := big.NewInt(int64(len(chars)))
	out := make([]rune, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("choosing random character: %w", err)
		}
		out[i] = chars[idx.Int64()]
	}
	return string(out), nil
}

// ConstantTimeCompare reports whether a and b are equal without leaking
// timing information about their contents.
func ConstantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
