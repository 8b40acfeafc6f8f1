package core

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

const (
	DefaultGeneratedLength = 16
	minGeneratedLength     = 8
	maxGeneratedLength     = 128

	lowerChars  = "abcdefghijklmnopqrstuvwxyz"
	upperChars  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars  = "0123456789"
	symbolChars = "!@#$%^&*()-_=+[]{};:,.?/"
)

var ErrGeneratedLength = errors.New("generated password length must be between 8 and 128")

// GeneratePassword returns a random password of the given length holding
// at least one lower case letter, one upper case letter and one digit, and
// one symbol when symbols is set
func GeneratePassword(length int, symbols bool) ([]byte, error) {
	if length < minGeneratedLength || length > maxGeneratedLength {
		return nil, ErrGeneratedLength
	}

	classes := []string{lowerChars, upperChars, digitChars}
	if symbols {
		classes = append(classes, symbolChars)
	}
	alphabet := strings.Join(classes, "")

	for {
		password := make([]byte, length)
		for i := range password {
			c, err := pick(alphabet)
			if err != nil {
				return nil, err
			}
			password[i] = c
		}
		if conforms(password, classes) {
			return password, nil
		}
	}
}

func pick(alphabet string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		return 0, err
	}
	return alphabet[n.Int64()], nil
}

func conforms(password []byte, classes []string) bool {
	for _, class := range classes {
		if !strings.ContainsAny(string(password), class) {
			return false
		}
	}
	return true
}
