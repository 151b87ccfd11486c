package sml

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Migration keys are shared secrets correlating source and destination SMP.
// The directory requires 8-24 characters with at least one lowercase letter,
// one uppercase letter, one digit and one punctuation character.
const (
	migrationKeyLength = 24

	keyCharsLower = "abcdefghijklmnopqrstuvwxyz"
	keyCharsUpper = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyCharsDigit = "0123456789"
	keyCharsPunct = "@#$%()[]{}*+-!~^"
)

// IsValidMigrationKey reports whether the key satisfies the directory's
// migration-code requirements.
func IsValidMigrationKey(key string) bool {
	if len(key) < 8 || len(key) > migrationKeyLength {
		return false
	}
	var lower, upper, digit, punct bool
	for _, r := range key {
		switch {
		case strings.ContainsRune(keyCharsLower, r):
			lower = true
		case strings.ContainsRune(keyCharsUpper, r):
			upper = true
		case strings.ContainsRune(keyCharsDigit, r):
			digit = true
		case strings.ContainsRune(keyCharsPunct, r):
			punct = true
		default:
			return false
		}
	}
	return lower && upper && digit && punct
}

// GenerateMigrationKey creates a random migration key satisfying the
// directory's character-class requirements.
func GenerateMigrationKey() string {
	all := keyCharsLower + keyCharsUpper + keyCharsDigit + keyCharsPunct
	buf := make([]byte, migrationKeyLength)
	// One character from each required class, the rest from the full set.
	buf[0] = randomChar(keyCharsLower)
	buf[1] = randomChar(keyCharsUpper)
	buf[2] = randomChar(keyCharsDigit)
	buf[3] = randomChar(keyCharsPunct)
	for i := 4; i < migrationKeyLength; i++ {
		buf[i] = randomChar(all)
	}
	shuffle(buf)
	return string(buf)
}

func randomChar(set string) byte {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(set))))
	if err != nil {
		// crypto/rand only fails when the platform entropy source is broken.
		panic(err)
	}
	return set[n.Int64()]
}

func shuffle(buf []byte) {
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic(err)
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
}
