package registry

import (
	"crypto/rand"
	"math/big"
)

// Code alphabet: uppercase letters and digits, so codes stay easy to read
// back over voice or paste from a phone keyboard.
const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	// RoomCodeLength is the length of generated room codes.
	RoomCodeLength = 6

	// MessageIDLength is the length of generated message ids.
	MessageIDLength = 8
)

// GenerateCode returns a random code of the given length drawn uniformly
// from the code alphabet. Codes are not unique by construction; callers
// that need uniqueness must check and retry.
func GenerateCode(length int) (string, error) {
	if length <= 0 {
		length = RoomCodeLength
	}

	code := make([]byte, length)
	max := big.NewInt(int64(len(codeChars)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeChars[n.Int64()]
	}

	return string(code), nil
}

// IsValidCode checks whether code could have come out of GenerateCode.
func IsValidCode(code string) bool {
	if code == "" || len(code) > 20 {
		return false
	}

	for _, c := range code {
		if !isCodeChar(c) {
			return false
		}
	}
	return true
}

func isCodeChar(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}
