package room

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	CodeLength = 5
	codeChars  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// NewCode returns a random human-typeable room code.
func NewCode() string {
	b := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeChars)))

	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failure: " + err.Error())
		}
		b[i] = codeChars[idx.Int64()]
	}

	return string(b)
}

// NormalizeCode trims and upper-cases user input. ok is false when the
// result cannot be a room code.
func NormalizeCode(input string) (code string, ok bool) {
	code = strings.ToUpper(strings.TrimSpace(input))

	if len(code) != CodeLength {
		return code, false
	}

	for _, c := range code {
		if !strings.ContainsRune(codeChars, c) {
			return code, false
		}
	}

	return code, true
}
