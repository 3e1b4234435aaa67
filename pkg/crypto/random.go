package crypto

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// generateRandomString returns a random string of length n drawn
// from a letters-only charset, used for certificate subject names.
func generateRandomString(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(charset)))

	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("rand.Int(): %s", err)
		}
		out[i] = charset[idx.Int64()]
	}

	return string(out), nil
}

// randomSerial returns a random certificate serial number.
func randomSerial() (*big.Int, error) {
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, fmt.Errorf("rand.Int(): %s", err)
	}
	return serial, nil
}
