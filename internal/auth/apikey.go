package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
)

// API keys are 32-character opaque bearer strings: a 26-character random
// prefix followed by a 6-character keyed integrity stamp. The stamp is
// recomputable from the shared secret, so issued keys never need to be
// persisted to be validated.
const (
	keyLength    = 32
	prefixLength = 26
	stampLength  = 6

	keyAlphabet = "abcdfghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ1234567890"
)

// GenerateAPIKey issues a new opaque API key stamped with the secret.
func GenerateAPIKey(secret string) (string, error) {
	prefix, err := randomString(prefixLength)
	if err != nil {
		return "", err
	}
	return prefix + stamp(prefix, secret), nil
}

// ValidateAPIKey reports whether the key carries a valid stamp for the
// secret. Malformed input of any kind yields false, never a panic.
func ValidateAPIKey(key, secret string) bool {
	if len(key) != keyLength {
		return false
	}
	prefix, mac := key[:prefixLength], key[prefixLength:]
	return hmac.Equal([]byte(mac), []byte(stamp(prefix, secret)))
}

// stamp computes the truncated HMAC-SHA256 of the prefix under the secret,
// as lowercase hex.
func stamp(prefix, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(prefix))
	return hex.EncodeToString(mac.Sum(nil))[:stampLength]
}

// randomString draws n characters uniformly from the key alphabet.
func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(keyAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = keyAlphabet[idx.Int64()]
	}
	return string(out), nil
}
