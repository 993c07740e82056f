package store

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Iteration count werkzeug uses when a pbkdf2 method omits it.
const defaultPBKDF2Iterations = 600000

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword compares password against hash in constant time. It accepts
// bcrypt hashes and the pbkdf2/scrypt "method$salt$hex" hashes written by
// the previous version of the credential file.
func CheckPassword(hashed, password string) bool {
	if strings.HasPrefix(hashed, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) == nil
	}

	method, rest, ok := strings.Cut(hashed, "$")
	if !ok {
		return false
	}
	salt, want, ok := strings.Cut(rest, "$")
	if !ok {
		return false
	}
	wantBytes, err := hex.DecodeString(want)
	if err != nil || len(wantBytes) == 0 {
		return false
	}

	var got []byte
	parts := strings.Split(method, ":")
	switch parts[0] {
	case "pbkdf2":
		got = pbkdf2Key(parts[1:], salt, password)
	case "scrypt":
		got = scryptKey(parts[1:], salt, password)
	}
	if got == nil {
		return false
	}
	return subtle.ConstantTimeCompare(got, wantBytes) == 1
}

func pbkdf2Key(params []string, salt, password string) []byte {
	if len(params) == 0 {
		return nil
	}
	var h func() hash.Hash
	switch params[0] {
	case "sha256":
		h = sha256.New
	case "sha512":
		h = sha512.New
	case "sha1":
		h = sha1.New
	default:
		return nil
	}
	iterations := defaultPBKDF2Iterations
	if len(params) > 1 {
		n, err := strconv.Atoi(params[1])
		if err != nil || n <= 0 {
			return nil
		}
		iterations = n
	}
	return pbkdf2.Key([]byte(password), []byte(salt), iterations, h().Size(), h)
}

func scryptKey(params []string, salt, password string) []byte {
	n, r, p := 32768, 8, 1
	if len(params) == 3 {
		var err error
		if n, err = strconv.Atoi(params[0]); err != nil {
			return nil
		}
		if r, err = strconv.Atoi(params[1]); err != nil {
			return nil
		}
		if p, err = strconv.Atoi(params[2]); err != nil {
			return nil
		}
	} else if len(params) != 0 {
		return nil
	}
	key, err := scrypt.Key([]byte(password), []byte(salt), n, r, p, 64)
	if err != nil {
		return nil
	}
	return key
}
