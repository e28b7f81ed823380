package core

import (
	"golang.org/x/crypto/bcrypt"
)

// bcrypt only consumes the first 72 bytes of its input; longer passwords are
// truncated before hashing and comparing.
const maxPasswordBytes = 72

func truncatePassword(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}

// HashPassword returns a bcrypt hash with a fresh random salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(truncatePassword(password), bcrypt.DefaultCost)
	if err != nil {
		return "", NewValidationError("Error en el formato de la contraseña")
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches hash. Any malformed or
// empty hash simply fails the comparison.
func VerifyPassword(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), truncatePassword(password)) == nil
}
