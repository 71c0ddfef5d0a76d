package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedPassword), nil
}

// CheckPassword checks if a password matches its hash
func CheckPassword(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("invalid password")
		}
		return err
	}
	return nil
}

// HashAnswer hashes a password reset secret answer. Answers are
// normalized first so "My Dog" and "my dog " compare equal.
func HashAnswer(answer string) (string, error) {
	return HashPassword(normalizeAnswer(answer))
}

// CheckAnswer checks a password reset secret answer against its hash
func CheckAnswer(answer, hash string) error {
	return CheckPassword(normalizeAnswer(answer), hash)
}

func normalizeAnswer(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}
