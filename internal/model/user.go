package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// User is an account owning plants, notes and locations.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         string    `json:"role" bson:"role"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// RoleAtLeast checks if role meets or exceeds the minimum required role.
// Unknown roles never qualify.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin: 2,
		RoleUser:  1,
	}
	have, ok := levels[role]
	if !ok {
		return false
	}
	need, ok := levels[minimum]
	if !ok {
		return false
	}
	return have >= need
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

// ValidatePassword checks password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}

// NormalizeUsername trims the username and checks that it is non-empty,
// at most NameMaxLen bytes and free of whitespace.
func NormalizeUsername(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", errors.New("username is empty")
	}
	if len(s) > NameMaxLen {
		return "", errors.New("username is longer than 255 bytes")
	}
	if !utf8.ValidString(s) {
		return "", errors.New("username is not UTF-8")
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", errors.New("username contains whitespace")
	}
	return s, nil
}
