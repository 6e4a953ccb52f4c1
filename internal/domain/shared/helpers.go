package shared

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

func IsUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "23505") ||
		strings.Contains(errStr, "duplicate key") ||
		strings.Contains(errStr, "unique constraint")
}

// ConstraintName reports whether err mentions the named index or constraint.
func ConstraintName(err error, name string) bool {
	return err != nil && strings.Contains(err.Error(), name)
}

// CleanText trims and collapses inner whitespace of free text fields.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
