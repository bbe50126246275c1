package repository

import "strings"

// isUniqueViolation reports whether err is Oracle's ORA-00001 unique
// constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ORA-00001")
}
