package domain

import (
	"fmt"
	"strings"
)

// ErrSchemaViolation is returned when a request payload does not conform to
// its JSON schema. The Errors field contains machine-readable details.
type ErrSchemaViolation struct {
	Schema string
	Errors []string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("%s validation failed: %s", e.Schema, strings.Join(e.Errors, "; "))
}
