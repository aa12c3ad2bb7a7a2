// Package validation checks request bodies before they reach the services.
package validation

import (
	"regexp"
	"strings"
)

var endpointNameRegex = regexp.MustCompile(`^[a-z][a-z0-9-]{1,61}[a-z0-9]$`)

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// CreateEndpointRequest mirrors the fields needed for endpoint registration.
type CreateEndpointRequest struct {
	Name string
}

// ValidateCreateEndpointRequest validates an endpoint registration request.
// Returns a slice of field errors; empty slice means valid.
func ValidateCreateEndpointRequest(req CreateEndpointRequest) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(req.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	} else if !endpointNameRegex.MatchString(name) {
		errs = append(errs, FieldError{Field: "name", Message: "name must be lowercase alphanumeric with hyphens, 3-63 characters, starting with a letter"})
	}

	return errs
}
