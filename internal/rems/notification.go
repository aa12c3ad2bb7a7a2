// Package rems talks to the REMS data access request system: the entitlement
// notifications it posts to us and the application lookups we make against it.
package rems

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Notification is one entitlement item posted by REMS when an application
// is approved.
type Notification struct {
	Application int64  `json:"application"`
	Resource    string `json:"resource"` // dataset accession
	User        string `json:"user"`     // external identity (oidc_id)
	Mail        string `json:"mail"`
	End         string `json:"end,omitempty"` // ISO-8601 date or timestamp, optional
}

// Validate checks that the fields needed to grant access are present.
func (n Notification) Validate() error {
	var errs []error
	if n.Resource == "" {
		errs = append(errs, errors.New("resource is required"))
	}
	if n.User == "" {
		errs = append(errs, errors.New("user is required"))
	}
	return errors.Join(errs...)
}

// EndDate parses End. ok is false when no end was supplied.
func (n Notification) EndDate() (t time.Time, ok bool, err error) {
	end := strings.TrimSpace(n.End)
	if end == "" {
		return time.Time{}, false, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, end); err == nil {
			return t.UTC(), true, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("invalid end date %q", n.End)
}
