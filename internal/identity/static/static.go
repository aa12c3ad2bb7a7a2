// Package static implements identity.Source over a YAML roster file. The file
// is read again on every call so edits are picked up by the next sync.
//
// File format:
//
//	accounts:
//	  - id: u1
//	    email: a@example.org
//	    firstName: Ada
//	    lastName: Lovelace
//	    username: ada
package static

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/daisy-gov/daisy/internal/identity"
)

// Name is the backend name of the static source.
const Name = "static"

type rosterFile struct {
	Accounts []identity.Account `json:"accounts"`
}

// Source reads accounts from a YAML file.
type Source struct {
	path string
}

// New creates a Source for the file at path.
func New(path string) *Source {
	return &Source{path: path}
}

// Name returns the backend name.
func (s *Source) Name() string {
	return Name
}

// ListAccounts returns every account in the file that has an email.
func (s *Source) ListAccounts(_ context.Context) ([]identity.Account, error) {
	roster, err := s.load()
	if err != nil {
		return nil, err
	}
	return identity.FilterReconcilable(Name, roster.Accounts), nil
}

// GetAccount returns the account with the given id.
func (s *Source) GetAccount(_ context.Context, externalID string) (*identity.Account, error) {
	roster, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, a := range roster.Accounts {
		if a.ExternalID == externalID {
			found := a
			return &found, nil
		}
	}
	return nil, identity.ErrAccountNotFound
}

// CheckConnectivity reports whether the roster file can be read and parsed.
func (s *Source) CheckConnectivity(_ context.Context) bool {
	if _, err := s.load(); err != nil {
		slog.Warn("static: roster file unavailable", "path", s.path, "error", err)
		return false
	}
	return true
}

func (s *Source) load() (*rosterFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("reading roster %s: %w", s.path, err)
	}
	var roster rosterFile
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parsing roster %s: %w", s.path, err)
	}
	return &roster, nil
}

var _ identity.Source = (*Source)(nil)
