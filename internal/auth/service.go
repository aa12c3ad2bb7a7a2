package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/daisy-gov/daisy/internal/endpoint"
	"github.com/daisy-gov/daisy/internal/user"
)

// ErrInvalidKey is returned when the provided API key matches no global, user or endpoint key.
var ErrInvalidKey = errors.New("invalid API key")

// keyPrefixLen is the number of leading key characters stored in clear for lookup.
const keyPrefixLen = 8

// Service checks submitted API keys.
type Service struct {
	globalKey    string
	userRepo     user.Repository
	endpointRepo endpoint.Repository
	bcryptCost   int
}

// NewService creates a new auth Service. An empty globalKey disables the global key.
func NewService(globalKey string, userRepo user.Repository, endpointRepo endpoint.Repository, bcryptCost int) *Service {
	return &Service{
		globalKey:    globalKey,
		userRepo:     userRepo,
		endpointRepo: endpointRepo,
		bcryptCost:   bcryptCost,
	}
}

// GenerateKey creates a new endpoint API key. Returns the raw key, its prefix
// (first 8 chars) and the bcrypt hash. The raw key is: 32 random bytes ->
// base64url -> prepend "dsy_".
func (s *Service) GenerateKey() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}

	rawKey = "dsy_" + base64.RawURLEncoding.EncodeToString(b)
	prefix = rawKey[:keyPrefixLen]

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(rawKey), s.bcryptCost)
	if err != nil {
		return "", "", "", fmt.Errorf("hashing key: %w", err)
	}
	hash = string(hashBytes)

	return rawKey, prefix, hash, nil
}

// RegisterEndpoint creates an endpoint consumer and returns its raw key, which
// is not stored and cannot be shown again.
func (s *Service) RegisterEndpoint(ctx context.Context, name string) (*endpoint.Endpoint, string, error) {
	rawKey, prefix, hash, err := s.GenerateKey()
	if err != nil {
		return nil, "", err
	}

	e := &endpoint.Endpoint{Name: name, KeyPrefix: prefix, KeyHash: hash}
	if err := s.endpointRepo.Create(ctx, e); err != nil {
		return nil, "", fmt.Errorf("creating endpoint: %w", err)
	}

	return e, rawKey, nil
}

// Authenticate resolves a raw API key to an Identity. The global key is tried
// first, then personal user keys, then hashed endpoint keys.
func (s *Service) Authenticate(ctx context.Context, rawKey string) (*Identity, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}

	if s.globalKey != "" && subtle.ConstantTimeCompare([]byte(rawKey), []byte(s.globalKey)) == 1 {
		return &Identity{Kind: KindGlobal, Name: KindGlobal}, nil
	}

	u, err := s.userRepo.GetByAPIKey(ctx, rawKey)
	switch {
	case err == nil:
		id := u.ID
		return &Identity{Kind: KindUser, UserID: &id, Name: u.Username}, nil
	case !errors.Is(err, user.ErrUserNotFound):
		return nil, fmt.Errorf("looking up user key: %w", err)
	}

	if len(rawKey) < keyPrefixLen {
		return nil, ErrInvalidKey
	}

	candidates, err := s.endpointRepo.FindByPrefix(ctx, rawKey[:keyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("finding endpoints by prefix: %w", err)
	}

	for _, e := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(e.KeyHash), []byte(rawKey)) == nil {
			id := e.ID
			return &Identity{Kind: KindEndpoint, EndpointID: &id, Name: e.Name}, nil
		}
	}

	return nil, ErrInvalidKey
}
