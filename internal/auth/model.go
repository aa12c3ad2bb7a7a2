package auth

import "github.com/google/uuid"

// Key kinds an Identity can be resolved from.
const (
	KindGlobal   = "global"
	KindUser     = "user"
	KindEndpoint = "endpoint"
)

// Identity is stored in the request context after the API key check.
type Identity struct {
	Kind       string
	UserID     *uuid.UUID // set for KindUser
	EndpointID *uuid.UUID // set for KindEndpoint
	Name       string     // username or endpoint name; "global" for the global key
}
