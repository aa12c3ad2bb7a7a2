package endpoint

import (
	"time"

	"github.com/google/uuid"
)

// Endpoint represents a row in the endpoints table: an external consumer of
// the export API identified by a hashed API key.
type Endpoint struct {
	ID        uuid.UUID
	Name      string
	KeyPrefix string
	KeyHash   string
	CreatedAt time.Time
}
