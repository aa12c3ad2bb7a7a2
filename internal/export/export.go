// Package export builds the {"$schema": ..., "items": [...]} documents served
// to external consumers and validates each item against its JSON schema.
package export

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/dataset"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Export kinds. Each has a schema file named <kind>.json.
const (
	KindDataset = "dataset"
	KindContact = "contact"
)

var kinds = []string{KindDataset, KindContact}

// Document is an export payload.
type Document struct {
	Schema string `json:"$schema"`
	Items  []any  `json:"items"`
}

// DatasetItem is the exported form of a dataset.
type DatasetItem struct {
	Accession   string `json:"accession"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// ContactItem is the exported form of a contact.
type ContactItem struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Email     string   `json:"email"`
	Type      string   `json:"type"`
	OIDCID    string   `json:"oidc_id,omitempty"`
	Partners  []string `json:"partners,omitempty"`
}

// FromDataset converts a dataset row.
func FromDataset(d dataset.Dataset) DatasetItem {
	return DatasetItem{Accession: d.Accession, Title: d.Title, Description: d.Description}
}

// FromContact converts a contact row. acronyms maps partner ids to acronyms;
// unknown ids are left out.
func FromContact(c contact.Contact, acronyms map[uuid.UUID]string) ContactItem {
	item := ContactItem{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Type:      c.Type,
	}
	if c.HasOIDCID() {
		item.OIDCID = *c.OIDCID
	}
	for _, id := range c.PartnerIDs {
		if a, ok := acronyms[id]; ok {
			item.Partners = append(item.Partners, a)
		}
	}
	return item
}

// Validator holds the compiled export schemas.
type Validator struct {
	baseURL string
	schemas map[string]*jsonschema.Schema
}

// NewValidator compiles the embedded schemas, published under baseURL.
func NewValidator(baseURL string) (*Validator, error) {
	v := &Validator{
		baseURL: strings.TrimRight(baseURL, "/"),
		schemas: make(map[string]*jsonschema.Schema, len(kinds)),
	}

	c := jsonschema.NewCompiler()
	c.AssertFormat()
	for _, kind := range kinds {
		raw, err := schemaFS.ReadFile("schemas/" + kind + ".json")
		if err != nil {
			return nil, fmt.Errorf("reading %s schema: %w", kind, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing %s schema: %w", kind, err)
		}
		if err := c.AddResource(v.SchemaURL(kind), doc); err != nil {
			return nil, fmt.Errorf("adding %s schema: %w", kind, err)
		}
	}
	for _, kind := range kinds {
		sch, err := c.Compile(v.SchemaURL(kind))
		if err != nil {
			return nil, fmt.Errorf("compiling %s schema: %w", kind, err)
		}
		v.schemas[kind] = sch
	}
	return v, nil
}

// SchemaURL returns the public URL of a kind's schema.
func (v *Validator) SchemaURL(kind string) string {
	return v.baseURL + "/" + kind + ".json"
}

// Validate checks one item against the schema of kind.
func (v *Validator) Validate(kind string, item any) error {
	sch, ok := v.schemas[kind]
	if !ok {
		return fmt.Errorf("unknown export kind %q", kind)
	}
	raw, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encoding %s item: %w", kind, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("decoding %s item: %w", kind, err)
	}
	return sch.Validate(inst)
}

// Build wraps items in a Document. Items failing validation are logged and
// still exported.
func Build[T any](v *Validator, kind string, items []T) Document {
	doc := Document{Schema: v.SchemaURL(kind), Items: make([]any, 0, len(items))}
	for i, item := range items {
		if err := v.Validate(kind, item); err != nil {
			slog.Warn("export: item does not match schema", "kind", kind, "index", i, "error", err)
		}
		doc.Items = append(doc.Items, item)
	}
	return doc
}
