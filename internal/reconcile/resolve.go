package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/identity"
	"github.com/daisy-gov/daisy/internal/partner"
	"github.com/daisy-gov/daisy/internal/user"
)

// Grantee is the local record an external identity resolved to. Exactly one
// of User and Contact is set.
type Grantee struct {
	User    *user.User
	Contact *contact.Contact
}

// UserID returns the user id, or nil when the grantee is a contact.
func (g *Grantee) UserID() *uuid.UUID {
	if g.User == nil {
		return nil
	}
	return &g.User.ID
}

// ContactID returns the contact id, or nil when the grantee is a user.
func (g *Grantee) ContactID() *uuid.UUID {
	if g.Contact == nil {
		return nil
	}
	return &g.Contact.ID
}

// RetrieveAndUpdate resolves oidcID (and optionally email) to a single local
// record, refreshing it from the identity provider. Matching order is fixed:
// users by oidc_id, contacts by oidc_id, users by email, contacts by email,
// then a new contact when createContactIfNotFound is set.
//
// Only records with no oidc_id can be matched by email. A record found by
// email that is linked to another identity is reported as inconsistent.
func (e *Engine) RetrieveAndUpdate(ctx context.Context, oidcID, email string, createContactIfNotFound bool) (*Grantee, error) {
	usersByOIDC, err := e.store.Users.ListByOIDCID(ctx, oidcID)
	if err != nil {
		return nil, fmt.Errorf("looking up users by oidc_id: %w", err)
	}
	contactsByOIDC, err := e.store.Contacts.ListByOIDCID(ctx, oidcID)
	if err != nil {
		return nil, fmt.Errorf("looking up contacts by oidc_id: %w", err)
	}
	if n := len(usersByOIDC) + len(contactsByOIDC); n > 1 {
		return nil, e.inconsistent(&InconsistentStateError{Key: KeyOIDCID, Value: oidcID, Matches: n})
	}

	var usersByEmail []user.User
	var contactsByEmail []contact.Contact
	if email != "" {
		if usersByEmail, err = e.store.Users.ListByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("looking up users by email: %w", err)
		}
		if contactsByEmail, err = e.store.Contacts.ListByEmail(ctx, email); err != nil {
			return nil, fmt.Errorf("looking up contacts by email: %w", err)
		}
		if n := len(usersByEmail) + len(contactsByEmail); n > 1 {
			return nil, e.inconsistent(&InconsistentStateError{Key: KeyEmail, Value: email, Matches: n})
		}
	}

	account, err := e.source.GetAccount(ctx, oidcID)
	if err != nil {
		return nil, fmt.Errorf("fetching account %s from %s: %w", oidcID, e.source.Name(), err)
	}
	if account.Email == "" {
		account.Email = email
	}

	if len(usersByOIDC) == 1 {
		return e.patchUser(ctx, usersByOIDC[0], oidcID, account)
	}
	if len(contactsByOIDC) == 1 {
		return e.patchContact(ctx, contactsByOIDC[0], oidcID, account)
	}

	if len(usersByEmail) == 1 {
		u := usersByEmail[0]
		if u.HasOIDCID() {
			return nil, e.inconsistent(&InconsistentStateError{Key: KeyEmail, Value: email, Matches: 1, LinkedTo: *u.OIDCID})
		}
		return e.patchUser(ctx, u, oidcID, account)
	}
	if len(contactsByEmail) == 1 {
		c := contactsByEmail[0]
		if c.HasOIDCID() {
			return nil, e.inconsistent(&InconsistentStateError{Key: KeyEmail, Value: email, Matches: 1, LinkedTo: *c.OIDCID})
		}
		return e.patchContact(ctx, c, oidcID, account)
	}

	if !createContactIfNotFound {
		return nil, fmt.Errorf("%w for oidc_id %s", ErrNotFound, oidcID)
	}
	return e.createContact(ctx, oidcID, account)
}

func (e *Engine) patchUser(ctx context.Context, u user.User, oidcID string, account *identity.Account) (*Grantee, error) {
	u.OIDCID = &oidcID
	u.Email = account.Email
	u.FirstName = account.FirstName
	u.LastName = account.LastName
	if err := e.store.Users.Update(ctx, &u); err != nil {
		return nil, fmt.Errorf("patching user %s: %w", u.ID, err)
	}
	e.metrics.AccountsPatched(1)
	slog.Info("reconcile: user updated from identity provider", "oidc_id", oidcID, "user_id", u.ID)
	return &Grantee{User: &u}, nil
}

func (e *Engine) patchContact(ctx context.Context, c contact.Contact, oidcID string, account *identity.Account) (*Grantee, error) {
	c.OIDCID = &oidcID
	c.Email = account.Email
	c.FirstName = account.FirstName
	c.LastName = account.LastName
	if err := e.store.Contacts.Update(ctx, &c); err != nil {
		return nil, fmt.Errorf("patching contact %s: %w", c.ID, err)
	}
	e.metrics.AccountsPatched(1)
	slog.Info("reconcile: contact updated from identity provider", "oidc_id", oidcID, "contact_id", c.ID)
	return &Grantee{Contact: &c}, nil
}

func (e *Engine) createContact(ctx context.Context, oidcID string, account *identity.Account) (*Grantee, error) {
	imported, err := e.store.Partners.Ensure(ctx, partner.Imported())
	if err != nil {
		return nil, fmt.Errorf("ensuring imported partner: %w", err)
	}

	c := &contact.Contact{
		OIDCID:     &oidcID,
		Email:      account.Email,
		FirstName:  account.FirstName,
		LastName:   account.LastName,
		Type:       contact.TypeOther,
		PartnerIDs: []uuid.UUID{imported.ID},
	}
	if err := e.store.Contacts.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}
	e.metrics.AccountsCreated(1)
	slog.Info("reconcile: contact created from identity provider", "oidc_id", oidcID, "contact_id", c.ID)
	return &Grantee{Contact: c}, nil
}

func (e *Engine) inconsistent(err *InconsistentStateError) error {
	e.metrics.Inconsistency(err.Key)
	slog.Error("reconcile: inconsistent state", "key", err.Key, "value", err.Value, "matches", err.Matches, "error", err)
	return err
}
