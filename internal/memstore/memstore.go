// Package memstore is an in-memory implementation of the registry
// repositories. It follows the same uniqueness rules as the Postgres schema
// and is used as the Entity Store in tests.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/daisy-gov/daisy/internal/access"
	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/endpoint"
	"github.com/daisy-gov/daisy/internal/partner"
	"github.com/daisy-gov/daisy/internal/user"
)

// Operation names accepted by FailWith.
const (
	OpUserCreate    = "users.create"
	OpUserUpdate    = "users.update"
	OpContactCreate = "contacts.create"
	OpContactUpdate = "contacts.update"
	OpAccessCreate  = "accesses.create"
)

// Store holds every table in memory. The zero value is not usable; call New.
type Store struct {
	mu        sync.Mutex
	users     []user.User
	contacts  []contact.Contact
	partners  []partner.Partner
	datasets  []dataset.Dataset
	accesses  []access.Access
	endpoints []endpoint.Endpoint
	failures  map[string]error
	now       func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		failures: make(map[string]error),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// FailWith makes every subsequent call of op return err. A nil err clears it.
func (s *Store) FailWith(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Users returns the user repository view of the store.
func (s *Store) Users() user.Repository { return &userRepo{s: s} }

// Contacts returns the contact repository view of the store.
func (s *Store) Contacts() contact.Repository { return &contactRepo{s: s} }

// Partners returns the partner repository view of the store.
func (s *Store) Partners() partner.Repository { return &partnerRepo{s: s} }

// Datasets returns the dataset repository view of the store.
func (s *Store) Datasets() dataset.Repository { return &datasetRepo{s: s} }

// Accesses returns the access repository view of the store.
func (s *Store) Accesses() access.Repository { return &accessRepo{s: s} }

// Endpoints returns the endpoint repository view of the store.
func (s *Store) Endpoints() endpoint.Repository { return &endpointRepo{s: s} }

// InsertUserUnchecked stores u without uniqueness checks, to reproduce
// inconsistent legacy data. It assigns an ID when u.ID is zero.
func (s *Store) InsertUserUnchecked(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.users = append(s.users, u)
	return u
}

// AllUsers returns a copy of every stored user in insertion order.
func (s *Store) AllUsers() []user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.users)
}

// AllContacts returns a copy of every stored contact in insertion order.
func (s *Store) AllContacts() []contact.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]contact.Contact, len(s.contacts))
	for i, c := range s.contacts {
		out[i] = cloneContact(c)
	}
	return out
}

// AllAccesses returns a copy of every stored access grant in insertion order.
func (s *Store) AllAccesses() []access.Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.accesses)
}

func (s *Store) failure(op string) error {
	return s.failures[op]
}

func cloneContact(c contact.Contact) contact.Contact {
	c.PartnerIDs = slices.Clone(c.PartnerIDs)
	return c
}

func equalPtr(p *string, v string) bool {
	return p != nil && *p == v
}

// --- users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(_ context.Context, u *user.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUserCreate); err != nil {
		return err
	}
	for _, existing := range s.users {
		if existing.Username == u.Username ||
			(u.OIDCID != nil && equalPtr(existing.OIDCID, *u.OIDCID)) ||
			(u.APIKey != nil && equalPtr(existing.APIKey, *u.APIKey)) {
			return user.ErrDuplicateUser
		}
	}
	u.ID = uuid.New()
	u.CreatedAt, u.UpdatedAt = s.now(), s.now()
	s.users = append(s.users, *u)
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	return r.find(func(u user.User) bool { return u.ID == id })
}

func (r *userRepo) GetByAPIKey(_ context.Context, apiKey string) (*user.User, error) {
	return r.find(func(u user.User) bool { return equalPtr(u.APIKey, apiKey) })
}

func (r *userRepo) ListByOIDCID(_ context.Context, oidcID string) ([]user.User, error) {
	return r.filter(func(u user.User) bool { return equalPtr(u.OIDCID, oidcID) }), nil
}

func (r *userRepo) ListByEmail(_ context.Context, email string) ([]user.User, error) {
	return r.filter(func(u user.User) bool { return u.Email == email }), nil
}

func (r *userRepo) List(_ context.Context) ([]user.User, error) {
	return r.filter(func(user.User) bool { return true }), nil
}

func (r *userRepo) Update(_ context.Context, u *user.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpUserUpdate); err != nil {
		return err
	}
	for i := range s.users {
		if s.users[i].ID != u.ID {
			continue
		}
		if u.OIDCID != nil {
			for j, other := range s.users {
				if j != i && equalPtr(other.OIDCID, *u.OIDCID) {
					return user.ErrDuplicateUser
				}
			}
		}
		s.users[i].OIDCID = u.OIDCID
		s.users[i].Email = u.Email
		s.users[i].FirstName = u.FirstName
		s.users[i].LastName = u.LastName
		s.users[i].UpdatedAt = s.now()
		u.UpdatedAt = s.users[i].UpdatedAt
		return nil
	}
	return user.ErrUserNotFound
}

func (r *userRepo) find(match func(user.User) bool) (*user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (r *userRepo) filter(match func(user.User) bool) []user.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []user.User{}
	for _, u := range r.s.users {
		if match(u) {
			out = append(out, u)
		}
	}
	return out
}

// --- contacts ---

type contactRepo struct{ s *Store }

func (r *contactRepo) Create(_ context.Context, c *contact.Contact) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpContactCreate); err != nil {
		return err
	}
	if c.Type == "" {
		c.Type = contact.TypeOther
	}
	c.ID = uuid.New()
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.contacts = append(s.contacts, cloneContact(*c))
	return nil
}

func (r *contactRepo) GetByID(_ context.Context, id uuid.UUID) (*contact.Contact, error) {
	found := r.filter(func(c contact.Contact) bool { return c.ID == id })
	if len(found) == 0 {
		return nil, contact.ErrContactNotFound
	}
	return &found[0], nil
}

func (r *contactRepo) ListByOIDCID(_ context.Context, oidcID string) ([]contact.Contact, error) {
	return r.filter(func(c contact.Contact) bool { return equalPtr(c.OIDCID, oidcID) }), nil
}

func (r *contactRepo) ListByEmail(_ context.Context, email string) ([]contact.Contact, error) {
	return r.filter(func(c contact.Contact) bool { return c.Email == email }), nil
}

func (r *contactRepo) List(_ context.Context) ([]contact.Contact, error) {
	return r.filter(func(contact.Contact) bool { return true }), nil
}

func (r *contactRepo) Update(_ context.Context, c *contact.Contact) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpContactUpdate); err != nil {
		return err
	}
	for i := range s.contacts {
		if s.contacts[i].ID == c.ID {
			s.contacts[i].OIDCID = c.OIDCID
			s.contacts[i].Email = c.Email
			s.contacts[i].FirstName = c.FirstName
			s.contacts[i].LastName = c.LastName
			s.contacts[i].UpdatedAt = s.now()
			c.UpdatedAt = s.contacts[i].UpdatedAt
			return nil
		}
	}
	return contact.ErrContactNotFound
}

func (r *contactRepo) filter(match func(contact.Contact) bool) []contact.Contact {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []contact.Contact{}
	for _, c := range r.s.contacts {
		if match(c) {
			out = append(out, cloneContact(c))
		}
	}
	return out
}

// --- partners ---

type partnerRepo struct{ s *Store }

func (r *partnerRepo) GetByID(_ context.Context, id uuid.UUID) (*partner.Partner, error) {
	return r.find(func(p partner.Partner) bool { return p.ID == id })
}

func (r *partnerRepo) GetByAcronym(_ context.Context, acronym string) (*partner.Partner, error) {
	return r.find(func(p partner.Partner) bool { return p.Acronym == acronym })
}

func (r *partnerRepo) Ensure(ctx context.Context, p partner.Partner) (*partner.Partner, error) {
	s := r.s
	s.mu.Lock()
	exists := slices.ContainsFunc(s.partners, func(existing partner.Partner) bool {
		return existing.Acronym == p.Acronym
	})
	if !exists {
		p.ID = uuid.New()
		p.CreatedAt = s.now()
		s.partners = append(s.partners, p)
	}
	s.mu.Unlock()
	return r.GetByAcronym(ctx, p.Acronym)
}

func (r *partnerRepo) List(_ context.Context) ([]partner.Partner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.partners)
	slices.SortFunc(out, func(a, b partner.Partner) int {
		switch {
		case a.Acronym < b.Acronym:
			return -1
		case a.Acronym > b.Acronym:
			return 1
		}
		return 0
	})
	if out == nil {
		out = []partner.Partner{}
	}
	return out, nil
}

func (r *partnerRepo) find(match func(partner.Partner) bool) (*partner.Partner, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.partners {
		if match(p) {
			found := p
			return &found, nil
		}
	}
	return nil, partner.ErrPartnerNotFound
}

// --- datasets ---

type datasetRepo struct{ s *Store }

func (r *datasetRepo) Create(_ context.Context, d *dataset.Dataset) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.datasets {
		if existing.Accession == d.Accession {
			return dataset.ErrDuplicateAccession
		}
	}
	d.ID = uuid.New()
	d.CreatedAt = s.now()
	s.datasets = append(s.datasets, *d)
	return nil
}

func (r *datasetRepo) GetByAccession(_ context.Context, accession string) (*dataset.Dataset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.datasets {
		if d.Accession == accession {
			found := d
			return &found, nil
		}
	}
	return nil, dataset.ErrNotFound
}

func (r *datasetRepo) List(_ context.Context) ([]dataset.Dataset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := slices.Clone(r.s.datasets)
	if out == nil {
		out = []dataset.Dataset{}
	}
	return out, nil
}

// --- accesses ---

type accessRepo struct{ s *Store }

func (r *accessRepo) Create(_ context.Context, a *access.Access) error {
	if err := access.ValidateGrantee(a); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure(OpAccessCreate); err != nil {
		return err
	}
	if a.Status == "" {
		a.Status = access.StatusActive
	}
	if a.GrantedOn.IsZero() {
		a.GrantedOn = s.now()
	}
	a.GrantExpiresOn = access.Date(a.GrantExpiresOn)
	a.ID = uuid.New()
	a.CreatedAt = s.now()
	s.accesses = append(s.accesses, *a)
	return nil
}

func (r *accessRepo) ListByDataset(_ context.Context, datasetID uuid.UUID) ([]access.Access, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []access.Access{}
	for i := len(r.s.accesses) - 1; i >= 0; i-- {
		if r.s.accesses[i].DatasetID == datasetID {
			out = append(out, r.s.accesses[i])
		}
	}
	return out, nil
}

func (r *accessRepo) HasActiveAutomatic(_ context.Context, accession, oidcID string, expiresOn time.Time) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var datasetID uuid.UUID
	for _, d := range s.datasets {
		if d.Accession == accession {
			datasetID = d.ID
		}
	}
	if datasetID == uuid.Nil {
		return false, nil
	}

	day := access.Date(expiresOn)
	for _, a := range s.accesses {
		if a.DatasetID != datasetID || a.Status != access.StatusActive || !a.WasGeneratedAutomatically {
			continue
		}
		if !a.GrantExpiresOn.Equal(day) {
			continue
		}
		if s.granteeHolds(a, oidcID) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) granteeHolds(a access.Access, oidcID string) bool {
	if a.UserID != nil {
		for _, u := range s.users {
			if u.ID == *a.UserID {
				return equalPtr(u.OIDCID, oidcID)
			}
		}
	}
	if a.ContactID != nil {
		for _, c := range s.contacts {
			if c.ID == *a.ContactID {
				return equalPtr(c.OIDCID, oidcID)
			}
		}
	}
	return false
}

func (r *accessRepo) ExpireBefore(_ context.Context, asOf time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	day := access.Date(asOf)
	var n int64
	for i := range s.accesses {
		if s.accesses[i].Status == access.StatusActive && s.accesses[i].GrantExpiresOn.Before(day) {
			s.accesses[i].Status = access.StatusExpired
			n++
		}
	}
	return n, nil
}

// --- endpoints ---

type endpointRepo struct{ s *Store }

func (r *endpointRepo) Create(_ context.Context, e *endpoint.Endpoint) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.endpoints {
		if existing.Name == e.Name {
			return endpoint.ErrDuplicateName
		}
	}
	e.ID = uuid.New()
	e.CreatedAt = s.now()
	s.endpoints = append(s.endpoints, *e)
	return nil
}

func (r *endpointRepo) FindByPrefix(_ context.Context, prefix string) ([]endpoint.Endpoint, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []endpoint.Endpoint{}
	for _, e := range r.s.endpoints {
		if e.KeyPrefix == prefix {
			out = append(out, e)
		}
	}
	return out, nil
}

var (
	_ user.Repository     = (*userRepo)(nil)
	_ contact.Repository  = (*contactRepo)(nil)
	_ partner.Repository  = (*partnerRepo)(nil)
	_ dataset.Repository  = (*datasetRepo)(nil)
	_ access.Repository   = (*accessRepo)(nil)
	_ endpoint.Repository = (*endpointRepo)(nil)
)
