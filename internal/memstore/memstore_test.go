package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daisy-gov/daisy/internal/access"
	"github.com/daisy-gov/daisy/internal/contact"
	"github.com/daisy-gov/daisy/internal/dataset"
	"github.com/daisy-gov/daisy/internal/memstore"
	"github.com/daisy-gov/daisy/internal/partner"
	"github.com/daisy-gov/daisy/internal/user"
)

func strPtr(s string) *string { return &s }

func TestUsers_RejectsDuplicateOIDCID(t *testing.T) {
	ctx := context.Background()
	users := memstore.New().Users()

	require.NoError(t, users.Create(ctx, &user.User{OIDCID: strPtr("u1"), Email: "a@x.com", Username: "a"}))
	err := users.Create(ctx, &user.User{OIDCID: strPtr("u1"), Email: "b@x.com", Username: "b"})
	assert.ErrorIs(t, err, user.ErrDuplicateUser)
}

func TestUsers_InsertUncheckedAllowsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	s.InsertUserUnchecked(user.User{OIDCID: strPtr("u1"), Username: "a"})
	s.InsertUserUnchecked(user.User{OIDCID: strPtr("u1"), Username: "b"})

	found, err := s.Users().ListByOIDCID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestFailWith(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	boom := errors.New("boom")
	s.FailWith(memstore.OpContactCreate, boom)

	err := s.Contacts().Create(ctx, &contact.Contact{Email: "a@x.com"})
	assert.ErrorIs(t, err, boom)

	s.FailWith(memstore.OpContactCreate, nil)
	require.NoError(t, s.Contacts().Create(ctx, &contact.Contact{Email: "a@x.com"}))
	assert.Len(t, s.AllContacts(), 1)
	assert.Equal(t, contact.TypeOther, s.AllContacts()[0].Type)
}

func TestPartners_EnsureIsIdempotent(t *testing.T) {
	ctx := context.Background()
	partners := memstore.New().Partners()

	first, err := partners.Ensure(ctx, partner.Imported())
	require.NoError(t, err)
	second, err := partners.Ensure(ctx, partner.Imported())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := partners.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestAccesses_HasActiveAutomatic(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	ds := &dataset.Dataset{Accession: "ACC-1"}
	require.NoError(t, s.Datasets().Create(ctx, ds))
	u := &user.User{OIDCID: strPtr("u1"), Email: "a@x.com", Username: "a"}
	require.NoError(t, s.Users().Create(ctx, u))

	expires := time.Date(2026, 5, 1, 15, 30, 0, 0, time.UTC)
	require.NoError(t, s.Accesses().Create(ctx, &access.Access{
		DatasetID:                 ds.ID,
		UserID:                    &u.ID,
		GrantExpiresOn:            expires,
		WasGeneratedAutomatically: true,
	}))

	ok, err := s.Accesses().HasActiveAutomatic(ctx, "ACC-1", "u1", access.Date(expires))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Accesses().HasActiveAutomatic(ctx, "ACC-1", "u2", expires)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Accesses().HasActiveAutomatic(ctx, "ACC-1", "u1", expires.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccesses_CreateRequiresSingleGrantee(t *testing.T) {
	id := uuid.New()
	err := memstore.New().Accesses().Create(context.Background(), &access.Access{
		DatasetID: uuid.New(),
		UserID:    &id,
		ContactID: &id,
	})
	assert.ErrorIs(t, err, access.ErrInvalidGrantee)
}
