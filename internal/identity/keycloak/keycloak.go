// Package keycloak implements identity.Source against the Keycloak admin REST API.
package keycloak

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/daisy-gov/daisy/internal/identity"
)

// Name is the backend name of the Keycloak source.
const Name = "keycloak"

const (
	defaultPageSize   = 100
	connectivityLimit = 5 * time.Second
)

// Config holds the settings needed to reach a realm's admin API with a
// service account.
type Config struct {
	URL               string // base URL, e.g. https://idp.example.org
	Realm             string
	ClientID          string
	ClientSecret      string
	PageSize          int
	RequestsPerSecond float64
}

// Options configures a Client built with NewClient.
type Options struct {
	BaseURL    string
	Realm      string
	PageSize   int
	HTTPClient *http.Client
	Limiter    *rate.Limiter // nil means unlimited
}

// Client lists and fetches realm users.
type Client struct {
	baseURL    string
	realm      string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// userRepresentation is the subset of Keycloak's UserRepresentation we read.
type userRepresentation struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// New discovers the realm's token endpoint and returns a Client that
// authenticates with the client credentials grant. ctx bounds discovery and
// is reused for token refreshes, so it should live as long as the Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Realm == "" || cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("keycloak config missing required fields")
	}

	base := strings.TrimRight(cfg.URL, "/")
	issuer := base + "/realms/" + url.PathEscape(cfg.Realm)

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering keycloak issuer %s: %w", issuer, err)
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return NewClient(Options{
		BaseURL:    base,
		Realm:      cfg.Realm,
		PageSize:   cfg.PageSize,
		HTTPClient: cc.Client(ctx),
		Limiter:    limiter,
	}), nil
}

// NewClient creates a Client from explicit options.
func NewClient(opts Options) *Client {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		realm:      opts.Realm,
		pageSize:   pageSize,
		httpClient: httpClient,
		limiter:    opts.Limiter,
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return Name
}

// ListAccounts pages through every realm user.
func (c *Client) ListAccounts(ctx context.Context) ([]identity.Account, error) {
	var accounts []identity.Account

	for first := 0; ; first += c.pageSize {
		q := url.Values{}
		q.Set("first", strconv.Itoa(first))
		q.Set("max", strconv.Itoa(c.pageSize))
		q.Set("briefRepresentation", "true")

		var page []userRepresentation
		status, err := c.getJSON(ctx, "/users?"+q.Encode(), &page)
		if err != nil {
			return nil, fmt.Errorf("listing keycloak users from %d: %w", first, err)
		}
		if status != http.StatusOK {
			return nil, fmt.Errorf("listing keycloak users: unexpected status %d", status)
		}

		for _, u := range page {
			accounts = append(accounts, u.account())
		}
		if len(page) < c.pageSize {
			break
		}
	}

	slog.Debug("keycloak: roster fetched", "realm", c.realm, "accounts", len(accounts))
	return identity.FilterReconcilable(Name, accounts), nil
}

// GetAccount fetches a single realm user by id.
func (c *Client) GetAccount(ctx context.Context, externalID string) (*identity.Account, error) {
	var u userRepresentation
	status, err := c.getJSON(ctx, "/users/"+url.PathEscape(externalID), &u)
	if err != nil {
		return nil, fmt.Errorf("fetching keycloak user %s: %w", externalID, err)
	}
	switch status {
	case http.StatusOK:
		a := u.account()
		return &a, nil
	case http.StatusNotFound:
		return nil, identity.ErrAccountNotFound
	default:
		return nil, fmt.Errorf("fetching keycloak user %s: unexpected status %d", externalID, status)
	}
}

// CheckConnectivity calls the user count endpoint with a short timeout.
func (c *Client) CheckConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, connectivityLimit)
	defer cancel()

	var count int
	status, err := c.getJSON(ctx, "/users/count", &count)
	if err != nil {
		slog.Warn("keycloak: connectivity check failed", "error", err)
		return false
	}
	return status == http.StatusOK
}

// getJSON performs a GET against the realm admin API and decodes a 200
// response into out. Non-200 statuses are returned without decoding.
func (c *Client) getJSON(ctx context.Context, path string, out any) (int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return 0, err
		}
	}

	endpoint := c.baseURL + "/admin/realms/" + url.PathEscape(c.realm) + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

func (u userRepresentation) account() identity.Account {
	return identity.Account{
		ExternalID: u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Username:   u.Username,
	}
}

var _ identity.Source = (*Client)(nil)
