package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/dirbridge/pkg/logger"
	"github.com/dmitrymomot/dirbridge/pkg/secrets"
	"github.com/dmitrymomot/dirbridge/pkg/statestore"
)

const (
	DefaultSkewMargin     = time.Minute
	DefaultRefreshTimeout = 30 * time.Second
)

// Manager keeps one valid TokenSet per tenant. Refreshes for the same tenant
// are coalesced: concurrent callers that find an expired token share a single
// refresh-token grant and its outcome.
type Manager struct {
	store          statestore.Store
	sealer         *secrets.Sealer
	clock          clock.Clock
	logger         *slog.Logger
	httpClient     *http.Client
	skew           time.Duration
	refreshTimeout time.Duration
	keyPrefix      string

	flights singleflight.Group
	locks   sync.Map // tenant id -> *sync.Mutex, guards the stored record
}

// Option configures a Manager.
type Option func(*Manager)

// WithSealer encrypts token sets at rest.
func WithSealer(s *secrets.Sealer) Option {
	return func(m *Manager) { m.sealer = s }
}

func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithHTTPClient sets the client used to reach token endpoints.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithSkewMargin sets how long before expiry a token is considered stale.
func WithSkewMargin(d time.Duration) Option {
	return func(m *Manager) {
		if d >= 0 {
			m.skew = d
		}
	}
}

// WithRefreshTimeout bounds a shared refresh grant.
func WithRefreshTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.refreshTimeout = d
		}
	}
}

// WithKeyPrefix overrides the "token:" store key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(m *Manager) { m.keyPrefix = prefix }
}

// NewManager creates a Manager caching token sets in store.
func NewManager(store statestore.Store, opts ...Option) *Manager {
	if store == nil {
		panic("tokens: store cannot be nil")
	}

	m := &Manager{
		store:          store,
		clock:          clock.New(),
		logger:         logger.Discard(),
		httpClient:     &http.Client{Timeout: DefaultRefreshTimeout},
		skew:           DefaultSkewMargin,
		refreshTimeout: DefaultRefreshTimeout,
		keyPrefix:      "token:",
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetValidToken returns the cached token while it is fresh and otherwise
// refreshes it. A failed refresh is final for the tenant until the
// authorization bootstrap is repeated.
func (m *Manager) GetValidToken(ctx context.Context, tenantID string, creds Credentials) (*TokenSet, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}

	current, err := m.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if current.ValidAt(m.clock.Now(), m.skew) {
		return current, nil
	}

	return m.refresh(ctx, tenantID, creds)
}

func (m *Manager) refresh(ctx context.Context, tenantID string, creds Credentials) (*TokenSet, error) {
	ch := m.flights.DoChan(tenantID, func() (any, error) {
		// The grant outlives any single waiter's cancellation.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()
		return m.doRefresh(fctx, tenantID, creds)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		ts := *res.Val.(*TokenSet)
		return &ts, nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, tenantID string, creds Credentials) (*TokenSet, error) {
	// Another flight may have landed between our read and this one.
	current, err := m.load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if current.ValidAt(m.clock.Now(), m.skew) {
		return current, nil
	}
	if current.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	started := m.clock.Now()
	src := creds.oauth2Config().TokenSource(m.oauthContext(ctx), &oauth2.Token{
		RefreshToken: current.RefreshToken,
		Expiry:       time.Unix(1, 0),
	})
	tok, err := src.Token()
	if err != nil {
		m.logger.WarnContext(ctx, "token refresh failed",
			logger.Component("tokens"),
			logger.TenantID(tenantID),
			logger.Error(err),
		)
		return nil, errors.Join(ErrRefreshFailed, err)
	}

	next := fromOAuth2(tok)
	if next.RefreshToken == "" {
		next.RefreshToken = current.RefreshToken
	}
	if next.Scope == "" {
		next.Scope = current.Scope
	}

	mu := m.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	// Revoke, SetToken or an exchange may have replaced the record during the grant.
	stored, err := m.load(ctx, tenantID)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			m.logger.InfoContext(ctx, "refreshed token discarded, access was revoked",
				logger.Component("tokens"),
				logger.TenantID(tenantID),
			)
		}
		return nil, err
	}
	if stored.AccessToken != current.AccessToken || stored.RefreshToken != current.RefreshToken {
		m.logger.InfoContext(ctx, "refreshed token discarded, record was replaced",
			logger.Component("tokens"),
			logger.TenantID(tenantID),
		)
		return stored, nil
	}

	if err := m.save(ctx, tenantID, next); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "token refreshed",
		logger.Component("tokens"),
		logger.TenantID(tenantID),
		logger.Duration(m.clock.Now().Sub(started)),
		slog.Bool("rotated", next.RefreshToken != current.RefreshToken),
	)
	return &next, nil
}

// ExchangeAuthorizationCode completes the OAuth2 authorization-code handshake
// and stores the first TokenSet for the tenant.
func (m *Manager) ExchangeAuthorizationCode(ctx context.Context, tenantID, code string, creds Credentials) (*TokenSet, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	if code == "" {
		return nil, ErrEmptyCode
	}
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	tok, err := creds.oauth2Config().Exchange(m.oauthContext(ctx), code)
	if err != nil {
		return nil, errors.Join(ErrExchangeFailed, err)
	}

	ts := fromOAuth2(tok)
	if err := m.replace(ctx, tenantID, ts); err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "tenant authorized", logger.Component("tokens"), logger.TenantID(tenantID))
	return &ts, nil
}

// AuthCodeURL builds the consent URL for the bootstrap redirect, requesting
// offline access so a refresh token is issued.
func (m *Manager) AuthCodeURL(creds Credentials, state string) string {
	return creds.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetToken stores an externally obtained token set, replacing any cached one.
func (m *Manager) SetToken(ctx context.Context, tenantID string, ts TokenSet) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	if ts.AccessToken == "" && ts.RefreshToken == "" {
		return ErrInvalidToken
	}
	return m.replace(ctx, tenantID, ts)
}

// ValidateAuth reports whether the tenant has a usable credential: a fresh
// access token or a refresh token to obtain one. It never refreshes.
func (m *Manager) ValidateAuth(ctx context.Context, tenantID string) bool {
	if tenantID == "" {
		return false
	}
	ts, err := m.load(ctx, tenantID)
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			m.logger.WarnContext(ctx, "token lookup failed",
				logger.Component("tokens"),
				logger.TenantID(tenantID),
				logger.Error(err),
			)
		}
		return false
	}
	return ts.ValidAt(m.clock.Now(), m.skew) || ts.RefreshToken != ""
}

// Revoke deletes the tenant's cached token set. A refresh still in flight
// when Revoke returns finds the record gone and discards its result.
func (m *Manager) Revoke(ctx context.Context, tenantID string) error {
	if tenantID == "" {
		return ErrEmptyTenant
	}
	mu := m.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	m.flights.Forget(tenantID)
	if err := m.store.Delete(ctx, m.key(tenantID)); err != nil {
		return errors.Join(ErrStore, err)
	}
	m.logger.InfoContext(ctx, "tenant access revoked", logger.Component("tokens"), logger.TenantID(tenantID))
	return nil
}

// replace stores ts under the tenant lock so an in-flight refresh cannot
// overwrite it.
func (m *Manager) replace(ctx context.Context, tenantID string, ts TokenSet) error {
	mu := m.lock(tenantID)
	mu.Lock()
	defer mu.Unlock()

	if err := m.save(ctx, tenantID, ts); err != nil {
		return err
	}
	m.flights.Forget(tenantID)
	return nil
}

func (m *Manager) lock(tenantID string) *sync.Mutex {
	mu, _ := m.locks.LoadOrStore(tenantID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

func (m *Manager) load(ctx context.Context, tenantID string) (*TokenSet, error) {
	raw, err := m.store.Get(ctx, m.key(tenantID))
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, errors.Join(ErrStore, err)
	}

	if m.sealer != nil {
		if raw, err = m.sealer.Open(tenantID, raw); err != nil {
			return nil, errors.Join(ErrCorruptToken, err)
		}
	}

	var ts TokenSet
	if err := json.Unmarshal(raw, &ts); err != nil {
		return nil, errors.Join(ErrCorruptToken, err)
	}
	return &ts, nil
}

func (m *Manager) save(ctx context.Context, tenantID string, ts TokenSet) error {
	raw, err := json.Marshal(ts)
	if err != nil {
		return errors.Join(ErrStore, err)
	}
	if m.sealer != nil {
		if raw, err = m.sealer.Seal(tenantID, raw); err != nil {
			return errors.Join(ErrStore, err)
		}
	}

	// Without a refresh token the record is useless once the access token expires.
	var ttl time.Duration
	if ts.RefreshToken == "" && ts.ExpiresAt > 0 {
		ttl = time.UnixMilli(ts.ExpiresAt).Sub(m.clock.Now())
		if ttl <= 0 {
			ttl = time.Second
		}
	}

	if err := m.store.Put(ctx, m.key(tenantID), raw, ttl); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

func (m *Manager) oauthContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) key(tenantID string) string {
	return m.keyPrefix + tenantID
}
