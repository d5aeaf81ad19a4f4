package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/numgate/numgate-server/internal/auth"
	"github.com/numgate/numgate-server/internal/config"
	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/ratelimit"
	"github.com/numgate/numgate-server/internal/storage"
	"github.com/numgate/numgate-server/internal/tenant"
)

// stubStore is an in-memory storage.Store for handler tests. Unset lookups
// return ErrNotFound.
type stubStore struct {
	tenantsByID     map[uuid.UUID]*models.Tenant
	tenantsBySlug   map[string]*models.Tenant
	tenantsByDomain map[string]*models.Tenant
	customDomains   map[string]*models.CustomDomain
	usersByEmail    map[string]*models.User
	pagesByKey      map[string]*models.TenantPage

	domainLookups int
	slugLookups   int
}

func newStubStore() *stubStore {
	return &stubStore{
		tenantsByID:     make(map[uuid.UUID]*models.Tenant),
		tenantsBySlug:   make(map[string]*models.Tenant),
		tenantsByDomain: make(map[string]*models.Tenant),
		customDomains:   make(map[string]*models.CustomDomain),
		usersByEmail:    make(map[string]*models.User),
		pagesByKey:      make(map[string]*models.TenantPage),
	}
}

func (s *stubStore) addTenant(t *models.Tenant) {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.tenantsByID[t.ID] = t
	s.tenantsBySlug[t.Slug] = t
}

func (s *stubStore) addPage(tenantID uuid.UUID, path, body string, published bool) {
	s.pagesByKey[tenantID.String()+"/"+path] = &models.TenantPage{
		TenantID:    tenantID,
		Path:        path,
		Content:     []byte(body),
		ContentType: "text/html; charset=utf-8",
		Published:   published,
	}
}

func (s *stubStore) BeginTx(ctx context.Context) (storage.Store, error) { return s, nil }
func (s *stubStore) Commit() error                                      { return nil }
func (s *stubStore) Rollback() error                                    { return nil }
func (s *stubStore) Close() error                                       { return nil }

func (s *stubStore) CreateTenant(ctx context.Context, t *models.Tenant) error {
	if _, ok := s.tenantsBySlug[t.Slug]; ok {
		return storage.ErrDuplicateKey
	}
	s.addTenant(t)
	return nil
}

// snapshot returns a copy, the way a real store materializes a fresh row.
// Cached resolutions must not observe later mutations through shared pointers.
func snapshot(t *models.Tenant) *models.Tenant {
	cp := *t
	return &cp
}

func (s *stubStore) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if t, ok := s.tenantsByID[id]; ok {
		return snapshot(t), nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	s.slugLookups++
	if t, ok := s.tenantsBySlug[slug]; ok {
		return snapshot(t), nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) UpdateTenant(ctx context.Context, t *models.Tenant) error { return nil }

func (s *stubStore) SuspendTenant(ctx context.Context, id uuid.UUID) error {
	t, ok := s.tenantsByID[id]
	if !ok {
		return storage.ErrNotFound
	}
	t.IsActive = false
	return nil
}

func (s *stubStore) ListTenants(ctx context.Context, limit, offset int) ([]*models.Tenant, int64, error) {
	out := make([]*models.Tenant, 0, len(s.tenantsByID))
	for _, t := range s.tenantsByID {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

// addDomain registers a verified custom domain owned by a tenant, wired for
// resolution the way a real store's join would surface it.
func (s *stubStore) addDomain(t *models.Tenant, domain string) *models.CustomDomain {
	d := &models.CustomDomain{
		ID:       uuid.New(),
		TenantID: t.ID,
		Domain:   domain,
		Verified: true,
	}
	s.customDomains[domain] = d
	s.tenantsByDomain[domain] = t
	return d
}

func (s *stubStore) CreateCustomDomain(ctx context.Context, d *models.CustomDomain) error {
	if _, ok := s.customDomains[d.Domain]; ok {
		return storage.ErrDuplicateKey
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.customDomains[d.Domain] = d
	return nil
}

func (s *stubStore) GetCustomDomain(ctx context.Context, domain string) (*models.CustomDomain, error) {
	if d, ok := s.customDomains[domain]; ok {
		return d, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	s.domainLookups++
	if t, ok := s.tenantsByDomain[domain]; ok {
		return snapshot(t), nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) ListCustomDomains(ctx context.Context, tenantID uuid.UUID) ([]*models.CustomDomain, error) {
	return nil, nil
}

func (s *stubStore) UpdateCustomDomain(ctx context.Context, d *models.CustomDomain) error { return nil }

func (s *stubStore) ReassignCustomDomain(ctx context.Context, domain string, tenantID uuid.UUID) error {
	d, ok := s.customDomains[domain]
	if !ok {
		return storage.ErrNotFound
	}
	d.TenantID = tenantID
	d.IsPrimary = false
	if t, ok := s.tenantsByID[tenantID]; ok {
		s.tenantsByDomain[domain] = t
	}
	return nil
}

func (s *stubStore) DeleteCustomDomain(ctx context.Context, domain string) error {
	if _, ok := s.customDomains[domain]; !ok {
		return storage.ErrNotFound
	}
	delete(s.customDomains, domain)
	delete(s.tenantsByDomain, domain)
	return nil
}
func (s *stubStore) SetPrimaryDomain(ctx context.Context, tenantID uuid.UUID, domain string) error {
	return nil
}

func (s *stubStore) CreateUser(ctx context.Context, u *models.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	s.usersByEmail[u.Email] = u
	return nil
}

func (s *stubStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, u := range s.usersByEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.usersByEmail[email]; ok {
		return u, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) UpdateUser(ctx context.Context, u *models.User) error { return nil }

func (s *stubStore) GetPage(ctx context.Context, tenantID uuid.UUID, path string) (*models.TenantPage, error) {
	if p, ok := s.pagesByKey[tenantID.String()+"/"+path]; ok {
		return p, nil
	}
	return nil, storage.ErrNotFound
}

func (s *stubStore) UpsertPage(ctx context.Context, page *models.TenantPage) error { return nil }
func (s *stubStore) DeletePage(ctx context.Context, tenantID uuid.UUID, path string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Name: "numgate-gateway", Version: "test"},
		Platform: config.PlatformConfig{
			RootDomain: "numgate.io",
			Hosts:      []string{"numgate.io", "www.numgate.io", "localhost"},
			Suffixes:   []string{".numgate.io"},
		},
		Apps: map[string]config.App{},
		JWT: config.JWTConfig{
			Secret:         "test-secret",
			AccessTokenTTL: time.Hour,
		},
		Cache: config.CacheConfig{
			TenantCapacity: 100,
			TenantTTL:      5 * time.Minute,
			TokenCapacity:  1000,
			TokenTTL:       5 * time.Minute,
			SweepInterval:  time.Minute,
		},
		RateLimit: config.RateLimitConfig{
			MaxAttempts:     5,
			Window:          15 * time.Minute,
			CleanupInterval: time.Minute,
		},
		Proxy: config.ProxyConfig{
			Timeout:   5 * time.Second,
			MountPath: "/apps",
		},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, store storage.Store) *GatewayServer {
	t.Helper()
	deps := Deps{
		TenantCache: tenant.NewCache(cfg.Cache.TenantCapacity, cfg.Cache.TenantTTL),
		TokenCache:  auth.NewTokenCache(cfg.Cache.TokenCapacity, cfg.Cache.TokenTTL, cfg.Cache.SweepInterval),
		Limiter:     ratelimit.New(cfg.RateLimit.MaxAttempts, cfg.RateLimit.Window, cfg.RateLimit.CleanupInterval),
	}
	return NewGatewayServer(cfg, store, deps)
}

// do performs a request against the router with an explicit Host
func do(s *GatewayServer, method, host, path string, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	r := httptest.NewRequest(method, "http://"+host+path, reader)
	r.Host = host
	for _, m := range mutate {
		m(r)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, r)
	return w
}

// issueToken signs a token for a user against the test server's JWT config
func issueToken(t *testing.T, s *GatewayServer, user *models.User) string {
	t.Helper()
	token, err := s.auth.IssueToken(user)
	require.NoError(t, err)
	return token
}
