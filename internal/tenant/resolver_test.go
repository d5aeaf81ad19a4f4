package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/numgate/numgate-server/internal/config"
	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/storage"
)

// fakeStore is an in-memory TenantStore that counts lookups
type fakeStore struct {
	domains map[string]*models.Tenant
	slugs   map[string]*models.Tenant

	domainErr error
	slugErr   error

	domainCalls int
	slugCalls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		domains: make(map[string]*models.Tenant),
		slugs:   make(map[string]*models.Tenant),
	}
}

func (f *fakeStore) GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error) {
	f.domainCalls++
	if f.domainErr != nil {
		return nil, f.domainErr
	}
	if t, ok := f.domains[domain]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func (f *fakeStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	f.slugCalls++
	if f.slugErr != nil {
		return nil, f.slugErr
	}
	if t, ok := f.slugs[slug]; ok {
		return t, nil
	}
	return nil, storage.ErrNotFound
}

func newTestResolver(store *fakeStore) *Resolver {
	cfg := config.PlatformConfig{
		RootDomain: "numgate.io",
		Hosts:      []string{"numgate.io", "www.numgate.io", "localhost"},
		Suffixes:   []string{".numgate.io", ".localhost"},
	}
	return NewResolver(cfg, store, NewCache(100, 5*time.Minute))
}

func TestNormalizeHost(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Acme.COM", "acme.com"},
		{"acme.com:8080", "acme.com"},
		{"www.acme.com", "acme.com"},
		{"WWW.Acme.Com:443", "acme.com"},
		{"acme.com.", "acme.com"},
		{"  acme.com  ", "acme.com"},
		{"[::1]:8080", "[::1]"},
		{"[::1]", "[::1]"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHost(tt.in), tt.in)
	}
}

func TestResolver_PlatformHostExactMatch(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	for _, host := range []string{"numgate.io", "www.numgate.io", "NUMGATE.IO", "numgate.io:443", "localhost:8080"} {
		res := r.Resolve(context.Background(), host)
		assert.Equal(t, ModePlatform, res.Mode, host)
	}

	// Platform hosts never hit the store.
	assert.Equal(t, 0, store.domainCalls)
	assert.Equal(t, 0, store.slugCalls)
}

func TestResolver_SubstringHostsAreNotPlatform(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	// Hosts that merely contain the platform domain must not match.
	for _, host := range []string{"evilnumgate.io", "numgate.io.attacker.com", "notwww.numgate.io.evil.org"} {
		res := r.Resolve(context.Background(), host)
		assert.NotEqual(t, ModePlatform, res.Mode, host)
	}
}

func TestResolver_CustomDomainBeforeSlug(t *testing.T) {
	store := newFakeStore()
	acme := &models.Tenant{Slug: "acme", IsActive: true}
	store.domains["shop.example.com"] = acme

	r := newTestResolver(store)

	res := r.Resolve(context.Background(), "shop.example.com")
	require.Equal(t, ModeTenant, res.Mode)
	assert.Equal(t, "acme", res.Tenant.Slug)
	assert.Equal(t, 0, store.slugCalls, "custom domain hit should skip the slug lookup")
}

func TestResolver_SlugFromSubdomain(t *testing.T) {
	store := newFakeStore()
	acme := &models.Tenant{Slug: "acme", IsActive: true}
	store.slugs["acme"] = acme

	r := newTestResolver(store)

	res := r.Resolve(context.Background(), "acme.numgate.io")
	require.Equal(t, ModeTenant, res.Mode)
	assert.Equal(t, "acme", res.Tenant.Slug)

	// Deeper labels still resolve by the leftmost one.
	res = r.Resolve(context.Background(), "acme.eu.numgate.io")
	require.Equal(t, ModeTenant, res.Mode)
}

func TestResolver_WwwIsNeverASlug(t *testing.T) {
	store := newFakeStore()
	store.slugs["www"] = &models.Tenant{Slug: "www"}

	r := newTestResolver(store)

	// www.numgate.io normalizes to the platform root, and a literal www label
	// must never reach the slug lookup.
	res := r.Resolve(context.Background(), "www.numgate.io")
	assert.Equal(t, ModePlatform, res.Mode)
	assert.Equal(t, 0, store.slugCalls)

	// Even when the label survives normalization it is rejected outright.
	_, ok := r.slugFromHost("www.numgate.io")
	assert.False(t, ok)
	_, ok = r.slugFromHost("numgate.io")
	assert.False(t, ok, "bare suffix leaves no label")
}

func TestResolver_UnknownHostIsUnresolved(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	res := r.Resolve(context.Background(), "nobody.numgate.io")
	assert.Equal(t, ModeUnresolved, res.Mode)
	assert.Nil(t, res.Tenant)

	res = r.Resolve(context.Background(), "unrelated.example.org")
	assert.Equal(t, ModeUnresolved, res.Mode)
}

func TestResolver_StoreErrorFoldsToUnresolved(t *testing.T) {
	store := newFakeStore()
	store.domainErr = errors.New("connection refused")
	store.slugs["acme"] = &models.Tenant{Slug: "acme"}

	r := newTestResolver(store)

	// A failed domain lookup must not fall through to the slug path: no
	// tenant identity on an error.
	res := r.Resolve(context.Background(), "acme.numgate.io")
	assert.Equal(t, ModeUnresolved, res.Mode)
	assert.Equal(t, 0, store.slugCalls)
}

func TestResolver_SlugStoreErrorFoldsToUnresolved(t *testing.T) {
	store := newFakeStore()
	store.slugErr = errors.New("connection refused")

	r := newTestResolver(store)

	res := r.Resolve(context.Background(), "acme.numgate.io")
	assert.Equal(t, ModeUnresolved, res.Mode)
}

func TestResolver_ResolutionIsCached(t *testing.T) {
	store := newFakeStore()
	store.domains["shop.example.com"] = &models.Tenant{Slug: "acme"}

	r := newTestResolver(store)

	for i := 0; i < 5; i++ {
		res := r.Resolve(context.Background(), "shop.example.com")
		require.Equal(t, ModeTenant, res.Mode)
	}

	assert.Equal(t, 1, store.domainCalls, "repeat resolutions should be served from cache")
}

func TestResolver_MissesAreNotCached(t *testing.T) {
	store := newFakeStore()
	r := newTestResolver(store)

	res := r.Resolve(context.Background(), "newsite.numgate.io")
	require.Equal(t, ModeUnresolved, res.Mode)

	// The tenant appears; the next request must see it immediately.
	store.slugs["newsite"] = &models.Tenant{Slug: "newsite"}

	res = r.Resolve(context.Background(), "newsite.numgate.io")
	assert.Equal(t, ModeTenant, res.Mode)
}

func TestResolver_InvalidationForcesFreshLookup(t *testing.T) {
	store := newFakeStore()
	store.domains["shop.example.com"] = &models.Tenant{Slug: "acme"}

	cache := NewCache(100, 5*time.Minute)
	cfg := config.PlatformConfig{
		RootDomain: "numgate.io",
		Hosts:      []string{"numgate.io"},
		Suffixes:   []string{".numgate.io"},
	}
	r := NewResolver(cfg, store, cache)

	r.Resolve(context.Background(), "shop.example.com")
	require.Equal(t, 1, store.domainCalls)

	cache.Invalidate("shop.example.com")

	r.Resolve(context.Background(), "shop.example.com")
	assert.Equal(t, 2, store.domainCalls)
}
