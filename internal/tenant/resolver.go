package tenant

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/numgate/numgate-server/internal/config"
	"github.com/numgate/numgate-server/internal/models"
	"github.com/numgate/numgate-server/internal/storage"
)

// Mode represents the request-handling mode derived from the inbound host
type Mode int

// Resolution modes
const (
	ModeUnresolved Mode = iota
	ModePlatform
	ModeTenant
)

// Resolution represents the outcome of resolving an inbound hostname
type Resolution struct {
	Mode   Mode
	Tenant *models.Tenant
}

// TenantStore is the subset of storage.Store the resolver needs
type TenantStore interface {
	GetTenantByDomain(ctx context.Context, domain string) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
}

// Resolver maps an inbound hostname to platform mode or a tenant,
// consulting the resolution cache before the store.
type Resolver struct {
	store TenantStore
	cache *Cache

	platformHosts map[string]struct{}
	suffixes      []string
}

// NewResolver creates a new domain resolver
func NewResolver(cfg config.PlatformConfig, store TenantStore, cache *Cache) *Resolver {
	hosts := make(map[string]struct{}, len(cfg.Hosts))
	for _, h := range cfg.Hosts {
		hosts[NormalizeHost(h)] = struct{}{}
	}

	return &Resolver{
		store:         store,
		cache:         cache,
		platformHosts: hosts,
		suffixes:      cfg.Suffixes,
	}
}

// NormalizeHost normalizes a hostname: lowercase, port stripped,
// leading "www." stripped.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))

	if i := strings.LastIndex(host, ":"); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}

	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSuffix(host, ".")
}

// IsPlatformHost reports whether a hostname is the platform itself.
// The match is exact against the configured allow-list; a substring match
// would misclassify tenant subdomains.
func (r *Resolver) IsPlatformHost(host string) bool {
	_, ok := r.platformHosts[NormalizeHost(host)]
	return ok
}

// Resolve maps an inbound hostname to a resolution. Database errors are
// logged and folded into Unresolved: no tenant identity is ever granted on
// a failed lookup.
func (r *Resolver) Resolve(ctx context.Context, hostname string) Resolution {
	host := NormalizeHost(hostname)
	if host == "" {
		return Resolution{Mode: ModeUnresolved}
	}

	if _, ok := r.platformHosts[host]; ok {
		return Resolution{Mode: ModePlatform}
	}

	if cached, ok := r.cache.Get(host); ok {
		return Resolution{Mode: ModeTenant, Tenant: cached}
	}

	tenant := r.lookup(ctx, host)
	if tenant == nil {
		return Resolution{Mode: ModeUnresolved}
	}

	r.cache.Put(host, tenant)
	return Resolution{Mode: ModeTenant, Tenant: tenant}
}

// lookup resolves a normalized hostname against the store: verified custom
// domain first, then subdomain slug.
func (r *Resolver) lookup(ctx context.Context, host string) *models.Tenant {
	tenant, err := r.store.GetTenantByDomain(ctx, host)
	if err == nil {
		return tenant
	}
	if !errors.Is(err, storage.ErrNotFound) {
		log.Error().Err(err).Str("host", host).Msg("Custom domain lookup failed")
		return nil
	}

	slug, ok := r.slugFromHost(host)
	if !ok {
		return nil
	}

	tenant, err = r.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("slug", slug).Msg("Tenant slug lookup failed")
		}
		return nil
	}

	return tenant
}

// slugFromHost extracts the leftmost label as a candidate slug when the
// hostname ends with a known platform suffix. The literal label "www" is
// never a slug.
func (r *Resolver) slugFromHost(host string) (string, bool) {
	for _, suffix := range r.suffixes {
		if !strings.HasSuffix(host, suffix) {
			continue
		}

		label := strings.TrimSuffix(host, suffix)
		if i := strings.IndexByte(label, '.'); i >= 0 {
			label = label[:i]
		}

		if label == "" || label == "www" {
			return "", false
		}
		return label, true
	}

	return "", false
}
