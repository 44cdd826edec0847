package tenant

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/advelops/adcp-salesagent/internal/apperr"
	"github.com/advelops/adcp-salesagent/internal/db"
	"github.com/advelops/adcp-salesagent/internal/models"
)

// IncomingHostHeader is the virtual-host header checked first during tenant
// resolution, ahead of the Host subdomain and any explicit tenant tag.
const IncomingHostHeader = "Apx-Incoming-Host"

// Resolver resolves the tenant and principal for an inbound call.
type Resolver struct {
	store *db.Postgres
}

// NewResolver builds a Resolver backed by Postgres tenant/principal tables.
func NewResolver(store *db.Postgres) *Resolver {
	return &Resolver{store: store}
}

// ResolveTenant determines the tenant for an inbound request, trying in
// order: the virtual-host header, the Host header's subdomain, then an
// explicit tenant tag supplied by the caller.
func (r *Resolver) ResolveTenant(ctx context.Context, header http.Header, host, explicitTag string) (*models.Tenant, error) {
	if vhost := header.Get(IncomingHostHeader); vhost != "" {
		if t, err := r.store.LoadTenantBySubdomain(ctx, vhost); err != nil {
			return nil, err
		} else if t != nil {
			return t, nil
		}
	}

	if sub := subdomainOf(host); sub != "" {
		if t, err := r.store.LoadTenantBySubdomain(ctx, sub); err != nil {
			return nil, err
		} else if t != nil {
			return t, nil
		}
	}

	if explicitTag != "" {
		t, err := r.store.LoadTenantByID(ctx, explicitTag)
		if err != nil {
			return nil, err
		}
		if t == nil || !t.Active {
			return nil, apperr.NotFound("tenant %q not found or inactive", explicitTag)
		}
		return t, nil
	}

	return nil, apperr.NotFound("unable to resolve tenant from request")
}

// ResolvePrincipal looks up the principal for a tenant by bearer token,
// comparing candidates in constant time so token-guessing attempts can't
// time-probe the comparison.
func (r *Resolver) ResolvePrincipal(ctx context.Context, tenantID, bearerToken string) (*models.Principal, error) {
	if bearerToken == "" {
		return nil, apperr.Authentication("missing bearer token")
	}
	candidate, err := r.store.LoadPrincipalByToken(ctx, tenantID, bearerToken)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, apperr.Authentication("no principal matches the supplied token")
	}
	if subtle.ConstantTimeCompare([]byte(candidate.AccessToken), []byte(bearerToken)) != 1 {
		return nil, apperr.Authentication("no principal matches the supplied token")
	}
	return candidate, nil
}

// subdomainOf extracts the leftmost label of a Host header value, or "" if
// the host has no subdomain (e.g. a bare apex domain or an IP address).
func subdomainOf(host string) string {
	host = strings.Split(host, ":")[0]
	parts := strings.Split(host, ".")
	if len(parts) < 3 {
		return ""
	}
	return parts[0]
}
