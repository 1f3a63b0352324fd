package tenant

import (
	"regexp"
	"strings"
	"time"

	"subastas-marketplace/internal/domain/shared"
)

var labelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// Tenant is a top-level organization reachable at <domain>.<root domain>
type Tenant struct {
	shared.Base
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// New creates a tenant with a normalized domain
func New(name, domain string, now time.Time) *Tenant {
	return &Tenant{
		Base:   shared.NewBase(now),
		Name:   strings.TrimSpace(name),
		Domain: NormalizeDomain(domain),
	}
}

// NormalizeDomain lowercases and trims a subdomain
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ValidDomain reports whether domain is a single DNS label
func ValidDomain(domain string) bool {
	return labelPattern.MatchString(domain)
}

// Host returns the tenant's fully qualified host under rootDomain
func (t *Tenant) Host(rootDomain string) string {
	if rootDomain == "" {
		return t.Domain
	}
	return t.Domain + "." + rootDomain
}

// SubdomainFromHost extracts the tenant label from a request host.
// "acme.subastas.cl:443" with root "subastas.cl" yields ("acme", true).
func SubdomainFromHost(host, rootDomain string) (string, bool) {
	host = strings.ToLower(host)
	if i := strings.LastIndexByte(host, ':'); i >= 0 && !strings.Contains(host[i:], "]") {
		host = host[:i]
	}
	rootDomain = strings.ToLower(rootDomain)
	if rootDomain == "" || !strings.HasSuffix(host, "."+rootDomain) {
		return "", false
	}

	label := strings.TrimSuffix(host, "."+rootDomain)
	if strings.Contains(label, ".") || !ValidDomain(label) {
		return "", false
	}
	return label, true
}
