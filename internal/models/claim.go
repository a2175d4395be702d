package models

import "time"

// SubdomainClaim records ownership of a provisioned subdomain. The
// (subdomain, domain) pair is the primary key; at most one live claim
// exists per pair.
type SubdomainClaim struct {
	Subdomain string    `db:"subdomain"`
	Domain    string    `db:"domain"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// FQDN is the full record name, e.g. "blog.example.com".
func (c SubdomainClaim) FQDN() string {
	return c.Subdomain + "." + c.Domain
}
