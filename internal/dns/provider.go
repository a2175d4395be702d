package dns

import "context"

// Zone is a provider-managed parent domain records can be created under.
type Zone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Record represents a DNS record (provider-agnostic).
type Record struct {
	ID      string `json:"id"`      // Provider's record ID
	Type    string `json:"type"`    // CNAME
	Name    string `json:"name"`    // Full record name: "blog.example.com"
	Content string `json:"content"` // Target value
	TTL     int    `json:"ttl"`     // Seconds
}

// Provider is the provisioning interface the workflows depend on. The
// remote provider owns the actual records; this system treats them as a
// mirror of the claim registry.
type Provider interface {
	// VerifyToken checks that the API credentials work.
	VerifyToken(ctx context.Context) error

	// ListZones fetches the live zone list. Callers never cache it.
	ListZones(ctx context.Context) ([]Zone, error)

	// CreateRecord creates a record in the zone and returns it with the
	// provider-assigned ID filled in.
	CreateRecord(ctx context.Context, zoneID string, record Record) (*Record, error)

	// FindRecords returns the records in the zone whose full name matches
	// exactly.
	FindRecords(ctx context.Context, zoneID, name string) ([]Record, error)

	// ListRecords fetches all records in the zone.
	ListRecords(ctx context.Context, zoneID string) ([]Record, error)

	// DeleteRecord removes a record by its provider ID.
	DeleteRecord(ctx context.Context, zoneID, recordID string) error
}
