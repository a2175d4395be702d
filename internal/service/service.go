package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/models"
)

// UserStore is the user registry surface the workflows need.
type UserStore interface {
	EnsurePending(ctx context.Context, userID int64) (bool, error)
	Get(ctx context.Context, userID int64) (*models.User, error)
	Approve(ctx context.Context, userID int64) error
}

// ClaimStore is the subdomain registry surface. Insert and DeleteOwned must
// be atomic single statements; their outcomes decide races.
type ClaimStore interface {
	Exists(ctx context.Context, subdomain, domain string) (bool, error)
	Insert(ctx context.Context, claim models.SubdomainClaim) error
	DeleteOwned(ctx context.Context, subdomain, domain string, userID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]models.SubdomainClaim, error)
}

// ActivityStore is the append-only activity log sink.
type ActivityStore interface {
	Append(ctx context.Context, entry models.ActivityEntry) error
}

// Service orchestrates the claim/release/approve workflows over the
// registries and the DNS provider.
type Service struct {
	users    UserStore
	claims   ClaimStore
	activity ActivityStore
	provider dns.Provider

	recordTarget string
	recordTTL    int

	log *slog.Logger
}

func New(users UserStore, claims ClaimStore, activity ActivityStore, provider dns.Provider, recordTarget string, recordTTL int, log *slog.Logger) *Service {
	return &Service{
		users:        users,
		claims:       claims,
		activity:     activity,
		provider:     provider,
		recordTarget: recordTarget,
		recordTTL:    recordTTL,
		log:          log,
	}
}

// GateResult is the access gate's verdict on an incoming intent.
type GateResult int

const (
	// GateForward: the user is approved, handle the intent.
	GateForward GateResult = iota
	// GatePendingNew: first contact, the user was just registered pending.
	GatePendingNew
	// GateDenied: the user is known but not approved.
	GateDenied
)

// Gate checks the caller against the user registry, registering unknown
// identities as pending. A registry failure fails closed: the error is
// returned and the intent must not be forwarded.
func (s *Service) Gate(ctx context.Context, userID int64) (GateResult, error) {
	user, err := s.users.Get(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		created, err := s.users.EnsurePending(ctx, userID)
		if err != nil {
			return GateDenied, fmt.Errorf("register pending user: %w", err)
		}
		if created {
			return GatePendingNew, nil
		}
		// Lost a first-contact race; the row exists now, still pending.
		return GateDenied, nil
	case err != nil:
		return GateDenied, fmt.Errorf("look up user: %w", err)
	}

	if !user.Approved() {
		return GateDenied, nil
	}
	return GateForward, nil
}

// Zones fetches the live zone list. Never cached, so selections always see
// the provider's current state.
func (s *Service) Zones(ctx context.Context) ([]dns.Zone, error) {
	zones, err := s.provider.ListZones(ctx)
	if err != nil {
		return nil, &ProviderError{Op: "list zones", Err: err}
	}
	return zones, nil
}

// Claim provisions label.domain for the user: availability check, DNS
// record creation, then the atomic registry insert that settles races.
// Returns the full domain name on success.
func (s *Service) Claim(ctx context.Context, userID int64, zoneID, domain, rawLabel string) (string, error) {
	label, err := NormalizeLabel(rawLabel)
	if err != nil {
		return "", err
	}
	fqdn := label + "." + domain

	// UX shortcut only; the Insert below is what actually enforces
	// uniqueness under concurrency.
	taken, err := s.claims.Exists(ctx, label, domain)
	if err != nil {
		return "", fmt.Errorf("check availability: %w", err)
	}
	if taken {
		return "", ErrSubdomainTaken
	}

	record, err := s.provider.CreateRecord(ctx, zoneID, dns.Record{
		Type:    "CNAME",
		Name:    fqdn,
		Content: s.recordTarget,
		TTL:     s.recordTTL,
	})
	if err != nil {
		return "", &ProviderError{Op: "create record", Err: err}
	}

	err = s.claims.Insert(ctx, models.SubdomainClaim{
		Subdomain: label,
		Domain:    domain,
		UserID:    userID,
	})
	if errors.Is(err, models.ErrDuplicateClaim) {
		// Lost the race after the record was created. Remove the record we
		// just made so the winner's claim stays the only live one.
		if delErr := s.provider.DeleteRecord(ctx, zoneID, record.ID); delErr != nil {
			s.log.Warn("failed to roll back dns record after claim race",
				"fqdn", fqdn, "record_id", record.ID, "error", delErr)
		}
		return "", ErrSubdomainTaken
	}
	if err != nil {
		// The record exists but the claim does not; the reconciler sweep
		// picks up the orphan.
		s.log.Error("claim insert failed after dns record creation",
			"fqdn", fqdn, "record_id", record.ID, "error", err)
		return "", fmt.Errorf("register claim: %w", err)
	}

	s.logActivity(ctx, userID, "Created "+fqdn)
	return fqdn, nil
}

// Claims lists the user's live claims.
func (s *Service) Claims(ctx context.Context, userID int64) ([]models.SubdomainClaim, error) {
	claims, err := s.claims.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// Release removes the user's claim and then the matching DNS record. The
// registry row goes first: a failure after that point leaves an orphaned
// record, which re-claiming or the reconciler cleans up.
func (s *Service) Release(ctx context.Context, userID int64, subdomain, domain string) (string, error) {
	subdomain = strings.ToLower(strings.TrimSpace(subdomain))
	domain = strings.ToLower(strings.TrimSpace(domain))
	fqdn := subdomain + "." + domain

	removed, err := s.claims.DeleteOwned(ctx, subdomain, domain, userID)
	if err != nil {
		return "", fmt.Errorf("delete claim: %w", err)
	}
	if !removed {
		return "", ErrClaimNotFound
	}

	// Fresh zone lookup on every release, no cached mapping.
	zones, err := s.provider.ListZones(ctx)
	if err != nil {
		return "", &ProviderError{Op: "list zones", Err: err}
	}

	var zoneID string
	for _, z := range zones {
		if z.Name == domain {
			zoneID = z.ID
			break
		}
	}
	if zoneID == "" {
		// Zone no longer exists at the provider, so neither can the record.
		s.log.Warn("zone missing during release, treating as consistent", "domain", domain)
		s.logActivity(ctx, userID, "Deleted "+fqdn)
		return fqdn, nil
	}

	records, err := s.provider.FindRecords(ctx, zoneID, fqdn)
	if err != nil {
		return "", &ProviderError{Op: "find record", Err: err}
	}
	if len(records) > 0 {
		if err := s.provider.DeleteRecord(ctx, zoneID, records[0].ID); err != nil {
			return "", &ProviderError{Op: "delete record", Err: err}
		}
	}

	s.logActivity(ctx, userID, "Deleted "+fqdn)
	return fqdn, nil
}

// Approve marks the user approved. Unconditional and idempotent: the row is
// created if it never existed.
func (s *Service) Approve(ctx context.Context, userID int64) error {
	if err := s.users.Approve(ctx, userID); err != nil {
		return fmt.Errorf("approve user: %w", err)
	}
	return nil
}

func (s *Service) logActivity(ctx context.Context, userID int64, activity string) {
	err := s.activity.Append(ctx, models.ActivityEntry{UserID: userID, Activity: activity})
	if err != nil {
		s.log.Warn("failed to append activity log", "user_id", userID, "activity", activity, "error", err)
	}
}
