package reconciler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/models"
)

const sweepTimeout = 2 * time.Minute

// ClaimLister is the slice of the claim registry the sweep reads. Exists
// must reflect the registry's current state, not a snapshot.
type ClaimLister interface {
	ListAll(ctx context.Context) ([]models.SubdomainClaim, error)
	Exists(ctx context.Context, subdomain, domain string) (bool, error)
}

// SessionEvicter drops idle conversation state.
type SessionEvicter interface {
	EvictIdle(window time.Duration) int
}

// Reconciler periodically cleans up the two things the request path cannot
// fix transactionally: conversation sessions abandoned mid-flow, and DNS
// records left behind when a release or lost claim race stopped short of
// the provider call. Only records pointing at the managed target are
// touched.
type Reconciler struct {
	claims   ClaimLister
	provider dns.Provider
	sessions SessionEvicter

	recordTarget string
	interval     time.Duration
	idleWindow   time.Duration

	log  *slog.Logger
	stop chan struct{}
}

func New(claims ClaimLister, provider dns.Provider, sessions SessionEvicter, recordTarget string, interval, idleWindow time.Duration, log *slog.Logger) *Reconciler {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Reconciler{
		claims:       claims,
		provider:     provider,
		sessions:     sessions,
		recordTarget: recordTarget,
		interval:     interval,
		idleWindow:   idleWindow,
		log:          log,
		stop:         make(chan struct{}),
	}
}

func (r *Reconciler) Start() {
	go r.run()
}

func (r *Reconciler) Stop() {
	close(r.stop)
}

func (r *Reconciler) run() {
	// Run immediately on start
	r.sweep()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stop:
			return
		}
	}
}

func (r *Reconciler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if evicted := r.sessions.EvictIdle(r.idleWindow); evicted > 0 {
		r.log.Info("evicted idle sessions", "count", evicted)
	}

	claims, err := r.claims.ListAll(ctx)
	if err != nil {
		r.log.Error("reconcile: failed to list claims", "error", err)
		return
	}
	claimed := make(map[string]bool, len(claims))
	for _, c := range claims {
		claimed[c.FQDN()] = true
	}

	zones, err := r.provider.ListZones(ctx)
	if err != nil {
		r.log.Error("reconcile: failed to list zones", "error", err)
		return
	}

	removed := 0
	for _, zone := range zones {
		records, err := r.provider.ListRecords(ctx, zone.ID)
		if err != nil {
			r.log.Error("reconcile: failed to list records", "zone", zone.Name, "error", err)
			continue
		}

		for _, rec := range records {
			if rec.Type != "CNAME" || rec.Content != r.recordTarget {
				continue
			}
			if claimed[rec.Name] {
				continue
			}
			subdomain, ok := splitLabel(rec.Name, zone.Name)
			if !ok {
				continue
			}
			// The claim snapshot above predates the record listing; a claim
			// committing in between would look like an orphan. Re-check the
			// live registry before touching anything.
			exists, err := r.claims.Exists(ctx, subdomain, zone.Name)
			if err != nil {
				r.log.Error("reconcile: failed to re-check claim", "fqdn", rec.Name, "error", err)
				continue
			}
			if exists {
				continue
			}
			if err := r.provider.DeleteRecord(ctx, zone.ID, rec.ID); err != nil {
				r.log.Error("reconcile: failed to delete orphaned record",
					"fqdn", rec.Name, "record_id", rec.ID, "error", err)
				continue
			}
			r.log.Info("removed orphaned dns record", "fqdn", rec.Name, "record_id", rec.ID)
			removed++
		}
	}

	if removed > 0 {
		r.log.Info("reconcile sweep complete", "removed", removed)
	}
}

// splitLabel extracts the subdomain label from a record's full name within
// the zone, e.g. ("blog.example.com", "example.com") -> "blog".
func splitLabel(fqdn, zoneName string) (string, bool) {
	label := strings.TrimSuffix(fqdn, "."+zoneName)
	if label == fqdn || label == "" {
		return "", false
	}
	return label, true
}
