package store

import (
	"context"
	"fmt"

	"github.com/spacatty/subzone/internal/database"
	"github.com/spacatty/subzone/internal/models"
)

// ClaimStore is the subdomain registry: the source of truth for uniqueness
// and ownership. The composite primary key on (subdomain, domain) is what
// actually decides claim races; callers must treat Insert's duplicate error
// as the authoritative answer, not any prior existence check.
type ClaimStore struct {
	db *database.DB
}

func NewClaimStore(db *database.DB) *ClaimStore {
	return &ClaimStore{db: db}
}

func (s *ClaimStore) Exists(ctx context.Context, subdomain, domain string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM subdomains WHERE subdomain = $1 AND domain = $2
		)
	`, subdomain, domain)
	if err != nil {
		return false, fmt.Errorf("Exists: %w", err)
	}
	return exists, nil
}

// Insert claims the (subdomain, domain) pair for a user. Returns
// models.ErrDuplicateClaim when another live claim holds the pair.
func (s *ClaimStore) Insert(ctx context.Context, claim models.SubdomainClaim) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO subdomains (subdomain, domain, user_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (subdomain, domain) DO NOTHING
	`, claim.Subdomain, claim.Domain, claim.UserID)
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Insert: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Insert: %w", models.ErrDuplicateClaim)
	}
	return nil
}

// DeleteOwned removes the claim only when the caller owns it. A false
// result covers both "no such claim" and "not the owner"; callers must not
// distinguish the two.
func (s *ClaimStore) DeleteOwned(ctx context.Context, subdomain, domain string, userID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM subdomains
		WHERE subdomain = $1 AND domain = $2 AND user_id = $3
	`, subdomain, domain, userID)
	if err != nil {
		return false, fmt.Errorf("DeleteOwned: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DeleteOwned: %w", err)
	}
	return rows == 1, nil
}

func (s *ClaimStore) ListByUser(ctx context.Context, userID int64) ([]models.SubdomainClaim, error) {
	var claims []models.SubdomainClaim
	err := s.db.SelectContext(ctx, &claims, `
		SELECT subdomain, domain, user_id, created_at
		FROM subdomains
		WHERE user_id = $1
		ORDER BY domain, subdomain
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListByUser: %w", err)
	}
	return claims, nil
}

// ListAll returns every live claim. Used by the reconciler sweep.
func (s *ClaimStore) ListAll(ctx context.Context) ([]models.SubdomainClaim, error) {
	var claims []models.SubdomainClaim
	err := s.db.SelectContext(ctx, &claims, `
		SELECT subdomain, domain, user_id, created_at
		FROM subdomains
		ORDER BY domain, subdomain
	`)
	if err != nil {
		return nil, fmt.Errorf("ListAll: %w", err)
	}
	return claims, nil
}
