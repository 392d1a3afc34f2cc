package verification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/duetapp/duet-api/internal/domain"
	pkgtoken "github.com/duetapp/duet-api/internal/pkg/token"
)

type Service interface {
	// Issue mints a fresh single-use token bound to one (couple, slot) pair.
	// Terminal registrations mint nothing.
	Issue(ctx context.Context, coupleID, slot, purpose string) (*domain.VerificationToken, error)
	// Redeem consumes a token and marks its slot verified, reporting whether
	// the sibling slot has verified too.
	Redeem(ctx context.Context, tokenValue string) (*domain.VerificationResult, error)
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.VerificationToken) error
	Get(ctx context.Context, value string) (*domain.VerificationToken, error)
	Consume(ctx context.Context, value string) error
}

type coupleStore interface {
	Get(ctx context.Context, coupleID string) (*domain.Couple, error)
	MarkExpired(ctx context.Context, coupleID string) error
}

type partnerStore interface {
	Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error)
	MarkVerified(ctx context.Context, coupleID, slot string) (*domain.Partner, error)
}

type service struct {
	tokenRepo   tokenStore
	coupleRepo  coupleStore
	partnerRepo partnerStore
	verifyTTL   time.Duration
	resetTTL    time.Duration
}

type ServiceDeps struct {
	TokenRepo        tokenStore
	CoupleRepo       coupleStore
	PartnerRepo      partnerStore
	VerifyTokenTTL   time.Duration
	PasswordResetTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		tokenRepo:   deps.TokenRepo,
		coupleRepo:  deps.CoupleRepo,
		partnerRepo: deps.PartnerRepo,
		verifyTTL:   deps.VerifyTokenTTL,
		resetTTL:    deps.PasswordResetTTL,
	}
}

func (s *service) Issue(ctx context.Context, coupleID, slot, purpose string) (*domain.VerificationToken, error) {
	if !domain.ValidSlot(slot) {
		return nil, fmt.Errorf("unknown slot %q: %w", slot, domain.ErrBadRequest)
	}

	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return nil, err
	}
	if err := s.pendingGate(ctx, c); err != nil {
		return nil, err
	}

	ttl := s.verifyTTL
	if purpose == domain.TokenPurposePasswordReset {
		ttl = s.resetTTL
	}

	value, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	tok := &domain.VerificationToken{
		Value:     value,
		CoupleID:  coupleID,
		Slot:      slot,
		Purpose:   purpose,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(ttl).Unix(),
		Consumed:  false,
	}
	if err := s.tokenRepo.Put(ctx, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (s *service) Redeem(ctx context.Context, tokenValue string) (*domain.VerificationResult, error) {
	tok, err := s.tokenRepo.Get(ctx, tokenValue)
	if err != nil {
		return nil, err
	}
	if tok.Purpose != domain.TokenPurposeVerify {
		return nil, fmt.Errorf("token not valid for verification: %w", domain.ErrNotFound)
	}

	// Registration state outranks token state. A token for a completed or
	// expired couple reports that, not a token-level failure.
	c, err := s.coupleRepo.Get(ctx, tok.CoupleID)
	if err != nil {
		return nil, err
	}
	if err := s.pendingGate(ctx, c); err != nil {
		return nil, err
	}

	if tok.ExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("token expired: %w", domain.ErrExpired)
	}
	if tok.Consumed {
		return nil, fmt.Errorf("token already used: %w", domain.ErrAlreadyConsumed)
	}
	// The conditional write is the authoritative single-use guard; the check
	// above only short-circuits the common case.
	if err := s.tokenRepo.Consume(ctx, tokenValue); err != nil {
		return nil, err
	}

	p, err := s.partnerRepo.MarkVerified(ctx, tok.CoupleID, tok.Slot)
	if err != nil {
		return nil, err
	}
	sibling, err := s.partnerRepo.Get(ctx, tok.CoupleID, domain.SiblingSlot(tok.Slot))
	if err != nil {
		return nil, err
	}

	return &domain.VerificationResult{
		CoupleID:     tok.CoupleID,
		Slot:         tok.Slot,
		Email:        p.Email,
		BothVerified: p.Verified && sibling.Verified,
	}, nil
}

// pendingGate rejects couples that can no longer progress. A pending couple
// past its retention deadline is expired even though the TTL sweep has not
// deleted the item yet.
func (s *service) pendingGate(ctx context.Context, c *domain.Couple) error {
	switch c.Status {
	case domain.CoupleStatusCompleted:
		return fmt.Errorf("registration already completed: %w", domain.ErrAlreadyCompleted)
	case domain.CoupleStatusExpired:
		return fmt.Errorf("registration expired: %w", domain.ErrExpired)
	}
	if c.PendingExpiresAt > 0 && c.PendingExpiresAt < time.Now().Unix() {
		if err := s.coupleRepo.MarkExpired(ctx, c.CoupleID); err != nil {
			slog.Warn("failed to mark couple expired", "couple_id", c.CoupleID, "err", err)
		}
		return fmt.Errorf("registration expired: %w", domain.ErrExpired)
	}
	return nil
}
