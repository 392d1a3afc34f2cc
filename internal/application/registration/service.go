package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/duetapp/duet-api/internal/domain"
	"github.com/duetapp/duet-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen is the completion gate's credential floor.
const MinPasswordLen = 8

type Service interface {
	Initiate(ctx context.Context, req domain.InitiateRegistrationRequest) (*domain.Couple, error)
	Status(ctx context.Context, coupleID string) (*Status, error)
	Resend(ctx context.Context, coupleID, slot string) error
	Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Couple, error)
}

// Status is the readiness poll response. Clients use Ready to decide whether
// to offer the completion form; the server re-derives it on completion anyway.
type Status struct {
	CoupleID   string              `json:"couple_id"`
	CoupleName string              `json:"couple_name"`
	Status     domain.CoupleStatus `json:"status"`
	PartnerA   SlotStatus          `json:"partner_a"`
	PartnerB   SlotStatus          `json:"partner_b"`
	Ready      bool                `json:"ready"`
}

type SlotStatus struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

type coupleStore interface {
	Put(ctx context.Context, c *domain.Couple) error
	Get(ctx context.Context, coupleID string) (*domain.Couple, error)
	MarkExpired(ctx context.Context, coupleID string) error
	CompleteActivation(ctx context.Context, coupleID string, credA, credB domain.PartnerCredential) error
}

type partnerStore interface {
	Put(ctx context.Context, p *domain.Partner) error
	Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error)
	GetByEmail(ctx context.Context, email string) (*domain.Partner, error)
}

type tokenIssuer interface {
	Issue(ctx context.Context, coupleID, slot, purpose string) (*domain.VerificationToken, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	coupleRepo    coupleStore
	partnerRepo   partnerStore
	issuer        tokenIssuer
	mailer        mailSender
	sms           smsSender
	publicBaseURL string
	pendingTTL    time.Duration
}

type ServiceDeps struct {
	CoupleRepo    coupleStore
	PartnerRepo   partnerStore
	Issuer        tokenIssuer
	Mailer        mailSender
	SMSSender     smsSender
	PublicBaseURL string
	PendingTTL    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		coupleRepo:    deps.CoupleRepo,
		partnerRepo:   deps.PartnerRepo,
		issuer:        deps.Issuer,
		mailer:        deps.Mailer,
		sms:           deps.SMSSender,
		publicBaseURL: deps.PublicBaseURL,
		pendingTTL:    deps.PendingTTL,
	}
}

func (s *service) Initiate(ctx context.Context, req domain.InitiateRegistrationRequest) (*domain.Couple, error) {
	emailA := normalizeAddress(req.EmailA)
	emailB := normalizeAddress(req.EmailB)
	if emailA == emailB {
		return nil, fmt.Errorf("partners need distinct contact addresses: %w", domain.ErrBadRequest)
	}
	for _, email := range []string{emailA, emailB} {
		_, err := s.partnerRepo.GetByEmail(ctx, email)
		if err == nil {
			return nil, fmt.Errorf("address %s already belongs to a registration: %w", email, domain.ErrConflict)
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now().UTC()
	c := &domain.Couple{
		CoupleID:         id.New(),
		CoupleName:       req.CoupleName,
		AnniversaryDate:  req.AnniversaryDate,
		Status:           domain.CoupleStatusPending,
		PendingExpiresAt: now.Add(s.pendingTTL).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.coupleRepo.Put(ctx, c); err != nil {
		return nil, err
	}

	for slot, email := range map[string]string{domain.SlotA: emailA, domain.SlotB: emailB} {
		p := &domain.Partner{
			CoupleID:         c.CoupleID,
			Slot:             slot,
			Email:            email,
			Verified:         false,
			PendingExpiresAt: c.PendingExpiresAt,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := s.partnerRepo.Put(ctx, p); err != nil {
			return nil, err
		}
		tok, err := s.issuer.Issue(ctx, c.CoupleID, slot, domain.TokenPurposeVerify)
		if err != nil {
			return nil, err
		}
		s.deliverChallenge(ctx, email, tok)
	}

	return c, nil
}

func (s *service) Status(ctx context.Context, coupleID string) (*Status, error) {
	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return nil, err
	}
	if c.Status == domain.CoupleStatusPending && c.PendingExpiresAt > 0 && c.PendingExpiresAt < time.Now().Unix() {
		if err := s.coupleRepo.MarkExpired(ctx, coupleID); err != nil {
			slog.Warn("failed to mark couple expired", "couple_id", coupleID, "err", err)
		}
		c.Status = domain.CoupleStatusExpired
	}

	pa, err := s.partnerRepo.Get(ctx, coupleID, domain.SlotA)
	if err != nil {
		return nil, err
	}
	pb, err := s.partnerRepo.Get(ctx, coupleID, domain.SlotB)
	if err != nil {
		return nil, err
	}

	return &Status{
		CoupleID:   c.CoupleID,
		CoupleName: c.CoupleName,
		Status:     c.Status,
		PartnerA:   SlotStatus{Email: pa.Email, Verified: pa.Verified},
		PartnerB:   SlotStatus{Email: pb.Email, Verified: pb.Verified},
		Ready:      c.Status == domain.CoupleStatusPending && pa.Verified && pb.Verified,
	}, nil
}

// Resend mints a fresh token for one slot. Resending for an already-verified
// slot is allowed; redeeming the new token is a harmless no-op.
func (s *service) Resend(ctx context.Context, coupleID, slot string) error {
	if !domain.ValidSlot(slot) {
		return fmt.Errorf("unknown slot %q: %w", slot, domain.ErrBadRequest)
	}
	p, err := s.partnerRepo.Get(ctx, coupleID, slot)
	if err != nil {
		return err
	}
	tok, err := s.issuer.Issue(ctx, coupleID, slot, domain.TokenPurposeVerify)
	if err != nil {
		return err
	}
	s.deliverChallenge(ctx, p.Email, tok)
	return nil
}

func (s *service) Complete(ctx context.Context, req domain.CompleteRegistrationRequest) (*domain.Couple, error) {
	c, err := s.coupleRepo.Get(ctx, req.CoupleID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case domain.CoupleStatusCompleted:
		return nil, fmt.Errorf("registration already completed: %w", domain.ErrAlreadyCompleted)
	case domain.CoupleStatusExpired:
		return nil, fmt.Errorf("registration expired: %w", domain.ErrExpired)
	}
	if c.PendingExpiresAt > 0 && c.PendingExpiresAt < time.Now().Unix() {
		if err := s.coupleRepo.MarkExpired(ctx, c.CoupleID); err != nil {
			slog.Warn("failed to mark couple expired", "couple_id", c.CoupleID, "err", err)
		}
		return nil, fmt.Errorf("registration expired: %w", domain.ErrExpired)
	}

	pa, err := s.partnerRepo.Get(ctx, req.CoupleID, domain.SlotA)
	if err != nil {
		return nil, err
	}
	pb, err := s.partnerRepo.Get(ctx, req.CoupleID, domain.SlotB)
	if err != nil {
		return nil, err
	}
	if !pa.Verified {
		return nil, fmt.Errorf("partner A has not verified their address: %w", domain.ErrVerificationIncomplete)
	}
	if !pb.Verified {
		return nil, fmt.Errorf("partner B has not verified their address: %w", domain.ErrVerificationIncomplete)
	}

	if len(req.PasswordA) < MinPasswordLen {
		return nil, fmt.Errorf("partner A password must be at least %d characters: %w", MinPasswordLen, domain.ErrWeakCredential)
	}
	if len(req.PasswordB) < MinPasswordLen {
		return nil, fmt.Errorf("partner B password must be at least %d characters: %w", MinPasswordLen, domain.ErrWeakCredential)
	}

	hashA, err := bcrypt.GenerateFromPassword([]byte(req.PasswordA), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	hashB, err := bcrypt.GenerateFromPassword([]byte(req.PasswordB), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	err = s.coupleRepo.CompleteActivation(ctx, req.CoupleID,
		domain.PartnerCredential{DisplayName: req.DisplayNameA, PasswordHash: string(hashA)},
		domain.PartnerCredential{DisplayName: req.DisplayNameB, PasswordHash: string(hashB)},
	)
	if err != nil {
		return nil, err
	}

	c.Status = domain.CoupleStatusCompleted
	c.UpdatedAt = time.Now().UTC()
	return c, nil
}

// deliverChallenge hands the verification link to the address's channel.
// Delivery failure is logged, never surfaced; resend covers lost messages.
func (s *service) deliverChallenge(ctx context.Context, address string, tok *domain.VerificationToken) {
	link := fmt.Sprintf("%s/v1/registrations/verify?token=%s", s.publicBaseURL, tok.Value)

	var err error
	if strings.Contains(address, "@") {
		body := "Your partner started a joint registration.\n\nConfirm your address: " + link
		err = s.mailer.SendEmail(address, "Confirm your registration", body)
	} else {
		err = s.sms.SendSMS(ctx, address, "Confirm your registration: "+link)
	}
	if err != nil {
		slog.Warn("challenge delivery failed",
			"couple_id", tok.CoupleID, "slot", tok.Slot, "err", err)
	}
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
