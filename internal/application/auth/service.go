package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/duetapp/duet-api/internal/domain"
	"github.com/duetapp/duet-api/internal/infrastructure/google"
	"github.com/duetapp/duet-api/internal/pkg/id"
	pkgtoken "github.com/duetapp/duet-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen mirrors the completion gate's credential floor for resets.
const MinPasswordLen = 8

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required"`
}

type PasswordResetConfirm struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// AuthResult bundles everything a successful authentication hands back.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Session      *domain.Session
	Partner      *domain.Partner
}

type Service interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResult, error)
	GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, sessionID string) error
	ListSessions(ctx context.Context, coupleID string) ([]domain.Session, error)
	RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error
	ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error
}

type partnerStore interface {
	Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error)
	GetByEmail(ctx context.Context, email string) (*domain.Partner, error)
	Update(ctx context.Context, coupleID, slot string, updates map[string]interface{}) error
}

type coupleStore interface {
	Get(ctx context.Context, coupleID string) (*domain.Couple, error)
}

type sessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	ListByCouple(ctx context.Context, coupleID string) ([]domain.Session, error)
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type tokenStore interface {
	Put(ctx context.Context, t *domain.VerificationToken) error
	Get(ctx context.Context, value string) (*domain.VerificationToken, error)
	Consume(ctx context.Context, value string) error
}

type googleVerifier interface {
	Verify(ctx context.Context, token string) (*google.Payload, error)
}

type jwtSigner interface {
	Sign(coupleID, slot, sessionID string) (string, error)
}

type mailSender interface {
	SendEmail(to, subject, body string) error
}

type service struct {
	partnerRepo     partnerStore
	coupleRepo      coupleStore
	sessionRepo     sessionStore
	tokenRepo       tokenStore
	verifier        googleVerifier
	jwtProvider     jwtSigner
	mailer          mailSender
	refreshTokenDur time.Duration
	resetTokenTTL   time.Duration
	publicBaseURL   string
}

type ServiceDeps struct {
	PartnerRepo     partnerStore
	CoupleRepo      coupleStore
	SessionRepo     sessionStore
	TokenRepo       tokenStore
	GoogleVerifier  googleVerifier
	JWTProvider     jwtSigner
	Mailer          mailSender
	RefreshTokenDur time.Duration
	ResetTokenTTL   time.Duration
	PublicBaseURL   string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		partnerRepo:     deps.PartnerRepo,
		coupleRepo:      deps.CoupleRepo,
		sessionRepo:     deps.SessionRepo,
		tokenRepo:       deps.TokenRepo,
		verifier:        deps.GoogleVerifier,
		jwtProvider:     deps.JWTProvider,
		mailer:          deps.Mailer,
		refreshTokenDur: deps.RefreshTokenDur,
		resetTokenTTL:   deps.ResetTokenTTL,
		publicBaseURL:   deps.PublicBaseURL,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	p, err := s.partnerRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same answer for unknown address and wrong password.
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	if err := s.requireActivated(ctx, p.CoupleID); err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(req.Password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	return s.openSession(ctx, p)
}

func (s *service) GoogleLogin(ctx context.Context, req GoogleLoginRequest) (*AuthResult, error) {
	payload, err := s.verifier.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if !payload.EmailVerified {
		return nil, fmt.Errorf("google account email not verified: %w", domain.ErrUnauthorized)
	}
	p, err := s.partnerRepo.GetByEmail(ctx, payload.Email)
	if err != nil {
		return nil, fmt.Errorf("no registration for this google account: %w", domain.ErrUnauthorized)
	}
	if p.GoogleSub != "" && p.GoogleSub != payload.Sub {
		return nil, fmt.Errorf("google account mismatch: %w", domain.ErrUnauthorized)
	}
	if err := s.requireActivated(ctx, p.CoupleID); err != nil {
		return nil, err
	}
	if p.GoogleSub == "" {
		// First Google sign-in links the account.
		if err := s.partnerRepo.Update(ctx, p.CoupleID, p.Slot, map[string]interface{}{
			"google_sub": payload.Sub,
		}); err != nil {
			return nil, err
		}
		p.GoogleSub = payload.Sub
	}
	return s.openSession(ctx, p)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sess, err := s.sessionRepo.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if sess.RefreshExpiresAt < time.Now().Unix() {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}

	newToken, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	newExpiry := time.Now().Add(s.refreshTokenDur).Unix()
	if err := s.sessionRepo.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return nil, err
	}
	sess.RefreshToken = newToken
	sess.RefreshExpiresAt = newExpiry

	bearer, err := s.jwtProvider.Sign(sess.CoupleID, sess.Slot, sess.SessionID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: bearer, RefreshToken: newToken, Session: sess}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessionRepo.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) ListSessions(ctx context.Context, coupleID string) ([]domain.Session, error) {
	return s.sessionRepo.ListByCouple(ctx, coupleID)
}

// RequestPasswordReset always reports success so callers cannot probe which
// addresses are registered.
func (s *service) RequestPasswordReset(ctx context.Context, req PasswordResetRequest) error {
	p, err := s.partnerRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		slog.Info("password reset requested for unknown address")
		return nil
	}
	if err := s.requireActivated(ctx, p.CoupleID); err != nil {
		slog.Info("password reset requested for inactive registration", "couple_id", p.CoupleID)
		return nil
	}

	value, err := pkgtoken.NewOpaque()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	tok := &domain.VerificationToken{
		Value:     value,
		CoupleID:  p.CoupleID,
		Slot:      p.Slot,
		Purpose:   domain.TokenPurposePasswordReset,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.resetTokenTTL).Unix(),
	}
	if err := s.tokenRepo.Put(ctx, tok); err != nil {
		return err
	}

	link := fmt.Sprintf("%s/v1/password-recovery/confirm?token=%s", s.publicBaseURL, value)
	if err := s.mailer.SendEmail(p.Email, "Reset your password", "Reset link: "+link); err != nil {
		slog.Warn("password reset delivery failed", "couple_id", p.CoupleID, "slot", p.Slot, "err", err)
	}
	return nil
}

func (s *service) ConfirmPasswordReset(ctx context.Context, req PasswordResetConfirm) error {
	tok, err := s.tokenRepo.Get(ctx, req.Token)
	if err != nil {
		return err
	}
	if tok.Purpose != domain.TokenPurposePasswordReset {
		return fmt.Errorf("token not valid for password reset: %w", domain.ErrNotFound)
	}
	if tok.ExpiresAt < time.Now().Unix() {
		return fmt.Errorf("token expired: %w", domain.ErrExpired)
	}
	if len(req.NewPassword) < MinPasswordLen {
		return fmt.Errorf("password must be at least %d characters: %w", MinPasswordLen, domain.ErrWeakCredential)
	}
	if err := s.tokenRepo.Consume(ctx, req.Token); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.partnerRepo.Update(ctx, tok.CoupleID, tok.Slot, map[string]interface{}{
		"password_hash": string(hash),
	})
}

// requireActivated rejects partners whose registration never completed.
func (s *service) requireActivated(ctx context.Context, coupleID string) error {
	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return err
	}
	if c.Status != domain.CoupleStatusCompleted {
		return fmt.Errorf("registration is not fully activated: %w", domain.ErrForbidden)
	}
	return nil
}

func (s *service) openSession(ctx context.Context, p *domain.Partner) (*AuthResult, error) {
	refreshToken, err := pkgtoken.NewOpaque()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		CoupleID:         p.CoupleID,
		Slot:             p.Slot,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshTokenDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessionRepo.Put(ctx, sess); err != nil {
		return nil, err
	}

	bearer, err := s.jwtProvider.Sign(p.CoupleID, p.Slot, sess.SessionID)
	if err != nil {
		return nil, err
	}
	sess.Partner = p
	return &AuthResult{AccessToken: bearer, RefreshToken: refreshToken, Session: sess, Partner: p}, nil
}
