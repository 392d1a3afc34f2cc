package couple

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/duetapp/duet-api/internal/domain"
	"github.com/duetapp/duet-api/internal/pkg/id"
)

// Profile is the couple page: shared fields plus both partners' public bits.
type Profile struct {
	CoupleID        string              `json:"id"`
	CoupleName      string              `json:"couple_name"`
	AnniversaryDate *string             `json:"anniversary_date,omitempty"`
	AvatarURL       string              `json:"avatar_url,omitempty"`
	Status          domain.CoupleStatus `json:"status"`
	DaysTogether    int                 `json:"days_together,omitempty"`
	PartnerA        PartnerProfile      `json:"partner_a"`
	PartnerB        PartnerProfile      `json:"partner_b"`
}

type PartnerProfile struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

type Service interface {
	Get(ctx context.Context, coupleID, requestorCoupleID string) (*Profile, error)
	Update(ctx context.Context, coupleID, requestorCoupleID string, req domain.UpdateCoupleRequest) (*domain.Couple, error)
	UploadAvatar(ctx context.Context, coupleID, requestorCoupleID string, body io.Reader, contentType string) (string, error)
}

type coupleStore interface {
	Get(ctx context.Context, coupleID string) (*domain.Couple, error)
	Update(ctx context.Context, coupleID string, updates map[string]interface{}) error
}

type partnerStore interface {
	Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error)
}

type avatarStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type service struct {
	coupleRepo  coupleStore
	partnerRepo partnerStore
	avatars     avatarStore
	bucket      string
}

type ServiceDeps struct {
	CoupleRepo  coupleStore
	PartnerRepo partnerStore
	AvatarStore avatarStore
	S3Bucket    string
}

func NewService(deps ServiceDeps) Service {
	return &service{
		coupleRepo:  deps.CoupleRepo,
		partnerRepo: deps.PartnerRepo,
		avatars:     deps.AvatarStore,
		bucket:      deps.S3Bucket,
	}
}

func (s *service) Get(ctx context.Context, coupleID, requestorCoupleID string) (*Profile, error) {
	if err := requireMember(coupleID, requestorCoupleID); err != nil {
		return nil, err
	}
	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return nil, err
	}
	pa, err := s.partnerRepo.Get(ctx, coupleID, domain.SlotA)
	if err != nil {
		return nil, err
	}
	pb, err := s.partnerRepo.Get(ctx, coupleID, domain.SlotB)
	if err != nil {
		return nil, err
	}

	p := &Profile{
		CoupleID:        c.CoupleID,
		CoupleName:      c.CoupleName,
		AnniversaryDate: c.AnniversaryDate,
		Status:          c.Status,
		DaysTogether:    daysTogether(c.AnniversaryDate),
		PartnerA:        PartnerProfile{DisplayName: pa.DisplayName, Email: pa.Email},
		PartnerB:        PartnerProfile{DisplayName: pb.DisplayName, Email: pb.Email},
	}
	if c.AvatarURL != nil && *c.AvatarURL != "" {
		url, err := s.avatars.PresignedURL(ctx, s.objectKey(*c.AvatarURL), time.Hour)
		if err != nil {
			slog.Warn("failed to presign avatar url", "couple_id", coupleID, "err", err)
		} else {
			p.AvatarURL = url
		}
	}
	return p, nil
}

func (s *service) Update(ctx context.Context, coupleID, requestorCoupleID string, req domain.UpdateCoupleRequest) (*domain.Couple, error) {
	if err := requireMember(coupleID, requestorCoupleID); err != nil {
		return nil, err
	}
	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return nil, err
	}
	if c.Status != domain.CoupleStatusCompleted {
		return nil, fmt.Errorf("registration is not fully activated: %w", domain.ErrForbidden)
	}

	updates := map[string]interface{}{}
	if req.CoupleName != nil {
		updates["couple_name"] = *req.CoupleName
		c.CoupleName = *req.CoupleName
	}
	if req.AnniversaryDate != nil {
		updates["anniversary_date"] = *req.AnniversaryDate
		c.AnniversaryDate = req.AnniversaryDate
	}
	if len(updates) == 0 {
		return c, nil
	}
	if err := s.coupleRepo.Update(ctx, coupleID, updates); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *service) UploadAvatar(ctx context.Context, coupleID, requestorCoupleID string, body io.Reader, contentType string) (string, error) {
	if err := requireMember(coupleID, requestorCoupleID); err != nil {
		return "", err
	}
	ext, ok := avatarExt(contentType)
	if !ok {
		return "", fmt.Errorf("unsupported avatar content type %q: %w", contentType, domain.ErrBadRequest)
	}
	c, err := s.coupleRepo.Get(ctx, coupleID)
	if err != nil {
		return "", err
	}
	if c.Status != domain.CoupleStatusCompleted {
		return "", fmt.Errorf("registration is not fully activated: %w", domain.ErrForbidden)
	}

	key := fmt.Sprintf("avatars/%s/%s%s", coupleID, id.New(), ext)
	stored, err := s.avatars.Upload(ctx, key, body, contentType)
	if err != nil {
		return "", err
	}
	if err := s.coupleRepo.Update(ctx, coupleID, map[string]interface{}{"avatar_url": stored}); err != nil {
		return "", err
	}

	// Old object cleanup is best effort; an orphan costs pennies.
	if c.AvatarURL != nil && *c.AvatarURL != "" {
		if err := s.avatars.Delete(ctx, s.objectKey(*c.AvatarURL)); err != nil {
			slog.Warn("failed to delete previous avatar", "couple_id", coupleID, "err", err)
		}
	}

	url, err := s.avatars.PresignedURL(ctx, key, time.Hour)
	if err != nil {
		slog.Warn("failed to presign avatar url", "couple_id", coupleID, "err", err)
		return stored, nil
	}
	return url, nil
}

// objectKey strips the s3://bucket/ prefix the store writes into avatar_url.
func (s *service) objectKey(stored string) string {
	return strings.TrimPrefix(stored, "s3://"+s.bucket+"/")
}

func requireMember(coupleID, requestorCoupleID string) error {
	if coupleID != requestorCoupleID {
		return fmt.Errorf("not a member of this couple: %w", domain.ErrForbidden)
	}
	return nil
}

func daysTogether(anniversary *string) int {
	if anniversary == nil || *anniversary == "" {
		return 0
	}
	start, err := time.Parse("2006-01-02", *anniversary)
	if err != nil {
		return 0
	}
	d := int(time.Since(start).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

func avatarExt(contentType string) (string, bool) {
	switch contentType {
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "image/webp":
		return ".webp", true
	default:
		return "", false
	}
}
