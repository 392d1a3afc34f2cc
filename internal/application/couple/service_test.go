package couple

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/duetapp/duet-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockCoupleStore struct{ mock.Mock }

func (m *mockCoupleStore) Get(ctx context.Context, coupleID string) (*domain.Couple, error) {
	args := m.Called(ctx, coupleID)
	if c, _ := args.Get(0).(*domain.Couple); c != nil {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockCoupleStore) Update(ctx context.Context, coupleID string, updates map[string]interface{}) error {
	return m.Called(ctx, coupleID, updates).Error(0)
}

type mockPartnerStore struct{ mock.Mock }

func (m *mockPartnerStore) Get(ctx context.Context, coupleID, slot string) (*domain.Partner, error) {
	args := m.Called(ctx, coupleID, slot)
	if p, _ := args.Get(0).(*domain.Partner); p != nil {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockAvatarStore struct{ mock.Mock }

func (m *mockAvatarStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	args := m.Called(ctx, key, r, contentType)
	return args.String(0), args.Error(1)
}
func (m *mockAvatarStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}
func (m *mockAvatarStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// --- helpers ---

func newTestService(cs *mockCoupleStore, ps *mockPartnerStore, as *mockAvatarStore) Service {
	return NewService(ServiceDeps{
		CoupleRepo:  cs,
		PartnerRepo: ps,
		AvatarStore: as,
		S3Bucket:    "duet-avatars",
	})
}

func completedCouple() *domain.Couple {
	anniversary := "2020-02-14"
	return &domain.Couple{
		CoupleID:        "c1",
		CoupleName:      "Alice & Bob",
		AnniversaryDate: &anniversary,
		Status:          domain.CoupleStatusCompleted,
	}
}

// --- Get tests ---

func TestGet_NonMemberForbidden(t *testing.T) {
	svc := newTestService(&mockCoupleStore{}, &mockPartnerStore{}, &mockAvatarStore{})

	_, err := svc.Get(context.Background(), "c1", "c2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestGet_ProfileWithDaysTogether(t *testing.T) {
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(completedCouple(), nil)
	ps := &mockPartnerStore{}
	ps.On("Get", mock.Anything, "c1", domain.SlotA).Return(&domain.Partner{
		DisplayName: "Alice", Email: "alice@example.com",
	}, nil)
	ps.On("Get", mock.Anything, "c1", domain.SlotB).Return(&domain.Partner{
		DisplayName: "Bob", Email: "bob@example.com",
	}, nil)

	svc := newTestService(cs, ps, &mockAvatarStore{})
	p, err := svc.Get(context.Background(), "c1", "c1")

	require.NoError(t, err)
	assert.Equal(t, "Alice & Bob", p.CoupleName)
	assert.Equal(t, "Alice", p.PartnerA.DisplayName)
	assert.Equal(t, "Bob", p.PartnerB.DisplayName)
	assert.Greater(t, p.DaysTogether, 365)
}

func TestGet_AvatarPresigned(t *testing.T) {
	c := completedCouple()
	stored := "s3://duet-avatars/avatars/c1/abc.jpg"
	c.AvatarURL = &stored
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(c, nil)
	ps := &mockPartnerStore{}
	ps.On("Get", mock.Anything, "c1", mock.Anything).Return(&domain.Partner{}, nil)
	as := &mockAvatarStore{}
	as.On("PresignedURL", mock.Anything, "avatars/c1/abc.jpg", mock.Anything).
		Return("https://signed.example/avatar.jpg", nil)

	svc := newTestService(cs, ps, as)
	p, err := svc.Get(context.Background(), "c1", "c1")

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/avatar.jpg", p.AvatarURL)
	as.AssertExpectations(t)
}

// --- Update tests ---

func TestUpdate_PendingCoupleForbidden(t *testing.T) {
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(&domain.Couple{
		CoupleID: "c1", Status: domain.CoupleStatusPending,
	}, nil)

	name := "New Name"
	svc := newTestService(cs, &mockPartnerStore{}, &mockAvatarStore{})
	_, err := svc.Update(context.Background(), "c1", "c1", domain.UpdateCoupleRequest{CoupleName: &name})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUpdate_WritesOnlyProvidedFields(t *testing.T) {
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(completedCouple(), nil)
	cs.On("Update", mock.Anything, "c1", map[string]interface{}{
		"couple_name": "The Smiths",
	}).Return(nil)

	name := "The Smiths"
	svc := newTestService(cs, &mockPartnerStore{}, &mockAvatarStore{})
	c, err := svc.Update(context.Background(), "c1", "c1", domain.UpdateCoupleRequest{CoupleName: &name})

	require.NoError(t, err)
	assert.Equal(t, "The Smiths", c.CoupleName)
	cs.AssertExpectations(t)
}

func TestUpdate_NoFieldsIsNoOp(t *testing.T) {
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(completedCouple(), nil)

	svc := newTestService(cs, &mockPartnerStore{}, &mockAvatarStore{})
	_, err := svc.Update(context.Background(), "c1", "c1", domain.UpdateCoupleRequest{})

	require.NoError(t, err)
	cs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// --- UploadAvatar tests ---

func TestUploadAvatar_UnsupportedContentType(t *testing.T) {
	svc := newTestService(&mockCoupleStore{}, &mockPartnerStore{}, &mockAvatarStore{})

	_, err := svc.UploadAvatar(context.Background(), "c1", "c1", strings.NewReader("x"), "application/pdf")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
}

func TestUploadAvatar_ReplacesOldObject(t *testing.T) {
	c := completedCouple()
	old := "s3://duet-avatars/avatars/c1/old.jpg"
	c.AvatarURL = &old
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(c, nil)
	cs.On("Update", mock.Anything, "c1", mock.MatchedBy(func(updates map[string]interface{}) bool {
		url, ok := updates["avatar_url"].(string)
		return ok && strings.HasPrefix(url, "s3://duet-avatars/avatars/c1/")
	})).Return(nil)
	as := &mockAvatarStore{}
	as.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "avatars/c1/") && strings.HasSuffix(key, ".png")
	}), mock.Anything, "image/png").Return("s3://duet-avatars/avatars/c1/new.png", nil)
	as.On("Delete", mock.Anything, "avatars/c1/old.jpg").Return(nil)
	as.On("PresignedURL", mock.Anything, mock.Anything, mock.Anything).
		Return("https://signed.example/new.png", nil)

	svc := newTestService(cs, &mockPartnerStore{}, as)
	url, err := svc.UploadAvatar(context.Background(), "c1", "c1", strings.NewReader("img"), "image/png")

	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/new.png", url)
	as.AssertExpectations(t)
	cs.AssertExpectations(t)
}

func TestUploadAvatar_DeleteFailureNotFatal(t *testing.T) {
	c := completedCouple()
	old := "s3://duet-avatars/avatars/c1/old.jpg"
	c.AvatarURL = &old
	cs := &mockCoupleStore{}
	cs.On("Get", mock.Anything, "c1").Return(c, nil)
	cs.On("Update", mock.Anything, "c1", mock.Anything).Return(nil)
	as := &mockAvatarStore{}
	as.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("s3://duet-avatars/avatars/c1/new.jpg", nil)
	as.On("Delete", mock.Anything, mock.Anything).Return(errors.New("s3 down"))
	as.On("PresignedURL", mock.Anything, mock.Anything, mock.Anything).
		Return("https://signed.example/new.jpg", nil)

	svc := newTestService(cs, &mockPartnerStore{}, as)
	_, err := svc.UploadAvatar(context.Background(), "c1", "c1", strings.NewReader("img"), "image/jpeg")

	require.NoError(t, err)
}
