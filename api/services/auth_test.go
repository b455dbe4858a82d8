package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scsonic/nexavatar/api/domain"
)

type mockAuthStore struct {
	getCode     func(ctx context.Context, code string) (*domain.AccessCode, error)
	getSession  func(ctx context.Context, id string) (*domain.Session, error)
	created     []*domain.AccessCode
	sessions    []*domain.Session
	burned      []string
	reset       []string
	deleted     []string
	deactivated []string
	touched     []string
}

func (m *mockAuthStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *mockAuthStore) CreateAccessCode(_ context.Context, code *domain.AccessCode) error {
	m.created = append(m.created, code)
	return nil
}

func (m *mockAuthStore) GetAccessCode(ctx context.Context, code string) (*domain.AccessCode, error) {
	if m.getCode != nil {
		return m.getCode(ctx, code)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAuthStore) MarkCodeUsed(_ context.Context, code string) error {
	m.burned = append(m.burned, code)
	return nil
}

func (m *mockAuthStore) ResetAccessCode(_ context.Context, code string) error {
	m.reset = append(m.reset, code)
	return nil
}

func (m *mockAuthStore) DeleteAccessCode(_ context.Context, code string) error {
	m.deleted = append(m.deleted, code)
	return nil
}

func (m *mockAuthStore) ListAccessCodes(context.Context) ([]*domain.AccessCode, error) {
	return m.created, nil
}

func (m *mockAuthStore) CreateSession(_ context.Context, sess *domain.Session) error {
	m.sessions = append(m.sessions, sess)
	return nil
}

func (m *mockAuthStore) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	if m.getSession != nil {
		return m.getSession(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockAuthStore) TouchSession(_ context.Context, id string) error {
	m.touched = append(m.touched, id)
	return nil
}

func (m *mockAuthStore) DeactivateSession(_ context.Context, id string) error {
	m.deactivated = append(m.deactivated, id)
	return nil
}

var codeFormat = regexp.MustCompile(`^[0-9A-F]{16}$`)

func TestGenerateCodeFormat(t *testing.T) {
	st := &mockAuthStore{}
	svc := NewAuthService(st)

	code, err := svc.GenerateCode(context.Background(), domain.CodeOneTime, "demo")
	require.NoError(t, err)
	assert.Regexp(t, codeFormat, code.Code)
	assert.Equal(t, domain.CodeOneTime, code.Type)
	require.Len(t, st.created, 1)

	other, err := svc.GenerateCode(context.Background(), domain.CodeOneTime, "demo")
	require.NoError(t, err)
	assert.NotEqual(t, code.Code, other.Code)
}

func TestCreateCustomCodeUppercases(t *testing.T) {
	st := &mockAuthStore{}
	svc := NewAuthService(st)

	code, err := svc.CreateCustomCode(context.Background(), "  vip2026  ", domain.CodePermanent, "sales")
	require.NoError(t, err)
	assert.Equal(t, "VIP2026", code.Code)

	_, err = svc.CreateCustomCode(context.Background(), "   ", domain.CodePermanent, "")
	assert.Error(t, err)
}

func TestLoginBurnsOneTimeCode(t *testing.T) {
	st := &mockAuthStore{
		getCode: func(_ context.Context, code string) (*domain.AccessCode, error) {
			return &domain.AccessCode{Code: code, Type: domain.CodeOneTime}, nil
		},
	}
	svc := NewAuthService(st)

	sess, err := svc.Login(context.Background(), "a1b2c3d4e5f60718", "203.0.113.9", "widget/1.7")
	require.NoError(t, err)
	assert.Equal(t, "A1B2C3D4E5F60718", sess.AccessCode)
	assert.Equal(t, domain.CodeOneTime, sess.CodeType)
	assert.True(t, sess.IsActive)
	assert.Equal(t, []string{"A1B2C3D4E5F60718"}, st.burned)
	require.Len(t, st.sessions, 1)
}

func TestLoginPermanentCodeNotBurned(t *testing.T) {
	st := &mockAuthStore{
		getCode: func(_ context.Context, code string) (*domain.AccessCode, error) {
			return &domain.AccessCode{Code: code, Type: domain.CodePermanent}, nil
		},
	}
	svc := NewAuthService(st)

	_, err := svc.Login(context.Background(), "VIP2026", "203.0.113.9", "widget/1.7")
	require.NoError(t, err)
	assert.Empty(t, st.burned)
}

func TestLoginRejectsUsedOneTimeCode(t *testing.T) {
	st := &mockAuthStore{
		getCode: func(_ context.Context, code string) (*domain.AccessCode, error) {
			return &domain.AccessCode{Code: code, Type: domain.CodeOneTime, IsUsed: true}, nil
		},
	}
	svc := NewAuthService(st)

	_, err := svc.Login(context.Background(), "A1B2C3D4E5F60718", "", "")
	assert.ErrorIs(t, err, domain.ErrCodeUsed)
	assert.Empty(t, st.sessions)
}

func TestLoginUnknownCode(t *testing.T) {
	svc := NewAuthService(&mockAuthStore{})

	_, err := svc.Login(context.Background(), "NOPE", "", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidateSessionTouches(t *testing.T) {
	st := &mockAuthStore{
		getSession: func(_ context.Context, id string) (*domain.Session, error) {
			return &domain.Session{ID: id, IsActive: true, LastActivity: time.Now().UTC()}, nil
		},
	}
	svc := NewAuthService(st)

	sess, err := svc.ValidateSession(context.Background(), "sess_abc")
	require.NoError(t, err)
	assert.Equal(t, "sess_abc", sess.ID)
	assert.Equal(t, []string{"sess_abc"}, st.touched)
}

func TestValidateSessionExpiresIdle(t *testing.T) {
	st := &mockAuthStore{
		getSession: func(_ context.Context, id string) (*domain.Session, error) {
			return &domain.Session{ID: id, IsActive: true, LastActivity: time.Now().UTC().Add(-48 * time.Hour)}, nil
		},
	}
	svc := NewAuthService(st)

	_, err := svc.ValidateSession(context.Background(), "sess_old")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Equal(t, []string{"sess_old"}, st.deactivated)
	assert.Empty(t, st.touched)
}
