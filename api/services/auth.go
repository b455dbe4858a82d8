package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/store"
)

// authStore is the subset of the store the auth service needs.
type authStore interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateAccessCode(ctx context.Context, code *domain.AccessCode) error
	GetAccessCode(ctx context.Context, code string) (*domain.AccessCode, error)
	MarkCodeUsed(ctx context.Context, code string) error
	ResetAccessCode(ctx context.Context, code string) error
	DeleteAccessCode(ctx context.Context, code string) error
	ListAccessCodes(ctx context.Context) ([]*domain.AccessCode, error)
	CreateSession(ctx context.Context, sess *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchSession(ctx context.Context, sessionID string) error
	DeactivateSession(ctx context.Context, sessionID string) error
}

// AuthService manages access codes and the sessions opened with them.
type AuthService struct {
	store      authStore
	sessionTTL time.Duration
}

// DefaultSessionTTL is how long a session may sit idle before it expires.
const DefaultSessionTTL = 24 * time.Hour

// NewAuthService creates a new auth service.
func NewAuthService(s authStore) *AuthService {
	return &AuthService{store: s, sessionTTL: DefaultSessionTTL}
}

// GenerateCode mints a random 16-character uppercase hex access code.
func (svc *AuthService) GenerateCode(ctx context.Context, codeType, description string) (*domain.AccessCode, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}

	code := &domain.AccessCode{
		Code:        strings.ToUpper(hex.EncodeToString(buf)),
		Type:        codeType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := svc.store.CreateAccessCode(ctx, code); err != nil {
		return nil, err
	}
	return code, nil
}

// CreateCustomCode stores a caller-chosen access code, uppercased.
func (svc *AuthService) CreateCustomCode(ctx context.Context, code, codeType, description string) (*domain.AccessCode, error) {
	ac := &domain.AccessCode{
		Code:        strings.ToUpper(strings.TrimSpace(code)),
		Type:        codeType,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if ac.Code == "" {
		return nil, domain.ErrNotFound
	}
	if err := svc.store.CreateAccessCode(ctx, ac); err != nil {
		return nil, err
	}
	return ac, nil
}

// Login validates an access code and opens a session. One-time codes are
// burned inside the same transaction that records the session.
func (svc *AuthService) Login(ctx context.Context, code, ipAddress, userAgent string) (*domain.Session, error) {
	code = strings.ToUpper(strings.TrimSpace(code))

	ac, err := svc.store.GetAccessCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if ac.Type == domain.CodeOneTime && ac.IsUsed {
		return nil, domain.ErrCodeUsed
	}

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:           store.NewSessionID(),
		AccessCode:   ac.Code,
		CodeType:     ac.Type,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
		StartedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}

	err = svc.store.WithTx(ctx, func(ctx context.Context) error {
		if ac.Type == domain.CodeOneTime {
			if err := svc.store.MarkCodeUsed(ctx, ac.Code); err != nil {
				return err
			}
		}
		return svc.store.CreateSession(ctx, sess)
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ValidateSession checks a session is active and not idle past the TTL,
// bumping its activity timestamp on success.
func (svc *AuthService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := svc.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if svc.sessionTTL > 0 && time.Since(sess.LastActivity) > svc.sessionTTL {
		_ = svc.store.DeactivateSession(ctx, sessionID)
		return nil, domain.ErrSessionExpired
	}

	if err := svc.store.TouchSession(ctx, sessionID); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout deactivates a session.
func (svc *AuthService) Logout(ctx context.Context, sessionID string) error {
	return svc.store.DeactivateSession(ctx, sessionID)
}

// ListCodes returns every access code, newest first.
func (svc *AuthService) ListCodes(ctx context.Context) ([]*domain.AccessCode, error) {
	return svc.store.ListAccessCodes(ctx)
}

// ResetCode makes a burned one-time code usable again.
func (svc *AuthService) ResetCode(ctx context.Context, code string) error {
	return svc.store.ResetAccessCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

// DeleteCode removes an access code.
func (svc *AuthService) DeleteCode(ctx context.Context, code string) error {
	return svc.store.DeleteAccessCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}
