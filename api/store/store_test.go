package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/scsonic/nexavatar/api/domain"
)

// setupMockContext injects the mock where conn() looks for a transaction,
// so store methods run against it instead of a real pool.
func setupMockContext(mock pgxmock.PgxPoolIface) context.Context {
	return context.WithValue(context.Background(), txKey{}, mock)
}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestCreateAccessCode(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	code := &domain.AccessCode{
		Code:        "A1B2C3D4E5F60718",
		Type:        domain.CodeOneTime,
		Description: "demo batch",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO access_codes").
		WithArgs(code.Code, code.Type, code.IsUsed, code.Description, code.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.CreateAccessCode(setupMockContext(mock), code); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetAccessCodeNotFound(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	mock.ExpectQuery("SELECT code, code_type, is_used").
		WithArgs("MISSING").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetAccessCode(setupMockContext(mock), "MISSING")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAccessCode(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	created := time.Now().UTC()
	mock.ExpectQuery("SELECT code, code_type, is_used").
		WithArgs("A1B2C3D4E5F60718").
		WillReturnRows(pgxmock.NewRows([]string{"code", "code_type", "is_used", "description", "created_at", "used_at"}).
			AddRow("A1B2C3D4E5F60718", domain.CodePermanent, false, "vip", created, nil))

	got, err := s.GetAccessCode(setupMockContext(mock), "A1B2C3D4E5F60718")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != domain.CodePermanent {
		t.Errorf("code type mismatch: got %q", got.Type)
	}
	if got.UsedAt != nil {
		t.Errorf("expected nil used_at, got %v", got.UsedAt)
	}
}

func TestMarkCodeUsedOnlyBurnsOneTime(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	mock.ExpectExec("UPDATE access_codes").
		WithArgs("A1B2C3D4E5F60718", pgxmock.AnyArg(), domain.CodeOneTime).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := s.MarkCodeUsed(setupMockContext(mock), "A1B2C3D4E5F60718"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestResetAccessCodeMissing(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	mock.ExpectExec("UPDATE access_codes").
		WithArgs("MISSING").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.ResetAccessCode(setupMockContext(mock), "MISSING")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAccessCode(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	mock.ExpectExec("DELETE FROM access_codes").
		WithArgs("A1B2C3D4E5F60718").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	if err := s.DeleteAccessCode(setupMockContext(mock), "A1B2C3D4E5F60718"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCreateAndGetSession(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:           NewSessionID(),
		AccessCode:   "A1B2C3D4E5F60718",
		IPAddress:    "203.0.113.9",
		UserAgent:    "widget/1.7",
		StartedAt:    now,
		LastActivity: now,
		IsActive:     true,
	}

	mock.ExpectExec("INSERT INTO user_sessions").
		WithArgs(sess.ID, sess.AccessCode, sess.IPAddress, sess.UserAgent,
			sess.StartedAt, sess.LastActivity, sess.IsActive).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	ctx := setupMockContext(mock)
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	mock.ExpectQuery("SELECT s.session_id").
		WithArgs(sess.ID).
		WillReturnRows(pgxmock.NewRows([]string{
			"session_id", "access_code", "code_type", "ip_address", "user_agent",
			"started_at", "last_activity", "is_active",
		}).AddRow(sess.ID, sess.AccessCode, domain.CodeOneTime, sess.IPAddress,
			sess.UserAgent, now, now, true))

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.CodeType != domain.CodeOneTime {
		t.Errorf("code type mismatch: got %q", got.CodeType)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeactivateSession(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	mock.ExpectExec("UPDATE user_sessions").
		WithArgs("sess_abc").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	if err := s.DeactivateSession(setupMockContext(mock), "sess_abc"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInsertChatLog(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	log := &domain.ChatLog{
		ID:          NewChatLogID(),
		SessionID:   "sess_abc",
		AccessCode:  "A1B2C3D4E5F60718",
		UserMessage: "AI虛擬人可以為我的品牌做什麼？",
		BotResponse: "可以提供客服與代言。",
		Brand:       "creative_tech",
		IPAddress:   "203.0.113.9",
		UserAgent:   "widget/1.7",
		CreatedAt:   time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO chat_logs").
		WithArgs(log.ID, log.SessionID, log.AccessCode, log.UserMessage, log.BotResponse,
			log.Brand, log.IPAddress, log.UserAgent, log.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	if err := s.InsertChatLog(setupMockContext(mock), log); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestListChatLogs(t *testing.T) {
	mock := newMock(t)
	s := New(nil)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT id, session_id, access_code").
		WithArgs("", 100).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "session_id", "access_code", "user_message", "bot_response",
			"brand", "ip_address", "user_agent", "created_at",
		}).
			AddRow("chat_2", "sess_b", "CODE2", "q2", "a2", "probiotics", "198.51.100.1", "ua", now).
			AddRow("chat_1", "sess_a", "CODE1", "q1", "a1", "creative_tech", "198.51.100.2", "ua", now.Add(-time.Minute)))

	logs, err := s.ListChatLogs(setupMockContext(mock), "", 100)
	if err != nil {
		t.Fatalf("ListChatLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].ID != "chat_2" {
		t.Errorf("expected newest first, got %q", logs[0].ID)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO access_codes").
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := withTxOn(mock, context.Background(), func(ctx context.Context) error {
		_, execErr := querierFromContext(ctx).Exec(ctx, "INSERT INTO access_codes (code) VALUES ($1)", "X")
		return execErr
	})
	if err == nil {
		t.Fatal("expected error from failing statement")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

// withTxOn mirrors Store.WithTx against a mock pool, which cannot be
// assigned to the concrete pgxpool field.
func withTxOn(mock pgxmock.PgxPoolIface, ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := mock.Begin(ctx)
	if err != nil {
		return err
	}
	ctx = context.WithValue(ctx, txKey{}, tx)
	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}
