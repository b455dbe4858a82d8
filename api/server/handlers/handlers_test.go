package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scsonic/nexavatar/api/brand"
	"github.com/scsonic/nexavatar/api/domain"
	"github.com/scsonic/nexavatar/api/services"
)

// fakeAuthStore backs an AuthService without a database.
type fakeAuthStore struct {
	codes    map[string]*domain.AccessCode
	sessions map[string]*domain.Session
}

func newFakeAuthStore() *fakeAuthStore {
	return &fakeAuthStore{
		codes:    make(map[string]*domain.AccessCode),
		sessions: make(map[string]*domain.Session),
	}
}

func (f *fakeAuthStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeAuthStore) CreateAccessCode(_ context.Context, code *domain.AccessCode) error {
	f.codes[code.Code] = code
	return nil
}

func (f *fakeAuthStore) GetAccessCode(_ context.Context, code string) (*domain.AccessCode, error) {
	if ac, ok := f.codes[code]; ok {
		return ac, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAuthStore) MarkCodeUsed(_ context.Context, code string) error {
	if ac, ok := f.codes[code]; ok {
		ac.IsUsed = true
	}
	return nil
}

func (f *fakeAuthStore) ResetAccessCode(_ context.Context, code string) error {
	ac, ok := f.codes[code]
	if !ok {
		return domain.ErrNotFound
	}
	ac.IsUsed = false
	return nil
}

func (f *fakeAuthStore) DeleteAccessCode(_ context.Context, code string) error {
	if _, ok := f.codes[code]; !ok {
		return domain.ErrNotFound
	}
	delete(f.codes, code)
	return nil
}

func (f *fakeAuthStore) ListAccessCodes(context.Context) ([]*domain.AccessCode, error) {
	var out []*domain.AccessCode
	for _, ac := range f.codes {
		out = append(out, ac)
	}
	return out, nil
}

func (f *fakeAuthStore) CreateSession(_ context.Context, sess *domain.Session) error {
	f.sessions[sess.ID] = sess
	return nil
}

func (f *fakeAuthStore) GetSession(_ context.Context, id string) (*domain.Session, error) {
	if sess, ok := f.sessions[id]; ok && sess.IsActive {
		return sess, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeAuthStore) TouchSession(_ context.Context, id string) error {
	if sess, ok := f.sessions[id]; ok {
		sess.LastActivity = time.Now().UTC()
	}
	return nil
}

func (f *fakeAuthStore) DeactivateSession(_ context.Context, id string) error {
	if sess, ok := f.sessions[id]; ok {
		sess.IsActive = false
	}
	return nil
}

type fakeLogLister struct {
	logs []*domain.ChatLog
}

func (f *fakeLogLister) ListChatLogs(_ context.Context, accessCode string, limit int) ([]*domain.ChatLog, error) {
	var out []*domain.ChatLog
	for _, l := range f.logs {
		if accessCode == "" || l.AccessCode == accessCode {
			out = append(out, l)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCompleter struct {
	reply string
}

func (f *fakeCompleter) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

type fakeChatLogStore struct{}

func (fakeChatLogStore) InsertChatLog(context.Context, *domain.ChatLog) error { return nil }

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestLoginSuccess(t *testing.T) {
	st := newFakeAuthStore()
	st.codes["A1B2C3D4E5F60718"] = &domain.AccessCode{Code: "A1B2C3D4E5F60718", Type: domain.CodeOneTime}
	h := NewAuthHandler(services.NewAuthService(st))

	w := postJSON(t, h.Login, `{"access_code":"a1b2c3d4e5f60718"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "one_time", body["code_type"])
	assert.NotEmpty(t, body["session_id"])
	assert.True(t, st.codes["A1B2C3D4E5F60718"].IsUsed)
}

func TestLoginInvalidCode(t *testing.T) {
	h := NewAuthHandler(services.NewAuthService(newFakeAuthStore()))

	w := postJSON(t, h.Login, `{"access_code":"NOPE"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "無效的序號", body["message"])
}

func TestLoginUsedCode(t *testing.T) {
	st := newFakeAuthStore()
	st.codes["USED"] = &domain.AccessCode{Code: "USED", Type: domain.CodeOneTime, IsUsed: true}
	h := NewAuthHandler(services.NewAuthService(st))

	w := postJSON(t, h.Login, `{"access_code":"USED"}`)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "此序號已被使用", body["message"])
}

func newTestChatHandler(st *fakeAuthStore) *ChatHandler {
	brands := brand.NewRegistry()
	logger := slog.New(slog.DiscardHandler)
	chatSvc := services.NewChatService(&fakeCompleter{reply: "回覆"}, fakeChatLogStore{}, brands, "", 0, logger)
	ttsSvc := services.NewTTSService(http.DefaultClient, nil, "", "")
	return NewChatHandler(chatSvc, ttsSvc, services.NewAuthService(st), brands)
}

func TestChatAnonymousBrand(t *testing.T) {
	h := newTestChatHandler(newFakeAuthStore())

	w := postJSON(t, h.Chat, `{"message":"你好","brand":"creative_tech"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "回覆", body["response"])
	assert.Equal(t, false, body["truncated"])
}

func TestChatAuthBrandRejectsMissingSession(t *testing.T) {
	h := newTestChatHandler(newFakeAuthStore())

	w := postJSON(t, h.Chat, `{"message":"你好","brand":"probiotics"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChatAuthBrandAcceptsValidSession(t *testing.T) {
	st := newFakeAuthStore()
	st.sessions["sess_1"] = &domain.Session{
		ID: "sess_1", AccessCode: "CODE", IsActive: true, LastActivity: time.Now().UTC(),
	}
	h := newTestChatHandler(st)

	w := postJSON(t, h.Chat, `{"message":"你好","brand":"probiotics","session_id":"sess_1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "回覆", decode(t, w)["response"])
}

func TestModelsEndpoint(t *testing.T) {
	h := newTestChatHandler(newFakeAuthStore())

	req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	w := httptest.NewRecorder()
	h.Models(w, req)

	body := decode(t, w)
	assert.Equal(t, "gemma-3-27b-it", body["default"])
	models := body["models"].(map[string]any)
	assert.Contains(t, models, "gemma-3-9b-it")
}

func TestVoicesEndpoint(t *testing.T) {
	h := NewTTSHandler(services.NewTTSService(http.DefaultClient, nil, "", ""))

	req := httptest.NewRequest(http.MethodGet, "/api/voices", nil)
	w := httptest.NewRecorder()
	h.Voices(w, req)

	body := decode(t, w)
	assert.Equal(t, "zh-TW-HsiaoChenNeural", body["default"])
	voices := body["voices"].(map[string]any)
	assert.Contains(t, voices, "zh-TW-YunJheNeural")
}

func TestAdminDeniedWithoutCode(t *testing.T) {
	h := NewAdminHandler(services.NewAuthService(newFakeAuthStore()), &fakeLogLister{}, "SECRET")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/codes", nil)
	w := httptest.NewRecorder()
	h.ListCodes(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])
}

func TestAdminDeniedWhenUnconfigured(t *testing.T) {
	h := NewAdminHandler(services.NewAuthService(newFakeAuthStore()), &fakeLogLister{}, "")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/codes?admin_code=", nil)
	w := httptest.NewRecorder()
	h.ListCodes(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminGenerateCode(t *testing.T) {
	st := newFakeAuthStore()
	h := NewAdminHandler(services.NewAuthService(st), &fakeLogLister{}, "SECRET")

	w := postJSON(t, h.GenerateCode, `{"admin_code":"SECRET","code_type":"one_time","description":"demo"}`)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	code := body["code"].(string)
	assert.Len(t, code, 16)
	assert.Contains(t, st.codes, code)
}

func TestAdminExportLogsCSV(t *testing.T) {
	logs := &fakeLogLister{logs: []*domain.ChatLog{{
		AccessCode:  "A1B2C3D4E5F60718",
		Brand:       "creative_tech",
		IPAddress:   "203.0.113.9",
		UserAgent:   "widget/1.7",
		UserMessage: "你好",
		BotResponse: "您好，有什麼可以幫忙？",
		CreatedAt:   time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
	}}}
	h := NewAdminHandler(services.NewAuthService(newFakeAuthStore()), logs, "SECRET")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs/export?admin_code=SECRET", nil)
	w := httptest.NewRecorder()
	h.ExportLogs(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "\uFEFF"))

	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(body, "\uFEFF")), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "時間,序號,品牌,IP地址,用戶代理,用戶訊息,AI回應", lines[0])
	assert.Contains(t, lines[1], "2026-08-30 12:00:00")
	assert.Contains(t, lines[1], "您好，有什麼可以幫忙？")
}

func TestAdminListLogsFiltersByCode(t *testing.T) {
	logs := &fakeLogLister{logs: []*domain.ChatLog{
		{AccessCode: "AAA", UserMessage: "q1"},
		{AccessCode: "BBB", UserMessage: "q2"},
	}}
	h := NewAdminHandler(services.NewAuthService(newFakeAuthStore()), logs, "SECRET")

	req := httptest.NewRequest(http.MethodGet, "/api/admin/logs?admin_code=SECRET&access_code=BBB", nil)
	w := httptest.NewRecorder()
	h.ListLogs(w, req)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	entries := body["logs"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "q2", entries[0].(map[string]any)["user_message"])
}

func TestPresenceConnectDisconnect(t *testing.T) {
	h := NewPresenceHandler(time.Minute)

	w := postJSON(t, h.Connect, `{"uuid":"u-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["online"])

	w = postJSON(t, h.Connect, `{"uuid":"u-2"}`)
	assert.Equal(t, float64(2), decode(t, w)["online"])

	// Reconnecting the same widget does not double count.
	w = postJSON(t, h.Connect, `{"uuid":"u-1"}`)
	assert.Equal(t, float64(2), decode(t, w)["online"])

	w = postJSON(t, h.Disconnect, `{"uuid":"u-1"}`)
	assert.Equal(t, float64(1), decode(t, w)["online"])
	assert.Equal(t, 1, h.Online())
}

func TestPresenceRequiresUUID(t *testing.T) {
	h := NewPresenceHandler(time.Minute)

	w := postJSON(t, h.Connect, `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
