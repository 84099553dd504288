package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"user-auth/internal/apperr"
	"user-auth/internal/domain"
	"user-auth/internal/repository"
	"user-auth/internal/sanitize"
	"user-auth/internal/service"
)

type mockEmailSender struct {
	lastTo      string
	lastSubject string
	lastBody    string
	err         error
}

func (m *mockEmailSender) Send(_ context.Context, to, subject, htmlBody string) error {
	m.lastTo = to
	m.lastSubject = subject
	m.lastBody = htmlBody
	return m.err
}

var codePattern = regexp.MustCompile(`The activation code is ([A-Za-z0-9]+)`)

func (m *mockEmailSender) code(t *testing.T) string {
	t.Helper()
	match := codePattern.FindStringSubmatch(m.lastBody)
	if len(match) != 2 {
		t.Fatalf("no code in email body %q", m.lastBody)
	}
	return match[1]
}

type testServer struct {
	router *gin.Engine
	sender *mockEmailSender
	users  *repository.MemoryUserRepository
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepository()
	codes := repository.NewMemoryUserCodeRepository(users)
	hasher := service.BcryptHasher{Cost: bcrypt.MinCost}
	model := service.NewAuthenticationModel(zap.NewNop(), users, codes,
		service.WithPasswordHasher(hasher),
		service.WithPasswordVerifier(hasher),
	)
	tokens := service.NewTokenService("secret")
	sender := &mockEmailSender{}
	handler := NewUserHandler(zap.NewNop(), model, tokens, sanitize.UserInput{}, sender)

	return testServer{
		router: NewRouter(zap.NewNop(), handler, tokens),
		sender: sender,
		users:  users,
	}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func (s testServer) register(t *testing.T, username, emailAddr, password string) string {
	t.Helper()
	rec, resp := s.do(t, http.MethodPost, "/users", "", map[string]string{
		"username": username,
		"email":    emailAddr,
		"password": password,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	token, _ := resp["token"].(string)
	if token == "" {
		t.Fatalf("register: missing token")
	}
	return token
}

func TestRegister_SanitizesAndHidesPassword(t *testing.T) {
	srv := newTestServer(t)
	rec, resp := srv.do(t, http.MethodPost, "/users", "", map[string]string{
		"username": " ali-ce ",
		"email":    " Alice@Example.com ",
		"password": " secret123 ",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	user, _ := resp["user"].(map[string]any)
	if user["username"] != "alice" || user["email"] != "alice@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}
	if _, ok := user["password"]; ok {
		t.Fatalf("password leaked in response")
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret123")) {
		t.Fatalf("password leaked in body")
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "alice@example.com", "secret123")

	rec, _ := srv.do(t, http.MethodPost, "/users", "", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestRegister_EmptyField(t *testing.T) {
	srv := newTestServer(t)
	rec, resp := srv.do(t, http.MethodPost, "/users", "", map[string]string{
		"username": "!!!",
		"email":    "alice@example.com",
		"password": "secret123",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp["error"] != "Username is empty after sanitize" {
		t.Fatalf("unexpected error %v", resp["error"])
	}
}

func TestLogin_CollapsesFailures(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "alice@example.com", "secret123")

	rec, resp := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "secret123"})
	if rec.Code != http.StatusOK || resp["token"] == "" {
		t.Fatalf("expected login ok, got %d: %s", rec.Code, rec.Body.String())
	}

	wrong, wrongBody := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "nope"})
	unknown, unknownBody := srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "bob", "password": "nope"})
	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", wrong.Code, unknown.Code)
	}
	if wrongBody["error"] != unknownBody["error"] {
		t.Fatalf("login failures distinguishable: %v vs %v", wrongBody["error"], unknownBody["error"])
	}
}

func TestMe_UpdateAndDelete(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "alice@example.com", "secret123")

	rec, resp := srv.do(t, http.MethodGet, "/users/me", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	user, _ := resp["user"].(map[string]any)
	if user["username"] != "alice" || user["activated"] != false {
		t.Fatalf("unexpected me %+v", user)
	}

	rec, resp = srv.do(t, http.MethodPatch, "/users/me", token, map[string]string{"email": "NEW@example.com"})
	if rec.Code != http.StatusOK || resp["message"] != "User updated" {
		t.Fatalf("update: %d %v", rec.Code, resp)
	}
	_, resp = srv.do(t, http.MethodGet, "/users/me", token, nil)
	user, _ = resp["user"].(map[string]any)
	if user["email"] != "new@example.com" {
		t.Fatalf("email not updated: %+v", user)
	}

	rec, resp = srv.do(t, http.MethodDelete, "/users/me", token, nil)
	if rec.Code != http.StatusOK || resp["message"] != "User deleted successfully" {
		t.Fatalf("delete: %d %v", rec.Code, resp)
	}
	rec, _ = srv.do(t, http.MethodGet, "/users/me", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestUpdatePassword(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "alice@example.com", "secret123")

	rec, resp := srv.do(t, http.MethodPut, "/users/me/password", token, map[string]string{
		"old_password": "wrong",
		"new_password": "newsecret",
	})
	if rec.Code != http.StatusBadRequest || resp["error"] != "Old password is invalid" {
		t.Fatalf("expected rejection, got %d %v", rec.Code, resp)
	}

	rec, _ = srv.do(t, http.MethodPut, "/users/me/password", token, map[string]string{
		"old_password": "secret123",
		"new_password": "newsecret",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, _ = srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "newsecret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with new password: %d", rec.Code)
	}
}

func TestActivationFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "alice@example.com", "secret123")

	rec, resp := srv.do(t, http.MethodPost, "/users/me/activation-code", token, nil)
	if rec.Code != http.StatusOK || resp["message"] != "Code sent successfully" {
		t.Fatalf("send code: %d %v", rec.Code, resp)
	}
	if srv.sender.lastTo != "alice@example.com" || srv.sender.lastSubject != "activation code" {
		t.Fatalf("unexpected email %+v", srv.sender)
	}
	code := srv.sender.code(t)

	rec, resp = srv.do(t, http.MethodPost, "/users/me/activate", token, map[string]string{"code": "WRONG1"})
	if rec.Code != http.StatusNotFound || resp["error"] != "Code not found" {
		t.Fatalf("expected code not found, got %d %v", rec.Code, resp)
	}

	rec, resp = srv.do(t, http.MethodPost, "/users/me/activate", token, map[string]string{"code": code})
	if rec.Code != http.StatusOK || resp["message"] != "User activated" {
		t.Fatalf("activate: %d %v", rec.Code, resp)
	}

	rec, _ = srv.do(t, http.MethodPost, "/users/me/activate", token, map[string]string{"code": code})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected replay rejection, got %d", rec.Code)
	}
}

func TestSendActivationCode_EmailFailure(t *testing.T) {
	srv := newTestServer(t)
	token := srv.register(t, "alice", "alice@example.com", "secret123")
	srv.sender.err = errors.New("smtp down")

	rec, _ := srv.do(t, http.MethodPost, "/users/me/activation-code", token, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRecoveryFlow(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice", "alice@example.com", "secret123")

	rec, _ := srv.do(t, http.MethodPost, "/auth/recovery-code", "", map[string]string{"email": "nobody@example.com"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown email, got %d", rec.Code)
	}

	rec, _ = srv.do(t, http.MethodPost, "/auth/recovery-code", "", map[string]string{"email": "Alice@Example.com"})
	if rec.Code != http.StatusOK {
		t.Fatalf("recovery code: %d", rec.Code)
	}
	code := srv.sender.code(t)

	rec, resp := srv.do(t, http.MethodPost, "/auth/recover-password", "", map[string]string{
		"email":        "alice@example.com",
		"code":         code,
		"new_password": "recovered1",
	})
	if rec.Code != http.StatusOK || resp["message"] != "Password updated" {
		t.Fatalf("recover: %d %v", rec.Code, resp)
	}

	rec, _ = srv.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice", "password": "recovered1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login with recovered password: %d", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodPatch, "/users/me"},
		{http.MethodDelete, "/users/me"},
		{http.MethodPut, "/users/me/password"},
		{http.MethodPost, "/users/me/activation-code"},
		{http.MethodPost, "/users/me/activate"},
	} {
		rec, _ := srv.do(t, tc.method, tc.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

type failingUserRepo struct {
	*repository.MemoryUserRepository
}

func (failingUserRepo) ConsultByID(context.Context, string) (domain.User, error) {
	return domain.User{}, apperr.NewInternal("could not consult user", errors.New("connection reset"))
}

func TestWriteError_LogsGRPCCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	users := failingUserRepo{repository.NewMemoryUserRepository()}
	model := service.NewAuthenticationModel(zap.NewNop(), users, repository.NewMemoryUserCodeRepository(nil))
	tokens := service.NewTokenService("secret")
	handler := NewUserHandler(logger, model, tokens, sanitize.UserInput{}, &mockEmailSender{})
	srv := testServer{router: NewRouter(zap.NewNop(), handler, tokens)}

	token, err := tokens.Encode("u-1", false, false)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rec, resp := srv.do(t, http.MethodGet, "/users/me", token, nil)
	if rec.Code != http.StatusInternalServerError || resp["error"] != "internal error" {
		t.Fatalf("expected 500 internal error, got %d %v", rec.Code, resp)
	}

	entries := logs.FilterMessage("request failed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one error log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["grpc_code"] != "Internal" || fields["kind"] != "internal" {
		t.Fatalf("unexpected log fields %v", fields)
	}

	logs.TakeAll()
	rec, _ = srv.do(t, http.MethodPost, "/users/me/activate", token, map[string]string{"code": "ZZZZZZ"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rejected := logs.FilterMessage("request rejected").All()
	if len(rejected) != 1 || rejected[0].ContextMap()["grpc_code"] != "NotFound" {
		t.Fatalf("expected NotFound grpc code in log, got %v", rejected)
	}
}
