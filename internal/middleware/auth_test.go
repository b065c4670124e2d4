package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/greeno_layer/internal/httputil"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

var testSecret = []byte("greeno-admin-secret")

func testLogger() *logging.Logger {
	return logging.NewWithWriter("test", io.Discard)
}

func signToken(t *testing.T, secret []byte, userID, role string, ttl time.Duration) string {
	t.Helper()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func runAuth(t *testing.T, m *AuthMiddleware, header string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	var seen *http.Request
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mintTokens", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr, seen
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	rr, seen := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if seen != nil {
		t.Error("next handler should not run")
	}
	var resp httputil.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", resp.Code)
	}
}

func TestAuthMiddleware_InvalidHeaderFormat(t *testing.T) {
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Token abc")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, testSecret, "ops-1", RoleAdmin, time.Hour)
	rr, seen := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := logging.GetUserID(seen.Context()); got != "ops-1" {
		t.Errorf("user id = %q, want ops-1", got)
	}
	if got := logging.GetRole(seen.Context()); got != RoleAdmin {
		t.Errorf("role = %q, want admin", got)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token := signToken(t, testSecret, "ops-1", RoleAdmin, -time.Hour)
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	var resp httputil.ErrorResponse
	_ = json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Code != "INVALID_TOKEN" {
		t.Errorf("code = %q, want INVALID_TOKEN", resp.Code)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token := signToken(t, []byte("other"), "ops-1", RoleAdmin, time.Hour)
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddleware_WrongRole(t *testing.T) {
	token := signToken(t, testSecret, "user-7", "client", time.Hour)
	rr, seen := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
	if seen != nil {
		t.Error("next handler should not run")
	}
}

func TestAuthMiddleware_NoRoleRequired(t *testing.T) {
	token := signToken(t, testSecret, "user-7", "", time.Hour)
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, "", testLogger()), "Bearer "+token)
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

func TestAuthMiddleware_RequiresExpiry(t *testing.T) {
	claims := &Claims{UserID: "ops-1", Role: RoleAdmin}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{
		UserID:           "ops-1",
		Role:             RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rr, _ := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddleware_SubjectFallback(t *testing.T) {
	claims := &Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops-9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rr, seen := runAuth(t, NewAuthMiddleware(testSecret, RoleAdmin, testLogger()), "Bearer "+token)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := logging.GetUserID(seen.Context()); got != "ops-9" {
		t.Errorf("user id = %q, want ops-9", got)
	}
}
