package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/R3E-Network/greeno_layer/internal/errors"
	"github.com/R3E-Network/greeno_layer/internal/httputil"
	"github.com/R3E-Network/greeno_layer/internal/logging"
)

// RoleAdmin is the role required on the token management routes.
const RoleAdmin = "admin"

const clockSkew = 30 * time.Second

// Claims carried by admin bearer tokens. UserID falls back to "sub".
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

// AuthMiddleware accepts HS256 bearer tokens with an expiry and, when
// requiredRole is set, a matching role claim.
type AuthMiddleware struct {
	secret       []byte
	requiredRole string
	parser       *jwt.Parser
	logger       *logging.Logger
}

func NewAuthMiddleware(secret []byte, requiredRole string, logger *logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret:       secret,
		requiredRole: requiredRole,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockSkew),
		),
		logger: logger,
	}
}

func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, se := bearerToken(r)
		if se != nil {
			m.reject(w, r, se)
			return
		}

		claims, se := m.parse(raw)
		if se != nil {
			m.reject(w, r, se)
			return
		}

		if m.requiredRole != "" && claims.Role != m.requiredRole {
			m.logger.LogSecurityEvent(r.Context(), "role_denied", map[string]interface{}{
				"user_id": claims.subject(),
				"role":    claims.Role,
				"path":    r.URL.Path,
			})
			m.reject(w, r, errors.Unauthorized("Insufficient role"))
			return
		}

		ctx := context.WithValue(r.Context(), logging.UserIDKey, claims.subject())
		if claims.Role != "" {
			ctx = context.WithValue(ctx, logging.RoleKey, claims.Role)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, *errors.ServiceError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.Unauthorized("Missing Authorization header")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.Unauthorized("Invalid Authorization header format")
	}
	return strings.TrimSpace(raw), nil
}

func (m *AuthMiddleware) parse(raw string) (*Claims, *errors.ServiceError) {
	claims := &Claims{}
	token, err := m.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil {
		return nil, errors.InvalidToken(err)
	}
	if !token.Valid {
		return nil, errors.InvalidToken(nil)
	}
	return claims, nil
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, se *errors.ServiceError) {
	entry := m.logger.WithContext(r.Context()).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": se.HTTPStatus,
	})
	if se.Err != nil {
		entry = entry.WithError(se.Err)
	}
	entry.Warn("Admin authentication failed")
	httputil.WriteServiceError(w, r, se)
}
