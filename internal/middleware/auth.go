package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/advantage-shop/shop-service/pkg/logger"
)

type contextKey string

const subjectKey contextKey = "auth_subject"

// Claims are the JWT claims accepted for admin requests.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// AdminAuth guards catalog mutation endpoints with HMAC-signed bearer
// tokens carrying an "admin" role claim.
type AdminAuth struct {
	secret []byte
	log    *logger.Logger
}

// NewAdminAuth creates the admin authentication middleware.
func NewAdminAuth(secret []byte, log *logger.Logger) *AdminAuth {
	if log == nil {
		log = logger.NewDefault("auth")
	}
	return &AdminAuth{secret: secret, log: log}
}

// Handler returns the middleware handler.
func (a *AdminAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.reject(w, r, "missing Authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.reject(w, r, "invalid Authorization header format")
			return
		}

		claims, err := a.validate(parts[1])
		if err != nil {
			a.log.WithError(err).WithField("path", r.URL.Path).Warn("token validation failed")
			a.reject(w, r, "invalid token")
			return
		}
		if claims.Role != "admin" {
			a.reject(w, r, "admin role required")
			return
		}

		ctx := context.WithValue(r.Context(), subjectKey, claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *AdminAuth) validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid claims")
	}
	return claims, nil
}

func (a *AdminAuth) reject(w http.ResponseWriter, r *http.Request, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error":%q}`+"\n", msg)
}

// Subject extracts the authenticated subject from the request context.
func Subject(ctx context.Context) string {
	if s, ok := ctx.Value(subjectKey).(string); ok {
		return s
	}
	return ""
}
