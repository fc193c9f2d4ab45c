package middlewares

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

// AuthMiddleware verifies the bearer JWT on every request, storing the
// authenticated user id in context under common.UserIDKey. Verification
// failures are left for ErrorMiddleware to translate, via common.SetError,
// rather than short-circuiting the chain here. The updated context is
// written back into the incoming *http.Request, so an outer ErrorMiddleware
// holding the same request sees it.
type AuthMiddleware struct {
	cfg common.JWTConfig
}

func NewAuthMiddleware(cfg common.JWTConfig) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

type claims struct {
	jwt.RegisteredClaims
}

func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			ctx := common.SetError(r.Context(), common.NewErrUnauthorized("missing bearer token"))
			*r = *r.WithContext(ctx)
			next.ServeHTTP(w, r)
			return
		}

		parsed := &claims{}
		token, err := jwt.ParseWithClaims(raw, parsed, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(am.cfg.Secret), nil
		}, jwt.WithIssuer(am.cfg.Issuer), jwt.WithAudience(am.cfg.Audience))
		if err != nil || !token.Valid {
			ctx := common.SetError(r.Context(), common.NewErrUnauthorized("invalid bearer token"))
			*r = *r.WithContext(ctx)
			next.ServeHTTP(w, r)
			return
		}

		userID, err := uuid.Parse(parsed.Subject)
		if err != nil {
			ctx := common.SetError(r.Context(), common.NewErrUnauthorized("token subject is not a valid user id"))
			*r = *r.WithContext(ctx)
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), common.UserIDKey, userID)
		ctx = context.WithValue(ctx, common.AuthenticatedKey, true)
		*r = *r.WithContext(ctx)
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}

// RequireAuthentication wraps a handler, rejecting it with 401 unless
// AuthMiddleware already placed a verified user id in context.
func RequireAuthentication() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authed, _ := r.Context().Value(common.AuthenticatedKey).(bool); !authed {
				if writeErr := common.WriteErrorResponse(w, common.APIErrorFromDomain(common.NewErrUnauthorized(), devMode())); writeErr != nil {
					w.WriteHeader(http.StatusUnauthorized)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
