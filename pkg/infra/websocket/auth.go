package websocket

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

// AuthConfig is the bearer-credential policy the socket handshake verifies
// against: a shared secret plus the issuer/audience the token must carry.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type handshakeClaims struct {
	jwt.RegisteredClaims
}

// AuthenticateHandshake extracts and verifies the bearer token on the
// upgrade request, returning the authenticated user id. Verification
// failures all collapse to Unauthorized; the caller never learns whether
// the token was missing, malformed, or simply expired.
func AuthenticateHandshake(r *http.Request, cfg AuthConfig) (uuid.UUID, error) {
	raw := bearerToken(r)
	if raw == "" {
		return uuid.Nil, common.NewErrUnauthorized("missing bearer token")
	}

	claims := &handshakeClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.Secret), nil
	}, jwt.WithIssuer(cfg.Issuer), jwt.WithAudience(cfg.Audience))
	if err != nil || !token.Valid {
		return uuid.Nil, common.NewErrUnauthorized("invalid bearer token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, common.NewErrUnauthorized("token subject is not a valid user id")
	}
	return userID, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return r.URL.Query().Get("token")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimPrefix(header, prefix)
}
