package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

func testJWTConfig() common.JWTConfig {
	return common.JWTConfig{Secret: "test-secret", Issuer: "matchcore", Audience: "matchcore-clients"}
}

func signTestToken(t *testing.T, cfg common.JWTConfig, subject string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    cfg.Issuer,
		Audience:  jwt.ClaimStrings{cfg.Audience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})

	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

// TestMiddlewareChain_ActualBehavior validates the real request pipeline used
// by the REST API: ErrorMiddleware -> CORSMiddleware -> AuthMiddleware,
// outermost first, the same relative order router.go wires them in.
func TestMiddlewareChain_ActualBehavior(t *testing.T) {
	cfg := testJWTConfig()
	authMiddleware := NewAuthMiddleware(cfg)
	corsMiddleware := NewCORSMiddleware()

	t.Run("Complete middleware chain with valid bearer token", func(t *testing.T) {
		userID := uuid.New()
		var capturedContext map[string]interface{}
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedContext = make(map[string]interface{})

			if uid := r.Context().Value(common.UserIDKey); uid != nil {
				capturedContext["userID"] = uid
			}
			if authenticated := r.Context().Value(common.AuthenticatedKey); authenticated != nil {
				capturedContext["authenticated"] = authenticated
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		})

		var chain http.Handler = handler
		chain = authMiddleware.Handler(chain)
		chain = corsMiddleware.Handler(chain)
		chain = ErrorMiddleware(chain)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, userID.String(), time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}

		if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3030" {
			t.Errorf("Expected CORS origin header, got %s", rr.Header().Get("Access-Control-Allow-Origin"))
		}

		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}
		if resp["status"] != "success" {
			t.Errorf("Expected status success, got %s", resp["status"])
		}

		if capturedContext["userID"] != userID {
			t.Errorf("Expected userID %s in context, got %v", userID, capturedContext["userID"])
		}
		if authenticated, ok := capturedContext["authenticated"].(bool); !ok || !authenticated {
			t.Error("Expected authenticated to be true")
		}
	})

	t.Run("CORS preflight request handling", func(t *testing.T) {
		var handlerCalled bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		var chain http.Handler = handler
		chain = authMiddleware.Handler(chain)
		chain = corsMiddleware.Handler(chain)
		chain = ErrorMiddleware(chain)

		req := httptest.NewRequest("OPTIONS", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3030" {
			t.Error("Expected CORS origin header for preflight")
		}
		if rr.Header().Get("Access-Control-Allow-Methods") == "" {
			t.Error("Expected CORS methods header for preflight")
		}
		if rr.Header().Get("Access-Control-Allow-Headers") == "" {
			t.Error("Expected CORS headers header for preflight")
		}

		if handlerCalled {
			t.Error("Handler should not be called for CORS preflight")
		}
	})

	t.Run("Invalid bearer token propagates as context error", func(t *testing.T) {
		var handlerContextError error
		var handlerWasCalled bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerWasCalled = true
			handlerContextError = common.GetError(r.Context())
		})

		var chain http.Handler = handler
		chain = authMiddleware.Handler(chain)
		chain = corsMiddleware.Handler(chain)
		chain = ErrorMiddleware(chain)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		req.Header.Set("Authorization", "Bearer not-a-valid-token")
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if !handlerWasCalled {
			t.Error("Expected handler to be called")
		}
		if handlerContextError == nil {
			t.Error("Expected error to be set in context by AuthMiddleware")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
		if rr.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3030" {
			t.Error("Expected CORS headers even with error")
		}
	})

	t.Run("Missing bearer token leaves request unauthenticated", func(t *testing.T) {
		var capturedContext map[string]interface{}
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedContext = make(map[string]interface{})
			if authenticated := r.Context().Value(common.AuthenticatedKey); authenticated != nil {
				capturedContext["authenticated"] = authenticated
			}
			// Public handler, does not require auth.
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{"status": "success"})
		})

		var chain http.Handler = handler
		chain = authMiddleware.Handler(chain)
		chain = corsMiddleware.Handler(chain)
		chain = ErrorMiddleware(chain)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
		if authenticated, ok := capturedContext["authenticated"].(bool); ok && authenticated {
			t.Error("Expected authenticated to be false when no bearer token is present")
		}
	})

	t.Run("RequireAuthentication rejects unauthenticated requests", func(t *testing.T) {
		var handlerCalled bool
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			w.WriteHeader(http.StatusOK)
		})

		var chain http.Handler = RequireAuthentication()(handler)
		chain = authMiddleware.Handler(chain)

		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if handlerCalled {
			t.Error("Expected handler not to be called for unauthenticated request")
		}
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})
}

// BenchmarkMiddlewareChain_RealWorld benchmarks the full authenticated chain.
func BenchmarkMiddlewareChain_RealWorld(b *testing.B) {
	cfg := testJWTConfig()
	authMiddleware := NewAuthMiddleware(cfg)
	corsMiddleware := NewCORSMiddleware()

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	var chain http.Handler = handler
	chain = authMiddleware.Handler(chain)
	chain = corsMiddleware.Handler(chain)
	chain = ErrorMiddleware(chain)

	userID := uuid.New()
	token := ""
	{
		tkn := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		})
		signed, _ := tkn.SignedString([]byte(cfg.Secret))
		token = signed
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)
	}
}
