package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	common "github.com/matchcore/core/pkg/domain"
)

// TestResponse is the decoded body shape used by the integration scenarios
// below.
type TestResponse struct {
	Message string `json:"message"`
	Data    string `json:"data"`
}

// testHandler records execution and exposes an optional custom action, so
// each scenario can assert on what reached the final handler in the chain.
type testHandler struct {
	executed bool
	action   func(w http.ResponseWriter, r *http.Request)
}

func (h *testHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.executed = true

	if h.action != nil {
		h.action(w, r)
		return
	}

	if err := common.GetError(r.Context()); err != nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(TestResponse{Message: "success", Data: "middleware chain completed"})
}

func (h *testHandler) reset() {
	h.executed = false
	h.action = nil
}

func TestMiddlewareChain_CompleteIntegration(t *testing.T) {
	cfg := testJWTConfig()

	tests := []struct {
		name                   string
		setupRequest           func() *http.Request
		expectedStatus         int
		expectedCORSOrigin     string
		expectedHandlerExecute bool
		validateResponse       func(t *testing.T, rr *httptest.ResponseRecorder, handler *testHandler)
	}{
		{
			name: "Successful authenticated request with CORS",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.Header.Set("Origin", "http://localhost:3030")
				req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, uuid.New().String(), time.Now().Add(time.Hour)))
				return req
			},
			expectedStatus:         http.StatusOK,
			expectedCORSOrigin:     "http://localhost:3030",
			expectedHandlerExecute: true,
			validateResponse: func(t *testing.T, rr *httptest.ResponseRecorder, handler *testHandler) {
				var resp TestResponse
				if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
					t.Fatalf("Failed to parse response: %v", err)
				}
				if resp.Message != "success" {
					t.Errorf("Expected success message, got %s", resp.Message)
				}
			},
		},
		{
			name: "CORS preflight request",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest("OPTIONS", "/test", nil)
				req.Header.Set("Origin", "http://localhost:3030")
				req.Header.Set("Access-Control-Request-Method", "POST")
				req.Header.Set("Access-Control-Request-Headers", "Content-Type,Authorization")
				return req
			},
			expectedStatus:         http.StatusOK,
			expectedCORSOrigin:     "http://localhost:3030",
			expectedHandlerExecute: false,
			validateResponse: func(t *testing.T, rr *httptest.ResponseRecorder, handler *testHandler) {
				if rr.Header().Get("Access-Control-Allow-Methods") == "" {
					t.Error("Expected Access-Control-Allow-Methods header for preflight")
				}
				if rr.Header().Get("Access-Control-Allow-Headers") == "" {
					t.Error("Expected Access-Control-Allow-Headers header for preflight")
				}
			},
		},
		{
			name: "Expired bearer token triggers error",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.Header.Set("Origin", "http://localhost:3030")
				req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, uuid.New().String(), time.Now().Add(-time.Hour)))
				return req
			},
			expectedStatus:         http.StatusUnauthorized,
			expectedCORSOrigin:     "http://localhost:3030",
			expectedHandlerExecute: true,
			validateResponse: func(t *testing.T, rr *httptest.ResponseRecorder, handler *testHandler) {
				if rr.Body.Len() == 0 {
					t.Error("Expected an error body for expired token")
				}
			},
		},
		{
			name: "Disallowed CORS origin still processes request",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.Header.Set("Origin", "https://malicious-site.com")
				req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, uuid.New().String(), time.Now().Add(time.Hour)))
				return req
			},
			expectedStatus:         http.StatusOK,
			expectedCORSOrigin:     "http://localhost:3030", // falls back to the configured default origin
			expectedHandlerExecute: true,
		},
		{
			name: "Handler-reported domain error is translated by ErrorMiddleware",
			setupRequest: func() *http.Request {
				req := httptest.NewRequest("GET", "/test", nil)
				req.Header.Set("Origin", "http://localhost:3030")
				req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, uuid.New().String(), time.Now().Add(time.Hour)))
				return req
			},
			expectedStatus:         http.StatusBadRequest,
			expectedCORSOrigin:     "http://localhost:3030",
			expectedHandlerExecute: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authMiddleware := NewAuthMiddleware(cfg)
			corsMiddleware := NewCORSMiddleware()

			handler := &testHandler{}
			if tt.name == "Handler-reported domain error is translated by ErrorMiddleware" {
				handler.action = func(w http.ResponseWriter, r *http.Request) {
					ctx := common.SetError(r.Context(), common.NewErrBadRequest("handler generated error"))
					*r = *r.WithContext(ctx)
				}
			}

			var chain http.Handler = handler
			chain = authMiddleware.Handler(chain)
			chain = corsMiddleware.Handler(chain)
			chain = ErrorMiddleware(chain)

			req := tt.setupRequest()
			rr := httptest.NewRecorder()

			chain.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			if rr.Header().Get("Access-Control-Allow-Origin") != tt.expectedCORSOrigin {
				t.Errorf("Expected CORS origin %s, got %s", tt.expectedCORSOrigin, rr.Header().Get("Access-Control-Allow-Origin"))
			}

			if handler.executed != tt.expectedHandlerExecute {
				t.Errorf("Expected handler executed: %t, got: %t", tt.expectedHandlerExecute, handler.executed)
			}

			if rr.Code >= 400 {
				contentType := rr.Header().Get("Content-Type")
				if contentType != "application/json" {
					t.Errorf("Expected Content-Type application/json for error, got %s", contentType)
				}
			}

			if tt.validateResponse != nil {
				tt.validateResponse(t, rr, handler)
			}

			handler.reset()
		})
	}
}

func TestMiddlewareChain_ErrorPropagation(t *testing.T) {
	t.Run("Error set by a downstream handler propagates to the client response", func(t *testing.T) {
		cfg := testJWTConfig()
		authMiddleware := NewAuthMiddleware(cfg)
		corsMiddleware := NewCORSMiddleware()

		var errorReceived bool
		handler := &testHandler{
			action: func(w http.ResponseWriter, r *http.Request) {
				if err := common.GetError(r.Context()); err != nil {
					errorReceived = true
					return
				}
				ctx := common.SetError(r.Context(), common.NewErrNotFound("MatchRequest", "userId", "u1"))
				*r = *r.WithContext(ctx)
			},
		}

		var chain http.Handler = handler
		chain = authMiddleware.Handler(chain)
		chain = corsMiddleware.Handler(chain)
		chain = ErrorMiddleware(chain)

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("Origin", "http://localhost:3030")
		req.Header.Set("Authorization", "Bearer "+signTestToken(t, cfg, uuid.New().String(), time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()

		chain.ServeHTTP(rr, req)

		if rr.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", rr.Code)
		}
		if errorReceived {
			t.Error("Handler's own action runs once; errorReceived should not be set on first pass")
		}
	})
}
