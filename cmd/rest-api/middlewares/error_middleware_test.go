package middlewares

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	common "github.com/matchcore/core/pkg/domain"
)

// Test response structure for error validation
type ErrorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Mock handler that can simulate various scenarios
type mockHandler struct {
	action func(w http.ResponseWriter, r *http.Request)
}

func (m *mockHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.action != nil {
		m.action(w, r)
	}
}

func TestErrorMiddleware_ContextErrors(t *testing.T) {
	tests := []struct {
		name           string
		contextError   error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{
			name:           "bad request error in context",
			contextError:   common.NewErrBadRequest("invalid input"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   string(common.KindBadRequest),
			expectedMsg:    "invalid input",
		},
		{
			name:           "unauthorized error in context",
			contextError:   common.NewErrUnauthorized(),
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   string(common.KindUnauthorized),
			expectedMsg:    "unauthorized",
		},
		{
			name:           "not found error in context",
			contextError:   common.NewErrNotFound("User", "id", "u1"),
			expectedStatus: http.StatusNotFound,
			expectedCode:   string(common.KindNotFound),
			expectedMsg:    "User with id u1 not found",
		},
		{
			name:           "conflict error in context",
			contextError:   common.NewErrAlreadyExists("LobbyMembership", "userId", "u1"),
			expectedStatus: http.StatusConflict,
			expectedCode:   string(common.KindConflict),
			expectedMsg:    "LobbyMembership with userId u1 already exists",
		},
		{
			name:           "plain error collapses to internal",
			contextError:   &testError{message: "something went wrong"},
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   string(common.KindInternal),
			expectedMsg:    "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &mockHandler{
				action: func(w http.ResponseWriter, r *http.Request) {
					ctx := common.SetError(r.Context(), tt.contextError)
					*r = *r.WithContext(ctx)
				},
			}

			middleware := ErrorMiddleware(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			rr := httptest.NewRecorder()

			middleware.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			if contentType := rr.Header().Get("Content-Type"); contentType != "application/json" {
				t.Errorf("Expected Content-Type application/json, got %s", contentType)
			}

			var errorResp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errorResp); err != nil {
				t.Fatalf("Failed to parse error response: %v", err)
			}

			if errorResp.Code != tt.expectedCode {
				t.Errorf("Expected error code %s, got %s", tt.expectedCode, errorResp.Code)
			}
			if errorResp.Error != tt.expectedMsg {
				t.Errorf("Expected error message %s, got %s", tt.expectedMsg, errorResp.Error)
			}
		})
	}
}

func TestErrorMiddleware_RequestContextErrors(t *testing.T) {
	tests := []struct {
		name           string
		setupContext   func() context.Context
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Cancelled context",
			setupContext: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			expectedStatus: http.StatusRequestTimeout,
			expectedCode:   "REQUEST_CANCELLED",
		},
		{
			name: "Deadline exceeded context",
			setupContext: func() context.Context {
				ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
				defer cancel()
				time.Sleep(1 * time.Millisecond)
				return ctx
			},
			expectedStatus: http.StatusRequestTimeout,
			expectedCode:   "REQUEST_TIMEOUT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &mockHandler{
				action: func(w http.ResponseWriter, r *http.Request) {},
			}

			middleware := ErrorMiddleware(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			req = req.WithContext(tt.setupContext())
			rr := httptest.NewRecorder()

			middleware.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}

			var errorResp ErrorResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &errorResp); err != nil {
				t.Fatalf("Failed to parse error response: %v", err)
			}

			if errorResp.Code != tt.expectedCode {
				t.Errorf("Expected error code %s, got %s", tt.expectedCode, errorResp.Code)
			}
		})
	}
}

func TestErrorMiddleware_HTTPStatusErrors(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		expectedStatus int
	}{
		{name: "Bad Request status", statusCode: http.StatusBadRequest, expectedStatus: http.StatusBadRequest},
		{name: "Unauthorized status", statusCode: http.StatusUnauthorized, expectedStatus: http.StatusUnauthorized},
		{name: "Forbidden status", statusCode: http.StatusForbidden, expectedStatus: http.StatusForbidden},
		{name: "Not Found status", statusCode: http.StatusNotFound, expectedStatus: http.StatusNotFound},
		{name: "Conflict status", statusCode: http.StatusConflict, expectedStatus: http.StatusConflict},
		{name: "Internal Server Error status", statusCode: http.StatusInternalServerError, expectedStatus: http.StatusInternalServerError},
		{name: "Custom 4xx status", statusCode: http.StatusTeapot, expectedStatus: http.StatusTeapot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &mockHandler{
				action: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.statusCode)
				},
			}

			middleware := ErrorMiddleware(handler)

			req := httptest.NewRequest("GET", "/test", nil)
			rr := httptest.NewRecorder()

			middleware.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
		})
	}
}

func TestErrorMiddleware_HTTPProtocolSafety(t *testing.T) {
	t.Run("Prevents multiple header writes", func(t *testing.T) {
		handler := &mockHandler{
			action: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.WriteHeader(http.StatusBadRequest) // ignored
				w.Write([]byte(`{"data": "test"}`))
			},
		}

		middleware := ErrorMiddleware(handler)
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}
	})

	t.Run("Handles successful response", func(t *testing.T) {
		testData := map[string]string{"message": "success"}

		handler := &mockHandler{
			action: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(testData)
			},
		}

		middleware := ErrorMiddleware(handler)
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", rr.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Failed to parse response: %v", err)
		}

		if resp["message"] != "success" {
			t.Errorf("Expected message 'success', got %s", resp["message"])
		}
	})
}

func TestErrorMiddleware_ErrorPrecedence(t *testing.T) {
	t.Run("Context error takes precedence over status error", func(t *testing.T) {
		handler := &mockHandler{
			action: func(w http.ResponseWriter, r *http.Request) {
				ctx := common.SetError(r.Context(), common.NewErrBadRequest("context error message"))
				*r = *r.WithContext(ctx)
			},
		}

		middleware := ErrorMiddleware(handler)
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400 (from context), got %d", rr.Code)
		}

		var errorResp ErrorResponse
		if err := json.Unmarshal(rr.Body.Bytes(), &errorResp); err != nil {
			t.Fatalf("Failed to parse error response: %v", err)
		}

		if errorResp.Error != "context error message" {
			t.Errorf("Expected 'context error message', got %s", errorResp.Error)
		}
	})
}

func TestContextualErrorMiddleware_BackwardCompatibility(t *testing.T) {
	t.Run("ContextualErrorMiddleware uses ErrorMiddleware", func(t *testing.T) {
		handler := &mockHandler{
			action: func(w http.ResponseWriter, r *http.Request) {
				ctx := common.SetError(r.Context(), common.NewErrUnauthorized())
				*r = *r.WithContext(ctx)
			},
		}

		middleware := ContextualErrorMiddleware(handler)
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()

		middleware.ServeHTTP(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rr.Code)
		}
	})
}

func TestErrorResponseWriter_Implementation(t *testing.T) {
	t.Run("Tracks status code correctly", func(t *testing.T) {
		rw := &errorResponseWriter{
			ResponseWriter: httptest.NewRecorder(),
			statusCode:     http.StatusOK,
		}

		rw.WriteHeader(http.StatusNotFound)
		if rw.statusCode != http.StatusNotFound {
			t.Errorf("Expected status code 404, got %d", rw.statusCode)
		}

		if !rw.headerWritten {
			t.Error("Expected headerWritten to be true")
		}
	})

	t.Run("Write sets header if not already written", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &errorResponseWriter{
			ResponseWriter: recorder,
			statusCode:     http.StatusOK,
		}

		data := []byte("test data")
		n, err := rw.Write(data)

		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		}

		if n != len(data) {
			t.Errorf("Expected to write %d bytes, wrote %d", len(data), n)
		}

		if !rw.headerWritten {
			t.Error("Expected headerWritten to be true after Write")
		}

		if recorder.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", recorder.Code)
		}
	})

	t.Run("writeErrorResponse only writes if header not written", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		rw := &errorResponseWriter{
			ResponseWriter: recorder,
			statusCode:     http.StatusOK,
		}

		rw.writeErrorResponse(&common.APIError{StatusCode: http.StatusBadRequest, Code: "TEST_ERROR", Message: "test error message"})

		if recorder.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", recorder.Code)
		}

		rw.writeErrorResponse(&common.APIError{StatusCode: http.StatusInternalServerError, Code: "IGNORED", Message: "should be ignored"})

		if recorder.Code != http.StatusBadRequest {
			t.Errorf("Expected status to remain 400, got %d", recorder.Code)
		}
	})
}

type testError struct {
	message string
}

func (e *testError) Error() string {
	return e.message
}

func BenchmarkErrorMiddleware_SuccessPath(b *testing.B) {
	handler := &mockHandler{
		action: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status": "ok"}`))
		},
	}

	middleware := ErrorMiddleware(handler)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
	}
}

func BenchmarkErrorMiddleware_ContextError(b *testing.B) {
	handler := &mockHandler{
		action: func(w http.ResponseWriter, r *http.Request) {
			ctx := common.SetError(r.Context(), common.NewErrUnauthorized())
			*r = *r.WithContext(ctx)
		},
	}

	middleware := ErrorMiddleware(handler)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
	}
}

func BenchmarkErrorMiddleware_StatusError(b *testing.B) {
	handler := &mockHandler{
		action: func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		},
	}

	middleware := ErrorMiddleware(handler)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		req := httptest.NewRequest("GET", "/test", nil)
		rr := httptest.NewRecorder()
		middleware.ServeHTTP(rr, req)
	}
}
