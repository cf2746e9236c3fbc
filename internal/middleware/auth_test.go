package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lixing-Zhang/deliverus-backend/internal/config"
)

func TestAuthenticate(t *testing.T) {
	cfg := config.AuthConfig{
		APIKeys: []string{"apitest", "testkey123"},
	}

	// Create a test handler that echoes the resolved actor
	testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "%d:%s", actor.ID, actor.Role)
	})

	// Wrap with auth middleware
	authHandler := Authenticate(cfg)(testHandler)

	tests := []struct {
		name           string
		apiKey         string
		userID         string
		role           string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "customer",
			apiKey:         "apitest",
			userID:         "1",
			role:           "customer",
			expectedStatus: http.StatusOK,
			expectedBody:   "1:customer",
		},
		{
			name:           "owner with second key",
			apiKey:         "testkey123",
			userID:         "2",
			role:           "owner",
			expectedStatus: http.StatusOK,
			expectedBody:   "2:owner",
		},
		{
			name:           "missing API key",
			userID:         "1",
			role:           "customer",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "wrongkey",
			userID:         "1",
			role:           "customer",
			expectedStatus: http.StatusForbidden,
		},
		{
			name:           "missing user id",
			apiKey:         "apitest",
			role:           "customer",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "non numeric user id",
			apiKey:         "apitest",
			userID:         "abc",
			role:           "customer",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown role",
			apiKey:         "apitest",
			userID:         "1",
			role:           "courier",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
			if tt.apiKey != "" {
				req.Header.Set("api_key", tt.apiKey)
			}
			if tt.userID != "" {
				req.Header.Set("X-User-Id", tt.userID)
			}
			if tt.role != "" {
				req.Header.Set("X-User-Role", tt.role)
			}

			w := httptest.NewRecorder()
			authHandler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}

			if tt.expectedBody != "" && w.Body.String() != tt.expectedBody {
				t.Errorf("body = %s, want %s", w.Body.String(), tt.expectedBody)
			}

			if tt.expectedStatus != http.StatusOK {
				var body map[string]string
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("error body is not JSON: %v", err)
				}
				if body["error"] == "" {
					t.Error("error message is empty")
				}
				if ct := w.Header().Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %s, want application/json", ct)
				}
			}
		})
	}
}
