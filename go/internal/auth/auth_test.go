package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/gavel/go/internal/apperrors"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	userID := uuid.New()

	token, err := svc.GenerateToken(userID)
	if err != nil {
		t.Fatalf("error generating token: %v", err)
	}

	got, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("error verifying token: %v", err)
	}
	if got != userID {
		t.Errorf("user id incorrect, wanted: %s, got: %s", userID, got)
	}
}

func TestVerifyTokenRejects(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	other := NewService("other-secret", time.Hour)
	expired := NewService("test-secret", -time.Hour)

	userID := uuid.New()
	wrongKeyToken, _ := other.GenerateToken(userID)
	expiredToken, _ := expired.GenerateToken(userID)

	tests := map[string]string{
		"garbage":      "not-a-token",
		"empty":        "",
		"wrong secret": wrongKeyToken,
		"expired":      expiredToken,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.VerifyToken(token)
			if !errors.Is(err, apperrors.ErrForbidden) {
				t.Errorf("expected forbidden error, got %v", err)
			}
		})
	}
}

func TestFromRequest(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	userID := uuid.New()
	token, err := svc.GenerateToken(userID)
	if err != nil {
		t.Fatalf("error generating token: %v", err)
	}

	tests := map[string]struct {
		header  string
		query   string
		want    uuid.UUID
		wantErr bool
	}{
		"bearer header":   {header: "Bearer " + token, want: userID},
		"query parameter": {query: token, want: userID},
		"no credentials":  {wantErr: true},
		"bad scheme":      {header: "Basic " + token, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			url := "/ws/auction"
			if tc.query != "" {
				url += "?token=" + tc.query
			}
			r := httptest.NewRequest(http.MethodGet, url, nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			got, err := svc.FromRequest(r)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got user %s", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("user id incorrect, wanted: %s, got: %s", tc.want, got)
			}
		})
	}
}

func TestMiddleware(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	userID := uuid.New()
	token, err := svc.GenerateToken(userID)
	if err != nil {
		t.Fatalf("error generating token: %v", err)
	}

	var gotUser uuid.UUID
	var gotOK bool
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotOK = UserID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/leagues", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !gotOK || gotUser != userID {
		t.Errorf("handler did not receive the authenticated user")
	}

	// Missing credentials never reach the handler.
	gotOK = false
	r = httptest.NewRequest(http.MethodGet, "/leagues", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if gotOK {
		t.Errorf("handler must not run without credentials")
	}
}
