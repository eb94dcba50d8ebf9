package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
)

func TestMaskEmail(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ana@example.com", "a***@example.com"},
		{"b@x.io", "b***@x.io"},
		{"not-an-email", "***"},
		{"", "***"},
		{"@example.com", "***"},
	}
	for _, tt := range tests {
		if got := MaskEmail(tt.in); got != tt.want {
			t.Fatalf("MaskEmail(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveByEmailCachesLookups(t *testing.T) {
	objectID := uuid.New()
	var lookups int64

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&lookups, 1)
		if got := r.URL.Query().Get("$filter"); got != "mail eq 'ana@example.com'" {
			http.Error(w, "bad filter: "+got, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{
				{"id": objectID.String(), "mail": "ana@example.com", "displayName": "Ana"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Setenv("DIRECTORY_BASE_URL", srv.URL)
	t.Setenv("DIRECTORY_TOKEN_URL", srv.URL+"/token")
	t.Setenv("DIRECTORY_CLIENT_ID", "client")
	t.Setenv("DIRECTORY_CLIENT_SECRET", "secret")

	resolver := NewDirectoryUserResolver(testLogger(t))

	user, err := resolver.ResolveByEmail(context.Background(), "Ana@Example.com")
	if err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	if user.ObjectID != objectID {
		t.Fatalf("object id = %s, want %s", user.ObjectID, objectID)
	}

	// Same address, different casing: served from cache.
	if _, err := resolver.ResolveByEmail(context.Background(), "ana@example.com"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
	if n := atomic.LoadInt64(&lookups); n != 1 {
		t.Fatalf("directory lookups = %d, want 1", n)
	}
}

func TestResolveByEmailAmbiguous(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"value": []map[string]string{
				{"id": uuid.NewString(), "mail": "dup@example.com"},
				{"id": uuid.NewString(), "mail": "dup@example.com"},
			},
		})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	t.Setenv("DIRECTORY_BASE_URL", srv.URL)
	t.Setenv("DIRECTORY_TOKEN_URL", srv.URL+"/token")

	resolver := NewDirectoryUserResolver(testLogger(t))
	_, err := resolver.ResolveByEmail(context.Background(), "dup@example.com")
	if !errors.Is(err, ErrUserAmbiguous) {
		t.Fatalf("err = %v, want ErrUserAmbiguous", err)
	}
}

func TestResolveByEmailUnconfigured(t *testing.T) {
	t.Setenv("DIRECTORY_BASE_URL", "")
	resolver := NewDirectoryUserResolver(testLogger(t))

	_, err := resolver.ResolveByEmail(context.Background(), "ana@example.com")
	if !errors.Is(err, ErrDirectoryUnavailable) {
		t.Fatalf("err = %v, want ErrDirectoryUnavailable", err)
	}
}
