package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/laguz/internal/apperr"
	"github.com/starford/laguz/internal/models"
)

func TestDoStatusClassification(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"not found", http.StatusNotFound, apperr.ErrNotFound},
		{"unauthorized", http.StatusUnauthorized, apperr.ErrDenied},
		{"forbidden", http.StatusForbidden, apperr.ErrDenied},
		{"request timeout", http.StatusRequestTimeout, apperr.ErrUnavailable},
		{"rate limited", http.StatusTooManyRequests, apperr.ErrUnavailable},
		{"server error", http.StatusInternalServerError, apperr.ErrUnavailable},
		{"bad gateway", http.StatusBadGateway, apperr.ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := NewHTTPClient(srv.URL, "", time.Second)
			_, err := c.ListNotes(context.Background(), "u1")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestDoTransportFailureIsUnavailable(t *testing.T) {
	// A server that is not listening.
	c := NewHTTPClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := c.ListNotes(context.Background(), "u1")
	assert.ErrorIs(t, err, apperr.ErrUnavailable)
}

func TestDoSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]models.Note{})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "tok123", time.Second)
	_, err := c.ListNotes(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok123", gotAuth)
}

func TestCurrentUserSignedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err, "signed out is a state, not an error")
	assert.Nil(t, u)
}

func TestCurrentUserResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users/me", r.URL.Path)
		_ = json.NewEncoder(w).Encode(models.User{ID: "u1"})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
	assert.False(t, u.IsGuest)
}

func TestCurrentUserUnreachable(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:1", "", 200*time.Millisecond)
	_, err := c.CurrentUser(context.Background())
	assert.ErrorIs(t, err, apperr.ErrUnavailable, "unreachable is not the same as signed out")
}

func TestCollectionRoutes(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]models.Note{})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_ = json.NewEncoder(w).Encode(models.Note{ID: "n1"})
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	ctx := context.Background()

	_, err := c.ListNotes(ctx, "u 1")
	require.NoError(t, err)
	_, err = c.CreateNote(ctx, models.Note{ID: "n1"})
	require.NoError(t, err)
	_, err = c.UpdateNote(ctx, "n1", models.Note{ID: "n1"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteNote(ctx, "n1"))

	assert.Equal(t, []string{
		"GET /notes?owner=u+1",
		"POST /notes",
		"PUT /notes/n1",
		"DELETE /notes/n1",
	}, paths)
}

func TestCreateDecodesServerCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var n models.Note
		_ = json.NewDecoder(r.Body).Decode(&n)
		n.ID = "server-id"
		_ = json.NewEncoder(w).Encode(n)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, "", time.Second)
	out, err := c.CreateNote(context.Background(), models.Note{ID: "client-id", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "server-id", out.ID)
	assert.Equal(t, "t", out.Title)
}
