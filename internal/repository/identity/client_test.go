package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifySessionConfirmsActivePair(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var req struct {
			SessionID string `json:"sessionId"`
			UserID    string `json:"userId"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "sess_abc", req.SessionID)
		assert.Equal(t, "user_1", req.UserID)

		json.NewEncoder(w).Encode(map[string]bool{"valid": true})
	}))
	defer upstream.Close()

	ok, err := NewClient(upstream.URL).VerifySession(context.Background(), "sess_abc", "user_1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySessionRejectsMismatchedPair(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"valid": false})
	}))
	defer upstream.Close()

	ok, err := NewClient(upstream.URL).VerifySession(context.Background(), "sess_abc", "user_2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySessionTreatsUnauthorizedAsCleanNo(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer upstream.Close()

	ok, err := NewClient(upstream.URL).VerifySession(context.Background(), "sess_abc", "user_1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifySessionSurfacesUpstreamErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	_, err := NewClient(upstream.URL).VerifySession(context.Background(), "sess_abc", "user_1")
	assert.Error(t, err)
}

func TestVerifySessionSurfacesTransportErrors(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // unreachable

	_, err := NewClient(upstream.URL).VerifySession(context.Background(), "sess_abc", "user_1")
	assert.Error(t, err)
}
