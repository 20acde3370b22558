package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecentAndSharedWithMe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/drive/microsoft.graph.recent()":
			_, _ = w.Write([]byte(`{"value":[{"id":"r1"}]}`))
		case "/me/drive/sharedWithMe":
			_, _ = w.Write([]byte(`{"value":[{"id":"s1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)

	recent, err := client.Recent(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":[{"id":"r1"}]}`, string(recent))

	shared, err := client.SharedWithMe(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":[{"id":"s1"}]}`, string(shared))
}

func TestSharedWithMe_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.SharedWithMe(context.Background())
	assert.ErrorIs(t, err, ErrForbidden)
}
