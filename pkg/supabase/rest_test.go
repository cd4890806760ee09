package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_ReportsAnyStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusOK, http.StatusNotFound, http.StatusInternalServerError} {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/rest/v1/ping", r.URL.Path)
			assert.Equal(t, "anon-key", r.Header.Get(APIKeyHeader))
			assert.Empty(t, r.Header.Get(AuthorizationHeader))
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":"ignored"}`))
		}))

		got, err := NewRESTClient(ts.URL, "anon-key").Probe(context.Background(), "/ping")
		ts.Close()

		require.NoError(t, err)
		assert.Equal(t, status, got)
	}
}

func TestProbe_WithoutPublicKeySendsNoHeader(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header[http.CanonicalHeaderKey(APIKeyHeader)]
		assert.False(t, present)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	got, err := NewRESTClient(ts.URL, "").Probe(context.Background(), "/test")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, got)
}

func TestProbe_TransportFailure(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewRESTClient(url, "").Probe(context.Background(), "/ping")
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}

func TestProbeURL(t *testing.T) {
	assert.Equal(t, "https://x.test/rest/v1/ping", ProbeURL("https://x.test/", "/ping"))
	assert.Equal(t, "/rest/v1/ping", ProbeURL("", "/ping"))
}

func TestListEndpoints(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/", r.URL.Path)
		w.Header().Set("Content-Type", "application/openapi+json")
		_, _ = w.Write([]byte(`{
			"swagger": "2.0",
			"info": {"title": "PostgREST API", "version": "12.0.2"},
			"basePath": "/",
			"paths": {
				"/todos": {
					"get": {"summary": "Todo items", "responses": {"200": {"description": "OK"}}},
					"post": {"responses": {"201": {"description": "Created"}}},
					"delete": {"responses": {"204": {"description": "No Content"}}}
				},
				"/": {
					"get": {"summary": "OpenAPI description", "responses": {"200": {"description": "OK"}}}
				},
				"/rpc/ping": {
					"post": {"responses": {"200": {"description": "OK"}}}
				}
			}
		}`))
	}))
	defer ts.Close()

	endpoints, err := NewRESTClient(ts.URL, "anon").ListEndpoints(context.Background())
	require.NoError(t, err)

	require.Len(t, endpoints, 3)
	assert.Equal(t, Endpoint{Path: "/", Methods: []string{"GET"}, Summary: "OpenAPI description"}, endpoints[0])
	assert.Equal(t, Endpoint{Path: "/rpc/ping", Methods: []string{"POST"}}, endpoints[1])
	assert.Equal(t, Endpoint{Path: "/todos", Methods: []string{"GET", "POST", "DELETE"}, Summary: "Todo items"}, endpoints[2])
}

func TestListEndpoints_Unauthorized(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"No API key found in request"}`))
	}))
	defer ts.Close()

	_, err := NewRESTClient(ts.URL, "").ListEndpoints(context.Background())
	require.Error(t, err)
	assert.Equal(t, "No API key found in request", err.Error())
}
