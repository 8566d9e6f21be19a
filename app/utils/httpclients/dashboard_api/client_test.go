package dashboardapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"vantage.ai/dashboard-cache-engine/app/domain/common"
	"vantage.ai/dashboard-cache-engine/app/domain/fetcher"
	"vantage.ai/dashboard-cache-engine/app/utils/httpclients"
)

func withTestServer(t *testing.T, handler http.HandlerFunc) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	DashboardRestyClient = httpclients.NewClient("test").SetBaseURL(server.URL)
	t.Cleanup(func() { DashboardRestyClient = nil })
}

func testDescriptor() fetcher.ResourceDescriptor {
	return fetcher.ResourceDescriptor{
		DataType:   "tasks",
		ScopeID:    "9222",
		SubScopeID: "p1",
		Qualifier:  "data",
	}
}

func TestFetchDecodesEnvelope(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks/9222/p1", r.URL.Path)
		assert.Equal(t, "data", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":{"count":3}}`))
	})

	res, err := NewClient().Fetch(context.Background(), testDescriptor())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, map[string]any{"count": float64(3)}, res.Data)
}

func TestFetchEnvelopeFailure(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":false,"error":"scope not found"}`))
	})

	res, err := NewClient().Fetch(context.Background(), testDescriptor())
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, common.ErrCodeFetchFailed, res.Error.Code)
	assert.Equal(t, "scope not found", res.Error.Message)
}

func TestFetchBadResponseStatus(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	res, err := NewClient().Fetch(context.Background(), testDescriptor())
	require.NoError(t, err)
	assert.False(t, res.Success)
	require.NotNil(t, res.Error)
	assert.Equal(t, common.ErrCodeBadResponse, res.Error.Code)
}

func TestFetchClassifiesCanceledContext(t *testing.T) {
	withTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewClient().Fetch(ctx, testDescriptor())
	require.Error(t, err)
	require.NotNil(t, res.Error)
	assert.Equal(t, common.ErrCodeFetchCanceled, res.Error.Code)
}

func TestFetchUninitializedClient(t *testing.T) {
	DashboardRestyClient = nil
	_, err := NewClient().Fetch(context.Background(), testDescriptor())
	assert.Error(t, err)
}
