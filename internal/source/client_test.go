package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sahan-field/surveyqc/internal/config"
)

func testClient(url string) *Client {
	c := NewClient(config.SourceConfig{
		URL:         url,
		Token:       "secret-key",
		TimeoutSecs: 5,
		MaxRetries:  3,
	})
	c.backoffBase = time.Millisecond
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestFetch_AuthHeaderAndDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Token secret-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"district": "Kabul", "_duration": 3300, "valid": true},
			{"district": null, "enumerator": "amina"}
		]`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, tbl.Len())
	// Union of keys across records, numbers and booleans stringified.
	assert.ElementsMatch(t, []string{"district", "_duration", "valid", "enumerator"}, tbl.Columns)
	assert.Equal(t, "Kabul", tbl.Rows[0]["district"])
	assert.Equal(t, "3300", tbl.Rows[0]["_duration"])
	assert.Equal(t, "true", tbl.Rows[0]["valid"])
	// JSON null maps to the empty cell.
	assert.True(t, tbl.Rows[1].IsNull("district"))
	assert.Equal(t, "amina", tbl.Rows[1]["enumerator"])
}

func TestFetch_ResultsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count": 1, "results": [{"district": "Herat"}]}`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	assert.Equal(t, "Herat", tbl.Rows[0]["district"])
}

func TestFetch_NestedValuesKeptAsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"attachments": [{"name": "photo.jpg"}]}]`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `[{"name": "photo.jpg"}]`, tbl.Rows[0]["attachments"])
}

func TestFetch_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`[{"district": "Kabul"}]`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetch_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_ExhaustedRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestFetch_GarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestFetch_NoURL(t *testing.T) {
	_, err := NewClient(config.SourceConfig{}).Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetch_EmptyExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	tbl, err := testClient(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
}
