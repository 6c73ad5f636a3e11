package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions() HTTPOptions {
	return HTTPOptions{
		Timeout:    5 * time.Second,
		MaxRetries: 3,
		UserAgents: []string{"agent-a", "agent-b"},
	}
}

func TestHTTPFetcherDecodesGzipLatin1(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.Header.Get("User-Agent"))
		mu.Unlock()
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gzipped(t, []byte("<p>Pre\xe7o R$ 49,90</p>")))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(), nil)
	defer f.Close()

	page, err := f.Fetch(context.Background(), srv.URL+"/busca")
	require.NoError(t, err)
	assert.Equal(t, "<p>Preço R$ 49,90</p>", page.HTML)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Equal(t, srv.URL+"/busca", page.URL)

	_, err = f.Fetch(context.Background(), srv.URL+"/busca")
	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"agent-a", "agent-b"}, agents)
}

func TestHTTPFetcherRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	page, err := NewHTTPFetcher(testOptions(), nil).Fetch(context.Background(), srv.URL)

	require.NoError(t, err)
	assert.Equal(t, "<p>ok</p>", page.HTML)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcherErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
		calls    int32
	}{
		{name: "Forbidden is a block", status: http.StatusForbidden, expected: ErrBlocked, calls: 1},
		{name: "Not found is not retried", status: http.StatusNotFound, expected: ErrFetchFailed, calls: 1},
		{name: "Throttling is retried", status: http.StatusTooManyRequests, expected: ErrFetchFailed, calls: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(testOptions(), nil).Fetch(context.Background(), srv.URL)

			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, tt.calls, calls.Load())
		})
	}
}

func TestHTTPFetcherCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<p>ok</p>"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTPFetcher(testOptions(), nil).Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
