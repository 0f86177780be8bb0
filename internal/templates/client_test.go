package templates

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a client at srv with instant sleeps.
func newTestClient(srv *httptest.Server, cfg Config) *Client {
	cfg.BaseURL = srv.URL
	c := New(cfg, nil)
	c.httpClient = srv.Client()
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func searchBody(ids ...int64) string {
	var entries []string
	for _, id := range ids {
		entries = append(entries, fmt.Sprintf(`{"id":%d,"name":"wf-%d","totalViews":10}`, id, id))
	}
	return fmt.Sprintf(`{"totalWorkflows":%d,"workflows":[%s]}`, len(ids), strings.Join(entries, ","))
}

func TestSearch(t *testing.T) {
	t.Run("two phases deduplicate by id, first wins", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/search", r.URL.Path)
			page := r.URL.Query().Get("page")
			category := r.URL.Query().Get("category")

			switch {
			case category == "AI" && page == "1":
				fmt.Fprint(w, searchBody(1, 2))
			case category == "" && page == "1":
				// id 2 reappears in the broad sweep and must not duplicate
				fmt.Fprint(w, searchBody(2, 3))
			default:
				fmt.Fprint(w, searchBody())
			}
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{Category: "AI", Pages: 2, Rows: 20})
		summaries, err := c.Search(context.Background())
		require.NoError(t, err)

		ids := make([]int64, len(summaries))
		for i, s := range summaries {
			ids[i] = s.ID
		}
		assert.Equal(t, []int64{1, 2, 3}, ids)
	})

	t.Run("pagination stops on first empty page", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Query().Get("page") == "1" {
				fmt.Fprint(w, searchBody(1))
				return
			}
			fmt.Fprint(w, searchBody())
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{Pages: 5})
		_, err := c.Search(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load(), "page 2 is empty, pages 3-5 are never requested")
	})

	t.Run("search failure is terminal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal error", http.StatusInternalServerError)
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{Pages: 1})
		_, err := c.Search(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
		assert.Contains(t, err.Error(), "internal error", "response body is part of the diagnostic")
	})
}

func TestDetailRetry(t *testing.T) {
	t.Run("429 retries with backoff then succeeds", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			fmt.Fprint(w, `{"workflow":{"id":7,"name":"wf"}}`)
		}))
		defer srv.Close()

		var delays []time.Duration
		c := newTestClient(srv, Config{})
		c.sleep = func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		}

		detail, err := c.Detail(context.Background(), 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), detail.ID)
		assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays, "backoff doubles per attempt")
	})

	t.Run("gives up after the retry cap", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{})
		_, err := c.Detail(context.Background(), 7)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limited after 3 retries")
	})
}

func TestFetchDetails(t *testing.T) {
	t.Run("one failing detail does not block the rest", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasSuffix(r.URL.Path, "/2") {
				http.Error(w, "broken", http.StatusInternalServerError)
				return
			}
			id := strings.TrimPrefix(r.URL.Path, "/workflows/")
			fmt.Fprintf(w, `{"workflow":{"id":%s,"name":"wf-%s"}}`, id, id)
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{Workers: 2})
		summaries := []Summary{{ID: 1}, {ID: 2}, {ID: 3}}

		fetched, errs := c.FetchDetails(context.Background(), summaries)

		require.Len(t, fetched, 2)
		assert.Equal(t, int64(1), fetched[0].Detail.ID)
		assert.Equal(t, int64(3), fetched[1].Detail.ID)
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0], "template 2")
	})

	t.Run("concurrency stays within the worker bound", func(t *testing.T) {
		var mu sync.Mutex
		inflight, peak := 0, 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			inflight++
			if inflight > peak {
				peak = inflight
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			inflight--
			mu.Unlock()
			fmt.Fprint(w, `{"workflow":{"id":1}}`)
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{Workers: 2})
		summaries := []Summary{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}, {ID: 5}}

		_, errs := c.FetchDetails(context.Background(), summaries)
		assert.Empty(t, errs)
		assert.LessOrEqual(t, peak, 2)
	})

	t.Run("no summaries means no requests", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("unexpected request")
		}))
		defer srv.Close()

		c := newTestClient(srv, Config{})
		fetched, errs := c.FetchDetails(context.Background(), nil)
		assert.Empty(t, fetched)
		assert.Empty(t, errs)
	})
}
