package github

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/log"
)

func newTestClient(srv *httptest.Server, token string) *Client {
	return New(token, log.NewNop(),
		WithBaseURLs(srv.URL, srv.URL),
		WithHTTPClient(srv.Client()))
}

func TestDefaultBranch(t *testing.T) {
	t.Run("resolves branch and sends auth headers", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/repos/n8n-io/n8n-docs", r.URL.Path)
			assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			fmt.Fprint(w, `{"default_branch":"main"}`)
		}))
		defer srv.Close()

		branch, err := newTestClient(srv, "secret-token").DefaultBranch(context.Background(), "n8n-io/n8n-docs")
		require.NoError(t, err)
		assert.Equal(t, "main", branch)
	})

	t.Run("no auth header without token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Empty(t, r.Header.Get("Authorization"))
			fmt.Fprint(w, `{"default_branch":"master"}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv, "").DefaultBranch(context.Background(), "n8n-io/n8n")
		require.NoError(t, err)
	})

	t.Run("empty default branch is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		}))
		defer srv.Close()

		_, err := newTestClient(srv, "").DefaultBranch(context.Background(), "n8n-io/n8n")
		assert.Error(t, err)
	})
}

func TestTree(t *testing.T) {
	t.Run("filters to blobs", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("recursive"))
			fmt.Fprint(w, `{"tree":[
				{"path":"docs","type":"tree"},
				{"path":"docs/slack.md","type":"blob"},
				{"path":"docs/code.md","type":"blob"}
			]}`)
		}))
		defer srv.Close()

		entries, err := newTestClient(srv, "").Tree(context.Background(), "n8n-io/n8n-docs", "main")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "docs/slack.md", entries[0].Path)
	})

	t.Run("falls back from master to main", func(t *testing.T) {
		var paths []string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			paths = append(paths, r.URL.Path)
			if strings.Contains(r.URL.Path, "/master") {
				http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
				return
			}
			fmt.Fprint(w, `{"tree":[{"path":"README.md","type":"blob"}]}`)
		}))
		defer srv.Close()

		entries, err := newTestClient(srv, "").Tree(context.Background(), "n8n-io/n8n", "master")
		require.NoError(t, err)
		assert.Len(t, entries, 1)
		require.Len(t, paths, 2)
		assert.Contains(t, paths[0], "/master")
		assert.Contains(t, paths[1], "/main")
	})

	t.Run("both branches failing reports the first error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
		}))
		defer srv.Close()

		_, err := newTestClient(srv, "").Tree(context.Background(), "n8n-io/gone", "main")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
		assert.Contains(t, err.Error(), "Not Found", "upstream body is inlined")
	})
}

func TestRawFile(t *testing.T) {
	t.Run("returns file content", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/n8n-io/n8n-docs/main/docs/slack.md", r.URL.Path)
			fmt.Fprint(w, "# Slack\n")
		}))
		defer srv.Close()

		content, err := newTestClient(srv, "").RawFile(context.Background(), "n8n-io/n8n-docs", "main", "docs/slack.md")
		require.NoError(t, err)
		assert.Equal(t, "# Slack\n", content)
	})

	t.Run("long error bodies are truncated", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, strings.Repeat("x", 2000), http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := newTestClient(srv, "").RawFile(context.Background(), "n8n-io/n8n", "main", "some/file")
		require.Error(t, err)
		assert.Less(t, len(err.Error()), 1000)
	})
}

func TestBranchCandidates(t *testing.T) {
	assert.Equal(t, []string{"master", "main"}, branchCandidates("master"))
	assert.Equal(t, []string{"main", "master"}, branchCandidates("main"))
	assert.Equal(t, []string{"develop", "main"}, branchCandidates("develop"))
}
