package knowledge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// mockResolverStore counts lookups so cache behavior is observable.
type mockResolverStore struct {
	chunks map[string][]ScoredChunk
	err    error
	calls  int
}

func (m *mockResolverStore) ChunksByNodeType(_ context.Context, nodeType string) ([]ScoredChunk, error) {
	m.calls++
	return m.chunks[nodeType], m.err
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("static map wins without touching the store", func(t *testing.T) {
		store := &mockResolverStore{}
		r := NewResolver(store)

		info := r.Resolve(ctx, "n8n-nodes-base.httpRequest")
		assert.Equal(t, "HTTP Request", info.DisplayName)
		assert.Zero(t, store.calls)
	})

	t.Run("store lookup prefers the overview chunk and memoizes", func(t *testing.T) {
		store := &mockResolverStore{
			chunks: map[string][]ScoredChunk{
				"n8n-nodes-base.airtable": {
					{Chunk: Chunk{Section: SectionParameters, DisplayName: "Wrong"}},
					{Chunk: Chunk{Section: SectionOverview, DisplayName: "Airtable", Category: "input"}},
				},
			},
		}
		r := NewResolver(store)

		info := r.Resolve(ctx, "n8n-nodes-base.airtable")
		assert.Equal(t, "Airtable", info.DisplayName)
		assert.Equal(t, "input", info.Category)

		r.Resolve(ctx, "n8n-nodes-base.airtable")
		assert.Equal(t, 1, store.calls, "second resolve must come from the cache")
	})

	t.Run("derived default when the store has nothing", func(t *testing.T) {
		r := NewResolver(&mockResolverStore{})
		info := r.Resolve(ctx, "n8n-nodes-base.myCustomNode")
		assert.Equal(t, "My Custom Node", info.DisplayName)
	})

	t.Run("store errors fall through to the derived default", func(t *testing.T) {
		r := NewResolver(&mockResolverStore{err: errors.New("db down")})
		info := r.Resolve(ctx, "n8n-nodes-base.emailReadImap")
		assert.Equal(t, "Email Read Imap", info.DisplayName)
	})

	t.Run("nil store skips the lookup stage", func(t *testing.T) {
		r := NewResolver(nil)
		info := r.Resolve(ctx, "n8n-nodes-base.googleDrive")
		assert.Equal(t, "Google Drive", info.DisplayName)
	})
}

func TestWarm(t *testing.T) {
	store := &mockResolverStore{
		chunks: map[string][]ScoredChunk{
			"n8n-nodes-base.airtable": {
				{Chunk: Chunk{Section: SectionOverview, DisplayName: "Airtable"}},
			},
		},
	}
	r := NewResolver(store)

	r.Warm(context.Background(), []string{
		"n8n-nodes-base.httpRequest", // static, skipped
		"n8n-nodes-base.airtable",    // loaded
		"n8n-nodes-base.unknown",     // not found, ignored
	})
	assert.Equal(t, 2, store.calls, "static entries are never warmed")

	info := r.Resolve(context.Background(), "n8n-nodes-base.airtable")
	assert.Equal(t, "Airtable", info.DisplayName)
	assert.Equal(t, 2, store.calls, "resolve after warm hits the cache")
}

func TestDeriveDisplayInfo(t *testing.T) {
	tests := []struct {
		nodeType string
		want     string
	}{
		{"n8n-nodes-base.googleSheets", "Google Sheets"},
		{"n8n-nodes-base.if", "If"},
		{"@n8n/n8n-nodes-langchain.lmChatOpenAi", "Lm Chat Open Ai"},
		{"noDotsAtAll", "No Dots At All"},
		{"n8n-nodes-base.slack", "Slack"},
	}
	for _, tt := range tests {
		t.Run(tt.nodeType, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDisplayInfo(tt.nodeType).DisplayName)
		})
	}
}

func TestResolveConcurrent(t *testing.T) {
	store := &mockResolverStore{
		chunks: map[string][]ScoredChunk{
			"n8n-nodes-base.airtable": {
				{Chunk: Chunk{Section: SectionOverview, DisplayName: "Airtable"}},
			},
		},
	}
	r := NewResolver(store)

	done := make(chan struct{})
	for range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 50 {
				info := r.Resolve(context.Background(), "n8n-nodes-base.airtable")
				assert.Equal(t, "Airtable", info.DisplayName)
			}
		}()
	}
	for range 8 {
		<-done
	}
}
