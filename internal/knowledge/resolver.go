package knowledge

import (
	"context"
	"strings"
	"sync"
	"unicode"
)

// DisplayInfo is the human-facing identity of a node type.
type DisplayInfo struct {
	DisplayName string
	Category    string
}

// staticDisplayInfo covers the node types the builder refers to most often,
// so they resolve without touching cache or store.
var staticDisplayInfo = map[string]DisplayInfo{
	"n8n-nodes-base.httpRequest":        {DisplayName: "HTTP Request", Category: "input"},
	"n8n-nodes-base.webhook":            {DisplayName: "Webhook", Category: "trigger"},
	"n8n-nodes-base.scheduleTrigger":    {DisplayName: "Schedule Trigger", Category: "trigger"},
	"n8n-nodes-base.manualTrigger":      {DisplayName: "Manual Trigger", Category: "trigger"},
	"n8n-nodes-base.set":                {DisplayName: "Edit Fields", Category: "transform"},
	"n8n-nodes-base.code":               {DisplayName: "Code", Category: "transform"},
	"n8n-nodes-base.if":                 {DisplayName: "If", Category: "flow"},
	"n8n-nodes-base.switch":             {DisplayName: "Switch", Category: "flow"},
	"n8n-nodes-base.merge":              {DisplayName: "Merge", Category: "flow"},
	"n8n-nodes-base.noOp":               {DisplayName: "No Operation", Category: "flow"},
	"n8n-nodes-base.respondToWebhook":   {DisplayName: "Respond to Webhook", Category: "output"},
	"n8n-nodes-base.emailSend":          {DisplayName: "Send Email", Category: "output"},
	"n8n-nodes-base.slack":              {DisplayName: "Slack", Category: "output"},
	"n8n-nodes-base.googleSheets":       {DisplayName: "Google Sheets", Category: "input"},
	"@n8n/n8n-nodes-langchain.agent":    {DisplayName: "AI Agent", Category: "ai"},
	"@n8n/n8n-nodes-langchain.lmChatOpenAi": {DisplayName: "OpenAI Chat Model", Category: "ai"},
}

// ResolverStore is the single store operation the resolver needs.
type ResolverStore interface {
	ChunksByNodeType(ctx context.Context, nodeType string) ([]ScoredChunk, error)
}

// Resolver resolves node display info through an explicit four-stage
// fallback chain: static map, warmed cache, store lookup, derived default.
// Each stage is independently testable; there is no hidden package-wide
// state, the cache lives on the Resolver instance.
//
// Safe for concurrent use.
type Resolver struct {
	store ResolverStore

	mu    sync.Mutex
	cache map[string]DisplayInfo
}

// NewResolver creates a Resolver backed by the given store. store may be
// nil, in which case the lookup stage is skipped and unknown types fall
// straight through to the derived default.
func NewResolver(store ResolverStore) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]DisplayInfo),
	}
}

// Warm preloads the cache for the given node types in one pass. Lookup
// failures are ignored: Resolve falls back lazily for anything Warm could
// not load.
func (r *Resolver) Warm(ctx context.Context, nodeTypes []string) {
	if r.store == nil {
		return
	}
	for _, nodeType := range nodeTypes {
		if _, ok := staticDisplayInfo[nodeType]; ok {
			continue
		}
		info, ok := r.lookup(ctx, nodeType)
		if !ok {
			continue
		}
		r.mu.Lock()
		r.cache[nodeType] = info
		r.mu.Unlock()
	}
}

// Resolve returns display info for a node type, walking the fallback
// chain. It never fails: the last stage always produces a usable value.
func (r *Resolver) Resolve(ctx context.Context, nodeType string) DisplayInfo {
	// Stage 1: static map.
	if info, ok := staticDisplayInfo[nodeType]; ok {
		return info
	}

	// Stage 2: warmed cache.
	r.mu.Lock()
	info, ok := r.cache[nodeType]
	r.mu.Unlock()
	if ok {
		return info
	}

	// Stage 3: lazy store lookup, memoized on success.
	if r.store != nil {
		if info, ok := r.lookup(ctx, nodeType); ok {
			r.mu.Lock()
			r.cache[nodeType] = info
			r.mu.Unlock()
			return info
		}
	}

	// Stage 4: derived default from the type name itself.
	return DeriveDisplayInfo(nodeType)
}

func (r *Resolver) lookup(ctx context.Context, nodeType string) (DisplayInfo, bool) {
	chunks, err := r.store.ChunksByNodeType(ctx, nodeType)
	if err != nil || len(chunks) == 0 {
		return DisplayInfo{}, false
	}
	for _, chunk := range chunks {
		if chunk.Section == SectionOverview && chunk.DisplayName != "" {
			return DisplayInfo{DisplayName: chunk.DisplayName, Category: chunk.Category}, true
		}
	}
	first := chunks[0]
	if first.DisplayName == "" {
		return DisplayInfo{}, false
	}
	return DisplayInfo{DisplayName: first.DisplayName, Category: first.Category}, true
}

// DeriveDisplayInfo derives a readable name from a dotted node type name,
// e.g. "n8n-nodes-base.googleSheets" -> "Google Sheets". Pure; the final
// stage of the resolver chain.
func DeriveDisplayInfo(nodeType string) DisplayInfo {
	name := nodeType
	if idx := strings.LastIndex(nodeType, "."); idx >= 0 && idx < len(nodeType)-1 {
		name = nodeType[idx+1:]
	}

	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteByte(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return DisplayInfo{DisplayName: b.String()}
}
