package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/github"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/knowledge"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/parse"
	"github.com/satyam-sharma-fr/n8n-ai-workflow-builder/internal/templates"
)

// Default tree locations for the documentation and source repositories.
var defaultDocPrefixes = []string{
	"docs/integrations/builtin/core-nodes",
	"docs/integrations/builtin/app-nodes",
	"docs/integrations/builtin/trigger-nodes",
}

const defaultSourcePrefix = "packages/nodes-base/nodes"

// maxFetchDiagnostic caps one per-file failure entry in Result.Errors.
const maxFetchDiagnostic = 200

// RepoFetcher is the origin-A contract: resolve a branch, list a tree,
// fetch raw content. *github.Client satisfies it.
type RepoFetcher interface {
	DefaultBranch(ctx context.Context, repo string) (string, error)
	Tree(ctx context.Context, repo, branch string) ([]github.TreeEntry, error)
	RawFile(ctx context.Context, repo, branch, path string) (string, error)
}

// TemplateFetcher is the origin-B contract. *templates.Client satisfies it.
type TemplateFetcher interface {
	Search(ctx context.Context) ([]templates.Summary, error)
	FetchDetails(ctx context.Context, summaries []templates.Summary) ([]templates.Fetched, []string)
}

// Embedder turns ordered texts into ordered vectors. A failure here is
// terminal for the sub-run that requested it.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the write surface the pipelines need. *knowledge.Store
// satisfies it.
type Store interface {
	UpsertChunks(ctx context.Context, chunks []knowledge.Chunk, vectors [][]float32) (int, []string)
	UpsertTemplates(ctx context.Context, records []knowledge.TemplateRecord, vectors [][]float32) (int, []string)
	RecordRun(ctx context.Context, source, status string, processed int, runErr string) error
}

// Config tunes one ingestion service.
type Config struct {
	DocsRepo     string
	SourceRepo   string
	DocPrefixes  []string // markdown tree prefixes in DocsRepo
	SourcePrefix string   // node source tree prefix in SourceRepo
	DocWorkers   int      // concurrent raw-file fetches
}

// Result is what one ingestion run reports upward. The trigger always gets
// a Result, never an error: per-unit failures are enumerated in Errors and
// Success is exactly len(Errors) == 0.
type Result struct {
	Success            bool
	DocsProcessed      int
	ChunksCreated      int
	TemplatesProcessed int
	Errors             []string
	Duration           time.Duration
}

// Service runs the two ingestion pipelines. The template pipeline is
// fault-isolated from the documentation pipeline: a total failure of one
// still lets the other attempt and log its own outcome.
type Service struct {
	cfg       Config
	repos     RepoFetcher
	templates TemplateFetcher
	embedder  Embedder
	store     Store
	logger    *slog.Logger
}

// New creates an ingestion service. logger may be nil.
func New(cfg Config, repos RepoFetcher, tmpl TemplateFetcher, embedder Embedder, store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.DocPrefixes) == 0 {
		cfg.DocPrefixes = defaultDocPrefixes
	}
	if cfg.SourcePrefix == "" {
		cfg.SourcePrefix = defaultSourcePrefix
	}
	if cfg.DocWorkers <= 0 {
		cfg.DocWorkers = 5
	}
	return &Service{
		cfg:       cfg,
		repos:     repos,
		templates: tmpl,
		embedder:  embedder,
		store:     store,
		logger:    logger,
	}
}

// Run executes one full ingestion run: documentation first, templates
// after (regardless of how documentation fared). Safe to re-run: every
// write is a delete-then-insert on a natural key.
func (s *Service) Run(ctx context.Context) Result {
	start := time.Now()
	var result Result

	s.logger.Info("ingestion run starting")

	s.ingestDocs(ctx, &result)
	s.ingestTemplates(ctx, &result)

	result.Duration = time.Since(start)
	result.Success = len(result.Errors) == 0

	s.logger.Info("ingestion run finished",
		"success", result.Success,
		"docs", result.DocsProcessed,
		"chunks", result.ChunksCreated,
		"templates", result.TemplatesProcessed,
		"errors", len(result.Errors),
		"duration", result.Duration.String())

	return result
}

// ingestDocs runs the documentation pipeline: list both repository trees,
// fetch matching files with bounded concurrency, mine and chunk per node
// type, embed, upsert, and append the ledger entry.
func (s *Service) ingestDocs(ctx context.Context, result *Result) {
	errsBefore := len(result.Errors)

	entities := s.collectEntities(ctx, result)
	if len(entities) == 0 {
		s.finishRun(ctx, knowledge.SourceDocumentation, 0, result.Errors[errsBefore:])
		return
	}

	var chunks []knowledge.Chunk
	keys := sortedKeys(entities)
	for _, nodeType := range keys {
		entity := entities[nodeType]
		var info *parse.NodeInfo
		if entity.source != "" {
			mined := parse.NodeSource(entity.source)
			info = &mined
		}
		built := BuildNodeChunks(nodeType, entity.doc, info)
		if len(built) == 0 {
			continue
		}
		chunks = append(chunks, built...)
		result.DocsProcessed++
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		// Hard failure: chunks without vectors are useless, nothing is
		// written for this sub-run.
		result.Errors = append(result.Errors, fmt.Sprintf("documentation embedding: %v", err))
		s.finishRun(ctx, knowledge.SourceDocumentation, 0, result.Errors[errsBefore:])
		return
	}

	stored, upsertErrs := s.store.UpsertChunks(ctx, chunks, vectors)
	result.ChunksCreated += stored
	result.Errors = append(result.Errors, upsertErrs...)

	s.finishRun(ctx, knowledge.SourceDocumentation, stored, result.Errors[errsBefore:])
}

// entitySources pairs the two raw inputs of one node type.
type entitySources struct {
	doc    string
	source string
}

// collectEntities lists both trees and fetches all matching files, keyed
// by node type. Every per-file failure is soft: logged, recorded, skipped.
func (s *Service) collectEntities(ctx context.Context, result *Result) map[string]*entitySources {
	entities := make(map[string]*entitySources)
	var mu sync.Mutex

	type fileRef struct {
		repo, branch, path string
		isSource           bool
		nodeType           string
	}
	var refs []fileRef

	docBranch, err := s.repos.DefaultBranch(ctx, s.cfg.DocsRepo)
	if err != nil {
		s.logger.Warn("resolving docs branch failed", "repo", s.cfg.DocsRepo, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("docs repo %s: %v", s.cfg.DocsRepo, err))
	} else if tree, err := s.repos.Tree(ctx, s.cfg.DocsRepo, docBranch); err != nil {
		// Missing tree listing is a soft failure: the source pass may
		// still produce chunks.
		s.logger.Warn("listing docs tree failed", "repo", s.cfg.DocsRepo, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("docs tree %s: %v", s.cfg.DocsRepo, err))
	} else {
		for _, entry := range tree {
			if !hasAnyPrefix(entry.Path, s.cfg.DocPrefixes) || !strings.HasSuffix(entry.Path, ".md") {
				continue
			}
			refs = append(refs, fileRef{
				repo: s.cfg.DocsRepo, branch: docBranch, path: entry.Path,
				nodeType: nodeTypeFromDocPath(entry.Path),
			})
		}
	}

	srcBranch, err := s.repos.DefaultBranch(ctx, s.cfg.SourceRepo)
	if err != nil {
		s.logger.Warn("resolving source branch failed", "repo", s.cfg.SourceRepo, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("source repo %s: %v", s.cfg.SourceRepo, err))
	} else if tree, err := s.repos.Tree(ctx, s.cfg.SourceRepo, srcBranch); err != nil {
		s.logger.Warn("listing source tree failed", "repo", s.cfg.SourceRepo, "error", err)
		result.Errors = append(result.Errors, fmt.Sprintf("source tree %s: %v", s.cfg.SourceRepo, err))
	} else {
		for _, entry := range tree {
			if !strings.HasPrefix(entry.Path, s.cfg.SourcePrefix) || !strings.HasSuffix(entry.Path, ".node.ts") {
				continue
			}
			refs = append(refs, fileRef{
				repo: s.cfg.SourceRepo, branch: srcBranch, path: entry.Path,
				isSource: true,
				nodeType: nodeTypeFromSourcePath(entry.Path),
			})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.DocWorkers)
	for _, ref := range refs {
		g.Go(func() error {
			content, err := s.repos.RawFile(gctx, ref.repo, ref.branch, ref.path)
			if err != nil {
				// Soft failure: one unfetchable file never aborts the run,
				// but it is enumerated like every other per-unit failure.
				s.logger.Warn("file fetch failed", "path", ref.path, "error", err)
				mu.Lock()
				result.Errors = append(result.Errors,
					knowledge.Truncate(fmt.Sprintf("fetch %s: %v", ref.path, err), maxFetchDiagnostic))
				mu.Unlock()
				return nil
			}
			mu.Lock()
			defer mu.Unlock()
			entity, ok := entities[ref.nodeType]
			if !ok {
				entity = &entitySources{}
				entities[ref.nodeType] = entity
			}
			if ref.isSource {
				entity.source = content
			} else {
				entity.doc = content
			}
			return nil
		})
	}
	_ = g.Wait()

	return entities
}

// ingestTemplates runs the template pipeline: two-phase search, bounded
// detail fetches, flattening, embedding, upsert, ledger entry.
func (s *Service) ingestTemplates(ctx context.Context, result *Result) {
	errsBefore := len(result.Errors)

	summaries, err := s.templates.Search(ctx)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("template search: %v", err))
		s.finishRun(ctx, knowledge.SourceTemplates, 0, result.Errors[errsBefore:])
		return
	}

	fetched, fetchErrs := s.templates.FetchDetails(ctx, summaries)
	result.Errors = append(result.Errors, fetchErrs...)

	var records []knowledge.TemplateRecord
	for _, f := range fetched {
		record := BuildTemplateRecord(f.Detail, f.Summary)
		if record == nil {
			s.logger.Debug("skipping template without nodes", "template_id", f.Summary.ID)
			continue
		}
		records = append(records, *record)
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("template embedding: %v", err))
		s.finishRun(ctx, knowledge.SourceTemplates, 0, result.Errors[errsBefore:])
		return
	}

	stored, upsertErrs := s.store.UpsertTemplates(ctx, records, vectors)
	result.TemplatesProcessed += stored
	result.Errors = append(result.Errors, upsertErrs...)

	s.finishRun(ctx, knowledge.SourceTemplates, stored, result.Errors[errsBefore:])
}

// finishRun appends the sub-run's ledger entry. Ledger write failures are
// swallowed after logging: they must never mask the ingestion result.
func (s *Service) finishRun(ctx context.Context, source string, processed int, errs []string) {
	status := knowledge.StatusSuccess
	runErr := ""
	if len(errs) > 0 {
		status = knowledge.StatusError
		runErr = strings.Join(errs, "; ")
	}
	if err := s.store.RecordRun(ctx, source, status, processed, runErr); err != nil {
		s.logger.Warn("recording sync ledger entry failed", "source", source, "error", err)
	}
}

// nodeTypeFromDocPath derives the node type key from a docs tree path.
// Docs lay files out either as <type>.md or as <type>/index.md where
// <type> is already the dotted identifier; bare names get the standard
// package prefix.
func nodeTypeFromDocPath(p string) string {
	name := strings.TrimSuffix(path.Base(p), ".md")
	if name == "index" {
		name = path.Base(path.Dir(p))
	}
	if strings.Contains(name, ".") {
		return name
	}
	return "n8n-nodes-base." + name
}

// nodeTypeFromSourcePath derives the node type key from a source tree
// path like packages/nodes-base/nodes/Slack/Slack.node.ts.
func nodeTypeFromSourcePath(p string) string {
	name := strings.TrimSuffix(path.Base(p), ".node.ts")
	return "n8n-nodes-base." + lowerFirst(name)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]*entitySources) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
