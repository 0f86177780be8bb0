// Package parse turns semi-structured upstream text (node markdown
// documentation and TypeScript node sources) into normalized field sets.
//
// Everything here is best-effort pattern matching: a missing pattern never
// raises an error, it only leaves the field empty or at its default. The
// functions are pure, which keeps them testable with literal fixtures.
package parse

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// SectionCap bounds each extracted markdown section. Anything longer is
// cut; section text feeds a bounded-length chunk anyway.
const SectionCap = 1500

// Ordered synonym headings per section. The first heading found wins.
var (
	ParameterHeadings  = []string{"Parameters", "Options", "Fields", "Node parameters", "Properties"}
	CredentialHeadings = []string{"Credentials", "Authentication", "Prerequisites"}
	ExampleHeadings    = []string{"Examples", "Usage", "Templates and examples", "Example usage"}
)

var (
	headingRe     = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)
	fencedCodeRe  = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n(.*?)```")
	frontMatterRe = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
	bulletRe      = regexp.MustCompile(`(?m)^\s*[-*]\s+(.+)$`)
)

// Section extracts the first section whose heading matches one of the
// given synonyms, in synonym priority order. The returned text excludes
// the heading line, runs until the next heading of the same or higher
// level, and is truncated to SectionCap. Empty string when no heading
// matches.
func Section(markdown string, headings []string) string {
	matches := headingRe.FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return ""
	}

	for _, want := range headings {
		for i, m := range matches {
			level := m[3] - m[2]
			title := strings.TrimSpace(markdown[m[4]:m[5]])
			if !strings.EqualFold(strings.TrimRight(title, ":"), want) {
				continue
			}

			start := m[1]
			end := len(markdown)
			for _, next := range matches[i+1:] {
				nextLevel := next[3] - next[2]
				if nextLevel <= level {
					end = next[0]
					break
				}
			}

			body := strings.TrimSpace(markdown[start:end])
			if body == "" {
				continue
			}
			return truncate(body, SectionCap)
		}
	}
	return ""
}

// CodeBlocks returns the contents of fenced code blocks, at most limit of
// them (limit <= 0 means all).
func CodeBlocks(markdown string, limit int) []string {
	matches := fencedCodeRe.FindAllStringSubmatch(markdown, -1)
	var blocks []string
	for _, m := range matches {
		block := strings.TrimSpace(m[1])
		if block == "" {
			continue
		}
		blocks = append(blocks, block)
		if limit > 0 && len(blocks) == limit {
			break
		}
	}
	return blocks
}

// Excerpt returns the leading prose of a markdown document: front matter
// and heading lines stripped, truncated to limit.
func Excerpt(markdown string, limit int) string {
	text := frontMatterRe.ReplaceAllString(markdown, "")
	text = headingRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	return truncate(text, limit)
}

// BulletItems returns the text of top-level bullet list items, at most
// limit of them (limit <= 0 means all). Inline markdown emphasis and
// trailing punctuation are left as-is.
func BulletItems(markdown string, limit int) []string {
	var items []string
	for _, m := range bulletRe.FindAllStringSubmatch(markdown, -1) {
		item := strings.TrimSpace(m[1])
		if item == "" {
			continue
		}
		items = append(items, item)
		if limit > 0 && len(items) == limit {
			break
		}
	}
	return items
}

// truncate hard-caps s at limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
