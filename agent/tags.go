// Package agent is the query orchestrator: it parses request tags, analyzes
// intent, routes between document and database retrieval, merges results,
// and maintains per-session conversation state.
package agent

import (
	"regexp"
	"strings"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

// TagSet is the parsed per-query mode selection.
type TagSet struct {
	DocumentOnly  bool
	DatabaseOnly  bool
	Audio         bool
	Image         bool
	ExternalTools bool
	Language      string
}

// ForcedStrategy returns the strategy the tags demand, or "" when the
// router is free to choose.
func (t TagSet) ForcedStrategy() types.Strategy {
	switch {
	case t.DocumentOnly && t.DatabaseOnly:
		return types.StrategyHybrid
	case t.DocumentOnly:
		return types.StrategyDocumentOnly
	case t.DatabaseOnly:
		return types.StrategyDatabaseOnly
	}
	return ""
}

var tagLikePattern = regexp.MustCompile(`^-[A-Za-z]+(?::[A-Za-z-]+)?$`)
var langTagPattern = regexp.MustCompile(`^-lang:([a-z]{2})$`)

// ParseTags extracts mode tags from anywhere in the query and returns the
// cleaned query text. Parsing the cleaned query again yields no tags.
// A tag-shaped token that is not in the grammar is an input error.
func ParseTags(query string) (string, TagSet, error) {
	var tags TagSet
	var kept []string

	for _, token := range strings.Fields(query) {
		if !tagLikePattern.MatchString(token) {
			kept = append(kept, token)
			continue
		}
		switch strings.ToLower(token) {
		case "-d":
			tags.DocumentOnly = true
		case "-db":
			tags.DatabaseOnly = true
		case "-a":
			tags.Audio = true
		case "-i":
			tags.Image = true
		case "-mcp":
			tags.ExternalTools = true
		default:
			if m := langTagPattern.FindStringSubmatch(strings.ToLower(token)); m != nil {
				tags.Language = m[1]
				continue
			}
			return "", TagSet{}, smarterrors.Wrapf(smarterrors.ErrInvalidInput, "unknown tag %q", token)
		}
	}
	return strings.Join(kept, " "), tags, nil
}

// ApplyToOptions narrows the request options according to the tags.
// Tags can select modalities but never re-enable a surface the global
// feature switches turned off.
func (t TagSet) ApplyToOptions(opts types.SearchOptions) types.SearchOptions {
	if t.DocumentOnly && !t.DatabaseOnly {
		opts.EnableDatabaseSearch = false
	}
	if t.DatabaseOnly && !t.DocumentOnly {
		opts.EnableDocumentSearch = false
	}
	if t.Audio && !t.Image {
		opts.EnableImageSearch = false
	}
	if t.Image && !t.Audio {
		opts.EnableAudioSearch = false
	}
	if t.ExternalTools {
		opts.EnableExternalTools = true
	}
	if t.Language != "" {
		opts.PreferredLanguage = t.Language
	}
	return opts
}
