package agent

import (
	"errors"
	"testing"

	smarterrors "github.com/byerlikaya/SmartRAG-sub013/errors"
	"github.com/byerlikaya/SmartRAG-sub013/types"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantClean string
		wantTags  TagSet
	}{
		{
			name:      "no tags",
			query:     "what is the revenue",
			wantClean: "what is the revenue",
			wantTags:  TagSet{},
		},
		{
			name:      "document only",
			query:     "-d what is in the report",
			wantClean: "what is in the report",
			wantTags:  TagSet{DocumentOnly: true},
		},
		{
			name:      "database only mid query",
			query:     "list -db all customers",
			wantClean: "list all customers",
			wantTags:  TagSet{DatabaseOnly: true},
		},
		{
			name:      "combined modalities and language",
			query:     "-a -i -lang:tr what was said",
			wantClean: "what was said",
			wantTags:  TagSet{Audio: true, Image: true, Language: "tr"},
		},
		{
			name:      "external tools",
			query:     "-mcp current weather in Ankara",
			wantClean: "current weather in Ankara",
			wantTags:  TagSet{ExternalTools: true},
		},
		{
			name:      "uppercase tag accepted",
			query:     "-DB sales by region",
			wantClean: "sales by region",
			wantTags:  TagSet{DatabaseOnly: true},
		},
		{
			name:      "hyphenated word is not a tag",
			query:     "explain the year-end close",
			wantClean: "explain the year-end close",
			wantTags:  TagSet{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clean, tags, err := ParseTags(tt.query)
			if err != nil {
				t.Fatalf("ParseTags(%q) error: %v", tt.query, err)
			}
			if clean != tt.wantClean {
				t.Errorf("cleaned = %q, want %q", clean, tt.wantClean)
			}
			if tags != tt.wantTags {
				t.Errorf("tags = %+v, want %+v", tags, tt.wantTags)
			}
		})
	}
}

func TestParseTagsUnknownTag(t *testing.T) {
	for _, query := range []string{"-x what", "-docs what", "-lang:eng what", "-lang:T what"} {
		if _, _, err := ParseTags(query); !errors.Is(err, smarterrors.ErrInvalidInput) {
			t.Errorf("ParseTags(%q) = %v, want ErrInvalidInput", query, err)
		}
	}
}

func TestParseTagsIdempotent(t *testing.T) {
	clean, _, err := ParseTags("-d -lang:de what does the contract say")
	if err != nil {
		t.Fatal(err)
	}
	again, tags, err := ParseTags(clean)
	if err != nil {
		t.Fatal(err)
	}
	if again != clean {
		t.Errorf("second parse changed query: %q -> %q", clean, again)
	}
	if tags != (TagSet{}) {
		t.Errorf("second parse found tags: %+v", tags)
	}
}

func TestForcedStrategy(t *testing.T) {
	tests := []struct {
		tags TagSet
		want types.Strategy
	}{
		{TagSet{}, ""},
		{TagSet{DocumentOnly: true}, types.StrategyDocumentOnly},
		{TagSet{DatabaseOnly: true}, types.StrategyDatabaseOnly},
		{TagSet{DocumentOnly: true, DatabaseOnly: true}, types.StrategyHybrid},
	}
	for _, tt := range tests {
		if got := tt.tags.ForcedStrategy(); got != tt.want {
			t.Errorf("ForcedStrategy(%+v) = %q, want %q", tt.tags, got, tt.want)
		}
	}
}

func TestApplyToOptions(t *testing.T) {
	all := types.SearchOptions{
		EnableDocumentSearch: true,
		EnableDatabaseSearch: true,
		EnableAudioSearch:    true,
		EnableImageSearch:    true,
	}

	got := TagSet{DocumentOnly: true}.ApplyToOptions(all)
	if got.EnableDatabaseSearch || !got.EnableDocumentSearch {
		t.Errorf("-d options = %+v", got)
	}

	got = TagSet{DatabaseOnly: true}.ApplyToOptions(all)
	if got.EnableDocumentSearch || !got.EnableDatabaseSearch {
		t.Errorf("-db options = %+v", got)
	}

	got = TagSet{Audio: true}.ApplyToOptions(all)
	if got.EnableImageSearch || !got.EnableAudioSearch {
		t.Errorf("-a options = %+v", got)
	}

	got = TagSet{Audio: true, Image: true}.ApplyToOptions(all)
	if !got.EnableAudioSearch || !got.EnableImageSearch {
		t.Errorf("-a -i options = %+v", got)
	}

	// Tags never re-enable a globally disabled surface.
	noDB := all
	noDB.EnableDatabaseSearch = false
	got = TagSet{DatabaseOnly: true}.ApplyToOptions(noDB)
	if got.EnableDatabaseSearch {
		t.Errorf("-db re-enabled database search: %+v", got)
	}

	got = TagSet{Language: "fr", ExternalTools: true}.ApplyToOptions(all)
	if got.PreferredLanguage != "fr" || !got.EnableExternalTools {
		t.Errorf("language/mcp options = %+v", got)
	}
}
