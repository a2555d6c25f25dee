// Package prompts embeds the instruction templates sent to the language
// model. Templates use {{NAME}} placeholders filled by Render.
package prompts

import (
	_ "embed"
	"strings"
)

//go:embed intent_analysis.txt
var intentAnalysis string

//go:embed document_answer.txt
var documentAnswer string

//go:embed merge_results.txt
var mergeResults string

func IntentAnalysis() string { return intentAnalysis }
func DocumentAnswer() string { return documentAnswer }
func MergeResults() string   { return mergeResults }

// Render substitutes {{KEY}} placeholders. Missing keys are left literal so
// a bad call site shows up in the prompt instead of vanishing silently.
func Render(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return out
}
