package enhancer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// DegradedCategory is the synthetic improvement category used when the model
// reply could not be parsed into the expected JSON shape.
const DegradedCategory = "PROCESSED"

// DegradedDetail is the fixed detail attached to the synthetic improvement.
const DegradedDetail = "Prompt was enhanced but structured improvements couldn't be parsed"

// EnhancementResult is the structured outcome of one enhancement call. It is
// always well-formed: either the model's own JSON reply, or a degraded form
// built from the raw text with a single PROCESSED improvement.
type EnhancementResult struct {
	EnhancedPrompt string               `json:"enhancedPrompt"`
	Improvements   []domain.Improvement `json:"improvements"`
	// Degraded reports whether the structured reply could not be parsed and
	// the fallback form was used. It is not serialized; callers that need it
	// on the wire should surface it explicitly.
	Degraded bool `json:"-"`
}

// fenceRE matches an opening code-fence marker with an optional language tag,
// e.g. "```json" or "```".
var fenceRE = regexp.MustCompile("^```[a-zA-Z0-9_-]*[ \t]*\n?")

// StripCodeFences removes a leading and trailing triple-backtick fence (with
// optional language tag) from s and trims surrounding whitespace. Text
// without fences is returned trimmed and otherwise unchanged.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if loc := fenceRE.FindStringIndex(s); loc != nil {
		s = s[loc[1]:]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 && strings.TrimSpace(s[idx+3:]) == "" {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

// ParseModelReply converts the model's raw text reply into an
// EnhancementResult. It is total: any input yields a well-formed result and
// no error is ever returned.
//
// Parsing strategy:
//  1. Attempt to decode raw as the expected JSON object.
//  2. On failure, strip code-fence markers and attempt the decode again
//     (models routinely wrap JSON in ```json fences despite instructions).
//  3. If both attempts fail, return the stripped, trimmed text as the
//     enhanced prompt together with the single synthetic PROCESSED entry.
func ParseModelReply(raw string) EnhancementResult {
	if res, ok := tryDecode(raw); ok {
		return res
	}
	stripped := StripCodeFences(raw)
	if res, ok := tryDecode(stripped); ok {
		return res
	}
	return DegradedResult(stripped)
}

// DegradedResult builds the fallback form: the given text as the enhanced
// prompt plus exactly one synthetic PROCESSED improvement.
func DegradedResult(text string) EnhancementResult {
	return EnhancementResult{
		EnhancedPrompt: strings.TrimSpace(text),
		Improvements: []domain.Improvement{
			{Category: DegradedCategory, Detail: DegradedDetail},
		},
		Degraded: true,
	}
}

// tryDecode attempts a strict decode of s into the expected reply shape.
// A reply is accepted only when it is a JSON object with a non-empty
// enhancedPrompt and an improvements array (possibly empty).
func tryDecode(s string) (EnhancementResult, bool) {
	var reply struct {
		EnhancedPrompt string               `json:"enhancedPrompt"`
		Improvements   []domain.Improvement `json:"improvements"`
	}
	if err := json.Unmarshal([]byte(s), &reply); err != nil {
		return EnhancementResult{}, false
	}
	if strings.TrimSpace(reply.EnhancedPrompt) == "" || reply.Improvements == nil {
		return EnhancementResult{}, false
	}
	return EnhancementResult{
		EnhancedPrompt: reply.EnhancedPrompt,
		Improvements:   reply.Improvements,
	}, true
}
