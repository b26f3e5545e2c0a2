// Package enhancer implements the prompt-enhancement pipeline: it turns a raw
// prompt plus two categorical parameters into a structured instruction for the
// generative model, and parses the model's textual reply back into a
// structured result with graceful degradation.
//
// Everything in this package is a pure function over strings; the outbound
// model call itself lives in the ai package and is orchestrated by the
// service layer.
package enhancer

import (
	"fmt"
	"strings"

	"github.com/promptforge/go-prompt-backend/internal/domain"
)

// focusDirectives maps each enhancement focus to the rewrite direction the
// model is asked to optimize for.
var focusDirectives = map[domain.EnhancementFocus]string{
	domain.FocusProfessional:   "a polished, professional register suitable for business communication",
	domain.FocusCreative:       "vivid, imaginative language that invites original output",
	domain.FocusConversational: "a natural, approachable tone as if speaking to a colleague",
	domain.FocusTechnical:      "precise terminology, explicit constraints, and unambiguous structure",
	domain.FocusLLMOptimized:   "maximum clarity for a large language model: explicit role, context, format, and success criteria",
}

// typeDirectives describes the intent behind each prompt type so the model
// can preserve it while rewriting.
var typeDirectives = map[domain.PromptType]string{
	domain.PromptTypeCreative:      "a creative-writing prompt",
	domain.PromptTypeTechnical:     "a technical prompt",
	domain.PromptTypeInstructional: "an instructional prompt",
	domain.PromptTypeCasual:        "a casual prompt",
}

// SystemInstruction is the fixed system prompt sent with every enhancement
// request. It pins the response contract the parser expects.
const SystemInstruction = "You are a prompt engineering assistant. " +
	"You rewrite user prompts for clarity, structure, specificity, and tone. " +
	"Respond with a strict JSON object and nothing else."

// BuildInstruction constructs the natural-language instruction embedding the
// original text and the two parameter values. Inputs are assumed to be
// validated (non-empty text, enum members); see Validate.
func BuildInstruction(original string, promptType domain.PromptType, focus domain.EnhancementFocus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rewrite the following %s, optimizing it for %s.\n\n",
		typeDirectives[promptType], focusDirectives[focus])
	b.WriteString("Improve clarity, structure, specificity, and tone while preserving the author's intent.\n\n")
	fmt.Fprintf(&b, "Original prompt:\n%s\n\n", strings.TrimSpace(original))
	b.WriteString(`Return a strict JSON object of the shape ` +
		`{"enhancedPrompt": string, "improvements": [{"category": string, "detail": string}, ...]}. ` +
		`Each improvement names the category of change (e.g. "CLARITY", "TONE", "STRUCTURE") ` +
		`and a one-sentence detail. Do not wrap the JSON in code fences.`)
	return b.String()
}

// FieldError attributes a validation failure to a single input field with a
// human-readable message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationErrors aggregates one FieldError per invalid field.
type ValidationErrors []FieldError

// Error implements the error interface by joining the per-field messages.
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, fe := range v {
		parts = append(parts, fe.Error())
	}
	return strings.Join(parts, "; ")
}

// Validate checks the enhancement inputs and returns one field-attributed
// error per violation, or nil when everything is well-formed. It never
// inspects anything beyond its arguments, so callers can rely on it running
// before any external call is made.
func Validate(original string, promptType domain.PromptType, focus domain.EnhancementFocus) ValidationErrors {
	var errs ValidationErrors
	if strings.TrimSpace(original) == "" {
		errs = append(errs, FieldError{Field: "prompt", Message: "prompt must not be empty"})
	}
	if !promptType.Valid() {
		errs = append(errs, FieldError{
			Field:   "promptType",
			Message: fmt.Sprintf("promptType must be one of %v", domain.PromptTypes()),
		})
	}
	if !focus.Valid() {
		errs = append(errs, FieldError{
			Field:   "enhancementFocus",
			Message: fmt.Sprintf("enhancementFocus must be one of %v", domain.EnhancementFocuses()),
		})
	}
	return errs
}
