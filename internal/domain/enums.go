package domain

// PromptType is the closed set of categories a user can assign to the prompt
// being enhanced. Values outside this set are rejected before any external
// model call is made.
type PromptType string

// Valid prompt types.
const (
	PromptTypeCreative      PromptType = "Creative"
	PromptTypeTechnical     PromptType = "Technical"
	PromptTypeInstructional PromptType = "Instructional"
	PromptTypeCasual        PromptType = "Casual"
)

// PromptTypes lists every member of the enumeration, in declaration order.
func PromptTypes() []PromptType {
	return []PromptType{
		PromptTypeCreative,
		PromptTypeTechnical,
		PromptTypeInstructional,
		PromptTypeCasual,
	}
}

// Valid reports whether t is a member of the enumeration.
func (t PromptType) Valid() bool {
	switch t {
	case PromptTypeCreative, PromptTypeTechnical, PromptTypeInstructional, PromptTypeCasual:
		return true
	}
	return false
}

// EnhancementFocus is the closed set of rewrite directions the enhancement
// model is instructed to optimize for.
type EnhancementFocus string

// Valid enhancement focuses.
const (
	FocusProfessional   EnhancementFocus = "Professional"
	FocusCreative       EnhancementFocus = "Creative"
	FocusConversational EnhancementFocus = "Conversational"
	FocusTechnical      EnhancementFocus = "Technical"
	FocusLLMOptimized   EnhancementFocus = "LLM-Optimized"
)

// EnhancementFocuses lists every member of the enumeration, in declaration order.
func EnhancementFocuses() []EnhancementFocus {
	return []EnhancementFocus{
		FocusProfessional,
		FocusCreative,
		FocusConversational,
		FocusTechnical,
		FocusLLMOptimized,
	}
}

// Valid reports whether f is a member of the enumeration.
func (f EnhancementFocus) Valid() bool {
	switch f {
	case FocusProfessional, FocusCreative, FocusConversational, FocusTechnical, FocusLLMOptimized:
		return true
	}
	return false
}
