package interview

const promptMode = "interview"

// Prompt variants of the interview template.
const (
	VariantOpening         = "opening"
	VariantOpeningDSA      = "opening_dsa"
	VariantContinuation    = "continuation"
	VariantContinuationDSA = "continuation_dsa"
	VariantFeedback        = "feedback"
)

// SelectMode picks the prompt variant for the next agent call.
func SelectMode(phase Phase, hasPriorInput bool, typ Type) string {
	if phase != PhaseConversation {
		return VariantFeedback
	}
	if !hasPriorInput {
		if typ == TypeDSA {
			return VariantOpeningDSA
		}
		return VariantOpening
	}
	if typ == TypeDSA {
		return VariantContinuationDSA
	}
	return VariantContinuation
}
