package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return the
	// built-in default or an error when there is none.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptAnswerSystem is the system instruction for cited answers.
	// This prompt has no format placeholders.
	PromptAnswerSystem = "answer_system"

	// PromptRuleExtraction is the system instruction for rule extraction.
	// This prompt has no format placeholders.
	PromptRuleExtraction = "rule_extraction"

	// PromptRuleRepair asks the model to fix output that failed validation.
	// The template expects %s (schema), %s (previous output) and %v (issue).
	PromptRuleRepair = "rule_repair"
)
