// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Normaliser: Extracts per-page text from a raw document
//   - NormaliserRegistry: Selects the appropriate normaliser
//   - PostProcessorPipeline: Turns a document into segments
//   - SegmentStore: Process-lifetime segment storage
//   - LexicalIndex: BM25 term search. Lexical retrieval is always available.
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - VectorIndex: Vector storage/search. Only enabled when EmbeddingService is configured.
//   - EmbeddingService: Generates vector embeddings. Without it, semantic and hybrid fall back to lexical.
//   - LLMService: Language model completion. Without it, answers fail and rule sets are seeded only.
//   - ResponseCache: Memoises LLM completions by prompt and parameters.
//   - PromptStore: User-editable prompt templates.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
