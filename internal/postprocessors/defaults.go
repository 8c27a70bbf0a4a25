package postprocessors

import (
	"github.com/custodia-labs/codecite/internal/core/ports/driven"
	"github.com/custodia-labs/codecite/internal/postprocessors/chunker"
	"github.com/custodia-labs/codecite/internal/postprocessors/pagelabel"
	"github.com/custodia-labs/codecite/internal/postprocessors/section"
)

// RegisterDefaults registers all built-in processors with the registry.
// Call this during application initialisation to enable standard processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("pagelabel", buildPageLabel)
	r.Register("section", buildSection)
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per segment (default: 1000)
//   - overlap (int): Overlapping characters between segments (default: 100)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// buildPageLabel creates a printed page number processor.
// Supported config keys:
//   - edge_lines (int): Lines scanned at top and bottom of a page (default: 3)
func buildPageLabel(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []pagelabel.Option
	if n := getIntFromConfig(cfg, "edge_lines"); n > 0 {
		opts = append(opts, pagelabel.WithEdgeLines(n))
	}
	return pagelabel.New(opts...), nil
}

// buildSection creates a section label processor.
// Supported config keys:
//   - inherit (bool): Carry labels forward to following segments (default: true)
func buildSection(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []section.Option
	if v, ok := cfg["inherit"].(bool); ok {
		opts = append(opts, section.WithInherit(v))
	}
	return section.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
