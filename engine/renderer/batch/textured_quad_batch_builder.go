package batch

import "github.com/Carmen-Shannon/oxy-frame/engine/log"

// TexturedQuadBatchBuilderOption is a functional option for configuring a texturedQuadBatch.
type TexturedQuadBatchBuilderOption func(b *texturedQuadBatch)

// WithMaxQuads sets how many quads one frame can hold.
//
// Parameters:
//   - n: the capacity in quads
//
// Returns:
//   - TexturedQuadBatchBuilderOption: option function to apply
func WithMaxQuads(n int) TexturedQuadBatchBuilderOption {
	return func(b *texturedQuadBatch) {
		b.maxObjects = n
	}
}

// WithQuadLogger sets the logger of the batch.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - TexturedQuadBatchBuilderOption: option function to apply
func WithQuadLogger(logger *log.Logger) TexturedQuadBatchBuilderOption {
	return func(b *texturedQuadBatch) {
		b.logger = logger
	}
}
