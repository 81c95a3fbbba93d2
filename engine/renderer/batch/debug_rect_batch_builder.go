package batch

import "github.com/Carmen-Shannon/oxy-frame/engine/log"

// DebugRectBatchBuilderOption is a functional option for configuring a debugRectBatch.
type DebugRectBatchBuilderOption func(b *debugRectBatch)

// WithMaxRects sets how many debug rectangles one frame can hold.
//
// Parameters:
//   - n: the capacity in rectangles
//
// Returns:
//   - DebugRectBatchBuilderOption: option function to apply
func WithMaxRects(n int) DebugRectBatchBuilderOption {
	return func(b *debugRectBatch) {
		b.maxObjects = n
	}
}

// WithRectLogger sets the logger of the batch.
//
// Parameters:
//   - logger: the logger, may be nil
//
// Returns:
//   - DebugRectBatchBuilderOption: option function to apply
func WithRectLogger(logger *log.Logger) DebugRectBatchBuilderOption {
	return func(b *debugRectBatch) {
		b.logger = logger
	}
}
