// Package batch accumulates per-frame primitives on the producer side and turns them into device
// draw calls on the render thread.
package batch

// Stats counts the work a batch has done since its last Flush.
type Stats struct {
	// Objects is the number of submitted objects.
	Objects int

	// DrawCalls is the number of device draws issued by Render.
	DrawCalls int
}

// BatchRenderer is a fixed capacity per-frame accumulator for one primitive family.
//
// Submit is called by the producer between Begin and Render of a frame. Setup, Prepare, Render
// and Flush are called from the render thread, which owns the device. The two sides never run at
// the same time; the renderer's frame handshake orders them.
type BatchRenderer[T any] interface {
	// Setup allocates the device buffers sized for the maximum object count and compiles the
	// pipeline of the primitive family. Must be called once on the render thread.
	//
	// Returns:
	//   - error: error if a device object could not be created
	Setup() error

	// Submit appends one object to the frame. No device call is made.
	// Panics when the frame already holds the maximum number of objects.
	//
	// Parameters:
	//   - obj: the object to draw
	Submit(obj T)

	// Prepare orders the submitted objects for Render.
	Prepare()

	// Render issues device draws for the next pending objects.
	Render()

	// Flush drops every submitted object and resets the draw cursor. The device buffers are kept.
	Flush()

	// Len returns the number of objects submitted since the last Flush.
	//
	// Returns:
	//   - int: the object count
	Len() int

	// MaxObjects returns the capacity of the batch.
	//
	// Returns:
	//   - int: the maximum number of objects per frame
	MaxObjects() int

	// Stats returns the counters of the current frame.
	//
	// Returns:
	//   - Stats: objects and draw calls since the last Flush
	Stats() Stats
}
