package log

import (
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// StackFrame is one entry of a logged call stack.
type StackFrame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

func (f StackFrame) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Function
}

// Callstack returns up to 8 frames starting at the caller of the logging method.
//
// Returns:
//   - []StackFrame: innermost frame first
func Callstack() []StackFrame {
	var callers [8]uintptr
	n := runtime.Callers(3, callers[:])
	frames := runtime.CallersFrames(callers[:n])

	fr := make([]StackFrame, 0, n)
	for {
		frame, more := frames.Next()
		fn := strings.TrimPrefix(frame.Function, "github.com/Carmen-Shannon/oxy-frame/")
		fr = append(fr, StackFrame{
			File:     filepath.Base(frame.File),
			Line:     frame.Line,
			Function: fn,
		})
		if !more || frame.Function == "main.main" || strings.HasPrefix(frame.Function, "runtime.") {
			break
		}
	}
	return fr
}
