package utils

import "io"

type flusher interface {
	Flush() error
}

// FlushingWriter flushes its target after every write when the target supports flushing.
type FlushingWriter struct {
	target io.Writer
}

// NewFlushingWriter wraps target so streamed process output reaches the terminal promptly.
func NewFlushingWriter(target io.Writer) io.Writer {
	if target == nil {
		target = io.Discard
	}
	return &FlushingWriter{target: target}
}

// Write writes data to the target and flushes it.
func (writer *FlushingWriter) Write(data []byte) (int, error) {
	written, writeError := writer.target.Write(data)
	if writeError != nil {
		return written, writeError
	}
	if flushable, ok := writer.target.(flusher); ok {
		return written, flushable.Flush()
	}
	return written, nil
}
