package voice

import (
	"context"
	"io"
	"sync"
)

// MockSink is an in-memory Sink for testing. It records streams and the
// chunks written into them.
type MockSink struct {
	mu      sync.Mutex
	started bool
	closed  bool

	// Streams holds the chunks of each completed or in-progress stream,
	// one slice per Start call.
	Streams [][]AudioChunk

	// Volumes records every SetVolume call.
	Volumes []int

	// WriteErr, when set, is returned by Write.
	WriteErr error
}

// NewMockSink creates a mock audio sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// Start begins a new recorded stream.
func (m *MockSink) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return io.ErrClosedPipe
	}
	m.started = true
	m.Streams = append(m.Streams, nil)
	return nil
}

// Write records a chunk into the current stream.
func (m *MockSink) Write(ctx context.Context, chunk AudioChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WriteErr != nil {
		return m.WriteErr
	}
	if !m.started || len(m.Streams) == 0 {
		return io.ErrClosedPipe
	}
	last := len(m.Streams) - 1
	m.Streams[last] = append(m.Streams[last], chunk)
	return nil
}

// Flush is a no-op for the mock.
func (m *MockSink) Flush(ctx context.Context) error { return nil }

// Stop ends the current stream.
func (m *MockSink) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

// SetVolume records the volume.
func (m *MockSink) SetVolume(v int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Volumes = append(m.Volumes, v)
}

// Name returns the backend name.
func (m *MockSink) Name() string { return "mock" }

// Close marks the sink closed.
func (m *MockSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.started = false
	return nil
}

// VolumeCalls returns a copy of the recorded SetVolume calls.
func (m *MockSink) VolumeCalls() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int, len(m.Volumes))
	copy(out, m.Volumes)
	return out
}

// StreamCount returns the number of streams started so far.
func (m *MockSink) StreamCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Streams)
}

// ChunkCount returns the total chunks written across all streams.
func (m *MockSink) ChunkCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.Streams {
		n += len(s)
	}
	return n
}

// Verify MockSink implements Sink at compile time.
var _ Sink = (*MockSink)(nil)
