package artifacts

import (
	"fmt"
	"os"
	"sync"
)

// asyncQueueDepth bounds pending writes before callers start blocking.
const asyncQueueDepth = 64

// AsyncFile appends to a file from a background goroutine so callers on the
// job hot path never wait on disk.
type AsyncFile struct {
	f      *os.File
	queue  chan []byte
	done   sync.WaitGroup
	mu     sync.Mutex
	closed bool
	werr   error
}

// NewAsyncFile creates the file and starts its background writer.
func NewAsyncFile(path string) (*AsyncFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	af := &AsyncFile{
		f:     f,
		queue: make(chan []byte, asyncQueueDepth),
	}
	af.done.Add(1)
	go af.drain()
	return af, nil
}

// Write queues data for the background writer. The slice is copied, so the
// caller may reuse its buffer.
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.closed {
		return fmt.Errorf("write to closed async file %s", af.f.Name())
	}

	af.queue <- append([]byte(nil), data...)
	return nil
}

func (af *AsyncFile) drain() {
	defer af.done.Done()

	for data := range af.queue {
		if _, err := af.f.Write(data); err != nil && af.werr == nil {
			// Keep draining so Close does not hang; report on Close.
			af.werr = err
		}
	}
}

// Name returns the path of the underlying file.
func (af *AsyncFile) Name() string {
	return af.f.Name()
}

// Close flushes queued writes and reports the first write error, if any.
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.closed {
		af.closed = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.done.Wait()
	if err := af.f.Close(); err != nil {
		return err
	}
	return af.werr
}
