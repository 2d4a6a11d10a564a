package logger

// RingBuffer keeps the most recent lines written to a log file.
type RingBuffer struct {
	lines     []string
	capacity  int
	head      int // next write position
	size      int
	totalSeen int // lines written since the last rotation
}

// NewRingBuffer creates a new ring buffer with the specified capacity.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

func (rb *RingBuffer) add(line string) {
	rb.lines[rb.head] = line
	rb.head = (rb.head + 1) % rb.capacity
	rb.size = min(rb.size+1, rb.capacity)
	rb.totalSeen++
}

// getLines returns the buffered lines oldest first.
func (rb *RingBuffer) getLines() []string {
	if rb.size == 0 {
		return nil
	}

	if rb.size < rb.capacity {
		return append([]string(nil), rb.lines[:rb.size]...)
	}

	return append(append([]string(nil), rb.lines[rb.head:]...), rb.lines[:rb.head]...)
}
