package mqtt

import "github.com/rs/zerolog"

// ringBuffer holds messages while the broker is unreachable. When full it
// drops the oldest message. Not safe for concurrent use.
type ringBuffer struct {
	msgs    []Message
	next    int // slot for the next push
	n       int
	dropped int // messages lost since the last drain
	log     zerolog.Logger
}

func newRingBuffer(capacity int, log zerolog.Logger) *ringBuffer {
	return &ringBuffer{
		msgs: make([]Message, capacity),
		log:  log,
	}
}

func (r *ringBuffer) push(msg Message) {
	size := len(r.msgs)
	if r.n == size {
		if r.dropped == 0 {
			r.log.Warn().Int("capacity", size).Msg("mqtt: buffer full, dropping oldest")
		}
		r.dropped++
	} else {
		r.n++
	}
	// When full, next is the oldest slot, so this overwrites it.
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % size
}

// drain returns buffered messages oldest first, plus how many were
// dropped, and empties the buffer.
func (r *ringBuffer) drain() ([]Message, int) {
	dropped := r.dropped
	r.dropped = 0
	if r.n == 0 {
		return nil, dropped
	}

	size := len(r.msgs)
	out := make([]Message, 0, r.n)
	for i := r.next - r.n + size; len(out) < r.n; i++ {
		out = append(out, r.msgs[i%size])
	}
	r.n = 0
	r.next = 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.n
}
