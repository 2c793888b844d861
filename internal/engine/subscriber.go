package engine

import "sync"

const (
	subscriberBufferSize = 32
	primeBufferMaxChunks = 64 // short rolling buffer, ~1s of encoded audio at typical chunk sizes
)

// Subscriber receives a best-effort copy of one encoded sub-stream (spec
// §4.3 createStream). Mirrors events.Bus's non-blocking drop-on-full
// delivery, generalized from state snapshots to raw encoded chunks.
type Subscriber struct {
	ID      string
	Profile string
	Label   string

	mu     sync.Mutex
	ch     chan []byte
	closed bool
	drops  int64
}

func newSubscriber(id, profile, label string) *Subscriber {
	return &Subscriber{
		ID:      id,
		Profile: profile,
		Label:   label,
		ch:      make(chan []byte, subscriberBufferSize),
	}
}

// Chan returns the channel chunks are delivered on. Closed when the
// subscriber is detached.
func (s *Subscriber) Chan() <-chan []byte { return s.ch }

// deliver sends chunk to the subscriber, dropping it (and incrementing the
// drop counter) if the subscriber isn't keeping up — subscriber stream
// failures must never propagate to sibling subscribers or the pipeline
// (spec §4.3 contract).
func (s *Subscriber) deliver(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- chunk:
	default:
		s.drops++
	}
}

func (s *Subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

func (s *Subscriber) dropCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

// primeBuffer is a short rolling buffer of recently-produced chunks, kept
// per profile so a late-joining output can be primed without an audible
// gap (spec §4.3 "primeWithBuffer").
type primeBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
}

func newPrimeBuffer() *primeBuffer { return &primeBuffer{} }

func (p *primeBuffer) record(chunk []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := append([]byte(nil), chunk...)
	p.chunks = append(p.chunks, cp)
	if len(p.chunks) > primeBufferMaxChunks {
		p.chunks = p.chunks[len(p.chunks)-primeBufferMaxChunks:]
	}
}

func (p *primeBuffer) snapshot() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.chunks))
	copy(out, p.chunks)
	return out
}
