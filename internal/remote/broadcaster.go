package remote

import (
	"bytes"
	"sync"
	"sync/atomic"

	"github.com/andybalholm/brotli"

	"github.com/okena-dev/okena/internal/logger"
)

// brotliThreshold is the frame size at or above which PTY output is compressed
// before fan-out, trading a little CPU for a lot less bandwidth on chatty
// terminals (build logs, `find /`, etc).
const brotliThreshold = 1024

// frameFlag tags a broadcast frame so the receiving client knows whether
// to run it through a brotli reader before feeding it to the emulator.
type frameFlag byte

const (
	flagRaw     frameFlag = 0
	flagBrotli  frameFlag = 1
	frameHeader           = 1 // one flag byte prefix
)

type subscriber struct {
	id uint64
	ch chan []byte
}

// Broadcaster fans a single terminal's PTY output out to every WS client
// subscribed to it, giving each subscriber a stream id (which the server
// prefixes to every frame) so one TCP connection can multiplex many
// terminals. Subscriber channels are small and
// non-blocking: a slow client drops frames rather than stalling the PTY
// pump, matching the teacher's broadcastToConnections behaviour of
// evicting rather than blocking on dead/slow peers.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string][]*subscriber
	nextID uint64
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string][]*subscriber)}
}

// Subscribe registers a new listener for terminalID's output, returning a
// stream id and a receive-only channel of tagged frames.
func (b *Broadcaster) Subscribe(terminalID string) (uint64, <-chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := atomic.AddUint64(&b.nextID, 1)
	sub := &subscriber{id: id, ch: make(chan []byte, 64)}
	b.subs[terminalID] = append(b.subs[terminalID], sub)
	return id, sub.ch
}

// Unsubscribe removes the subscriber with id from terminalID's fan-out list.
func (b *Broadcaster) Unsubscribe(terminalID string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[terminalID]
	for i, s := range subs {
		if s.id == id {
			close(s.ch)
			b.subs[terminalID] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish fans data out to every subscriber of terminalID, compressing
// at or above brotliThreshold. Slow subscribers have the frame dropped rather
// than blocking the caller (the PTY pump).
func (b *Broadcaster) Publish(terminalID string, data []byte) {
	frame := tagFrame(data)

	b.mu.Lock()
	subs := b.subs[terminalID]
	b.mu.Unlock()

	for _, s := range subs {
		select {
		case s.ch <- frame:
		default:
			logger.Debugf("remote: dropping broadcast frame for subscriber %d on terminal %s (channel full)", s.id, terminalID)
		}
	}
}

func tagFrame(data []byte) []byte {
	if len(data) < brotliThreshold {
		return append([]byte{byte(flagRaw)}, data...)
	}

	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, brotli.DefaultCompression)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return append([]byte{byte(flagRaw)}, data...)
	}
	if err := w.Close(); err != nil {
		return append([]byte{byte(flagRaw)}, data...)
	}

	out := make([]byte, 0, frameHeader+buf.Len())
	out = append(out, byte(flagBrotli))
	out = append(out, buf.Bytes()...)
	return out
}
