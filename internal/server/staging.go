package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/estatease/estatease/internal/usecase"
)

// stagingSession is one listing being composed: its staged images and the
// progress of the submission that consumes them.
type stagingSession struct {
	buf *usecase.StagingBuffer

	mu         sync.Mutex
	progress   int
	submitting bool
	subs       map[chan int]struct{}
	touched    time.Time
}

func (ss *stagingSession) touch() {
	ss.mu.Lock()
	ss.touched = time.Now()
	ss.mu.Unlock()
}

// begin marks a submission as running and resets progress to 0%. It
// reports false when another submission already runs on this session.
func (ss *stagingSession) begin() bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.submitting {
		return false
	}
	ss.submitting = true
	ss.publishLocked(0)
	return true
}

// finish ends the running submission at 100% whatever its outcome, which
// closes every progress stream.
func (ss *stagingSession) finish() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.publishLocked(100)
	ss.submitting = false
}

// publish fans a progress value out to every subscriber. A slow subscriber
// only ever misses intermediate values, never the latest one.
func (ss *stagingSession) publish(p int) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.publishLocked(p)
}

func (ss *stagingSession) publishLocked(p int) {
	ss.progress = p
	ss.touched = time.Now()
	for ch := range ss.subs {
		select {
		case ch <- p:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- p
		}
	}
}

// subscribe returns a channel primed with the current progress.
func (ss *stagingSession) subscribe() (<-chan int, func()) {
	ch := make(chan int, 8)

	ss.mu.Lock()
	if ss.subs == nil {
		ss.subs = make(map[chan int]struct{})
	}
	ss.subs[ch] = struct{}{}
	ch <- ss.progress
	ss.mu.Unlock()

	return ch, func() {
		ss.mu.Lock()
		delete(ss.subs, ch)
		ss.mu.Unlock()
	}
}

type stagingStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*stagingSession
	preview  usecase.PreviewFunc
}

func newStagingStore(preview usecase.PreviewFunc) *stagingStore {
	return &stagingStore{
		sessions: make(map[uuid.UUID]*stagingSession),
		preview:  preview,
	}
}

func (st *stagingStore) create() uuid.UUID {
	id := uuid.New()
	st.mu.Lock()
	st.sessions[id] = &stagingSession{
		buf:     usecase.NewStagingBuffer(st.preview),
		touched: time.Now(),
	}
	st.mu.Unlock()
	return id
}

func (st *stagingStore) get(id uuid.UUID) (*stagingSession, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	ss, ok := st.sessions[id]
	return ss, ok
}

func (st *stagingStore) delete(id uuid.UUID) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	ss, ok := st.sessions[id]
	if ok {
		ss.buf.Clear()
		delete(st.sessions, id)
	}
	return ok
}

// expire drops sessions untouched for longer than ttl and returns how many
// were removed.
func (st *stagingStore) expire(ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	st.mu.Lock()
	defer st.mu.Unlock()

	var n int
	for id, ss := range st.sessions {
		ss.mu.Lock()
		idle := ss.touched.Before(cutoff) && len(ss.subs) == 0
		ss.mu.Unlock()
		if idle {
			ss.buf.Clear()
			delete(st.sessions, id)
			n++
		}
	}
	return n
}
