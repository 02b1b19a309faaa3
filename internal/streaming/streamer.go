// Package streaming fans board list updates out to subscribers.
package streaming

import (
	"sync"
	"time"

	"github.com/KevinKickass/OpenBoardCore/internal/boards"
	"github.com/google/uuid"
)

const subscriberBuffer = 16

// Update is one published board list.
type Update struct {
	Revision  uuid.UUID
	Sequence  uint64
	Timestamp time.Time
	List      *boards.BoardList
}

type Streamer struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]chan *Update
	sequence    uint64
	latest      *Update
}

func NewStreamer() *Streamer {
	return &Streamer{
		subscribers: make(map[uuid.UUID]chan *Update),
	}
}

// Subscribe registers a subscriber. The latest update, if any, is queued
// right away so a new subscriber never starts empty.
func (s *Streamer) Subscribe() (uuid.UUID, <-chan *Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	ch := make(chan *Update, subscriberBuffer)
	if s.latest != nil {
		ch <- s.latest
	}
	s.subscribers[id] = ch
	return id, ch
}

func (s *Streamer) Unsubscribe(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ch, ok := s.subscribers[id]; ok {
		delete(s.subscribers, id)
		close(ch)
	}
}

// Publish wraps list in a new revision and delivers it without blocking. A
// subscriber whose buffer is full loses its oldest pending update.
func (s *Streamer) Publish(list *boards.BoardList) *Update {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	update := &Update{
		Revision:  uuid.New(),
		Sequence:  s.sequence,
		Timestamp: time.Now(),
		List:      list,
	}
	s.latest = update

	for _, ch := range s.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- update:
			default:
			}
		}
	}

	return update
}

// Latest returns the last published update or nil.
func (s *Streamer) Latest() *Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

func (s *Streamer) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

// Close unsubscribes everyone.
func (s *Streamer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}
