package events

import (
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/quaestus/internal/interfaces"
)

const subscriberBuffer = 64

// Service implements EventService with a channel-based pub/sub pattern
type Service struct {
	mu          sync.RWMutex
	subscribers map[int]chan interfaces.Event
	nextID      int
	logger      arbor.ILogger
}

// NewService creates a new event service
func NewService(logger arbor.ILogger) interfaces.EventService {
	return &Service{
		subscribers: make(map[int]chan interfaces.Event),
		logger:      logger,
	}
}

// Publish broadcasts an event to all subscribers. Subscribers with full
// buffers miss the event rather than blocking the publisher.
func (s *Service) Publish(event interfaces.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			s.logger.Debug().
				Int("subscriber_id", id).
				Str("event_type", event.Type).
				Msg("Subscriber buffer full, dropping event")
		}
	}
}

// Subscribe registers a new subscriber and returns its channel with an
// unsubscribe function
func (s *Service) Subscribe() (<-chan interfaces.Event, func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	ch := make(chan interfaces.Event, subscriberBuffer)
	s.subscribers[id] = ch
	count := len(s.subscribers)
	s.mu.Unlock()

	s.logger.Debug().Int("subscriber_id", id).Int("subscriber_count", count).Msg("Event subscriber registered")

	unsubscribe := func() {
		s.mu.Lock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
		s.mu.Unlock()
	}
	return ch, unsubscribe
}

// Ensure Service implements EventService interface
var _ interfaces.EventService = (*Service)(nil)
