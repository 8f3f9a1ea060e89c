package pipeline

import (
	"context"
	"log"
	"sync"
	"time"
)

// PostQueue spaces posts out over time. It implements Poster by enqueueing,
// so it can be dropped in front of any backend when a channel should not be
// flooded by a burst of unique groups.
type PostQueue struct {
	poster   Poster
	interval time.Duration

	mu    sync.Mutex
	items []queueItem
	wake  chan struct{}
}

type queueItem struct {
	text       string
	mediaPaths []string
}

// NewPostQueue wraps a backend with interval-spaced delivery.
func NewPostQueue(poster Poster, interval time.Duration) *PostQueue {
	return &PostQueue{
		poster:   poster,
		interval: interval,
		wake:     make(chan struct{}, 1),
	}
}

// Post enqueues the item for later delivery. It never blocks.
func (q *PostQueue) Post(_ context.Context, text string, mediaPaths []string) error {
	q.mu.Lock()
	q.items = append(q.items, queueItem{text: text, mediaPaths: mediaPaths})
	n := len(q.items)
	q.mu.Unlock()

	log.Printf("Queued post (%d item(s) pending)", n)
	select {
	case q.wake <- struct{}{}:
	default:
	}
	return nil
}

// Len reports the number of pending items.
func (q *PostQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Start launches the delivery worker. Delivery errors are logged and the item
// is dropped; the queue never retries so one poisoned post cannot stall it.
func (q *PostQueue) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-q.wake:
			}
			for {
				item, ok := q.pop()
				if !ok {
					break
				}
				if err := q.poster.Post(ctx, item.text, item.mediaPaths); err != nil {
					log.Printf("❌ Error posting from queue: %v", err)
				} else {
					log.Printf("Posted from queue: %s", truncateText(item.text, 30))
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(q.interval):
				}
			}
		}
	}()
}

func (q *PostQueue) pop() (queueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return queueItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}
