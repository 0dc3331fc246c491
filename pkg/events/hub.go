package events

import (
	"sync"

	"github.com/kode4food/caravan"
	"github.com/kode4food/caravan/topic"
)

type (
	// Hub is the in-process publish/subscribe channel for run events
	Hub struct {
		queue     topic.Topic[*Event]
		prod      topic.Producer[*Event]
		closeOnce sync.Once
	}

	// Consumer receives events published to the hub
	Consumer = topic.Consumer[*Event]
)

// NewHub creates a new event hub
func NewHub() *Hub {
	queue := caravan.NewTopic[*Event]()
	return &Hub{
		queue: queue,
		prod:  queue.NewProducer(),
	}
}

// NewConsumer creates a new subscription to the hub. Callers own the
// consumer and must Close it when done
func (h *Hub) NewConsumer() Consumer {
	return h.queue.NewConsumer()
}

// Publish delivers an event to all subscribers. The topic buffers
// internally, so publishing never stalls the engine loop
func (h *Hub) Publish(e *Event) {
	if e == nil {
		return
	}
	h.prod.Send() <- e
}

// Close shuts down the producer side of the hub
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.prod.Close()
	})
}
