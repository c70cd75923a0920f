package pubsub

import (
	"context"
	"time"
)

// Topics carried between the device link and the host event loop.
const (
	// TopicSnapshots carries *tagview.Snapshot values received from the device.
	TopicSnapshots = "snapshots"
	// TopicMutations carries *tagview.Mutation values bound for the device.
	TopicMutations = "mutations"
)

// Message is one published payload with the metadata the bus assigns to it.
type Message struct {
	Payload   any
	Sequence  int64 // per topic, starting at 1
	Timestamp time.Time
}

// Subscription is a consumer's connection to a topic.
type Subscription interface {
	Chan() <-chan *Message
	Close() error
}

// PubSub is the bus the host components talk through.
type PubSub interface {
	Publish(topic string, payload any) (*Message, error)
	Subscribe(topic string, consumerID string) (Subscription, error)
	Unsubscribe(topic string, consumerID string) error
	Close() error
}

type subscription struct {
	topic   string
	msgChan chan *Message
	cancel  context.CancelFunc
	release func()
}

func (s *subscription) Chan() <-chan *Message {
	return s.msgChan
}

func (s *subscription) Close() error {
	s.cancel()
	if s.release != nil {
		s.release()
	}
	return nil
}
