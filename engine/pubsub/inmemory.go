package pubsub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	tagview "tagview/engine/core"
)

// WatermillPubSub routes messages over a Watermill go-channel. The wire message
// only carries an ID; the typed payload stays in pointerMap so subscribers get
// the original pointer back. Each topic keeps a short replay cache so a late
// subscriber (a freshly opened stream, a restarted event loop) sees recent state.
//
// A pointerMap entry lives while it is in the replay cache or while a
// subscriber that existed at publish time has not taken it yet. The go-channel
// hands messages over in no particular order; each subscription restores
// publish order from the sequence numbers before delivering.
type WatermillPubSub struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	ctx        context.Context
	cancel     context.CancelFunc

	pointerMap  map[string]*pending
	topicCache  map[string][]string
	sequences   map[string]int64
	cacheMu     sync.Mutex
	maxCache    int
	consumerBuf int

	// subMu also serialises Publish against Subscribe, so every message is
	// either replayed to a new subscriber or delivered to it live, never both.
	subscriptions map[string]*subscription
	subMu         sync.Mutex
}

// pending is a published message and the subscriptions still owed it.
type pending struct {
	msg     *Message
	waiting map[*subscription]struct{}
	cached  bool
}

func (p *pending) done() bool {
	return !p.cached && len(p.waiting) == 0
}

type TopicStats struct {
	CachedMessages int   `json:"cached_messages"`
	Consumers      int   `json:"consumers"`
	LastSequence   int64 `json:"last_sequence"`
	InFlight       int   `json:"in_flight"`
}

// NewInMemoryPubSub creates the bus. cacheSize bounds the replay cache of each
// topic; values below 1 default to 16.
func NewInMemoryPubSub(cacheSize int) *WatermillPubSub {
	if cacheSize < 1 {
		cacheSize = 16
	}
	logger := watermill.NewStdLogger(tagview.DebugLoggingEnabled, false)
	goChannel := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            64,
			BlockPublishUntilSubscriberAck: false,
		},
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillPubSub{
		publisher:     goChannel,
		subscriber:    goChannel,
		ctx:           ctx,
		cancel:        cancel,
		pointerMap:    make(map[string]*pending),
		topicCache:    make(map[string][]string),
		sequences:     make(map[string]int64),
		maxCache:      cacheSize,
		consumerBuf:   256,
		subscriptions: make(map[string]*subscription),
	}
}

func (ps *WatermillPubSub) SetConsumerBuf(size int) {
	ps.cacheMu.Lock()
	defer ps.cacheMu.Unlock()
	ps.consumerBuf = size
}

func (ps *WatermillPubSub) Stats(topic string) TopicStats {
	ps.cacheMu.Lock()
	stats := TopicStats{
		CachedMessages: len(ps.topicCache[topic]),
		LastSequence:   ps.sequences[topic],
	}
	for _, p := range ps.pointerMap {
		if len(p.waiting) > 0 {
			for sub := range p.waiting {
				if sub.topic == topic {
					stats.InFlight++
					break
				}
			}
		}
	}
	ps.cacheMu.Unlock()

	ps.subMu.Lock()
	defer ps.subMu.Unlock()
	for key := range ps.subscriptions {
		if strings.HasSuffix(key, ":"+topic) {
			stats.Consumers++
		}
	}
	return stats
}

// Publish stamps payload with the next sequence of topic and delivers it to
// every current subscriber of topic.
func (ps *WatermillPubSub) Publish(topic string, payload any) (*Message, error) {
	ps.subMu.Lock()
	defer ps.subMu.Unlock()

	msgID := watermill.NewUUID()
	ps.cacheMu.Lock()
	ps.sequences[topic]++
	msg := &Message{Payload: payload, Sequence: ps.sequences[topic], Timestamp: time.Now()}
	p := &pending{msg: msg, waiting: make(map[*subscription]struct{}), cached: true}
	for _, sub := range ps.subscriptions {
		if sub.topic == topic {
			p.waiting[sub] = struct{}{}
		}
	}
	ps.pointerMap[msgID] = p
	ps.topicCache[topic] = append(ps.topicCache[topic], msgID)
	if len(ps.topicCache[topic]) > ps.maxCache {
		oldID := ps.topicCache[topic][0]
		ps.topicCache[topic] = ps.topicCache[topic][1:]
		if old, ok := ps.pointerMap[oldID]; ok {
			old.cached = false
			if old.done() {
				delete(ps.pointerMap, oldID)
			}
		}
	}
	ps.cacheMu.Unlock()

	wMsg := message.NewMessage(msgID, []byte(topic))
	if err := ps.publisher.Publish(topic, wMsg); err != nil {
		return nil, fmt.Errorf("watermill publish failed: %w", err)
	}
	return msg, nil
}

// Subscribe returns the consumer's subscription to topic, creating it on first
// use. New subscriptions first receive the cached messages, oldest first, then
// every later message in publish order.
func (ps *WatermillPubSub) Subscribe(topic string, consumerID string) (Subscription, error) {
	key := consumerID + ":" + topic
	ps.subMu.Lock()
	defer ps.subMu.Unlock()
	if sub, exists := ps.subscriptions[key]; exists {
		return sub, nil
	}

	subCtx, subCancel := context.WithCancel(ps.ctx)
	messages, err := ps.subscriber.Subscribe(subCtx, topic)
	if err != nil {
		subCancel()
		return nil, fmt.Errorf("watermill subscribe failed: %w", err)
	}

	ps.cacheMu.Lock()
	outChan := make(chan *Message, ps.consumerBuf)
	replayed := make(map[string]struct{}, len(ps.topicCache[topic]))
	var replay []*Message
	for _, id := range ps.topicCache[topic] {
		if p, ok := ps.pointerMap[id]; ok {
			replay = append(replay, p.msg)
			replayed[id] = struct{}{}
		}
	}
	next := ps.sequences[topic] + 1
	ps.cacheMu.Unlock()

	sub := &subscription{topic: topic, msgChan: outChan, cancel: subCancel}
	sub.release = func() {
		ps.subMu.Lock()
		if ps.subscriptions[key] == sub {
			delete(ps.subscriptions, key)
		}
		ps.subMu.Unlock()
	}
	ps.subscriptions[key] = sub

	go ps.forward(subCtx, sub, messages, replay, replayed, next)
	return sub, nil
}

// forward feeds sub: the replay first, then live messages. Live messages that
// arrive ahead of their turn wait in early until the gap before them fills.
func (ps *WatermillPubSub) forward(ctx context.Context, sub *subscription, messages <-chan *message.Message, replay []*Message, replayed map[string]struct{}, next int64) {
	defer close(sub.msgChan)
	defer ps.forget(sub)

	for _, m := range replay {
		select {
		case sub.msgChan <- m:
		case <-ctx.Done():
			return
		}
	}

	early := make(map[int64]*Message)
	for {
		select {
		case <-ctx.Done():
			return
		case wMsg, ok := <-messages:
			if !ok {
				return
			}
			wMsg.Ack()
			if _, dup := replayed[wMsg.UUID]; dup {
				continue
			}
			m := ps.take(wMsg.UUID, sub)
			if m == nil {
				continue
			}
			early[m.Sequence] = m
			for {
				m, ok := early[next]
				if !ok {
					break
				}
				select {
				case sub.msgChan <- m:
				case <-ctx.Done():
					return
				}
				delete(early, next)
				next++
			}
		}
	}
}

// take hands sub its copy of the message published under id.
func (ps *WatermillPubSub) take(id string, sub *subscription) *Message {
	ps.cacheMu.Lock()
	defer ps.cacheMu.Unlock()
	p, ok := ps.pointerMap[id]
	if !ok {
		return nil
	}
	delete(p.waiting, sub)
	if p.done() {
		delete(ps.pointerMap, id)
	}
	return p.msg
}

// forget drops sub from every message it has not taken yet.
func (ps *WatermillPubSub) forget(sub *subscription) {
	ps.cacheMu.Lock()
	defer ps.cacheMu.Unlock()
	for id, p := range ps.pointerMap {
		if _, ok := p.waiting[sub]; !ok {
			continue
		}
		delete(p.waiting, sub)
		if p.done() {
			delete(ps.pointerMap, id)
		}
	}
}

// Unsubscribe stops a subscription; its channel is closed.
func (ps *WatermillPubSub) Unsubscribe(topic string, consumerID string) error {
	ps.subMu.Lock()
	defer ps.subMu.Unlock()

	key := consumerID + ":" + topic
	if sub, exists := ps.subscriptions[key]; exists {
		sub.cancel()
		delete(ps.subscriptions, key)
	}
	return nil
}

// Close stops every subscription and the underlying channel.
func (ps *WatermillPubSub) Close() error {
	ps.cancel()
	return ps.publisher.Close()
}
