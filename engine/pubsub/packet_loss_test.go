package pubsub

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// done marks the end of a test stream.
type done struct{}

func publishPackets(t *testing.T, ps *WatermillPubSub, topic string, count int) {
	t.Helper()
	for i := 0; i < count; i++ {
		if _, err := ps.Publish(topic, i); err != nil {
			t.Fatalf("Failed to publish packet %d: %v", i, err)
		}
	}
	if _, err := ps.Publish(topic, done{}); err != nil {
		t.Fatalf("Failed to publish DONE signal: %v", err)
	}
}

// collect reads int payloads until the DONE signal or the timeout.
func collect(sub Subscription, timeout time.Duration) ([]int, bool) {
	received := make([]int, 0)
	deadline := time.After(timeout)
	for {
		select {
		case msg, ok := <-sub.Chan():
			if !ok {
				return received, false
			}
			if _, isDone := msg.Payload.(done); isDone {
				return received, true
			}
			if val, ok := msg.Payload.(int); ok {
				received = append(received, val)
			}
		case <-deadline:
			return received, false
		}
	}
}

func checkPackets(received []int, count int) error {
	if len(received) != count {
		return fmt.Errorf("expected %d packets, got %d, missing %v", count, len(received), findMissing(received, count))
	}
	for i := range received {
		if received[i] != i {
			return fmt.Errorf("packet %d: expected %d, got %d", i, i, received[i])
		}
	}
	return nil
}

// TestNoPacketLossWithCacheReplay checks a subscriber that joins after the
// whole stream was published still sees it, in order, from the cache.
func TestNoPacketLossWithCacheReplay(t *testing.T) {
	ps := NewInMemoryPubSub(20)
	defer ps.Close()

	topic := "test-topic"
	packetCount := 10
	publishPackets(t, ps, topic, packetCount)

	sub, err := ps.Subscribe(topic, "late-subscriber")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	received, gotDone := collect(sub, 3*time.Second)
	if !gotDone {
		t.Fatalf("Timeout: received %d/%d packets", len(received), packetCount)
	}
	if err := checkPackets(received, packetCount); err != nil {
		t.Error(err)
	}
}

// TestNoPacketLossWithMultipleSubscribers checks every late subscriber gets
// its own full replay.
func TestNoPacketLossWithMultipleSubscribers(t *testing.T) {
	ps := NewInMemoryPubSub(20)
	ps.SetConsumerBuf(50)
	defer ps.Close()

	topic := "test-topic"
	packetCount := 15
	subscriberCount := 3
	publishPackets(t, ps, topic, packetCount)

	var wg sync.WaitGroup
	errors := make(chan error, subscriberCount)

	for subID := 0; subID < subscriberCount; subID++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			sub, err := ps.Subscribe(topic, fmt.Sprintf("subscriber-%d", id))
			if err != nil {
				errors <- fmt.Errorf("subscriber %d: failed to subscribe: %v", id, err)
				return
			}
			received, gotDone := collect(sub, 5*time.Second)
			if !gotDone {
				errors <- fmt.Errorf("subscriber %d: timeout - received %d/%d packets", id, len(received), packetCount)
				return
			}
			if err := checkPackets(received, packetCount); err != nil {
				errors <- fmt.Errorf("subscriber %d: %w", id, err)
			}
		}(subID)
	}

	wg.Wait()
	close(errors)
	for err := range errors {
		t.Error(err)
	}
}

// TestNoPacketLossWithFastPublisher publishes far more mutations than the
// replay cache holds to subscribers that are already listening.
func TestNoPacketLossWithFastPublisher(t *testing.T) {
	ps := NewInMemoryPubSub(8)
	defer ps.Close()

	packetCount := 200
	subs := make([]Subscription, 0, 2)
	for _, id := range []string{"device-sender", "audit"} {
		sub, err := ps.Subscribe(TopicMutations, id)
		if err != nil {
			t.Fatalf("Failed to subscribe: %v", err)
		}
		subs = append(subs, sub)
	}

	publishPackets(t, ps, TopicMutations, packetCount)

	for i, sub := range subs {
		received, gotDone := collect(sub, 5*time.Second)
		if !gotDone {
			t.Fatalf("subscriber %d timeout: received %d/%d packets", i, len(received), packetCount)
		}
		if err := checkPackets(received, packetCount); err != nil {
			t.Errorf("subscriber %d: %v", i, err)
		}
	}

	// Every subscriber took its copy, so only the cache keeps payloads alive.
	stats := ps.Stats(TopicMutations)
	if stats.InFlight != 0 {
		t.Errorf("expected no in-flight messages, got %d", stats.InFlight)
	}
	if stats.CachedMessages != 8 {
		t.Errorf("expected 8 cached messages, got %d", stats.CachedMessages)
	}
}

// TestNoPacketLossWithSlowConsumer keeps publishing while the subscriber
// drains in small bursts.
func TestNoPacketLossWithSlowConsumer(t *testing.T) {
	ps := NewInMemoryPubSub(4)
	ps.SetConsumerBuf(2)
	defer ps.Close()

	sub, err := ps.Subscribe(TopicMutations, "slow")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	packetCount := 60
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < packetCount; i++ {
			if _, err := ps.Publish(TopicMutations, i); err != nil {
				t.Errorf("Failed to publish packet %d: %v", i, err)
				return
			}
		}
		if _, err := ps.Publish(TopicMutations, done{}); err != nil {
			t.Errorf("Failed to publish DONE signal: %v", err)
		}
	}()

	received, gotDone := collect(sub, 5*time.Second)
	wg.Wait()
	if !gotDone {
		t.Fatalf("Timeout: received %d/%d packets", len(received), packetCount)
	}
	if err := checkPackets(received, packetCount); err != nil {
		t.Error(err)
	}
}

func findMissing(received []int, expected int) []int {
	seen := make(map[int]bool)
	for _, v := range received {
		seen[v] = true
	}

	missing := make([]int, 0)
	for i := 0; i < expected; i++ {
		if !seen[i] {
			missing = append(missing, i)
		}
	}
	return missing
}
