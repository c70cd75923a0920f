package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	tagview "tagview/engine/core"
	"tagview/engine/pubsub"
	"tagview/pkg/client"
)

const (
	consumerLoop   = "event-loop"
	consumerSender = "device-sender"

	reconnectDelay = 2 * time.Second
)

// startWorkers wires the device link: the source publishes snapshots, the loop
// consumes them, and the sender drains mutations towards the device.
func (s *Server) startWorkers(ctx context.Context) error {
	snapshots, err := s.bus.Subscribe(pubsub.TopicSnapshots, consumerLoop)
	if err != nil {
		return fmt.Errorf("failed to subscribe to snapshots: %w", err)
	}
	go s.consumeSnapshots(ctx, snapshots)

	mutations, err := s.bus.Subscribe(pubsub.TopicMutations, consumerSender)
	if err != nil {
		return fmt.Errorf("failed to subscribe to mutations: %w", err)
	}
	go s.sendMutations(ctx, mutations)

	if s.device == nil {
		InfoLog("[SERVER] No device configured; waiting for pushed snapshots\n")
		return nil
	}
	switch s.config.Transport {
	case TransportPoll:
		go s.poll(ctx)
	case TransportWS:
		go s.stream(ctx)
	case TransportNone:
	default:
		return fmt.Errorf("unknown transport %q", s.config.Transport)
	}
	return nil
}

func (s *Server) consumeSnapshots(ctx context.Context, sub pubsub.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Chan():
			if !ok {
				return
			}
			snap, ok := msg.Payload.(*tagview.Snapshot)
			if !ok {
				ErrorLog("[SERVER] Unexpected payload %T on %s\n", msg.Payload, pubsub.TopicSnapshots)
				continue
			}
			if _, err := s.applySnapshot(ctx, snap, s.config.Groups); err != nil {
				ErrorLog("[SERVER] Failed to apply snapshot #%d: %v\n", msg.Sequence, err)
			}
		}
	}
}

// applySnapshot renders groups from snap on the event loop.
func (s *Server) applySnapshot(ctx context.Context, snap *tagview.Snapshot, groups []string) (tagview.RenderStats, error) {
	ctx, span := s.tracer.Start(ctx, "reconcile.render")
	defer span.End()
	span.SetAttributes(
		attribute.Int("snapshot.elements", len(snap.Elements)),
		attribute.StringSlice("render.groups", groups),
	)

	var total tagview.RenderStats
	err := s.loop.do(ctx, func() {
		for _, group := range groups {
			stats := s.reconciler.Render(snap, group)
			total.ElementsCreated += stats.ElementsCreated
			total.TagsCreated += stats.TagsCreated
			total.TagsSkipped += stats.TagsSkipped
			total.ValuesApplied += stats.ValuesApplied
			total.ValuesDeferred += stats.ValuesDeferred
			total.ValuesRejected += stats.ValuesRejected
		}
		s.lastSnapshot = time.Now()
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return total, err
	}
	span.SetAttributes(
		attribute.Int("render.tags_created", total.TagsCreated),
		attribute.Int("render.values_deferred", total.ValuesDeferred),
		attribute.Int("render.values_rejected", total.ValuesRejected),
	)
	if total.ElementsCreated > 0 || total.TagsCreated > 0 {
		InfoLog("[RECONCILE] %s\n", total)
	}
	return total, nil
}

func (s *Server) poll(ctx context.Context) {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		s.fetchSnapshot(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) fetchSnapshot(ctx context.Context) {
	snap, err := s.device.GetSnapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			ErrorLog("[DEVICE] Snapshot fetch failed: %v\n", err)
		}
		return
	}
	if _, err := s.bus.Publish(pubsub.TopicSnapshots, snap); err != nil {
		ErrorLog("[DEVICE] Failed to publish snapshot: %v\n", err)
	}
}

func (s *Server) stream(ctx context.Context) {
	for {
		// The first snapshot comes over REST so the tree fills before the
		// device pushes its next change.
		s.fetchSnapshot(ctx)
		err := s.device.Stream(ctx, func(snap *tagview.Snapshot) error {
			_, err := s.bus.Publish(pubsub.TopicSnapshots, snap)
			return err
		})
		if ctx.Err() != nil {
			return
		}
		ErrorLog("[DEVICE] Stream ended: %v; reconnecting in %s\n", err, reconnectDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// sendMutations posts each queued mutation once. Failures are logged; the
// next snapshot shows the device's actual state.
func (s *Server) sendMutations(ctx context.Context, sub pubsub.Subscription) {
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Chan():
			if !ok {
				return
			}
			out, ok := msg.Payload.(*outbound)
			if !ok {
				ErrorLog("[SERVER] Unexpected payload %T on %s\n", msg.Payload, pubsub.TopicMutations)
				continue
			}
			s.dispatch(ctx, out)
		}
	}
}

func (s *Server) dispatch(ctx context.Context, out *outbound) {
	if s.device == nil {
		InfoLog("[DEVICE] No device; dropping mutation %s\n", out.ID)
		return
	}
	ctx, span := s.tracer.Start(ctx, "device.send_mutation")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", out.ID), attribute.Int("mutation.tags", out.Mutation.Len()))

	_, err := s.device.SendMutation(client.WithRequestID(ctx, out.ID), out.Mutation)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ErrorLog("[DEVICE] Mutation %s failed: %v\n", out.ID, err)
		s.LogAPIOperation(http.MethodPost, client.DeviceAPIPath, out.ID, "error", http.StatusBadGateway, err.Error(), "")
		return
	}
	s.LogAPIOperation(http.MethodPost, client.DeviceAPIPath, out.ID, "success", http.StatusOK, "", fmt.Sprintf("%d tag(s)", out.Mutation.Len()))
}
