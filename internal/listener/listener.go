package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ftyszyx/school-manager/internal/domain"
	"github.com/ftyszyx/school-manager/internal/logging"
	"github.com/ftyszyx/school-manager/internal/metrics"
)

// Channel is the change feed channel carrying class status updates.
const Channel = "class_status_updates"

// restartBackoff is the fixed delay before the supervisor restarts a failed
// listener. There is no maximum attempt count; the loop retries forever.
const restartBackoff = 5 * time.Second

// Feed is the external change feed the listener subscribes to.
type Feed interface {
	Subscribe(ctx context.Context) (Subscription, error)
}

// Subscription is one active subscription to the feed.
type Subscription interface {
	// Receive blocks until the next raw message. A returned error means the
	// subscription itself has failed and must be re-established.
	Receive(ctx context.Context) (string, error)
	Close()
}

// Listener consumes change events from the feed and hands them to the
// broadcaster. One instance runs per process, supervised by Run.
type Listener struct {
	feed        Feed
	broadcaster domain.Broadcaster
	clock       clockwork.Clock
}

func New(feed Feed, broadcaster domain.Broadcaster, clock clockwork.Clock) *Listener {
	return &Listener{
		feed:        feed,
		broadcaster: broadcaster,
		clock:       clock,
	}
}

// Listen subscribes to the feed and consumes messages until the subscription
// fails. Undecodable payloads are logged and dropped without interrupting the
// subscription. Decoded events are dispatched asynchronously so a broadcast
// never blocks receipt of the next message.
func (l *Listener) Listen(ctx context.Context) error {
	sub, err := l.feed.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to change feed: %w", err)
	}
	defer sub.Close()

	slog.Info("Listening for class status updates", "channel", Channel)

	for {
		payload, err := sub.Receive(ctx)
		if err != nil {
			return fmt.Errorf("change feed receive failed: %w", err)
		}

		var event domain.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			slog.Error("Failed to decode change event, dropping", "error", err)
			metrics.ListenerEventsTotal.WithLabelValues("dropped").Inc()
			continue
		}

		slog.Info("Received status update", "class_id", event.ClassID, "new_status", event.NewStatus)
		metrics.ListenerEventsTotal.WithLabelValues("delivered").Inc()

		go l.broadcaster.Broadcast(event.SchoolID, event)
	}
}

// Run supervises Listen: any failure waits the fixed backoff and restarts,
// unconditionally and indefinitely. Returns only when ctx is canceled.
func (l *Listener) Run(ctx context.Context) {
	for {
		err := l.Listen(ctx)
		if ctx.Err() != nil {
			slog.Info("Change listener stopped")
			return
		}

		logging.WithError(err).Error("Change listener failed, restarting", "backoff", restartBackoff)
		metrics.ListenerRestartsTotal.Inc()

		select {
		case <-ctx.Done():
			slog.Info("Change listener stopped")
			return
		case <-l.clock.After(restartBackoff):
		}
	}
}
