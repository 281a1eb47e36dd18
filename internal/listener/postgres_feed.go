package listener

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFeed implements Feed over Postgres LISTEN/NOTIFY. The database
// trigger on class status updates emits the JSON payload via pg_notify.
type PostgresFeed struct {
	pool *pgxpool.Pool
}

func NewPostgresFeed(pool *pgxpool.Pool) *PostgresFeed {
	return &PostgresFeed{pool: pool}
}

func (f *PostgresFeed) Subscribe(ctx context.Context) (Subscription, error) {
	conn, err := f.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "listen "+Channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", Channel, err)
	}

	return &pgSubscription{conn: conn}, nil
}

// pgSubscription holds a dedicated pooled connection for the duration of
// the subscription. The connection cannot serve queries while listening.
type pgSubscription struct {
	conn *pgxpool.Conn
}

func (s *pgSubscription) Receive(ctx context.Context) (string, error) {
	notification, err := s.conn.Conn().WaitForNotification(ctx)
	if err != nil {
		return "", fmt.Errorf("wait for notification failed: %w", err)
	}
	return notification.Payload, nil
}

// Close unsubscribes before handing the connection back, so the next
// acquirer does not inherit the channel and buffer notifications nobody
// drains. If unlisten fails the connection is destroyed instead of pooled.
func (s *pgSubscription) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := s.conn.Exec(ctx, "unlisten "+Channel); err != nil {
		_ = s.conn.Conn().Close(ctx)
	}
	s.conn.Release()
}
