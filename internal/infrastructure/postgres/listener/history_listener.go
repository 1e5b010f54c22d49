package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"points/internal/domain/point"
	"points/internal/infrastructure/postgres"
)

const (
	reconnectInterval = 5 * time.Second
	pingInterval      = 90 * time.Second
)

// HistoryListener streams point_histories inserts published by the
// notify_point_history trigger. It sees records from every process sharing
// the database, not only the local one.
type HistoryListener struct {
	connStr    string
	handle     func(point.TransactionRecord)
	shutdownCh chan struct{}
	done       chan struct{}
}

func NewHistoryListener(connStr string, handle func(point.TransactionRecord)) *HistoryListener {
	return &HistoryListener{
		connStr:    connStr,
		handle:     handle,
		shutdownCh: make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start begins listening in a background goroutine.
func (l *HistoryListener) Start(ctx context.Context) {
	go l.listen(ctx)
	log.Println("Point history listener started")
}

// Stop shuts the listener down and waits for it to exit.
func (l *HistoryListener) Stop() {
	close(l.shutdownCh)
	<-l.done
	log.Println("Point history listener stopped")
}

func (l *HistoryListener) listen(ctx context.Context) {
	defer close(l.done)

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		default:
			l.connectAndListen(ctx)
		}

		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(reconnectInterval):
			log.Println("Reconnecting to PostgreSQL for point history notifications...")
		}
	}
}

func (l *HistoryListener) connectAndListen(ctx context.Context) {
	listener := pq.NewListener(l.connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Println("Connected to point history channel")
		case pq.ListenerEventDisconnected:
			log.Printf("Disconnected from point history channel: %v", err)
		case pq.ListenerEventReconnected:
			log.Println("Reconnected to point history channel")
		case pq.ListenerEventConnectionAttemptFailed:
			log.Printf("Point history connection attempt failed: %v", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(postgres.HistoryChannel); err != nil {
		log.Printf("Failed to listen on channel %s: %v", postgres.HistoryChannel, err)
		return
	}

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.shutdownCh:
			return
		case <-ctx.Done():
			return
		case n := <-listener.Notify:
			if n == nil {
				// Connection lost, break to reconnect
				return
			}
			rec, err := decodeNotification(n)
			if err != nil {
				log.Printf("Dropping point history notification: %v", err)
				continue
			}
			l.handle(rec)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				log.Printf("Point history listener ping failed: %v", err)
			}
		}
	}
}

func decodeNotification(n *pq.Notification) (point.TransactionRecord, error) {
	var rec point.TransactionRecord
	if err := json.Unmarshal([]byte(n.Extra), &rec); err != nil {
		return point.TransactionRecord{}, fmt.Errorf("parse payload on %s: %w", n.Channel, err)
	}
	if !rec.Type.Valid() {
		return point.TransactionRecord{}, fmt.Errorf("unknown transaction type %q on %s", rec.Type, n.Channel)
	}
	return rec, nil
}
