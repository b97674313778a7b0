package services

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Dosada05/roster-system/live"
	"github.com/Dosada05/roster-system/metrics"
	"github.com/Dosada05/roster-system/repositories"
)

// Notifier delivers live feed messages. *live.Hub implements it.
type Notifier interface {
	BroadcastToRoom(roomID string, message interface{})
}

type nopNotifier struct{}

func (nopNotifier) BroadcastToRoom(string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

func publish(n Notifier, room, msgType string, payload interface{}) {
	n.BroadcastToRoom(room, live.Message{Type: msgType, Payload: payload, RoomID: room})
	metrics.IncLiveMessage(msgType)
}

// withTransaction runs fn inside one transaction on the shared pool. The
// transaction commits when fn returns nil and rolls back otherwise, including
// on panic.
func withTransaction(ctx context.Context, provider repositories.DBProvider, logger *slog.Logger, op string, fn func(tx *sql.Tx) error) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveTx(op, start, err) }()

	conn, err := provider.Get(ctx)
	if err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			logger.Warn("rolling back transaction", slog.String("op", op), slog.Any("error", err))
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("rollback failed", slog.String("op", op), slog.Any("error", rbErr))
			}
		} else if cErr := tx.Commit(); cErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	err = fn(tx)
	return err
}

// uniqueIDs trims ids, drops empty ones and keeps the first occurrence of each.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
