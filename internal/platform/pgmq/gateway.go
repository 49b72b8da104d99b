// Package pgmq implements queue.Gateway on top of the pgmq Postgres
// extension.
package pgmq

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/phrazzld/bookmark-enricher/internal/store"
)

const (
	readSQL    = `SELECT msg_id, read_ct, enqueued_at, vt, message FROM pgmq.read($1, $2, $3)`
	deleteSQL  = `SELECT pgmq.delete($1, $2::bigint)`
	archiveSQL = `SELECT pgmq.archive($1, $2::bigint)`
	sendSQL    = `SELECT pgmq.send($1, $2::jsonb, $3)`
)

// Gateway talks to pgmq queues through any pgx connection or pool.
type Gateway struct {
	db         store.DBTX
	visibility time.Duration
}

var _ queue.Gateway = (*Gateway)(nil)

// NewGateway creates a Gateway. Claimed messages stay invisible for the
// given visibility timeout, rounded up to whole seconds.
func NewGateway(db store.DBTX, visibility time.Duration) *Gateway {
	return &Gateway{db: db, visibility: visibility}
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}

// PopBatch claims up to max messages with pgmq.read.
func (g *Gateway) PopBatch(ctx context.Context, queueName string, max int) ([]queue.Message, error) {
	rows, err := g.db.Query(ctx, readSQL, queueName, seconds(g.visibility), max)
	if err != nil {
		return nil, fmt.Errorf("pgmq read %s: %w", queueName, err)
	}
	defer rows.Close()

	var msgs []queue.Message
	for rows.Next() {
		var (
			msg     queue.Message
			readCt  int32
			payload []byte
		)
		if err := rows.Scan(&msg.ID, &readCt, &msg.EnqueuedAt, &msg.VisibleAt, &payload); err != nil {
			return nil, fmt.Errorf("pgmq scan %s: %w", queueName, err)
		}
		msg.ReadCount = int(readCt)
		msg.Payload = json.RawMessage(payload)
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgmq read %s: %w", queueName, err)
	}
	return msgs, nil
}

// Delete removes a processed message.
func (g *Gateway) Delete(ctx context.Context, queueName string, id int64) error {
	return g.ack(ctx, deleteSQL, "delete", queueName, id)
}

// Archive moves a message into the queue's archive table.
func (g *Gateway) Archive(ctx context.Context, queueName string, id int64) error {
	return g.ack(ctx, archiveSQL, "archive", queueName, id)
}

func (g *Gateway) ack(ctx context.Context, sql, op, queueName string, id int64) error {
	var ok bool
	if err := g.db.QueryRow(ctx, sql, queueName, id).Scan(&ok); err != nil {
		return fmt.Errorf("pgmq %s %s/%d: %w", op, queueName, id, err)
	}
	if !ok {
		return fmt.Errorf("pgmq %s: %w: %s/%d", op, queue.ErrMessageNotFound, queueName, id)
	}
	return nil
}

// Send enqueues payload after delay and returns the new message id.
// json.RawMessage and []byte payloads are sent as-is; anything else is
// marshalled.
func (g *Gateway) Send(ctx context.Context, queueName string, payload any, delay time.Duration) (int64, error) {
	var body []byte
	switch p := payload.(type) {
	case json.RawMessage:
		body = p
	case []byte:
		body = p
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal payload: %w", err)
		}
		body = b
	}
	if !json.Valid(body) {
		return 0, fmt.Errorf("%w: not valid JSON", queue.ErrMalformedPayload)
	}

	var id int64
	if err := g.db.QueryRow(ctx, sendSQL, queueName, string(body), seconds(delay)).Scan(&id); err != nil {
		return 0, fmt.Errorf("pgmq send %s: %w", queueName, err)
	}
	return id, nil
}
