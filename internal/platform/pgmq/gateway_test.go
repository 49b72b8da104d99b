package pgmq_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/phrazzld/bookmark-enricher/internal/platform/pgmq"
	"github.com/phrazzld/bookmark-enricher/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestPopBatch(t *testing.T) {
	t.Parallel()

	t.Run("reads with visibility timeout", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		gw := pgmq.NewGateway(mock, 1500*time.Millisecond)

		enqueued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		visible := enqueued.Add(30 * time.Second)
		mock.ExpectQuery(`FROM pgmq\.read\(\$1, \$2, \$3\)`).
			WithArgs("bookmarks", 2, 10).
			WillReturnRows(pgxmock.NewRows([]string{"msg_id", "read_ct", "enqueued_at", "vt", "message"}).
				AddRow(int64(7), int32(1), enqueued, visible, []byte(`{"type":"bookmark_process"}`)).
				AddRow(int64(8), int32(3), enqueued, visible, []byte(`{}`)))

		msgs, err := gw.PopBatch(context.Background(), "bookmarks", 10)

		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, int64(7), msgs[0].ID)
		assert.Equal(t, 1, msgs[0].ReadCount)
		assert.Equal(t, enqueued, msgs[0].EnqueuedAt)
		assert.Equal(t, visible, msgs[0].VisibleAt)
		assert.Equal(t, "bookmark_process", msgs[0].Type())
		assert.Equal(t, queue.DefaultMessageType, msgs[1].Type())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty queue", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		gw := pgmq.NewGateway(mock, 30*time.Second)

		mock.ExpectQuery(`pgmq\.read`).
			WithArgs("bookmarks", 30, 5).
			WillReturnRows(pgxmock.NewRows([]string{"msg_id", "read_ct", "enqueued_at", "vt", "message"}))

		msgs, err := gw.PopBatch(context.Background(), "bookmarks", 5)

		require.NoError(t, err)
		assert.Empty(t, msgs)
	})

	t.Run("query error", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		gw := pgmq.NewGateway(mock, 30*time.Second)
		dbErr := errors.New("relation pgmq.q_bookmarks does not exist")

		mock.ExpectQuery(`pgmq\.read`).
			WithArgs("bookmarks", 30, 5).
			WillReturnError(dbErr)

		_, err := gw.PopBatch(context.Background(), "bookmarks", 5)

		assert.ErrorIs(t, err, dbErr)
		assert.Contains(t, err.Error(), "pgmq read bookmarks")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAcknowledge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		call    func(*pgmq.Gateway) error
	}{
		{
			name:    "delete",
			pattern: `SELECT pgmq\.delete\(\$1, \$2::bigint\)`,
			call: func(g *pgmq.Gateway) error {
				return g.Delete(context.Background(), "bookmarks", 42)
			},
		},
		{
			name:    "archive",
			pattern: `SELECT pgmq\.archive\(\$1, \$2::bigint\)`,
			call: func(g *pgmq.Gateway) error {
				return g.Archive(context.Background(), "bookmarks", 42)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mock := newMockPool(t)
			gw := pgmq.NewGateway(mock, time.Second)
			mock.ExpectQuery(tc.pattern).
				WithArgs("bookmarks", int64(42)).
				WillReturnRows(pgxmock.NewRows([]string{"ok"}).AddRow(true))
			require.NoError(t, tc.call(gw))

			mock.ExpectQuery(tc.pattern).
				WithArgs("bookmarks", int64(42)).
				WillReturnRows(pgxmock.NewRows([]string{"ok"}).AddRow(false))
			assert.ErrorIs(t, tc.call(gw), queue.ErrMessageNotFound)

			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	t.Run("marshals payload", func(t *testing.T) {
		t.Parallel()
		mock := newMockPool(t)
		gw := pgmq.NewGateway(mock, time.Second)

		mock.ExpectQuery(`SELECT pgmq\.send\(\$1, \$2::jsonb, \$3\)`).
			WithArgs("bookmarks", `{"type":"bookmark_process"}`, 5).
			WillReturnRows(pgxmock.NewRows([]string{"send"}).AddRow(int64(99)))

		id, err := gw.Send(context.Background(), "bookmarks",
			map[string]string{"type": "bookmark_process"}, 5*time.Second)

		require.NoError(t, err)
		assert.Equal(t, int64(99), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects invalid raw json", func(t *testing.T) {
		t.Parallel()
		gw := pgmq.NewGateway(newMockPool(t), time.Second)

		_, err := gw.Send(context.Background(), "bookmarks", []byte("{oops"), 0)

		assert.ErrorIs(t, err, queue.ErrMalformedPayload)
	})
}
