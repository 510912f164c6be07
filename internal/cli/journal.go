package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/anfir/internal/store"
)

// commandContext returns the command's context, or Background when the
// command runs outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// journalSession appends sess to the journal at dbPath. The session is
// stamped with an ID from ids and the next seq after the journal's last one.
func journalSession(ctx context.Context, dbPath string, ids store.IDGenerator, sess store.Session, logger *slog.Logger) (store.Session, error) {
	if ids == nil {
		ids = store.UUIDv7Generator{}
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return sess, err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	last, err := st.LastSeq(ctx)
	if err != nil {
		return sess, fmt.Errorf("read last seq: %w", err)
	}
	sess.ID = ids.Generate()
	sess.Seq = store.NewClockAt(last).Next()

	if err := st.WriteSession(ctx, sess); err != nil {
		return sess, err
	}
	logger.Info("session journaled",
		"db", dbPath,
		"id", sess.ID,
		"seq", sess.Seq,
		"kind", sess.Kind,
		"graphs", len(sess.Graphs),
		"nodes", len(sess.Nodes),
	)
	return sess, nil
}
