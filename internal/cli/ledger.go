package cli

import (
	"context"
	"time"

	"github.com/me/visiumflow/internal/dispatch"
	"github.com/me/visiumflow/internal/store"
	"github.com/me/visiumflow/internal/workspace"
	"github.com/me/visiumflow/pkg/model"
)

// runLedger records dispatches. Its failures are logged and otherwise
// ignored; a nil store turns every method into a no-op.
type runLedger struct {
	st store.Store
}

func openLedger(ctx context.Context, layout workspace.Layout) *runLedger {
	st, err := store.Open(ctx, layout.Ledger(), logger)
	if err != nil {
		logger.Warn("run ledger unavailable", "path", layout.Ledger(), "error", err)
		return &runLedger{}
	}
	return &runLedger{st: st}
}

func (l *runLedger) create(ctx context.Context, rec *model.RunRecord) {
	if l.st == nil {
		return
	}
	if err := l.st.CreateRun(ctx, rec); err != nil {
		logger.Warn("record run", "id", rec.ID, "error", err)
	}
}

func (l *runLedger) finish(ctx context.Context, rec *model.RunRecord, h *dispatch.Handle) {
	if err := rec.Finish(h.State(), h.ExitCode(), time.Now().UTC()); err != nil {
		logger.Warn("record run result", "id", rec.ID, "error", err)
		return
	}
	if l.st == nil {
		return
	}
	if err := l.st.UpdateRun(ctx, rec); err != nil {
		logger.Warn("record run result", "id", rec.ID, "error", err)
	}
}

func (l *runLedger) Close() {
	if l.st != nil {
		l.st.Close()
	}
}
