package worker

import (
	"context"
	"fmt"
	"log/slog"

	"daftar/internal/amqp"
	"daftar/internal/services"
	"daftar/internal/storage"
)

// RecomputeWorker keeps the persisted closing-balance snapshots fresh. When a
// transaction changes it drops every snapshot at or after the changed date
// and replays the chain up to the project's latest transaction day, so API
// processes can anchor near the head of the chain instead of replaying
// months of history.
type RecomputeWorker struct {
	store   storage.Store
	ledgers *services.LedgerService
}

func NewRecomputeWorker(store storage.Store, ledgers *services.LedgerService) *RecomputeWorker {
	return &RecomputeWorker{
		store:   store,
		ledgers: ledgers,
	}
}

// HandleChangeMessage processes a single ledger change message from AMQP.
func (w *RecomputeWorker) HandleChangeMessage(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		"message_id", msg.MessageID,
		"project_id", msg.ProjectID,
		"date", msg.Date)

	changed, err := msg.ChangedOn()
	if err != nil {
		return fmt.Errorf("parse change date: %w", err)
	}

	if err := w.ledgers.Invalidate(ctx, msg.ProjectID, changed); err != nil {
		return fmt.Errorf("invalidate balances: %w", err)
	}

	return w.recomputeProject(ctx, msg.ProjectID)
}

// RecomputeAll replays every known project's chain. Used at worker startup to
// heal snapshots after downtime.
func (w *RecomputeWorker) RecomputeAll(ctx context.Context, projectIDs []string) error {
	for _, projectID := range projectIDs {
		if err := w.recomputeProject(ctx, projectID); err != nil {
			return fmt.Errorf("recompute project %s: %w", projectID, err)
		}
	}
	return nil
}

func (w *RecomputeWorker) recomputeProject(ctx context.Context, projectID string) error {
	last, ok, err := w.store.LastTransactionDate(ctx, projectID)
	if err != nil {
		return fmt.Errorf("last transaction date: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "No transactions for project, nothing to recompute",
			"project_id", projectID)
		return nil
	}

	// Building the head of the chain memoizes every day behind it.
	balance, err := w.ledgers.ClosingBalanceOf(ctx, projectID, last)
	if err != nil {
		return fmt.Errorf("recompute chain: %w", err)
	}

	slog.InfoContext(ctx, "Recomputed closing balances",
		"project_id", projectID,
		"through", last.String(),
		"closing_balance", balance.String())
	return nil
}
