package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/sethvargo/go-retry"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/client/transport"
	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/pkg/api"
)

// ErrProtocolViolation is returned when the Authority's response is
// inconsistent with the protocol, e.g. a regressing cursor. The cycle is
// aborted and the next one retries from the last known-good cursor.
var ErrProtocolViolation = errors.New("protocol violation")

// SyncOnce runs a single sync cycle: drain a batch from the operation log,
// ship it with the current cursor, apply acks/conflicts/deltas, advance the
// cursor. At most one cycle runs at a time; a concurrent call returns
// immediately and the in-flight cycle picks up newly appended operations on
// its next run.
func (e *Engine) SyncOnce(ctx context.Context) error {
	if !e.syncMu.TryLock() {
		return nil
	}
	defer e.syncMu.Unlock()

	// Draining.
	ops, err := e.replica.PendingBatch(ctx, e.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to drain operation log: %w", err)
	}
	cursor, err := e.replica.Cursor(ctx)
	if err != nil {
		return fmt.Errorf("failed to read cursor: %w", err)
	}

	req := api.SyncRequest{
		TenantID:   e.cfg.TenantID,
		Cursor:     cursor,
		Operations: make([]api.Operation, 0, len(ops)),
	}
	for _, op := range ops {
		req.Operations = append(req.Operations, api.Operation{
			OperationID: op.OperationID,
			Table:       op.Table,
			EntityID:    op.EntityID,
			Kind:        string(op.Kind),
			Payload:     op.Payload,
			ClientTS:    op.ClientTS,
			ClientID:    op.ClientID,
		})
	}

	// AwaitingResponse. The only suspension point: a timeout or
	// cancellation here leaves every operation in the log, because ack and
	// reject only run after a complete response.
	resp, err := e.send(ctx, req)
	if err != nil {
		return fmt.Errorf("transport failure, %d operations remain queued: %w", len(ops), err)
	}

	// Applying.
	return e.apply(ctx, cursor, resp)
}

// send ships the request with capped, jittered exponential backoff.
// Permanent transport errors (auth, malformed request) are not retried.
func (e *Engine) send(ctx context.Context, req api.SyncRequest) (*api.SyncResponse, error) {
	backoff := retry.NewExponential(e.cfg.BackoffBase)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithCappedDuration(e.cfg.BackoffCap, backoff)
	backoff = retry.WithMaxRetries(e.cfg.MaxRetries, backoff)

	var resp *api.SyncResponse
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.RequestTimeout)
		defer cancel()

		r, err := e.transport.Sync(attemptCtx, req)
		if err != nil {
			var statusErr *transport.StatusError
			if errors.As(err, &statusErr) && !statusErr.Retryable() {
				return err
			}
			e.logger.Warn("sync attempt failed, will retry", "error", err)
			return retry.RetryableError(err)
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// apply consumes the Authority's response: acks trim the log, conflicts trim
// the log and overwrite the local speculative state with the winner, deltas
// merge through the LWW policy, and the cursor advances to NewCursor.
func (e *Engine) apply(ctx context.Context, sentCursor uint64, resp *api.SyncResponse) error {
	if resp.NewCursor < sentCursor {
		return fmt.Errorf("%w: cursor regressed from %d to %d", ErrProtocolViolation, sentCursor, resp.NewCursor)
	}

	for _, res := range resp.Results {
		switch res.Status {
		case api.StatusAck:
			if err := e.replica.Ack(ctx, res.OperationID); err != nil {
				return fmt.Errorf("failed to ack operation %s: %w", res.OperationID, err)
			}

		case api.StatusConflict:
			if res.Conflict == nil {
				return fmt.Errorf("%w: conflict result %s without conflict body", ErrProtocolViolation, res.OperationID)
			}
			if err := e.applyConflict(ctx, res.OperationID, res.Conflict); err != nil {
				return err
			}

		default:
			return fmt.Errorf("%w: unknown result status %q", ErrProtocolViolation, res.Status)
		}
	}

	for _, change := range resp.Changes {
		e.clock.Observe(change.VersionTS)

		changed, err := e.replica.ApplyRemote(ctx, wireEntityToLocal(change))
		if err != nil {
			return fmt.Errorf("failed to merge change for %s/%s: %w", change.Table, change.EntityID, err)
		}
		if changed {
			e.notify(Change{Origin: OriginRemote, Entity: wireEntityToLocal(change)})
		}
	}

	if err := e.replica.SetCursor(ctx, resp.NewCursor); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	e.logger.Debug("sync cycle applied",
		"results", len(resp.Results),
		"changes", len(resp.Changes),
		"cursor", resp.NewCursor)

	return nil
}

// applyConflict drops the losing operation and installs the winning record.
// A conflict is a terminal outcome for that operation, never an error and
// never retried.
func (e *Engine) applyConflict(ctx context.Context, operationID string, conflict *api.Conflict) error {
	err := e.replica.Reject(ctx, operationID)
	if errors.Is(err, storage.ErrOperationNotFound) {
		// Already consumed by a previous cycle's replayed response.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reject operation %s: %w", operationID, err)
	}

	winner := wireEntityToLocal(conflict.Winning)
	e.clock.Observe(winner.VersionTS)

	if _, err := e.replica.ApplyRemote(ctx, winner); err != nil {
		return fmt.Errorf("failed to apply winning record for %s: %w", operationID, err)
	}

	e.logger.Info("operation lost conflict",
		"operation_id", operationID,
		"reason", conflict.Reason,
		"table", winner.Table,
		"entity_id", winner.EntityID)

	e.notify(Change{Origin: OriginConflict, Entity: winner})
	return nil
}

func wireEntityToLocal(ent api.Entity) *models.LocalEntity {
	return &models.LocalEntity{
		Table:     ent.Table,
		EntityID:  ent.EntityID,
		Payload:   ent.Payload,
		VersionTS: ent.VersionTS,
		ClientID:  ent.ClientID,
		Deleted:   ent.Deleted,
		Synced:    true,
	}
}
