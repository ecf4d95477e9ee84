// Package authority implements the server-side apply path: it drains client
// batches into the canonical store under the LWW policy and serves the
// change feed back.
package authority

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/internal/server/storage"
	"github.com/driftsync/driftsync/internal/validation"
	"github.com/driftsync/driftsync/pkg/api"
)

// DefaultFeedLimit bounds how many change-feed entries one response carries.
// Clients page through larger backlogs across successive sync cycles.
const DefaultFeedLimit = 500

// Service applies operation batches for all tenants.
type Service struct {
	storage   storage.DataStorage
	logger    *slog.Logger
	feedLimit int
}

// New creates an authority service. feedLimit <= 0 selects DefaultFeedLimit.
func New(st storage.DataStorage, logger *slog.Logger, feedLimit int) *Service {
	if feedLimit <= 0 {
		feedLimit = DefaultFeedLimit
	}
	return &Service{
		storage:   st,
		logger:    logger,
		feedLimit: feedLimit,
	}
}

// ApplyBatch processes the operations in the batch's given order, each in
// its own storage transaction, then collects the tenant's change feed past
// the supplied cursor. The returned cursor never regresses: with an empty
// feed page it stays at the request's value.
func (s *Service) ApplyBatch(ctx context.Context, tenantID string, cursor uint64, ops []api.Operation) (*api.SyncResponse, error) {
	if err := validation.ValidateIdent("tenant_id", tenantID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadRequest, err)
	}

	results := make([]api.OpResult, 0, len(ops))
	conflicts := 0

	for _, wireOp := range ops {
		op, err := wireOpToModel(tenantID, wireOp)
		if err != nil {
			return nil, fmt.Errorf("%w: operation %s: %s", ErrBadRequest, wireOp.OperationID, err)
		}

		result, err := s.storage.ApplyOperation(ctx, op)
		if err != nil {
			return nil, fmt.Errorf("failed to apply operation %s: %w", op.OperationID, err)
		}
		if result.Status == api.StatusConflict {
			conflicts++
		}
		results = append(results, *result)
	}

	entries, err := s.storage.ChangesSince(ctx, tenantID, cursor, s.feedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to read change feed: %w", err)
	}

	newCursor := cursor
	changes := make([]api.Entity, 0, len(entries))
	for _, entry := range entries {
		changes = append(changes, api.Entity{
			Table:     entry.Record.Table,
			EntityID:  entry.Record.EntityID,
			Payload:   entry.Record.Payload,
			VersionTS: entry.Record.VersionTS,
			ClientID:  entry.Record.ClientID,
			Deleted:   entry.Record.Deleted,
			UpdatedAt: entry.Record.UpdatedAt,
		})
		newCursor = entry.Seq
	}

	s.logger.Info("batch applied",
		"tenant_id", tenantID,
		"operations", len(ops),
		"conflicts", conflicts,
		"changes", len(changes),
		"cursor", cursor,
		"new_cursor", newCursor)

	return &api.SyncResponse{
		Results:   results,
		Changes:   changes,
		NewCursor: newCursor,
	}, nil
}

// wireOpToModel validates a wire operation and binds it to the
// authenticated tenant. The wire format carries no tenant field; the tenant
// always comes from the request scope, so a client cannot write outside its
// own namespace.
func wireOpToModel(tenantID string, wireOp api.Operation) (*models.Operation, error) {
	if err := validation.ValidateIdent("table", wireOp.Table); err != nil {
		return nil, err
	}
	if err := validation.ValidateEntityID(wireOp.EntityID); err != nil {
		return nil, err
	}

	op := &models.Operation{
		OperationID: wireOp.OperationID,
		TenantID:    tenantID,
		Table:       wireOp.Table,
		EntityID:    wireOp.EntityID,
		Kind:        models.OpKind(wireOp.Kind),
		Payload:     wireOp.Payload,
		ClientTS:    wireOp.ClientTS,
		ClientID:    wireOp.ClientID,
	}
	if err := op.Validate(); err != nil {
		return nil, err
	}

	return op, nil
}
