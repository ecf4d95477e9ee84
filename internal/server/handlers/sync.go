package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/driftsync/driftsync/internal/server/authority"
	"github.com/driftsync/driftsync/pkg/api"
)

// contextKey is the type for request context keys set by the middleware.
type contextKey string

const (
	// TenantIDKey holds the authenticated tenant id.
	TenantIDKey contextKey = "tenant_id"
	// ClientIDKey holds the authenticated client (replica) id.
	ClientIDKey contextKey = "client_id"
)

// GetTenantID extracts the tenant id from the request context.
func GetTenantID(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok
}

// GetClientID extracts the client id from the request context.
func GetClientID(ctx context.Context) (string, bool) {
	clientID, ok := ctx.Value(ClientIDKey).(string)
	return clientID, ok
}

// BatchApplier applies a sync batch for a tenant.
type BatchApplier interface {
	ApplyBatch(ctx context.Context, tenantID string, cursor uint64, ops []api.Operation) (*api.SyncResponse, error)
}

// SyncHandler handles the sync endpoint.
type SyncHandler struct {
	logger    *slog.Logger
	authority BatchApplier
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(logger *slog.Logger, authority BatchApplier) *SyncHandler {
	return &SyncHandler{
		logger:    logger,
		authority: authority,
	}
}

// HandleSync handles POST /api/v1/sync.
func (h *SyncHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Tenant id is set by AuthMiddleware.
	tenantID, ok := GetTenantID(ctx)
	if !ok {
		h.logger.Error("tenant id not found in context")
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing tenant scope")
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}

	var req api.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode sync request", "error", err)
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	// The token decides the tenant; a mismatching body field is rejected,
	// never silently rewritten.
	if req.TenantID != "" && req.TenantID != tenantID {
		h.logger.Warn("tenant id mismatch",
			"token_tenant", tenantID,
			"request_tenant", req.TenantID)
		writeError(w, http.StatusForbidden, "forbidden", "tenant_id does not match token scope")
		return
	}

	resp, err := h.authority.ApplyBatch(ctx, tenantID, req.Cursor, req.Operations)
	if err != nil {
		if errors.Is(err, authority.ErrBadRequest) {
			h.logger.Warn("invalid sync batch", "tenant_id", tenantID, "error", err)
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		h.logger.Error("failed to apply sync batch", "tenant_id", tenantID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode sync response", "error", err)
	}
}

// writeError sends a JSON error body with the given status.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(api.ErrorResponse{
		Error:   code,
		Message: message,
	})
}
