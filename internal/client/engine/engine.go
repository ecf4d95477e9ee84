// Package engine is the client-side sync engine: it owns the optimistic
// local write path, the subscription surface and the reconciler loop that
// drains the operation log towards the Authority.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/client/transport"
	"github.com/driftsync/driftsync/internal/lww"
	"github.com/driftsync/driftsync/internal/models"
	"github.com/driftsync/driftsync/internal/validation"
)

// Origin tags where a change notification came from.
type Origin string

const (
	// OriginLocal is an optimistic local write.
	OriginLocal Origin = "local"
	// OriginRemote is a change-feed delta merged during a sync cycle.
	OriginRemote Origin = "remote"
	// OriginConflict is a local operation overwritten by the Authority's
	// winning record.
	OriginConflict Origin = "conflict"
)

// Change is delivered to subscribers for every applied mutation.
type Change struct {
	Entity *models.LocalEntity
	Origin Origin
}

// Mutation is what application code enqueues. Payload must be nil for
// delete mutations.
type Mutation struct {
	Table    string
	EntityID string
	Kind     models.OpKind
	Payload  json.RawMessage
}

// Config tunes the reconciler. Zero values fall back to defaults.
type Config struct {
	TenantID       string
	BatchSize      int           // operations per sync request
	FlushInterval  time.Duration // timer-driven sync period
	RequestTimeout time.Duration // per-attempt transport timeout
	BackoffBase    time.Duration // first retry delay
	BackoffCap     time.Duration // retry delay ceiling
	MaxRetries     uint64        // transport attempts per cycle, beyond the first
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.FlushInterval <= 0 {
		c.FlushInterval = 15 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
	return c
}

// Engine is one tenant replica's sync engine. All reads are served from the
// local store; the network is only touched by sync cycles.
type Engine struct {
	replica   storage.Replica
	transport transport.Client
	clock     *lww.Clock
	logger    *slog.Logger
	subs      map[int]func(Change)
	flushC    chan struct{}
	clientID  string
	cfg       Config
	subsMu    sync.Mutex
	nextSub   int
	syncMu    sync.Mutex
}

// New creates an engine bound to a replica store and a transport. The
// replica's persistent client identity is loaded (or minted) here.
func New(ctx context.Context, replica storage.Replica, tc transport.Client, logger *slog.Logger, cfg Config) (*Engine, error) {
	if err := validation.ValidateIdent("tenant_id", cfg.TenantID); err != nil {
		return nil, err
	}

	clientID, err := replica.ClientID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load client identity: %w", err)
	}

	return &Engine{
		replica:   replica,
		transport: tc,
		clock:     lww.NewClock(),
		logger:    logger,
		cfg:       cfg.withDefaults(),
		clientID:  clientID,
		flushC:    make(chan struct{}, 1),
		subs:      make(map[int]func(Change)),
	}, nil
}

// ClientID returns the replica's stable identity.
func (e *Engine) ClientID() string {
	return e.clientID
}

// Enqueue applies a mutation optimistically to the local store and appends
// it to the operation log in one transaction. The mutation is durable when
// Enqueue returns; a storage error means nothing was committed and the
// caller must retry before treating the mutation as saved.
func (e *Engine) Enqueue(ctx context.Context, m Mutation) (string, error) {
	if err := validation.ValidateIdent("table", m.Table); err != nil {
		return "", err
	}
	if err := validation.ValidateEntityID(m.EntityID); err != nil {
		return "", err
	}

	op := &models.Operation{
		OperationID: uuid.New().String(),
		TenantID:    e.cfg.TenantID,
		Table:       m.Table,
		EntityID:    m.EntityID,
		Kind:        m.Kind,
		Payload:     m.Payload,
		ClientTS:    e.clock.Tick(),
		ClientID:    e.clientID,
	}

	if err := e.replica.Enqueue(ctx, op); err != nil {
		return "", fmt.Errorf("storage failure: %w", err)
	}

	e.notify(Change{
		Origin: OriginLocal,
		Entity: &models.LocalEntity{
			Table:     op.Table,
			EntityID:  op.EntityID,
			Payload:   op.Payload,
			VersionTS: op.ClientTS,
			ClientID:  op.ClientID,
			Deleted:   op.Kind == models.OpDelete,
		},
	})

	return op.OperationID, nil
}

// Get serves a read from the local store. Never blocks on the network.
func (e *Engine) Get(ctx context.Context, table, entityID string) (*models.LocalEntity, error) {
	return e.replica.Get(ctx, table, entityID)
}

// List serves a table scan from the local store.
func (e *Engine) List(ctx context.Context, table string) ([]*models.LocalEntity, error) {
	return e.replica.List(ctx, table)
}

// PendingCount returns the number of operations awaiting acknowledgement.
func (e *Engine) PendingCount(ctx context.Context) (int, error) {
	return e.replica.PendingCount(ctx)
}

// Cursor returns the last observed change-feed cursor.
func (e *Engine) Cursor(ctx context.Context) (uint64, error) {
	return e.replica.Cursor(ctx)
}

// Subscribe registers a change callback and returns its cancel function.
// Callbacks fire for optimistic local writes, merged remote deltas and
// conflict resolutions, on the goroutine that produced the change.
func (e *Engine) Subscribe(fn func(Change)) func() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn

	return func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) notify(ch Change) {
	e.subsMu.Lock()
	fns := make([]func(Change), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subsMu.Unlock()

	for _, fn := range fns {
		fn(ch)
	}
}

// FlushNow requests an immediate sync cycle. Non-blocking: a request made
// while a cycle is already pending or in flight is coalesced.
func (e *Engine) FlushNow() {
	select {
	case e.flushC <- struct{}{}:
	default:
	}
}

// Run drives periodic sync cycles until ctx is cancelled. Cycle failures
// are logged and retried on the next trigger, never fatal.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-e.flushC:
		}

		if err := e.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.logger.Error("sync cycle failed", "error", err)
		}
	}
}
