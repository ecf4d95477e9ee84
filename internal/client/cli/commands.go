// Package cli implements the driftsync client commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/driftsync/driftsync/internal/client/engine"
	"github.com/driftsync/driftsync/internal/client/storage"
	"github.com/driftsync/driftsync/internal/models"
)

// PrintUsage prints the command overview.
func PrintUsage() {
	fmt.Fprintln(os.Stderr, `Usage: driftsync [flags] <command> [args]

Commands:
  put <table> <entity_id> <json>   Write an entity (works offline)
  get <table> <entity_id>          Read an entity from the local store
  delete <table> <entity_id>       Delete an entity (works offline)
  list <table>                     List a table's entities
  status                           Show pending operations and cursor
  sync                             Run one sync cycle against the server
  watch                            Sync continuously, printing changes

Flags:
  -server   Server URL
  -db       Path to the local database
  -tenant   Tenant id
  -token    Bearer token for the server
  -version  Show version information`)
}

// RunPut writes an entity locally and queues it for sync. Whether this is an
// insert or an update depends on what the local store currently holds.
func RunPut(ctx context.Context, args []string, eng *engine.Engine) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: driftsync put <table> <entity_id> <json>")
	}
	table, entityID, payload := args[0], args[1], args[2]

	if !json.Valid([]byte(payload)) {
		return fmt.Errorf("payload is not valid JSON")
	}

	kind := models.OpUpdate
	if _, err := eng.Get(ctx, table, entityID); err != nil {
		if !errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("failed to read entity: %w", err)
		}
		kind = models.OpInsert
	}

	opID, err := eng.Enqueue(ctx, engine.Mutation{
		Table:    table,
		EntityID: entityID,
		Kind:     kind,
		Payload:  json.RawMessage(payload),
	})
	if err != nil {
		return err
	}

	fmt.Printf("queued %s %s/%s (operation %s)\n", kind, table, entityID, opID)
	return nil
}

// RunGet reads an entity from the local store. Never touches the network.
func RunGet(ctx context.Context, args []string, eng *engine.Engine) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: driftsync get <table> <entity_id>")
	}

	ent, err := eng.Get(ctx, args[0], args[1])
	if err != nil {
		if errors.Is(err, storage.ErrEntityNotFound) {
			return fmt.Errorf("%s/%s not found", args[0], args[1])
		}
		return err
	}

	fmt.Printf("%s\n", ent.Payload)
	if !ent.Synced {
		fmt.Println("(pending sync)")
	}
	return nil
}

// RunDelete queues a delete for an entity.
func RunDelete(ctx context.Context, args []string, eng *engine.Engine) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: driftsync delete <table> <entity_id>")
	}

	opID, err := eng.Enqueue(ctx, engine.Mutation{
		Table:    args[0],
		EntityID: args[1],
		Kind:     models.OpDelete,
	})
	if err != nil {
		return err
	}

	fmt.Printf("queued delete %s/%s (operation %s)\n", args[0], args[1], opID)
	return nil
}

// RunList prints a table's live entities from the local store.
func RunList(ctx context.Context, args []string, eng *engine.Engine) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: driftsync list <table>")
	}

	entities, err := eng.List(ctx, args[0])
	if err != nil {
		return err
	}

	if len(entities) == 0 {
		fmt.Println("(empty)")
		return nil
	}

	for _, ent := range entities {
		marker := ""
		if !ent.Synced {
			marker = " *"
		}
		fmt.Printf("%s%s\t%s\n", ent.EntityID, marker, ent.Payload)
	}
	fmt.Println("\n* = pending sync")
	return nil
}

// RunStatus reports the replica's sync state.
func RunStatus(ctx context.Context, eng *engine.Engine) error {
	pending, err := eng.PendingCount(ctx)
	if err != nil {
		return err
	}
	cursor, err := eng.Cursor(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("client_id: %s\n", eng.ClientID())
	fmt.Printf("pending operations: %d\n", pending)
	fmt.Printf("cursor: %d\n", cursor)
	return nil
}

// RunSync performs one sync cycle and reports the outcome.
func RunSync(ctx context.Context, eng *engine.Engine) error {
	if err := eng.SyncOnce(ctx); err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	pending, err := eng.PendingCount(ctx)
	if err != nil {
		return err
	}

	if pending == 0 {
		fmt.Println("sync complete, all operations acknowledged")
	} else {
		fmt.Printf("sync cycle done, %d operations still pending\n", pending)
	}
	return nil
}

// RunWatch syncs continuously and prints every change until ctx is
// cancelled.
func RunWatch(ctx context.Context, eng *engine.Engine) error {
	unsubscribe := eng.Subscribe(func(ch engine.Change) {
		state := "live"
		if ch.Entity.Deleted {
			state = "deleted"
		}
		fmt.Printf("[%s] %s/%s %s ts=%d\n",
			ch.Origin, ch.Entity.Table, ch.Entity.EntityID, state, ch.Entity.VersionTS)
	})
	defer unsubscribe()

	fmt.Println("watching for changes, Ctrl-C to stop")
	eng.FlushNow()

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
