// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"database/sql"

	"github.com/pdiddy/fulltext/internal/database"
	"github.com/pdiddy/fulltext/internal/engine"
	"github.com/pdiddy/fulltext/internal/extraction"
	"github.com/pdiddy/fulltext/internal/notify"
	"github.com/pdiddy/fulltext/internal/retrieve"
	"github.com/pdiddy/fulltext/internal/secrets"
	"github.com/pdiddy/fulltext/internal/store"
	"github.com/pdiddy/fulltext/internal/textextract"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	db           *sql.DB
	store        *store.SQLiteStore
	queue        *engine.Queue
	retriever    *retrieve.Client
	orchestrator *extraction.Orchestrator
}

// openApp opens the database under the storage volume and wires the store,
// the engine queue and the orchestrator.
func openApp() (*app, error) {
	db, err := database.Open(cfg.StorageVolume)
	if err != nil {
		return nil, err
	}
	st, err := store.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	q, err := engine.NewQueue(db, cfg.Engine)
	if err != nil {
		db.Close()
		return nil, err
	}
	r := retrieve.New(nil, cfg, logger)
	return &app{
		db:           db,
		store:        st,
		queue:        q,
		retriever:    r,
		orchestrator: extraction.NewOrchestrator(q, st, r, logger),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// workerPool builds the extractor and publisher and returns a pool ready to
// run extraction jobs.
func (a *app) workerPool(ctx context.Context) (*engine.WorkerPool, error) {
	x, err := textextract.New(ctx, cfg.Extractor)
	if err != nil {
		return nil, err
	}
	pub := notify.New(cfg.Events, loadedSecrets.Get(secrets.EventsToken), cfg.HTTP, logger)
	w := extraction.NewWorker(a.retriever, x, a.store, pub, cfg.Events.Stream, logger)

	reg := engine.NewRegistry()
	reg.Register(extraction.NewHandler(w))
	return engine.NewWorkerPool(a.queue, reg, cfg.Engine, logger), nil
}
