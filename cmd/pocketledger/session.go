package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/avasilenko/pocketledger/internal/app"
	"github.com/avasilenko/pocketledger/internal/engine"
	"github.com/avasilenko/pocketledger/internal/remote"
	"github.com/avasilenko/pocketledger/internal/status"
	"github.com/avasilenko/pocketledger/internal/store"
)

// session bundles the wired components behind every command.
type session struct {
	store       *store.Store
	remote      *remote.Client
	broadcaster *status.Broadcaster
	engine      *engine.Engine
	app         *app.App
	owner       string
}

// openSession opens the local database and constructs the engine stack
// from the current configuration. The caller must call close().
func openSession(ctx context.Context) (*session, error) {
	owner, err := requireOwner()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(viper.GetString("db_path"))
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}
	if err := st.InitSchema(ctx); err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	client := remote.New(viper.GetString("api_url"), nil, newLogger("[remote] "))
	bc := status.NewBroadcaster()
	eng := engine.New(st, client, bc, &engine.Config{
		OwnerID: owner,
		Logger:  newLogger("[engine] "),
	})

	return &session{
		store:       st,
		remote:      client,
		broadcaster: bc,
		engine:      eng,
		app:         app.New(st, eng, bc, owner, newLogger("[app] ")),
		owner:       owner,
	}, nil
}

func (s *session) close() {
	s.broadcaster.Close()
	if err := s.store.Close(); err != nil {
		fmt.Printf("Warning: failed to close database: %v\n", err)
	}
}

// goOnline probes the remote API once and records the result, so
// one-shot commands (sync, status) reflect real connectivity without
// running the watcher.
func (s *session) goOnline(ctx context.Context) bool {
	online := s.remote.Ping(ctx) == nil
	s.engine.SetOnline(ctx, online)
	return online
}
