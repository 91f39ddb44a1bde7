package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/ziadkadry99/echo-agent/internal/agent"
	"github.com/ziadkadry99/echo-agent/internal/auth"
	"github.com/ziadkadry99/echo-agent/internal/bots"
	"github.com/ziadkadry99/echo-agent/internal/config"
	"github.com/ziadkadry99/echo-agent/internal/connector"
	"github.com/ziadkadry99/echo-agent/internal/db"
	"github.com/ziadkadry99/echo-agent/internal/server"
	"github.com/ziadkadry99/echo-agent/internal/storage"
	"github.com/ziadkadry99/echo-agent/internal/transcript"
)

const shutdownTimeout = 10 * time.Second

// runAgent serves the agent until ctx is cancelled.
func runAgent(ctx context.Context, cfg *config.Config) error {
	state, transcripts, closeDB, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	srv := newServer(cfg, state, transcripts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newServer wires the agent, its channels and the HTTP server.
func newServer(cfg *config.Config, state storage.Storage, transcripts *transcript.Store) *server.Server {
	provider := auth.NewManagedIdentityProvider(cfg, nil)
	connections := auth.NewSingleConnection(provider)
	factory := connector.NewFactory(connections, nil)

	app := agent.New(state, agent.Routes(agent.Options{
		Diagnostics: cfg.DiagnosticCommands,
		Runtime:     agent.RuntimeInfo{Version: Version, AgentType: cfg.AgentType},
	}))
	log.Debug().Strs("routes", app.Routes()).Msg("agent routes")

	gateway := bots.NewGateway(app, transcripts)

	srv := server.New(server.Config{
		Addr:      cfg.Addr(),
		AgentType: cfg.AgentType,
	})
	verifier := auth.NewVerifier(cfg.OpenIDMetadata, cfg.ClientID, nil)
	bots.RegisterRoutes(srv.Router(),
		bots.NewActivityHandler(gateway, verifier, bots.ConnectorSenders(factory)),
	)
	if cfg.ChatChannel {
		log.Warn().Msg("websocket chat channel enabled at /api/chat/ws")
		bots.RegisterChatRoutes(srv.StreamRouter(), bots.NewChatHandler(gateway))
	}
	if transcripts != nil {
		transcript.RegisterRoutes(srv.Router(), transcripts)
	}
	return srv
}

// openStorage returns the turn state storage and, when enabled, the
// transcript store. Without STORAGE_PATH state lives in memory.
func openStorage(cfg *config.Config) (storage.Storage, *transcript.Store, func(), error) {
	if cfg.StoragePath == "" {
		if cfg.Transcript {
			log.Warn().Msg("TRANSCRIPT requires STORAGE_PATH; transcript disabled")
		}
		return storage.NewMemoryStorage(), nil, func() {}, nil
	}

	database, err := db.Open(cfg.StoragePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	log.Info().Str("path", database.Path()).Msg("conversation state stored in sqlite")

	var transcripts *transcript.Store
	if cfg.Transcript {
		transcripts = transcript.NewStore(database)
	}
	closeDB := func() {
		if err := database.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
	return storage.NewSQLiteStorage(database), transcripts, closeDB, nil
}
