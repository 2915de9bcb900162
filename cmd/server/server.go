package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/cobra"

	"github.com/0xaya/guild-skill-tree-sub000/internal/data"
	"github.com/0xaya/guild-skill-tree-sub000/internal/handlers/ws"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/account"
	"github.com/0xaya/guild-skill-tree-sub000/internal/orchestrators/planner"
	"github.com/0xaya/guild-skill-tree-sub000/internal/pkg/idgen"
	"github.com/0xaya/guild-skill-tree-sub000/internal/redis"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/globalstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/repositories/localstate"
	"github.com/0xaya/guild-skill-tree-sub000/internal/skilltree"
)

type serverConfig struct {
	Addr          string        `env:"ADDR" envDefault:":8080"`
	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SkillTable    string        `env:"SKILL_TABLE" envDefault:"data/skills.csv"`
	EdgeTable     string        `env:"EDGE_TABLE" envDefault:"data/edges.csv"`
	LocalStateDir string        `env:"LOCAL_STATE_DIR" envDefault:".state"`
	SaveDebounce  time.Duration `env:"SAVE_DEBOUNCE" envDefault:"10s"`
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the planner server",
	Long:  `Start the skill tree planner server with the WebSocket endpoint and all configured stores.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal, gracefully stopping")
		cancel()
	}()

	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	records, err := data.LoadSkillRecords(cfg.SkillTable)
	if err != nil {
		return fmt.Errorf("failed to load skill table: %w", err)
	}
	edges, err := data.LoadParentEdges(cfg.EdgeTable)
	if err != nil {
		return fmt.Errorf("failed to load edge table: %w", err)
	}
	graph, err := skilltree.Build(&skilltree.BuildConfig{
		Records:     records,
		ParentEdges: edges,
	})
	if err != nil {
		return fmt.Errorf("failed to build skill graph: %w", err)
	}
	slog.Info("skill graph loaded", "skills", graph.Len())

	client, err := redis.NewClient(cfg.RedisAddr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer func() { _ = client.Close() }()

	remote, err := globalstate.NewRedis(&globalstate.RedisConfig{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create remote store: %w", err)
	}
	local, err := localstate.NewFile(&localstate.FileConfig{Dir: cfg.LocalStateDir})
	if err != nil {
		return fmt.Errorf("failed to create local store: %w", err)
	}

	writer, err := account.NewWriter(&account.WriterConfig{
		Repository: remote,
		Delay:      cfg.SaveDebounce,
	})
	if err != nil {
		return fmt.Errorf("failed to create debounced writer: %w", err)
	}

	idGen := idgen.NewPrefixed("char")

	syncSvc, err := account.NewOrchestrator(&account.Config{
		Remote:      remote,
		Local:       local,
		IDGenerator: idGen,
		RootID:      graph.RootID(),
	})
	if err != nil {
		return fmt.Errorf("failed to create sync orchestrator: %w", err)
	}

	plannerSvc, err := planner.NewOrchestrator(&planner.Config{
		Graph:       graph,
		Local:       local,
		Remote:      writer,
		IDGenerator: idGen,
	})
	if err != nil {
		return fmt.Errorf("failed to create planner orchestrator: %w", err)
	}

	handler, err := ws.NewHandler(&ws.Config{
		Planner: plannerSvc,
		Sync:    syncSvc,
		Flusher: writer,
	})
	if err != nil {
		return fmt.Errorf("failed to create websocket handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed, forcing close", "error", err.Error())
			_ = srv.Close()
		}

		// Commit any pending remote writes before exiting.
		if err := writer.FlushAll(shutdownCtx); err != nil {
			slog.Error("failed to flush pending writes", "error", err.Error())
		}

		slog.Info("server stopped")
		return nil
	case err := <-errChan:
		return err
	}
}
