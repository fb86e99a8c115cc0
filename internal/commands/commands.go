// Package commands implements the sitectl operator CLI.
package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sitedocs/internal/config"
	"sitedocs/internal/ordering"
	"sitedocs/internal/store"
)

// New returns the root command with every subcommand attached.
func New() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitectl",
		Short: "Inspect and repair site document assignments.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage: true,
	}
	AddCommands(cmd)
	return cmd
}

func AddCommands(topLevel *cobra.Command) {
	addMigrate(topLevel)
	addPool(topLevel)
	addFolder(topLevel)
	addOrder(topLevel)
	addResolve(topLevel)
}

// env holds the connections a command run needs.
type env struct {
	cfg    config.Config
	db     *sql.DB
	store  *store.PostgresStore
	redis  *ordering.RedisRemote
	logger *slog.Logger
	out    io.Writer
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	return &env{
		cfg:    cfg,
		db:     db,
		store:  store.NewPostgresStore(db),
		logger: logger,
		out:    color.Output,
	}, nil
}

// orders builds the folder order store, using Redis when configured.
func (e *env) orders() *ordering.Store {
	var remote ordering.Remote
	if strings.TrimSpace(e.cfg.RedisURL) != "" {
		r, err := ordering.NewRedisRemote(e.cfg.RedisURL)
		if err != nil {
			e.logger.Warn("invalid redis url, using local order cache", "error", err)
		} else {
			e.redis = r
			remote = r
		}
	}
	return ordering.New(remote, ordering.NewDiskLocal(e.cfg.OrderCacheDir), e.logger)
}

func (e *env) Close() {
	if e.redis != nil {
		_ = e.redis.Close()
	}
	_ = e.db.Close()
}

// withEnv opens an env for the duration of fn.
func withEnv(cmd *cobra.Command, fn func(ctx context.Context, e *env) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	return fn(ctx, e)
}
