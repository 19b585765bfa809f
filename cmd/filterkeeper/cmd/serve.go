package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/solatis/filterkeeper/internal/conditions"
	"github.com/solatis/filterkeeper/internal/core/api"
	"github.com/solatis/filterkeeper/internal/core/db"
	"github.com/solatis/filterkeeper/internal/core/server"
	"github.com/solatis/filterkeeper/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC condition sync service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "gRPC server host")
	serveCmd.Flags().Int("port", 50051, "gRPC server port")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	statuses, err := db.MigrateStatus(ctx, database)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range statuses {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'filterkeeper migrate' first", s.ID)
		}
	}

	st, err := store.New(database)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}

	service, err := api.NewConditionSyncService(st,
		api.WithLogger(logger),
		api.WithTreeOptions(conditions.WithValidation(false)),
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	grpcServer, err := server.NewGRPCServer(cfg.Server, service, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	logger.Info("starting filterkeeper condition sync",
		slog.String("version", Version),
		slog.String("addr", cfg.Server.Addr()))
	errChan := make(chan error, 1)
	go func() {
		errChan <- grpcServer.Start(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		logger.Info("shutting down gracefully")
		return grpcServer.Shutdown(context.Background())
	}
}
