package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/sundris/auctionhouse/internal/config"
	"github.com/sundris/auctionhouse/internal/repository"
	"github.com/sundris/auctionhouse/internal/server"
	"github.com/sundris/auctionhouse/internal/service"
	"github.com/sundris/auctionhouse/internal/sweeper"
	"github.com/sundris/auctionhouse/pkg/database"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		port   uint16
		dbPath string
	)

	cmd := &cobra.Command{
		Use:          "auctiond",
		Short:        "Sundris Auction House server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if cmd.Flags().Changed("db") {
				cfg.DB.Path = dbPath
			}

			initLogger(cfg)
			return run(cmd.Context(), cfg)
		},
	}

	cmd.Flags().Uint16Var(&port, "port", 3000, "port to listen on")
	cmd.Flags().StringVar(&dbPath, "db", "auction.db", "database path, or :memory: for an ephemeral store")
	return cmd
}

func run(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	fundsItemID, err := repository.EnsureSchema(ctx, db)
	if err != nil {
		return err
	}

	engine := service.NewAuctionService(
		db,
		repository.NewUserRepository(),
		repository.NewItemRepository(),
		repository.NewOrderRepository(),
		fundsItemID,
	)

	ln, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", cfg.Server.Port, err)
	}
	log.Info().Stringer("addr", ln.Addr()).Msg("listening")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.New(engine, cfg.Server.OrderLifetime).Serve(ctx, ln)
	})
	g.Go(func() error {
		return sweeper.New(engine, cfg.Server.SweepInterval).Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
