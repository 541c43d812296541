package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claim-panel/tui/internal/logging"
	"github.com/claim-panel/tui/internal/mockapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMockServerCommand(flags *globalFlags) *cobra.Command {
	var (
		addr           string
		streamInterval time.Duration
		stepInterval   time.Duration
		seed           uint64
	)
	cmd := &cobra.Command{
		Use:   "mock-server",
		Short: "Serve a simulated claiming backend",
		Long: `Serve the backend API with in-memory sessions and generated claims, for
running the panel without the real automation backend. The global --token
flag, when set, is required from clients.

Example:
  claim-panel mock-server --addr :8001 --step-interval 2s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if stepInterval <= 0 || streamInterval <= 0 {
				return fmt.Errorf("intervals must be positive")
			}
			level := flags.logLevel
			if level == "" {
				level = "info"
			}
			// The mock server has no alt screen to protect, so it logs to stderr
			// unless a file is given.
			logger, err := logging.New(level, flags.logFile)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store := mockapi.NewStore()
			gen := mockapi.NewGenerator(store, nil, seed)
			go gen.Run(ctx, stepInterval)

			srv := mockapi.NewServer(store, mockapi.Options{
				Token:          flags.token,
				StreamInterval: streamInterval,
				Logger:         logger,
			})
			logger.Info("mock backend configured",
				zap.Duration("step_interval", stepInterval),
				zap.Duration("stream_interval", streamInterval),
				zap.Bool("auth", flags.token != ""))
			return mockapi.ListenAndServe(ctx, addr, srv.Routes(), logger)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8001", "Listen address")
	f.DurationVar(&streamInterval, "stream-interval", 5*time.Second, "Stats stream push interval")
	f.DurationVar(&stepInterval, "step-interval", 2*time.Second, "Claim generation interval")
	f.Uint64Var(&seed, "seed", 0, "Claim generator seed (0 picks a random one)")
	return cmd
}
