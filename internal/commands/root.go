package commands

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/claim-panel/tui/internal/app"
	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/config"
	"github.com/claim-panel/tui/internal/logging"
	"github.com/claim-panel/tui/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// globalFlags holds the persistent flags shared by every command. Non-empty
// values override the config file and environment.
type globalFlags struct {
	configPath  string
	apiURL      string
	token       string
	logLevel    string
	logFile     string
	metricsAddr string
	stream      bool
}

func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.apiURL != "" {
		cfg.API.URL = g.apiURL
	}
	if g.token != "" {
		cfg.API.Token = g.token
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFile != "" {
		cfg.Log.File = g.logFile
	}
	if g.metricsAddr != "" {
		cfg.Metrics.Addr = g.metricsAddr
	}
	if g.stream {
		cfg.API.Stream = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (g *globalFlags) httpClient(cfg *config.Config) *client.HTTPClient {
	return client.NewHTTPClient(cfg.API.URL, cfg.API.Token, cfg.API.Timeout)
}

// NewRootCommand builds the claim-panel command tree. Without a subcommand it
// runs the interactive panel.
func NewRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "claim-panel",
		Short: "Terminal control panel for the faucet claiming backend",
		Long: `A terminal panel that starts and stops faucet claiming sessions and
shows wallet stats, recent claims and the faucet catalog.

Examples:
  claim-panel                                   # Run the interactive panel
  claim-panel --api-url http://host:8001/api    # Point at another backend
  claim-panel status                            # One-shot backend summary
  claim-panel sites --json                      # Print the faucet catalog
  claim-panel mock-server --addr :8001          # Serve a simulated backend`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			return runPanel(flags, cfg)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVar(&flags.apiURL, "api-url", "", "Backend API base URL (default http://127.0.0.1:8001/api)")
	pf.StringVar(&flags.token, "token", "", "Bearer token sent to the backend")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flags.logFile, "log-file", "", "File the panel logs to")
	pf.StringVar(&flags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.BoolVar(&flags.stream, "stream", false, "Also listen to the backend's live stats stream")

	root.AddCommand(newStatusCommand(flags))
	root.AddCommand(newSitesCommand(flags))
	root.AddCommand(newMockServerCommand(flags))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPanel(flags *globalFlags, cfg *config.Config) error {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	opts := app.Options{Logger: logger}
	if cfg.API.Stream {
		wsURL, err := client.StreamURL(cfg.API.URL)
		if err != nil {
			return err
		}
		opts.Stream = client.NewStatsStream(wsURL, cfg.API.Token, logger)
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	logger.Info("starting panel",
		zap.String("api_url", cfg.API.URL),
		zap.Duration("poll_interval", cfg.Poll.Interval),
		zap.Bool("stream", cfg.API.Stream))

	m := app.New(flags.httpClient(cfg), cfg, opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run panel: %w", err)
	}
	return nil
}
