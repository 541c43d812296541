package commands

import (
	"context"
	"fmt"

	"github.com/claim-panel/tui/internal/client"
	"github.com/claim-panel/tui/internal/theme"
	"github.com/spf13/cobra"
)

// statusReport is the --json shape of the status command.
type statusReport struct {
	API            string              `json:"api"`
	Message        string              `json:"message"`
	Wallet         *client.WalletStats `json:"wallet"`
	ActiveSessions []string            `json:"active_sessions"`
	FaucetSites    int                 `json:"faucet_sites"`
}

func newStatusCommand(flags *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print a one-shot summary of the backend",
		Long: `Check that the backend answers and print wallet stats, the active
session ids and the size of the faucet catalog.

Example:
  claim-panel status --api-url http://127.0.0.1:8001/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			c := flags.httpClient(cfg)

			var report *statusReport
			if jsonOut {
				report, err = collectStatus(cmd.Context(), c)
			} else {
				s := newSpinner(cmd.ErrOrStderr(), "Contacting backend...")
				s.Start()
				report, err = collectStatus(cmd.Context(), c)
				s.Stop()
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return printJSON(cmd.OutOrStdout(), report)
			}
			printStatus(cmd, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	return cmd
}

func collectStatus(ctx context.Context, c *client.HTTPClient) (*statusReport, error) {
	health, err := c.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	stats, err := c.GetWalletStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get wallet stats: %w", err)
	}
	active, err := c.GetActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active sessions: %w", err)
	}
	sites, err := c.GetFaucetSites(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get faucet sites: %w", err)
	}
	return &statusReport{
		API:            c.BaseURL(),
		Message:        health.Message,
		Wallet:         stats,
		ActiveSessions: active,
		FaucetSites:    len(sites),
	}, nil
}

func printStatus(cmd *cobra.Command, r *statusReport) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %s %s\n\n", checkMark, bold("Backend OK"), cyan(r.API))
	printRow(w, "Message", r.Message)
	printRow(w, "Balance", theme.FormatBTC(r.Wallet.TotalBalance)+" BTC")
	printRow(w, "Claimed today", theme.FormatBTC(r.Wallet.TotalClaimedToday)+" BTC")
	printRow(w, "Successful claims", green(r.Wallet.SuccessfulClaims))
	printRow(w, "Failed claims", red(r.Wallet.FailedClaims))
	printRow(w, "Active sessions", r.Wallet.ActiveSessions)
	printRow(w, "Faucet sites", r.FaucetSites)
	if len(r.ActiveSessions) == 0 {
		printRow(w, "Session ids", yellow("none"))
		return
	}
	for _, id := range r.ActiveSessions {
		printRow(w, "Session id", id)
	}
}
