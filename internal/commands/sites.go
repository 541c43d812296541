package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSitesCommand(flags *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List the faucet catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			sites, err := flags.httpClient(cfg).GetFaucetSites(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get faucet sites: %w", err)
			}

			w := cmd.OutOrStdout()
			if jsonOut {
				return printJSON(w, sites)
			}
			if len(sites) == 0 {
				fmt.Fprintf(w, "%s %s\n", xMark, "No sites configured.")
				return nil
			}
			fmt.Fprintf(w, "%s\n", bold(fmt.Sprintf("%-16s %-9s %s", "NAME", "COOLDOWN", "URL")))
			for _, s := range sites {
				fmt.Fprintf(w, "%-16s %-9s %s\n", s.Name, fmt.Sprintf("%dm", s.Cooldown), cyan(s.URL))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	return cmd
}
