package main

import "github.com/spf13/cobra"

var statsCmd = &cobra.Command{
	Use:   "stats PNM_ID",
	Short: "Show a candidate's score statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pnmID, err := parseID(args[0])
		if err != nil {
			return err
		}
		stats, err := application.Stats.ComputeVoteStats(cmd.Context(), pnmID)
		if err != nil {
			return err
		}
		mode, _ := parseOutput(rootFlags.output)
		return render(cmd.OutOrStdout(), mode, stats, voteStatsTable(stats))
	},
}

var standingsCmd = &cobra.Command{
	Use:   "standings",
	Short: "Rank every candidate by Bayesian score",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		standings, err := application.Standings.Standings(cmd.Context())
		if err != nil {
			return err
		}
		mode, _ := parseOutput(rootFlags.output)
		return render(cmd.OutOrStdout(), mode, standings, standingsTable(standings))
	},
}
