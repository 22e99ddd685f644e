package main

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

var tallyCmd = &cobra.Command{
	Use:   "tally ROUND_ID PNM_ID",
	Short: "Show the live decision tally for a candidate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roundID, pnmID, err := parseCandidateArgs(args)
		if err != nil {
			return err
		}
		tally, err := application.Deliberation.Tally(cmd.Context(), roundID, pnmID)
		if err != nil {
			return err
		}
		mode, _ := parseOutput(rootFlags.output)
		return render(cmd.OutOrStdout(), mode, tally, tallyTable(tally))
	},
}

var sealCmd = &cobra.Command{
	Use:   "seal ROUND_ID PNM_ID",
	Short: "Freeze a candidate's current tally",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roundID, pnmID, err := parseCandidateArgs(args)
		if err != nil {
			return err
		}
		if _, err := application.Deliberation.Seal(cmd.Context(), ports.SealInput{RoundID: roundID, PnmID: pnmID, IsAdmin: true}); err != nil {
			return err
		}
		return showResult(cmd, roundID, pnmID)
	},
}

var unsealCmd = &cobra.Command{
	Use:   "unseal ROUND_ID PNM_ID",
	Short: "Discard a candidate's sealed snapshot",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		roundID, pnmID, err := parseCandidateArgs(args)
		if err != nil {
			return err
		}
		if _, err := application.Deliberation.Unseal(cmd.Context(), ports.SealInput{RoundID: roundID, PnmID: pnmID, IsAdmin: true}); err != nil {
			return err
		}
		return showResult(cmd, roundID, pnmID)
	},
}

var controlFlags struct {
	active   string
	voting   string
	revealed string
}

var controlCmd = &cobra.Command{
	Use:   "control ROUND_ID",
	Short: "Set the active candidate, voting and result visibility of a deliberation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		roundID, err := parseID(args[0])
		if err != nil {
			return err
		}
		input := ports.RoundControlInput{RoundID: roundID, IsAdmin: true}
		if controlFlags.active != "" {
			pnmID, err := parseID(controlFlags.active)
			if err != nil {
				return err
			}
			input.CurrentPnmID = &pnmID
		}
		if input.VotingOpen, err = optionalBool(cmd, "voting", controlFlags.voting); err != nil {
			return err
		}
		if input.ResultsRevealed, err = optionalBool(cmd, "revealed", controlFlags.revealed); err != nil {
			return err
		}

		round, err := application.Deliberation.UpdateControl(cmd.Context(), input)
		if err != nil {
			return err
		}
		return printRound(cmd, round)
	},
}

func init() {
	f := controlCmd.Flags()
	f.StringVar(&controlFlags.active, "active", "", "PNM id to put in front of the room")
	f.StringVar(&controlFlags.voting, "voting", "", "Open or close voting (true/false)")
	f.StringVar(&controlFlags.revealed, "revealed", "", "Reveal or hide results (true/false)")
}

func showResult(cmd *cobra.Command, roundID, pnmID uuid.UUID) error {
	result, err := application.Deliberation.Result(cmd.Context(), roundID, pnmID, true)
	if err != nil {
		return err
	}
	mode, _ := parseOutput(rootFlags.output)
	return render(cmd.OutOrStdout(), mode, result, resultTable(result))
}

func parseCandidateArgs(args []string) (uuid.UUID, uuid.UUID, error) {
	roundID, err := parseID(args[0])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	pnmID, err := parseID(args[1])
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return roundID, pnmID, nil
}

// optionalBool returns nil when the flag was not set.
func optionalBool(cmd *cobra.Command, name, value string) (*bool, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &b, nil
}
