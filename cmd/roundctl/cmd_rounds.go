package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

var roundsCmd = &cobra.Command{
	Use:   "rounds",
	Short: "Create, list and transition rounds",
}

var createFlags struct {
	archetype string
	open      bool
	confirm   bool
}

var createCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a round",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		round, err := application.Rounds.Create(cmd.Context(), ports.CreateRoundInput{
			Name:      args[0],
			Archetype: createFlags.archetype,
			Open:      createFlags.open,
			Confirm:   createFlags.confirm,
			IsAdmin:   true,
		})
		if err != nil {
			return err
		}
		return printRound(cmd, round)
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rounds, err := application.Rounds.List(cmd.Context())
		if err != nil {
			return err
		}
		mode, _ := parseOutput(rootFlags.output)
		return render(cmd.OutOrStdout(), mode, rounds, roundsTable(rounds))
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the open round",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		round, err := application.Rounds.Current(cmd.Context())
		if err != nil {
			return err
		}
		return printRound(cmd, round)
	},
}

var transitionFlags struct {
	confirm bool
}

func transitionCmd(use, short string, apply func(*cobra.Command, ports.TransitionInput) (*domain.Round, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ROUND_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			round, err := apply(cmd, ports.TransitionInput{RoundID: id, Confirm: transitionFlags.confirm, IsAdmin: true})
			if err != nil {
				return err
			}
			return printRound(cmd, round)
		},
	}
}

var openCmd = transitionCmd("open", "Open a round, closing any other open round", func(cmd *cobra.Command, in ports.TransitionInput) (*domain.Round, error) {
	return application.Rounds.Open(cmd.Context(), in)
})

var reopenCmd = transitionCmd("reopen", "Reopen a closed round", func(cmd *cobra.Command, in ports.TransitionInput) (*domain.Round, error) {
	return application.Rounds.Reopen(cmd.Context(), in)
})

var closeCmd = transitionCmd("close", "Close the open round", func(cmd *cobra.Command, in ports.TransitionInput) (*domain.Round, error) {
	return application.Rounds.Close(cmd.Context(), in)
})

var deleteCmd = &cobra.Command{
	Use:   "delete ROUND_ID",
	Short: "Delete a round and every ballot cast in it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := application.Rounds.Delete(cmd.Context(), ports.TransitionInput{RoundID: id, IsAdmin: true}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Round %s deleted.\n", id)
		return nil
	},
}

func init() {
	f := createCmd.Flags()
	f.StringVar(&createFlags.archetype, "archetype", string(domain.ArchetypeScored), "scored, interaction or deliberation")
	f.BoolVar(&createFlags.open, "open", false, "Open the round immediately")
	f.BoolVar(&createFlags.confirm, "confirm", false, "Close the currently open round if there is one")

	for _, c := range []*cobra.Command{openCmd, reopenCmd} {
		c.Flags().BoolVar(&transitionFlags.confirm, "confirm", false, "Close the currently open round if there is one")
	}

	roundsCmd.AddCommand(createCmd, listCmd, currentCmd, openCmd, reopenCmd, closeCmd, deleteCmd)
}

func printRound(cmd *cobra.Command, round *domain.Round) error {
	mode, _ := parseOutput(rootFlags.output)
	return render(cmd.OutOrStdout(), mode, round, roundTable(round))
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", domain.ErrInvalidID, s)
	}
	return id, nil
}
