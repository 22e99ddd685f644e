package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"gopkg.in/yaml.v3"
)

type outputMode string

const (
	outputTable outputMode = "table"
	outputJSON  outputMode = "json"
	outputYAML  outputMode = "yaml"
)

func parseOutput(s string) (outputMode, error) {
	switch m := outputMode(s); m {
	case outputTable, outputJSON, outputYAML:
		return m, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// render writes v as JSON or YAML, or calls tabulate for table output.
func render(w io.Writer, mode outputMode, v any, tabulate func(table.Writer)) error {
	switch mode {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		// Round-trip through JSON so YAML keys follow the API field names.
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic any
		if err := yaml.Unmarshal(raw, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(generic)
	default:
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(table.StyleLight)
		tabulate(t)
		t.Render()
		return nil
	}
}

func roundsTable(rounds []*domain.Round) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"ID", "Name", "Archetype", "Status", "Opened", "Closed"})
		for _, r := range rounds {
			t.AppendRow(table.Row{r.ID, r.Name, r.Archetype, r.Status, stamp(r.OpenedAt), stamp(r.ClosedAt)})
		}
	}
}

func roundTable(r *domain.Round) func(table.Writer) {
	return func(t table.Writer) {
		roundsTable([]*domain.Round{r})(t)
		if r.Deliberation == nil {
			return
		}
		d := r.Deliberation
		current := "-"
		if d.CurrentPnmID != nil {
			current = d.CurrentPnmID.String()
		}
		t.AppendFooter(table.Row{"Active", current, "Voting", d.VotingOpen, "Revealed", d.ResultsRevealed})
	}
}

func tallyTable(t domain.Tally) func(table.Writer) {
	return func(w table.Writer) {
		w.AppendHeader(table.Row{"Yes", "No", "Total"})
		w.AppendRow(table.Row{t.Yes, t.No, t.Total})
	}
}

func resultTable(r *ports.CandidateResult) func(table.Writer) {
	return func(w table.Writer) {
		w.AppendHeader(table.Row{"PNM", "Sealed", "Yes", "No", "Total"})
		if r.Tally == nil {
			w.AppendRow(table.Row{r.PnmID, r.Sealed, "-", "-", "-"})
			return
		}
		w.AppendRow(table.Row{r.PnmID, r.Sealed, r.Tally.Yes, r.Tally.No, r.Tally.Total})
	}
}

func voteStatsTable(s *domain.VoteStats) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Round", "Average", "Bayesian", "Votes"})
		names := make([]string, 0, len(s.RoundStats))
		for name := range s.RoundStats {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rs := s.RoundStats[name]
			t.AppendRow(table.Row{name, rs.Average, rs.Bayesian, rs.Count})
		}
		t.AppendFooter(table.Row{"Overall", s.Average, s.Bayesian, s.Count})
		t.SetColumnConfigs(scoreColumns())
	}
}

func standingsTable(standings []domain.Standing) func(table.Writer) {
	return func(t table.Writer) {
		t.AppendHeader(table.Row{"Rank", "PNM", "Average", "Bayesian", "Votes"})
		for _, s := range standings {
			t.AppendRow(table.Row{s.Rank, s.PnmID, s.Average, s.Bayesian, s.Count})
		}
		configs := scoreColumns()
		for i := range configs {
			configs[i].Number++
		}
		t.SetColumnConfigs(configs)
	}
}

func scoreColumns() []table.ColumnConfig {
	two := text.NewNumberTransformer("%.2f")
	return []table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, Transformer: two, TransformerFooter: two},
		{Number: 3, Align: text.AlignRight, Transformer: two, TransformerFooter: two},
		{Number: 4, Align: text.AlignRight},
	}
}

func stamp(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
