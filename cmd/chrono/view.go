package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/core/views"
	"github.com/agenthands/chrono/internal/render"
	"github.com/agenthands/chrono/internal/replay"
)

var viewCmd = &cobra.Command{
	Use:   "view <recording.json>",
	Short: "Render a recorded timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runView,
}

func init() {
	addViewFlags(viewCmd)
}

func addViewFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("significance", nil, "levels to show (revolutionary, high, medium)")
	cmd.Flags().String("phase", "", "show only this phase")
	cmd.Flags().Int("from", 0, "first year to show")
	cmd.Flags().Int("to", 0, "last year to show")
	cmd.Flags().String("query", "", "list nodes matching this text")
	cmd.Flags().Bool("expand", false, "show dense runs node by node")
}

func runView(cmd *cobra.Command, args []string) error {
	rec, err := replay.LoadRecording(args[0])
	if err != nil {
		return err
	}
	f, err := viewFilter(cmd, rec.Nodes)
	if err != nil {
		return err
	}

	snap := core.Snapshot{
		State:     core.StateComplete,
		Nodes:     rec.Nodes,
		Synthesis: rec.SynthesisData,
		Complete:  rec.CompleteData,
	}
	opts := render.DefaultOptions()
	opts.Filter = f
	expand, _ := cmd.Flags().GetBool("expand")
	opts.Collapse = !expand

	title := args[0]
	if rec.Proposal != nil && rec.Proposal.UserFacing.Title != "" {
		title = rec.Proposal.UserFacing.Title
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, render.Timeline(title, snap, opts))

	if f.Query != "" {
		matches := views.Matches(rec.Nodes, f)
		fmt.Fprintf(out, "\n%d matches for %q\n", len(matches), f.Query)
		for i, id := range matches {
			for _, n := range rec.Nodes {
				if n.ID == id {
					fmt.Fprintf(out, "  %d. %s  %s\n", i+1, n.YearLabel(), n.Title)
				}
			}
		}
	}
	return nil
}

func viewFilter(cmd *cobra.Command, nodes []model.TimelineNode) (views.FilterState, error) {
	f := views.DefaultFilter()

	levels, _ := cmd.Flags().GetStringSlice("significance")
	if len(levels) > 0 {
		var set []model.Significance
		for _, l := range levels {
			s := model.Significance(strings.ToLower(strings.TrimSpace(l)))
			if !s.Valid() {
				return f, fmt.Errorf("unknown significance %q", l)
			}
			set = append(set, s)
		}
		f.Significance = views.NewSignificanceSet(set...)
	}

	f.Phase, _ = cmd.Flags().GetString("phase")
	f.Query, _ = cmd.Flags().GetString("query")

	from, _ := cmd.Flags().GetInt("from")
	to, _ := cmd.Flags().GetInt("to")
	if from != 0 || to != 0 {
		bounds, ok := views.YearBounds(nodes)
		if !ok {
			bounds = views.YearRange{Min: from, Max: to}
		}
		if from != 0 {
			bounds.Min = from
		}
		if to != 0 {
			bounds.Max = to
		}
		if bounds.Min > bounds.Max {
			return f, fmt.Errorf("--from %d is after --to %d", bounds.Min, bounds.Max)
		}
		f.YearRange = &bounds
	}
	return f, nil
}
