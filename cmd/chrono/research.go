package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agenthands/chrono/internal/core"
	"github.com/agenthands/chrono/internal/core/model"
	"github.com/agenthands/chrono/internal/render"
	"github.com/agenthands/chrono/internal/replay"
	"github.com/agenthands/chrono/internal/research"
	"github.com/agenthands/chrono/internal/stream"
)

var researchCmd = &cobra.Command{
	Use:   "research <topic>",
	Short: "Create a research session and stream its timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runResearch,
}

func init() {
	researchCmd.Flags().String("language", "", "output language (default from config)")
	researchCmd.Flags().String("save", "", "write the finished timeline to this JSON file")
	researchCmd.Flags().Bool("expand", false, "show dense runs node by node")
}

func runResearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	policy, err := core.ParseSourcePolicy(cfg.Sources.Policy)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	language, _ := cmd.Flags().GetString("language")
	client := research.NewHTTPClient(cfg.Backend.BaseURL, cfg.BackendTimeout(), cfg.Backend.Language, logger)
	created, err := client.CreateSession(ctx, model.ResearchRequest{Topic: args[0], Language: language})
	if err != nil {
		return err
	}
	p := created.Proposal
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n%s\n%s · %s\n\n", p.UserFacing.Title, p.UserFacing.Summary,
		p.UserFacing.DurationText, p.UserFacing.CreditsText)

	driver := stream.NewSSEDriver(cfg.Backend.BaseURL)
	driver.MaxEventBytes = cfg.Stream.MaxEventBytes
	driver.Logger = logger

	var lastProgress string
	sess := core.NewSession(driver,
		core.WithSessionLogger(logger),
		core.WithEngineOptions(core.WithSourcePolicy(policy)),
		core.WithOnChange(func(s core.Snapshot) {
			if msg := s.ProgressMessage(); msg != "" && msg != lastProgress {
				lastProgress = msg
				fmt.Fprintln(cmd.ErrOrStderr(), msg)
			}
		}),
	)
	defer sess.Close()

	if err := sess.Start(ctx, created.SessionID); err != nil {
		return err
	}
	select {
	case <-sess.Done():
	case <-ctx.Done():
		sess.Close()
		fmt.Fprintln(cmd.ErrOrStderr(), "interrupted")
	}

	snap := sess.Snapshot()
	opts := render.DefaultOptions()
	expand, _ := cmd.Flags().GetBool("expand")
	opts.Collapse = !expand
	title := p.UserFacing.Title
	if title == "" {
		title = args[0]
	}
	fmt.Fprint(cmd.OutOrStdout(), render.Timeline(title, snap, opts))

	if path, _ := cmd.Flags().GetString("save"); path != "" {
		if err := replay.SaveRecording(path, snap.Export(&p)); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved %s\n", path)
	}
	if snap.State == core.StateFailed && snap.Failure != nil {
		return fmt.Errorf("research failed: %s", snap.Failure.Message)
	}
	return nil
}
