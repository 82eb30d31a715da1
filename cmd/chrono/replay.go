package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/agenthands/chrono/internal/replay"
)

var replayCmd = &cobra.Command{
	Use:   "replay <recording.json>",
	Short: "Serve a recorded session as a research backend",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().String("port", "", "listen port (default from config)")
	replayCmd.Flags().Duration("delay", 0, "pause between events (default from config)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	rec, err := replay.LoadRecording(args[0])
	if err != nil {
		return err
	}

	port := cfg.Replay.Port
	if p, _ := cmd.Flags().GetString("port"); p != "" {
		port = p
	}
	delay := cfg.EventDelay()
	if cmd.Flags().Changed("delay") {
		delay, _ = cmd.Flags().GetDuration("delay")
	}

	gin.SetMode(gin.ReleaseMode)
	srv := replay.NewServer(rec, replay.WithEventDelay(delay), replay.WithLogger(logger))
	log.Printf("Replaying %s (%d nodes) on port %s", args[0], len(rec.Nodes), port)
	return srv.SetupRouter().Run(":" + port)
}
