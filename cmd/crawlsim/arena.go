package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/crawl/internal/game/fx"
	"github.com/cory-johannsen/crawl/internal/game/world"
)

func newArenaCmd(opts *options) *cobra.Command {
	var effects bool
	cmd := &cobra.Command{
		Use:   "arena <npc> <npc> [npc...]",
		Short: "Run an arena duel between NPC templates",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, logger, stop, err := opts.start()
			if err != nil {
				return err
			}
			defer stop()

			out := cmd.OutOrStdout()
			w := eng.NewWorld(len(args)*4+4, 9, messageLog(out, logger))
			var fighters []*world.Actor
			for i, id := range args {
				a, err := eng.Spawner().Spawn(w, id, world.Position{X: 2 + i*4, Y: 4})
				if err != nil {
					return err
				}
				fighters = append(fighters, a)
			}

			var sink fx.Sink
			if effects {
				sink = fx.Logger{L: logger.Named("fx")}
			}
			m, err := eng.NewArena(w, fighters, sink)
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			res, err := m.Run(ctx)
			if err != nil {
				return fmt.Errorf("arena interrupted: %w", err)
			}
			if res.Draw {
				fmt.Fprintf(out, "draw after %d ticks (match %s)\n", res.Ticks, res.MatchID)
			} else {
				fmt.Fprintf(out, "winner: %s after %d ticks (match %s)\n", res.WinnerName, res.Ticks, res.MatchID)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&effects, "effects", false, "log visual effects at debug level")
	return cmd
}
