package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cory-johannsen/crawl/internal/game/world"
)

func newRunCmd(opts *options) *cobra.Command {
	var (
		turns  int
		heroHP int
		allies []string
	)
	cmd := &cobra.Command{
		Use:   "run <npc> [npc...]",
		Short: "Run world turns with a passive hero surrounded by NPC templates",
		Long: `Places a hero who never acts in the middle of a small room, spawns each
named NPC template around it and runs the turn scheduler until the hero
falls or the turn limit is reached.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, logger, stop, err := opts.start()
			if err != nil {
				return err
			}
			defer stop()

			out := cmd.OutOrStdout()
			w := eng.NewWorld(15, 15, messageLog(out, logger))
			center := world.Position{X: 7, Y: 7}
			hero := w.Spawn(world.ActorSpec{
				Name:     "Hero",
				Player:   true,
				Position: center,
				Health:   &world.Health{HP: heroHP, MaxHP: heroHP},
				Stats:    &world.Stats{},
			})

			ring := []world.Position{
				{X: 2, Y: 2}, {X: 12, Y: 2}, {X: 2, Y: 12}, {X: 12, Y: 12},
				{X: 7, Y: 1}, {X: 1, Y: 7}, {X: 13, Y: 7}, {X: 7, Y: 13},
			}
			for i, id := range args {
				if _, err := eng.Spawner().Spawn(w, id, ring[i%len(ring)]); err != nil {
					return err
				}
			}
			for i, id := range allies {
				p := world.Position{X: center.X - 1 + i%3, Y: center.Y + 1}
				if _, err := eng.Spawner().SpawnSummon(w, id, p, world.Summon{Summoner: hero.ID(), Remaining: turns + 1}); err != nil {
					return err
				}
			}

			s := eng.Scheduler(w)
			acted := 0
			for i := 0; i < turns && hero.IsAlive(); i++ {
				rep := eng.RunTurn(cmd.Context(), s)
				acted += len(rep.Actions)
			}
			fmt.Fprintf(out, "turns: %d, actions: %d, hero hp: %d/%d, actors left: %d\n",
				w.Turn(), acted, hero.Health().HP, hero.Health().MaxHP, w.Len())
			return nil
		},
	}
	cmd.Flags().IntVar(&turns, "turns", 20, "maximum number of world turns")
	cmd.Flags().IntVar(&heroHP, "hero-hp", 60, "hero hit points")
	cmd.Flags().StringSliceVar(&allies, "ally", nil, "ally template summoned beside the hero (repeatable)")
	return cmd
}
