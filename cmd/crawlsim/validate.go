package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every content directory and check cross references",
		Long: `Loads behaviors, spells, scripts and NPC templates, then checks that
every template names a known behavior and every scripted spell has a cast routine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, _, stop, err := opts.start()
			if err != nil {
				return err
			}
			defer stop()

			var errs []error
			sp := eng.Spawner()
			for _, id := range sp.IDs() {
				t, _ := sp.Template(id)
				if t.Behavior == "" {
					continue
				}
				if _, ok := eng.Behaviors().Get(t.Behavior); !ok {
					errs = append(errs, fmt.Errorf("npc %q: unknown behavior %q", id, t.Behavior))
				}
			}
			for _, id := range eng.Catalog().IDs() {
				s, _ := eng.Catalog().Get(id)
				if s.Script != "" && !eng.HasScript(s.Script) {
					errs = append(errs, fmt.Errorf("spell %q: cast routine %q is not defined", id, s.Script))
				}
			}
			out := cmd.OutOrStdout()
			for _, err := range errs {
				fmt.Fprintf(out, "error: %v\n", err)
			}
			if len(errs) > 0 {
				return errors.Join(errs...)
			}
			fmt.Fprintf(out, "ok: %d behaviors, %d spells, %d npcs\n",
				eng.Behaviors().Len(), len(eng.Catalog().IDs()), len(sp.IDs()))
			return nil
		},
	}
}
