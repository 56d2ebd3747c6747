package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/gameharvest/internal/engine"
)

// runCmd creates the "run" subcommand.
func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run discovery, harvest, merge and patch in sequence",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, stop, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer stop()
			defer a.close()

			sum, err := a.engine.Run(ctx)
			if sum != nil {
				sum.Print(os.Stdout)
			}
			if err != nil {
				if engine.IsStopped(err) {
					a.logger.Warn("run stopped early; earlier stage files are kept", "output", a.cfg.Storage.OutputDir)
				}
				return err
			}
			return nil
		},
	}
}

// discoverCmd creates the "discover" subcommand.
func discoverCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Collect game links from the listing page",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, stop, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer stop()
			defer a.close()

			home, err := a.engine.Discover(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Discovered %d games\n", len(home))
			return nil
		},
	}
}

// harvestCmd creates the "harvest" subcommand.
func harvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Visit every discovered game page and extract details",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, stop, err := newApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer stop()
			defer a.close()

			home, err := a.engine.LoadHomepage()
			if err != nil {
				return err
			}
			detail, failures, err := a.engine.Harvest(ctx, home)
			if err != nil {
				return err
			}
			fmt.Printf("Harvested %d games, %d failed\n", len(detail), len(failures))
			for _, f := range failures {
				fmt.Printf("  - %s (%s)\n", f.URL, f.Kind)
			}
			return nil
		},
	}
}

// mergeCmd creates the "merge" subcommand.
func mergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge",
		Short: "Join both passes and export the catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, stop, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer stop()
			defer a.close()

			home, err := a.engine.LoadHomepage()
			if err != nil {
				return err
			}
			detail, err := a.engine.LoadDetail()
			if err != nil {
				return err
			}
			merged, err := a.engine.Merge(home, detail)
			if err != nil {
				return err
			}
			records, err := a.engine.Export(merged)
			if err != nil {
				return err
			}
			stats := a.engine.Stats()
			fmt.Printf("Merged %d games (%d orphan details dropped), exported %d\n",
				len(merged), stats.Orphans.Load(), len(records))
			return nil
		},
	}
}

// patchCmd creates the "patch" subcommand.
func patchCmd() *cobra.Command {
	var restore bool
	cmd := &cobra.Command{
		Use:   "patch",
		Short: "Patch the merged catalog into the data file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, ctx, stop, err := newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer stop()
			defer a.close()

			if restore {
				return a.engine.RestoreArtifact()
			}
			return runPatch(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&restore, "restore", false, "put the .backup copy back instead of patching")
	return cmd
}

func runPatch(ctx context.Context, a *app) error {
	merged, err := a.engine.LoadMerged()
	if err != nil {
		return err
	}
	records, err := a.engine.Export(merged)
	if err != nil {
		return err
	}
	res, err := a.engine.Patch(ctx, records)
	if err != nil {
		return err
	}
	fmt.Printf("Patched %d games into %s (backup: %s)\n", res.Records, res.Path, res.BackupPath)
	return nil
}
