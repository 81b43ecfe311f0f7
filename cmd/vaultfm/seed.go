package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed <release-id>",
	Short: "Pin every block of a release in the cache so it survives eviction.",
	Long:  "Seeding never decrypts; it makes a release's encrypted blocks locally resident for an external acquisition subsystem (§5).",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeed,
}

var unseedCmd = &cobra.Command{
	Use:   "unseed <release-id>",
	Short: "Unpin a release's blocks, letting the cache evict them under normal LRU pressure again.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUnseed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(unseedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	releaseID := args[0]
	ctx := context.Background()
	ids, err := a.blocks.ListIDsByRelease(ctx, releaseID)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("release %s has no persisted blocks", releaseID)
	}
	if err := a.engine.Seed(ctx, ids); err != nil {
		return fmt.Errorf("seed release %s: %w", releaseID, err)
	}
	fmt.Printf("seeded %d block(s) for release %s\n", len(ids), releaseID)
	return nil
}

func runUnseed(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	releaseID := args[0]
	ids, err := a.blocks.ListIDsByRelease(context.Background(), releaseID)
	if err != nil {
		return err
	}
	a.engine.Unseed(ids)
	fmt.Printf("unseeded %d block(s) for release %s\n", len(ids), releaseID)
	return nil
}
