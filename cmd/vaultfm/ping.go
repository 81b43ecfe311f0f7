package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vaultfm/cache"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Verify the metadata store, object store, and cache backend are all reachable.",
	RunE:  runPing,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer a.close()

	fmt.Println("metadata store: ok")
	fmt.Println("object store: ok")
	redisStore, err := cache.NewRedisStore(a.cfg, 0)
	if err != nil {
		return fmt.Errorf("ping failed: cache backend: %w", err)
	}
	_ = redisStore.Close()
	fmt.Println("cache backend: ok")
	fmt.Printf("active key id: %s\n", a.keyProvider.ActiveKID())
	return nil
}
