package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var reassembleOutPath string

var reassembleCmd = &cobra.Command{
	Use:   "reassemble <track-id>",
	Short: "Reassemble a track's exact playable byte payload and write it to a file.",
	Args:  cobra.ExactArgs(1),
	RunE:  runReassemble,
}

func init() {
	reassembleCmd.Flags().StringVar(&reassembleOutPath, "out", "", "output file path (required)")
	_ = reassembleCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(reassembleCmd)
}

func runReassemble(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	trackID := args[0]
	payload, err := a.reassembler.Reassemble(context.Background(), trackID)
	if err != nil {
		return fmt.Errorf("reassemble track %s: %w", trackID, err)
	}

	if err := os.WriteFile(reassembleOutPath, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", reassembleOutPath, err)
	}
	fmt.Printf("track %s reassembled: %d bytes written to %s\n", trackID, len(payload), reassembleOutPath)
	return nil
}
