package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vaultfm",
	Short: "vaultfm is a content-addressed, encrypted music library engine.",
}
