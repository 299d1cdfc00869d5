package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the MFA token cache",
	Long:  `Inspect and clean the cache of MFA-derived session tokens. Clearing it forces a fresh MFA prompt on the next activation; live session credentials are untouched.`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop expired cached tokens",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		dropped := app.cache.PruneExpired()
		fmt.Printf("✅ Pruned %d expired token(s), %d remaining\n", dropped, app.cache.Len())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the entire token cache",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		if err := app.cache.Clear(); err != nil {
			fmt.Printf("❌ Failed to clear cache: %v\n", err)
			return
		}
		fmt.Println("✅ Token cache cleared.")
		fmt.Println("💡 The next activation will prompt for an MFA code.")
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}
