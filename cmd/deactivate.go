package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [session]",
	Short: "Deactivate a session and remove its credentials",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		name, err := pickSession(app, args, func(s *session.Session) bool { return s.Active }, "Select Session to Deactivate")
		if err != nil {
			return
		}

		s, err := app.manager.Deactivate(cmd.Context(), name)
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}
		fmt.Printf("✅ Session '%s' deactivated\n", s.Alias)
	},
}

func init() {
	rootCmd.AddCommand(deactivateCmd)
}
