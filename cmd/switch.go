package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/credfile"
	"github.com/chukul/sessionctl/internal/session"
)

var switchCmd = &cobra.Command{
	Use:   "switch [session]",
	Short: "Make a session the default AWS profile",
	Long:  `Copy an active session's credentials into the [default] section of the credentials file so tools that don't take --profile use it.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		name, err := pickSession(app, args, func(s *session.Session) bool { return s.Active }, "Select Session to Switch To")
		if err != nil {
			return
		}

		s, ok := app.manager.Find(name)
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", name)
			return
		}
		if !s.Active {
			fmt.Printf("❌ Session '%s' is not active\n", s.Alias)
			fmt.Printf("💡 Activate it first: sessionctl activate %s\n", s.Alias)
			return
		}

		if err := app.files.SetDefault(s.Alias); err != nil {
			if errors.Is(err, credfile.ErrSectionNotFound) {
				fmt.Printf("❌ No credentials found under [%s]\n", s.Alias)
				fmt.Printf("💡 Re-activate the session: sessionctl renew %s\n", s.Alias)
				return
			}
			fmt.Printf("❌ Failed to update default profile: %v\n", err)
			return
		}

		fmt.Printf("✅ '%s' is now the default profile\n", s.Alias)
	},
}

func init() {
	rootCmd.AddCommand(switchCmd)
}
