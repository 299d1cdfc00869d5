package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <session>",
	Short: "Export a session's credentials as environment variables",
	Long: `Print shell export lines for an active session. Use with eval:
  eval $(sessionctl export prod-admin)`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		s, ok := app.manager.Find(args[0])
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", args[0])
			return
		}

		creds, ok := app.files.Section(s.Alias)
		if !ok {
			fmt.Printf("❌ No credentials in the file for '%s'\n", s.Alias)
			fmt.Printf("💡 Activate it first: sessionctl activate %s\n", s.Alias)
			return
		}

		// Output shell-compatible export commands
		fmt.Printf("export AWS_ACCESS_KEY_ID=%s\n", creds.AccessKeyID)
		fmt.Printf("export AWS_SECRET_ACCESS_KEY=%s\n", creds.SecretAccessKey)
		if creds.SessionToken != "" {
			fmt.Printf("export AWS_SESSION_TOKEN=%s\n", creds.SessionToken)
		}
		if s.Region != "" {
			fmt.Printf("export AWS_DEFAULT_REGION=%s\n", s.Region)
		}
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}
