package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var validateMFACode string

var validateCmd = &cobra.Command{
	Use:   "validate <session>",
	Short: "Check a session's configuration before relying on it",
	Long:  `Run the configuration checks for a session: source profile existence, source credential validity, ARN shapes, and a live role assumption. Pass --mfa to test MFA-protected roles end to end.`,
	Args:  cobra.ExactArgs(1),
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

		fmt.Printf("Validating session '%s'...\n\n", s.Alias)
		report := app.validator.Validate(cmd.Context(), s, validateMFACode)

		for _, res := range report.Results {
			switch res.Severity {
			case session.SeverityOK:
				fmt.Printf("  %s %-18s %s\n", color.GreenString("✔"), res.Check, res.Detail)
			case session.SeverityWarning:
				fmt.Printf("  %s %-18s %s\n", color.YellowString("!"), res.Check, res.Detail)
			case session.SeverityError:
				fmt.Printf("  %s %-18s %s\n", color.RedString("✘"), res.Check, res.Detail)
			}
		}

		fmt.Println()
		if report.Valid() {
			fmt.Printf("✅ Session '%s' looks good\n", s.Alias)
		} else {
			fmt.Printf("❌ Session '%s' has configuration problems\n", s.Alias)
		}
	},
}

func init() {
	validateCmd.Flags().StringVar(&validateMFACode, "mfa", "", "MFA code for the live role assumption check")
	rootCmd.AddCommand(validateCmd)
}
