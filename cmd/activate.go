package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/provider"
	"github.com/chukul/sessionctl/internal/session"
	"github.com/chukul/sessionctl/internal/ui"
)

var activateMFACode string

var activateCmd = &cobra.Command{
	Use:   "activate [session]",
	Short: "Activate a session and write its credentials",
	Long:  `Obtain credentials for a session and write them into the AWS credentials file under the session's alias. MFA is prompted only when the token cache cannot cover it.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		name, err := pickSession(app, args, func(s *session.Session) bool { return !s.Active }, "Select Session to Activate")
		if err != nil {
			return
		}

		s, err := runActivation(cmd.Context(), app, name, activateMFACode, "Activating session...")
		if err != nil {
			fmt.Printf("❌ Activation failed: %s\n", session.Reason(err))
			return
		}

		fmt.Printf("✅ Session '%s' is active\n", s.Alias)
		if s.ExpiresAt != nil {
			fmt.Printf("   Expires: %s\n", s.ExpiresAt.Local().Format(session.DisplayTimeFormat))
		}
		fmt.Printf("💡 Use it: aws --profile %s ...\n", s.Alias)
	},
}

// runActivation drives one activate call, prompting for an MFA code only if
// the manager says it needs one.
func runActivation(ctx context.Context, app *app, name, mfaCode, spinText string) (*session.Session, error) {
	res, err := ui.Spin(spinText, func() (any, error) {
		return app.manager.Activate(ctx, name, mfaCode)
	})
	if err == nil {
		return res.(*session.Session), nil
	}

	var perr *provider.Error
	if !errors.As(err, &perr) || perr.Kind != provider.KindMFARequired || mfaCode != "" {
		return nil, err
	}

	code, inputErr := promptMFACode()
	if inputErr != nil {
		return nil, inputErr
	}

	res, err = ui.Spin(spinText, func() (any, error) {
		return app.manager.Activate(ctx, name, code)
	})
	if err != nil {
		return nil, err
	}
	return res.(*session.Session), nil
}

// pickSession resolves the session argument, falling back to an interactive
// picker over the sessions matching the filter.
func pickSession(app *app, args []string, filter func(*session.Session) bool, title string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	var options []string
	for _, s := range app.manager.Sessions() {
		if filter == nil || filter(s) {
			options = append(options, s.Alias)
		}
	}
	if len(options) == 0 {
		fmt.Println("❌ No matching sessions found.")
		fmt.Println("💡 Add one: sessionctl session add --alias <name> --role <arn> --source <profile>")
		return "", fmt.Errorf("no sessions")
	}

	return ui.Select(title, options)
}

func init() {
	activateCmd.Flags().StringVar(&activateMFACode, "mfa", "", "MFA code (prompted when needed if omitted)")
	rootCmd.AddCommand(activateCmd)
}
