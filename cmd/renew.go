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

var renewMFACode string

var renewCmd = &cobra.Command{
	Use:   "renew [session]",
	Short: "Renew a session's credentials",
	Long:  `Deactivate and re-activate a session in one step, replacing its credentials with fresh ones. With a warm token cache no MFA prompt is needed.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		name, err := pickSession(app, args, func(s *session.Session) bool { return s.Active }, "Select Session to Renew")
		if err != nil {
			return
		}

		s, err := runRenewal(cmd.Context(), app, name, renewMFACode)
		if err != nil {
			fmt.Printf("❌ Renewal failed: %s\n", session.Reason(err))
			return
		}

		fmt.Printf("✅ Session '%s' renewed\n", s.Alias)
		if s.ExpiresAt != nil {
			fmt.Printf("   Expires: %s\n", s.ExpiresAt.Local().Format(session.DisplayTimeFormat))
		}
	},
}

func runRenewal(ctx context.Context, app *app, name, mfaCode string) (*session.Session, error) {
	res, err := ui.Spin("Renewing session...", func() (any, error) {
		return app.manager.Renew(ctx, name, mfaCode)
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

	res, err = ui.Spin("Renewing session...", func() (any, error) {
		return app.manager.Renew(ctx, name, code)
	})
	if err != nil {
		return nil, err
	}
	return res.(*session.Session), nil
}

func init() {
	renewCmd.Flags().StringVar(&renewMFACode, "mfa", "", "MFA code (prompted when needed if omitted)")
	rootCmd.AddCommand(renewCmd)
}
