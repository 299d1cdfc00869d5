package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var (
	addAlias       string
	addKind        string
	addRegion      string
	addAccount     string
	addRoleArn     string
	addMFASerial   string
	addSource      string
	addBypassCache bool
	addAutoRenew   bool
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage configured sessions",
	Long:  `Create, list, and remove the named sessions this tool manages. A session describes how credentials are obtained; activate/deactivate drive its lifecycle.`,
}

var sessionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new session",
	Run: func(cmd *cobra.Command, args []string) {
		if addAlias == "" {
			fmt.Println("❌ --alias is required")
			return
		}

		kind := session.Kind(addKind)
		switch kind {
		case session.KindDirect, session.KindSSO:
		case session.KindAssumedRole:
			if addRoleArn == "" || addSource == "" {
				fmt.Println("❌ assumed-role sessions need --role and --source")
				return
			}
		default:
			fmt.Printf("❌ Unknown kind '%s' (use direct, assumed-role, or sso)\n", addKind)
			return
		}

		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		s := &session.Session{
			ID:               newSessionID(),
			Alias:            addAlias,
			Kind:             kind,
			Region:           addRegion,
			AccountID:        addAccount,
			RoleArn:          addRoleArn,
			MFASerial:        addMFASerial,
			SourceIdentity:   addSource,
			BypassTokenCache: addBypassCache,
			AutoRenew:        addAutoRenew,
		}

		if err := app.registry.Put(s); err != nil {
			fmt.Printf("❌ Failed to save session: %v\n", err)
			return
		}

		fmt.Printf("✅ Session '%s' added (%s)\n", s.Alias, s.Kind)
		if s.Kind == session.KindAssumedRole {
			fmt.Printf("   Role: %s\n", s.RoleArn)
			fmt.Printf("💡 Activate it: sessionctl activate %s\n", s.Alias)
		}
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sessions",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		sessions := app.manager.Sessions()
		if len(sessions) == 0 {
			fmt.Println("No sessions configured.")
			return
		}
		for _, s := range sessions {
			target := s.RoleArn
			if target == "" {
				target = s.SourceIdentity
			}
			fmt.Printf("• %s (%s) %s\n", s.Alias, s.Kind, target)
		}
	},
}

var sessionRemoveCmd = &cobra.Command{
	Use:   "remove <session>",
	Short: "Remove a session",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		s, ok := app.registry.Find(args[0])
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", args[0])
			return
		}

		// Active sessions keep credentials in the file; deactivate first so
		// nothing is left behind.
		if s.Active {
			if _, err := app.manager.Deactivate(cmd.Context(), s.ID); err != nil {
				fmt.Printf("❌ Failed to deactivate before removal: %v\n", err)
				return
			}
		}

		if err := app.registry.Remove(s.ID); err != nil {
			fmt.Printf("❌ Failed to remove session: %v\n", err)
			return
		}
		fmt.Printf("✅ Session '%s' removed\n", s.Alias)
	},
}

var sessionLogCmd = &cobra.Command{
	Use:   "log <session>",
	Short: "Show a session's activity log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		s, ok := app.registry.Find(args[0])
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", args[0])
			return
		}

		if len(s.ActivityLog) == 0 {
			fmt.Println("No activity recorded.")
			return
		}
		for _, entry := range s.ActivityLog {
			fmt.Printf("[%s] %s\n", entry.Time.Local().Format(session.DisplayTimeFormat), entry.Message)
		}
	},
}

var sessionClearLogCmd = &cobra.Command{
	Use:   "clear-log <session>",
	Short: "Clear a session's activity log",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		s, ok := app.registry.Find(args[0])
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", args[0])
			return
		}

		s.ClearLog()
		if err := app.registry.Put(s); err != nil {
			fmt.Printf("❌ Failed to save session: %v\n", err)
			return
		}
		fmt.Printf("✅ Activity log cleared for '%s'\n", s.Alias)
	},
}

func newSessionID() string {
	buf := make([]byte, 8)
	rand.Read(buf)
	return "s-" + hex.EncodeToString(buf)
}

func init() {
	sessionAddCmd.Flags().StringVar(&addAlias, "alias", "", "Unique session alias (also the credentials-file section name)")
	sessionAddCmd.Flags().StringVar(&addKind, "kind", "assumed-role", "Session kind: direct, assumed-role, or sso")
	sessionAddCmd.Flags().StringVar(&addRegion, "region", "", "Default region for this session")
	sessionAddCmd.Flags().StringVar(&addAccount, "account", "", "Account ID (informational)")
	sessionAddCmd.Flags().StringVar(&addRoleArn, "role", "", "Role ARN to assume")
	sessionAddCmd.Flags().StringVar(&addMFASerial, "mfa-serial", "", "MFA device serial or ARN")
	sessionAddCmd.Flags().StringVar(&addSource, "source", "", "Source profile used to assume the role")
	sessionAddCmd.Flags().BoolVar(&addBypassCache, "bypass-cache", false, "Always prompt for MFA; keep credentials console-compatible")
	sessionAddCmd.Flags().BoolVar(&addAutoRenew, "auto-renew", false, "Let the daemon renew this session before expiry")

	sessionCmd.AddCommand(sessionAddCmd)
	sessionCmd.AddCommand(sessionListCmd)
	sessionCmd.AddCommand(sessionRemoveCmd)
	sessionCmd.AddCommand(sessionLogCmd)
	sessionCmd.AddCommand(sessionClearLogCmd)
	rootCmd.AddCommand(sessionCmd)
}
