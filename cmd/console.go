package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var (
	consoleOpen   bool
	consoleRegion string
)

var consoleCmd = &cobra.Command{
	Use:   "console [session]",
	Short: "Generate an AWS console sign-in URL from an active session",
	Long:  `Exchange an active session's credentials for a federation sign-in URL. Only sessions created with --bypass-cache qualify: credentials derived from a cached session token cannot be federated.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		name, err := pickSession(app, args, func(s *session.Session) bool {
			return s.Active && s.Kind == session.KindAssumedRole && s.BypassTokenCache
		}, "Select Session for Console Access")
		if err != nil {
			return
		}

		s, ok := app.manager.Find(name)
		if !ok {
			fmt.Printf("❌ Session '%s' not found\n", name)
			return
		}

		if s.Kind != session.KindAssumedRole {
			fmt.Println("❌ Only assumed-role sessions can open the console.")
			return
		}
		if !s.BypassTokenCache {
			// Role credentials chained off a GetSessionToken result are
			// rejected by the federation endpoint.
			fmt.Println("❌ This session's credentials cannot be federated.")
			fmt.Println("💡 Recreate it with --bypass-cache to enable console access:")
			fmt.Printf("   sessionctl session add --alias %s-console --role %s --source %s --mfa-serial %s --bypass-cache\n",
				s.Alias, s.RoleArn, s.SourceIdentity, s.MFASerial)
			return
		}
		if s.Status(time.Now()) == session.StatusInactive {
			fmt.Printf("❌ Session '%s' is not active or has expired.\n", s.Alias)
			fmt.Printf("💡 sessionctl renew %s\n", s.Alias)
			return
		}

		creds, ok := app.files.Section(s.Alias)
		if !ok {
			fmt.Printf("❌ No credentials in the file for '%s'\n", s.Alias)
			return
		}

		// Create session JSON
		sessionJSON := map[string]string{
			"sessionId":    creds.AccessKeyID,
			"sessionKey":   creds.SecretAccessKey,
			"sessionToken": creds.SessionToken,
		}

		sessionData, _ := json.Marshal(sessionJSON)

		// Get signin token
		fmt.Println("🔐 Getting sign-in token...")
		federationURL := "https://signin.aws.amazon.com/federation"
		params := url.Values{}
		params.Add("Action", "getSigninToken")
		params.Add("Session", string(sessionData))

		resp, err := http.Get(fmt.Sprintf("%s?%s", federationURL, params.Encode()))
		if err != nil {
			fmt.Printf("❌ Failed to get sign-in token: %v\n", err)
			return
		}
		defer resp.Body.Close()

		body, _ := io.ReadAll(resp.Body)
		var tokenResp map[string]string
		if err := json.Unmarshal(body, &tokenResp); err != nil {
			fmt.Printf("❌ Failed to parse token response: %v\n", err)
			return
		}

		signinToken := tokenResp["SigninToken"]
		if signinToken == "" {
			fmt.Println("❌ Failed to get sign-in token")
			return
		}

		// Build console URL
		region := consoleRegion
		if region == "" {
			region = s.Region
		}
		destination := "https://console.aws.amazon.com/"
		if region != "" {
			destination = fmt.Sprintf("https://%s.console.aws.amazon.com/console/home?region=%s", region, region)
		}
		consoleURL := fmt.Sprintf("%s?Action=login&Issuer=sessionctl&Destination=%s&SigninToken=%s",
			federationURL, url.QueryEscape(destination), signinToken)

		fmt.Printf("\n✅ Console URL generated for session '%s'\n", s.Alias)
		fmt.Printf("   Role: %s\n", s.RoleArn)
		if s.ExpiresAt != nil {
			fmt.Printf("   Expires: %s\n\n", s.ExpiresAt.Local().Format(session.DisplayTimeFormat))
		}

		if consoleOpen {
			fmt.Println("🌐 Opening AWS Console in browser...")
			if err := openBrowser(consoleURL); err != nil {
				fmt.Printf("❌ Failed to open browser: %v\n", err)
				fmt.Printf("\nPlease open this URL manually:\n%s\n", consoleURL)
			}
		} else {
			fmt.Printf("Console URL:\n%s\n", consoleURL)
		}
	},
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func init() {
	consoleCmd.Flags().BoolVar(&consoleOpen, "open", false, "Automatically open URL in browser")
	consoleCmd.Flags().StringVar(&consoleRegion, "region", "", "AWS region for the console destination")
	rootCmd.AddCommand(consoleCmd)
}
