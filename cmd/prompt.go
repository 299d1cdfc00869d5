package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Display current session info for shell prompt",
	Long:  `Display the session behind the current AWS environment, formatted for shell prompts. Matches AWS_ACCESS_KEY_ID against the active sessions.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Check if AWS credentials are set in environment
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		if accessKey == "" {
			return // No output if no credentials
		}

		current := currentSessionByKey(accessKey)
		if current == nil {
			return
		}

		if current.ExpiresAt == nil {
			fmt.Printf("☁️  %s", current.Alias)
			return
		}

		remaining := time.Until(*current.ExpiresAt)
		if remaining <= 0 {
			fmt.Printf("☁️  %s (expired)", current.Alias)
			return
		}

		// Format remaining time
		hours := int(remaining.Hours())
		minutes := int(remaining.Minutes()) % 60

		if hours > 0 {
			fmt.Printf("☁️  %s (%dh%dm)", current.Alias, hours, minutes)
		} else {
			fmt.Printf("☁️  %s (%dm)", current.Alias, minutes)
		}
	},
}

var promptInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Display detailed session info in JSON format",
	Run: func(cmd *cobra.Command, args []string) {
		accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
		if accessKey == "" {
			fmt.Println("{}")
			return
		}

		current := currentSessionByKey(accessKey)
		if current == nil {
			fmt.Println("{}")
			return
		}

		info := map[string]interface{}{
			"alias":    current.Alias,
			"kind":     current.Kind,
			"role_arn": current.RoleArn,
		}
		if current.ExpiresAt != nil {
			remaining := time.Until(*current.ExpiresAt)
			info["expiration"] = current.ExpiresAt.Format(time.RFC3339)
			info["remaining"] = int(remaining.Seconds())
			info["expired"] = remaining <= 0
		}

		output, _ := json.Marshal(info)
		fmt.Println(string(output))
	},
}

func currentSessionByKey(accessKey string) *session.Session {
	app, err := wireApp()
	if err != nil {
		return nil
	}

	for _, s := range app.manager.Sessions() {
		if s.Active && s.ActiveAccessKeyID == accessKey {
			return s
		}
	}
	return nil
}

func init() {
	promptCmd.AddCommand(promptInfoCmd)
	rootCmd.AddCommand(promptCmd)
}
