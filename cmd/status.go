package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/session"
)

var (
	statusFilter string
	statusJSON   bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show all sessions with state, expiration, and remaining time",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		sessions := app.manager.Sessions()
		if len(sessions) == 0 {
			fmt.Println("No sessions configured.")
			fmt.Println("💡 Add one: sessionctl session add --alias <name> --role <arn> --source <profile>")
			return
		}

		// Filter by alias if provided
		if statusFilter != "" {
			filtered := []*session.Session{}
			for _, s := range sessions {
				if s.Alias == statusFilter {
					filtered = append(filtered, s)
				}
			}
			sessions = filtered
			if len(sessions) == 0 {
				fmt.Printf("No session found with alias: %s\n", statusFilter)
				return
			}
		}

		// Optional JSON output
		if statusJSON {
			jsonData, _ := json.MarshalIndent(sessions, "", "  ")
			fmt.Println(string(jsonData))
			return
		}

		// Fancy table header
		header := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("%-20s %-14s %-50s %-21s %-12s %-14s\n",
			header("ALIAS"), header("KIND"), header("ROLE / SOURCE"), header("EXPIRATION"), header("REMAINING"), header("STATUS"))
		fmt.Println(strings.Repeat("-", 135))

		now := time.Now()
		for _, s := range sessions {
			var statusColor func(a ...interface{}) string
			st := s.Status(now)
			switch st {
			case session.StatusActive:
				statusColor = color.New(color.FgGreen).SprintFunc()
			case session.StatusExpiringSoon:
				statusColor = color.New(color.FgYellow).SprintFunc()
			default:
				statusColor = color.New(color.FgRed).SprintFunc()
			}

			target := s.RoleArn
			if target == "" {
				target = s.SourceIdentity
			}

			exp := "-"
			remaining := "-"
			if s.ExpiresAt != nil {
				exp = s.ExpiresAt.Local().Format(session.DisplayTimeFormat)
				diff := s.ExpiresAt.Sub(now)
				if diff <= 0 {
					remaining = "Expired"
				} else {
					h := int(diff.Hours())
					m := int(diff.Minutes()) % 60
					remaining = fmt.Sprintf("%dh%dm left", h, m)
				}
			}

			marker := ""
			if s.Active && app.files.IsDefault(s.Alias) {
				marker = " *"
			}

			fmt.Printf("%-20s %-14s %-50s %-21s %-12s %-14s\n",
				s.Alias+marker,
				string(s.Kind),
				truncateText(target, 48),
				exp,
				remaining,
				statusColor(strings.ToUpper(string(st))),
			)
		}
		fmt.Println("\n* = current default profile")
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "session", "", "Show only this session")
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output results in JSON format for automation")
	rootCmd.AddCommand(statusCmd)
}

func truncateText(text string, max int) string {
	if len(text) > max {
		return text[:max-3] + "..."
	}
	return text
}
