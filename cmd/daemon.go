package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	log "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background sweep daemon",
	Long: `The daemon periodically sweeps all sessions: expired ones are cleaned up,
auto-renew sessions are renewed before expiry, and the rest get a warning
shortly before they run out.`,
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sweep daemon",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		// Check if already running
		if _, err := os.Stat(app.cfg.DaemonPIDFile); err == nil {
			fmt.Println("❌ Daemon is already running (or pid file exists).")
			fmt.Println("💡 Use 'sessionctl daemon stop' first if you want to restart.")
			return
		}

		fmt.Printf("🚀 Starting sessionctl daemon (sweep every %s)...\n", app.cfg.SweepInterval)
		fmt.Printf("📝 Logs: %s\n", app.cfg.DaemonLogFile)

		// Runs in the foreground; background it with 'sessionctl daemon
		// start &' or the launchd setup below.
		runDaemonLoop(cmd, app)
	},
}

func runDaemonLoop(cmd *cobra.Command, app *app) {
	// Create PID file
	os.MkdirAll(filepath.Dir(app.cfg.DaemonPIDFile), 0700)
	os.WriteFile(app.cfg.DaemonPIDFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0600)
	defer os.Remove(app.cfg.DaemonPIDFile)

	logFile, err := os.OpenFile(app.cfg.DaemonLogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Printf("❌ Failed to open log file: %v\n", err)
		return
	}
	defer logFile.Close()

	logger := log.NewWithOptions(logFile, log.Options{ReportTimestamp: true})
	log.SetDefault(logger)
	logger.Info("daemon started", "interval", app.cfg.SweepInterval)

	ticker := time.NewTicker(app.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		app.manager.Sweep(cmd.Context())

		select {
		case <-ticker.C:
		case <-cmd.Context().Done():
			logger.Info("daemon stopped")
			return
		}
	}
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		data, err := os.ReadFile(app.cfg.DaemonPIDFile)
		if err != nil {
			fmt.Println("❌ Daemon is not running.")
			return
		}

		var pid int
		fmt.Sscanf(string(data), "%d", &pid)

		process, err := os.FindProcess(pid)
		if err != nil {
			fmt.Printf("❌ Could not find process %d\n", pid)
			os.Remove(app.cfg.DaemonPIDFile)
			return
		}

		fmt.Printf("🛑 Stopping sessionctl daemon (PID: %d)...\n", pid)
		process.Signal(os.Interrupt)
		os.Remove(app.cfg.DaemonPIDFile)
		fmt.Println("✅ Daemon stopped.")
	},
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check daemon status",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		if _, err := os.Stat(app.cfg.DaemonPIDFile); err != nil {
			fmt.Println("⚪ Daemon is NOT running.")
			return
		}

		data, _ := os.ReadFile(app.cfg.DaemonPIDFile)
		fmt.Printf("🟢 Daemon is running (PID: %s)\n", string(data))
	},
}

var daemonLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon logs",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := wireApp()
		if err != nil {
			fmt.Printf("❌ %v\n", err)
			return
		}

		data, err := os.ReadFile(app.cfg.DaemonLogFile)
		if err != nil {
			fmt.Println("❌ No logs found.")
			return
		}

		fmt.Println(string(data))
	},
}

var daemonSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Setup automatic startup on macOS",
	Run: func(cmd *cobra.Command, args []string) {
		if runtime.GOOS != "darwin" {
			fmt.Println("❌ Setup is only supported on macOS.")
			return
		}

		home, _ := os.UserHomeDir()
		execPath, _ := os.Executable()
		plistPath := filepath.Join(home, "Library/LaunchAgents/com.chukul.sessionctl.plist")

		plistContent := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.chukul.sessionctl</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
        <string>daemon</string>
        <string>start</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardOutPath</key>
    <string>%s/.sessionctl/daemon.stdout.log</string>
    <key>StandardErrorPath</key>
    <string>%s/.sessionctl/daemon.stderr.log</string>
</dict>
</plist>`, execPath, home, home)

		os.MkdirAll(filepath.Dir(plistPath), 0755)
		err := os.WriteFile(plistPath, []byte(plistContent), 0644)
		if err != nil {
			fmt.Printf("❌ Failed to create plist: %v\n", err)
			return
		}

		fmt.Println("✅ LaunchAgent plist created.")
		fmt.Println("🚀 To enable, run:")
		fmt.Printf("   launchctl load %s\n", plistPath)
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	daemonCmd.AddCommand(daemonStatusCmd)
	daemonCmd.AddCommand(daemonLogsCmd)
	daemonCmd.AddCommand(daemonSetupCmd)

	rootCmd.AddCommand(daemonCmd)
}
