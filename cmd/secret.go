package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chukul/sessionctl/internal/secret"
	"github.com/chukul/sessionctl/internal/ui"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Manage the cache encryption secret",
	Long:  `Manage the secret that seals the MFA token cache when encrypt_cache is enabled.`,
}

var secretShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current keychain secret",
	Long:  "Reveal the secret stored in your macOS Keychain. Usage of this command requires Touch ID authentication.",
	Run: func(cmd *cobra.Command, args []string) {
		if !secret.IsMacOS() {
			fmt.Println("❌ Keychain integration is only available on macOS")
			return
		}

		// Re-authentication implicitly handled by System Keychain access control
		// When we request the item, OS will prompt user
		key, err := secret.Get("")
		if err != nil {
			fmt.Println("❌ No secret found in Keychain or it couldn't be accessed.")
			return
		}

		fmt.Println("🔐 Your SessionCtl Cache Secret:")
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println(key)
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println("\n⚠️  KEEP THIS SAFE! You will need it to read the cache on another machine.")
		fmt.Println("   To restore: sessionctl secret import <key>")
	},
}

var secretImportCmd = &cobra.Command{
	Use:   "import [key]",
	Short: "Import a secret into keychain",
	Long:  "Save an existing secret key into your macOS Keychain for passwordless operation.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if !secret.IsMacOS() {
			fmt.Println("❌ Keychain integration is only available on macOS")
			return
		}

		var key string
		if len(args) > 0 {
			key = args[0]
		} else {
			var err error
			key, err = ui.Input("Enter Secret Key to Import", "", true)
			if err != nil {
				return
			}
		}

		if key == "" {
			fmt.Println("❌ Secret key cannot be empty")
			return
		}

		if err := secret.StoreKeychainSecret(key); err != nil {
			fmt.Printf("❌ Failed to store secret: %v\n", err)
			return
		}

		fmt.Println("✅ Secret imported successfully to Keychain!")
	},
}

var secretSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Generate a secret and store it in keychain",
	Run: func(cmd *cobra.Command, args []string) {
		if !secret.IsMacOS() {
			fmt.Println("❌ Keychain integration is only available on macOS")
			fmt.Println("💡 Set SESSIONCTL_SECRET in your shell instead.")
			return
		}

		key, err := secret.SetupKeychain()
		if err != nil {
			fmt.Printf("❌ Failed to set up keychain secret: %v\n", err)
			return
		}

		fmt.Println("✅ Secret generated and stored in Keychain.")
		fmt.Println("🔐 Back it up somewhere safe:")
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println(key)
		fmt.Println(strings.Repeat("─", 64))
		fmt.Println("\n💡 Enable cache encryption in ~/.sessionctl/config.yaml:")
		fmt.Println("   encrypt_cache: true")
	},
}

func init() {
	secretCmd.AddCommand(secretShowCmd)
	secretCmd.AddCommand(secretImportCmd)
	secretCmd.AddCommand(secretSetupCmd)
	rootCmd.AddCommand(secretCmd)
}
