package cmd

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate shell integration code",
	Long:  `Generate shell integration code to simplify sessionctl usage. Add the output to your shell config file.`,
	Run: func(cmd *cobra.Command, args []string) {
		shell := detectShell()

		fmt.Printf("# SessionCtl Shell Integration for %s\n", shell)
		fmt.Println("# Add this to your shell config file:")
		fmt.Println("# - Bash: ~/.bashrc or ~/.bash_profile")
		fmt.Println("# - Zsh: ~/.zshrc")
		fmt.Println("# - Fish: ~/.config/fish/config.fish")
		fmt.Println()

		switch shell {
		case "bash", "zsh":
			printBashZshIntegration()
		case "fish":
			printFishIntegration()
		default:
			printBashZshIntegration()
		}
	},
}

func detectShell() string {
	shell := os.Getenv("SHELL")
	if shell == "" {
		if runtime.GOOS == "windows" {
			return "powershell"
		}
		return "bash"
	}

	// Extract shell name from path
	for i := len(shell) - 1; i >= 0; i-- {
		if shell[i] == '/' || shell[i] == '\\' {
			return shell[i+1:]
		}
	}
	return shell
}

func printBashZshIntegration() {
	fmt.Println(`# Quick export function - usage: sce <session>
sce() {
  eval $(sessionctl export "$1")
}

# Show current session in prompt (optional)
sessionctl_prompt() {
  sessionctl prompt 2>/dev/null
}

# Add to your PS1 (Bash) or PROMPT (Zsh):
# PS1='$(sessionctl_prompt) \u@\h:\w\$ '
# PROMPT='$(sessionctl_prompt) %n@%m:%~%# '

# Aliases for common commands
alias sca='sessionctl activate'
alias scd='sessionctl deactivate'
alias scr='sessionctl renew'
alias scst='sessionctl status'
alias scc='sessionctl console'`)
}

func printFishIntegration() {
	fmt.Println(`# Quick export function - usage: sce <session>
function sce
    eval (sessionctl export $argv[1])
end

# Show current session in prompt (optional)
function fish_prompt
    set_color green
    sessionctl prompt 2>/dev/null
    set_color normal
    echo -n ' '
    set_color blue
    echo -n (whoami)@(hostname):(prompt_pwd)
    set_color normal
    echo -n '> '
end

# Aliases for common commands
alias sca='sessionctl activate'
alias scd='sessionctl deactivate'
alias scr='sessionctl renew'
alias scst='sessionctl status'
alias scc='sessionctl console'`)
}

func init() {
	rootCmd.AddCommand(initCmd)
}
