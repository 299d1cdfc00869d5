package cmd

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/chukul/sessionctl/internal/ui"
)

// promptMFACode asks for an MFA code interactively. Refuses when stdin is
// not a terminal so scripts fail fast instead of hanging on a prompt.
func promptMFACode() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("an MFA code is required; pass it with --mfa")
	}

	code, err := ui.Input("Enter MFA Code", "123456", true)
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("empty MFA code")
	}
	return code, nil
}
