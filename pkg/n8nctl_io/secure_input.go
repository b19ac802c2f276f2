// pkg/n8nctl_io/secure_input.go

package n8nctl_io

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

// MaxPasswordLength defines the maximum allowed password length.
const MaxPasswordLength = 256

// PromptSecurePassword reads a password from the terminal without echo.
// Fails when stdin is not a terminal so scripts cannot hang on the prompt.
func PromptSecurePassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set the value via environment or flag")
	}

	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	password := strings.TrimSpace(string(raw))
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("password too long (%d chars, max %d)", len(password), MaxPasswordLength)
	}
	if !utf8.ValidString(password) {
		return "", fmt.Errorf("password contains invalid UTF-8 sequences")
	}

	return password, nil
}
