// Package cli holds helpers shared by the interactive command-line tools.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/MrSnakeDoc/hometools/internal/config"
)

// ResolveCredentials loads Instapaper credentials from the environment and
// prompts for anything missing. With noPrompt set it fails instead of
// prompting. The password prompt never echoes.
func ResolveCredentials(noPrompt bool) (config.Credentials, error) {
	creds := config.LoadCredentials()
	missing := creds.Missing()
	if len(missing) == 0 {
		return creds, nil
	}
	if noPrompt {
		return creds, fmt.Errorf("missing %s (set INSTAPAPER_* environment variables)", strings.Join(missing, ", "))
	}

	reader := bufio.NewReader(os.Stdin)
	if creds.ConsumerKey == "" {
		creds.ConsumerKey = promptLine(reader, "Instapaper API key: ")
	}
	if creds.ConsumerSecret == "" {
		creds.ConsumerSecret = promptLine(reader, "Instapaper API secret: ")
	}
	if creds.Username == "" {
		creds.Username = promptLine(reader, "Instapaper username (email): ")
	}
	if creds.Password == "" {
		fmt.Print("Instapaper password: ")
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return creds, fmt.Errorf("reading password: %w", err)
		}
		creds.Password = string(raw)
	}

	if missing := creds.Missing(); len(missing) > 0 {
		return creds, fmt.Errorf("still missing %s", strings.Join(missing, ", "))
	}
	return creds, nil
}

func promptLine(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
