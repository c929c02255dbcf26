package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/sinopehome/gt125/internal/protocol"
)

// ErrNoTerminal is returned when a secret is needed but stdin is not a TTY.
var ErrNoTerminal = errors.New("api_key is not set and stdin is not a terminal")

// EnsureAPIKey prompts for the API key on the terminal when the file does not
// hold one. The prompted key is kept in memory only.
func (c *Config) EnsureAPIKey(out io.Writer) error {
	if c.Gateway.APIKey != "" {
		return nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return ErrNoTerminal
	}
	fmt.Fprint(out, "Gateway API key (16 hex digits): ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("failed to read api key: %w", err)
	}
	return c.setAPIKey(string(raw))
}

// ReadAPIKey reads the key from a non-terminal reader, one line.
func (c *Config) ReadAPIKey(r io.Reader) error {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read api key: %w", err)
	}
	return c.setAPIKey(line)
}

func (c *Config) setAPIKey(s string) error {
	s = strings.TrimSpace(s)
	key, err := protocol.ParseCredential(s)
	if err != nil {
		return fmt.Errorf("api key: %w", err)
	}
	c.Gateway.APIKey = key.String()
	return nil
}
