package resolver

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// CommandResolver runs an external extractor with the source URL as its last
// argument and uses the first non-empty line of its output.
type CommandResolver struct {
	name string
	args []string
}

// NewCommandResolver parses a command line such as "yt-dlp --get-url -f best".
func NewCommandResolver(command string) (*CommandResolver, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty resolver command")
	}
	return &CommandResolver{name: fields[0], args: fields[1:]}, nil
}

// Resolve implements Resolver.
func (c *CommandResolver) Resolve(ctx context.Context, sourceURL string) (string, error) {
	args := append(append([]string{}, c.args...), sourceURL)
	cmd := exec.CommandContext(ctx, c.name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("run %s: %w: %s", c.name, err, msg)
		}
		return "", fmt.Errorf("run %s: %w", c.name, err)
	}

	sc := bufio.NewScanner(&stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			return line, nil
		}
	}
	return "", ErrNoMedia
}
