package engines

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"
)

// killGrace is how long a subprocess gets to exit after SIGINT before it is
// killed.
const killGrace = 100 * time.Millisecond

// runCommand runs name with text pre-loaded on stdin and returns its combined
// output.
// When ctx is done the process is interrupted, then killed after killGrace.
func runCommand(ctx context.Context, name string, args []string, stdin string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec

	// Pre-configure stdin with the text so the process never waits on a
	// half-open pipe.
	cmd.Stdin = strings.NewReader(stdin)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	// Try graceful shutdown first
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = killGrace

	err := cmd.Run()
	if ctx.Err() != nil {
		return output.String(), ctx.Err()
	}
	return output.String(), err
}
