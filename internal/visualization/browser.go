package visualization

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// openers lists the command that opens a URL on each supported platform.
var openers = map[string][]string{
	"linux":   {"xdg-open"},
	"freebsd": {"xdg-open"},
	"darwin":  {"open"},
	"windows": {"cmd", "/c", "start"},
}

// browserCommand returns the command opening url on goos.
func browserCommand(ctx context.Context, goos, url string) (*exec.Cmd, error) {
	argv, ok := openers[goos]
	if !ok {
		return nil, fmt.Errorf("unsupported platform: %s", goos)
	}
	args := append(argv[1:len(argv):len(argv)], url)
	return exec.CommandContext(ctx, argv[0], args...), nil
}

// OpenBrowser opens url in the user's default browser without waiting for it.
func OpenBrowser(ctx context.Context, url string) error {
	cmd, err := browserCommand(ctx, runtime.GOOS, url)
	if err != nil {
		return err
	}
	return cmd.Start()
}
