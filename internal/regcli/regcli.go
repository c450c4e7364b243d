// Package regcli drives reg.exe for the operations that have no stable Win32
// wrapper in this tool: mounting a hive file, exporting a key to .reg text,
// and importing a .reg file.
package regcli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshuapare/regrescue/internal/sysexec"
)

// ErrMountName reports a mount name that would escape HKU.
var ErrMountName = errors.New("regcli: invalid mount name")

const (
	regExe = "reg"
	// DefaultUnloadAttempts covers the short window in which the registry
	// still holds handles into a freshly exported hive.
	DefaultUnloadAttempts = 3
)

// Client issues reg.exe commands through a Runner.
type Client struct {
	Runner sysexec.Runner
	// Settle is waited after a load before the mount is queried.
	Settle time.Duration
	// UnloadAttempts bounds retries of a failing unload; zero means
	// DefaultUnloadAttempts.
	UnloadAttempts int
	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a client with the given settle delay.
func New(r sysexec.Runner, settle time.Duration) *Client {
	return &Client{Runner: r, Settle: settle}
}

// MountKey returns the HKU path a hive is mounted under.
func MountKey(mount string) string { return `HKU\` + mount }

func checkMount(mount string) error {
	if mount == "" || strings.ContainsAny(mount, `\/`) {
		return fmt.Errorf("%w: %q", ErrMountName, mount)
	}
	return nil
}

// Load mounts hivePath under HKU\mount and waits for the settle delay.
func (c *Client) Load(ctx context.Context, mount, hivePath string) error {
	if err := checkMount(mount); err != nil {
		return err
	}
	if _, err := c.Runner.Run(ctx, regExe, "load", MountKey(mount), hivePath); err != nil {
		return fmt.Errorf("regcli: load %s: %w", hivePath, err)
	}
	return c.sleep(ctx, c.Settle)
}

// Unload removes HKU\mount, retrying while the hive is still busy.
func (c *Client) Unload(ctx context.Context, mount string) error {
	if err := checkMount(mount); err != nil {
		return err
	}
	attempts := c.UnloadAttempts
	if attempts <= 0 {
		attempts = DefaultUnloadAttempts
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if serr := c.sleep(ctx, c.backoff(i)); serr != nil {
				return serr
			}
		}
		if _, err = c.Runner.Run(ctx, regExe, "unload", MountKey(mount)); err == nil {
			return nil
		}
	}
	return fmt.Errorf("regcli: unload %s: %w", MountKey(mount), err)
}

// Export writes key and its subkeys to file, overwriting it.
func (c *Client) Export(ctx context.Context, key, file string) error {
	if _, err := c.Runner.Run(ctx, regExe, "export", key, file, "/y"); err != nil {
		return fmt.Errorf("regcli: export %s: %w", key, err)
	}
	return nil
}

// Import merges file into the registry.
func (c *Client) Import(ctx context.Context, file string) error {
	if _, err := c.Runner.Run(ctx, regExe, "import", file); err != nil {
		return fmt.Errorf("regcli: import %s: %w", file, err)
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	base := c.Settle
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	return base * time.Duration(attempt)
}

func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if c.Sleep != nil {
		return c.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
