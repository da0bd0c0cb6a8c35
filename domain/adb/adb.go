// Package adb runs adb and waydroid commands for a single device.
package adb

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sys/execabs"
)

// Client issues adb commands against one device. An empty Serial lets adb
// pick the only attached device.
type Client struct {
	Path   string
	Serial string
	Logger *slog.Logger
}

// NewClient returns a client for the adb binary at path ("adb" when empty).
func NewClient(path, serial string, logger *slog.Logger) *Client {
	if path == "" {
		path = "adb"
	}
	return &Client{Path: path, Serial: serial, Logger: logger}
}

// Args prefixes args with the device selector.
func (c *Client) Args(args ...string) []string {
	if c.Serial == "" {
		return args
	}
	return append([]string{"-s", c.Serial}, args...)
}

// Run executes adb with args and returns its standard output.
func (c *Client) Run(ctx context.Context, args ...string) ([]byte, error) {
	var stdout bytes.Buffer
	if err := c.Stream(ctx, &stdout, args...); err != nil {
		return nil, err
	}
	return stdout.Bytes(), nil
}

// Stream executes adb with args writing standard output to w.
func (c *Client) Stream(ctx context.Context, w io.Writer, args ...string) error {
	full := c.Args(args...)
	cmd := execabs.CommandContext(ctx, c.Path, full...)
	var stderr bytes.Buffer
	cmd.Stdout = w
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w: %s", c.Path, strings.Join(full, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Screencap writes a PNG screenshot of the device to w.
func (c *Client) Screencap(ctx context.Context, w io.Writer) error {
	return c.Stream(ctx, w, "exec-out", "screencap", "-p")
}

// Tap injects a touch at (x, y).
func (c *Client) Tap(ctx context.Context, x, y int) error {
	_, err := c.Run(ctx, "shell", "input", "tap", strconv.Itoa(x), strconv.Itoa(y))
	return err
}

// SetWindowSize overrides the device resolution, e.g. "319x695".
func (c *Client) SetWindowSize(ctx context.Context, size string) error {
	_, err := c.Run(ctx, "shell", "wm", "size", size)
	return err
}

// ConnectWaydroid asks waydroid to attach its container to adb.
func (c *Client) ConnectWaydroid(ctx context.Context) error {
	cmd := execabs.CommandContext(ctx, "waydroid", "adb", "connect")
	out, err := cmd.CombinedOutput()
	if c.Logger != nil {
		c.Logger.Debug("waydroid adb connect", "output", strings.TrimSpace(string(out)))
	}
	if err != nil {
		return fmt.Errorf("waydroid adb connect: %w", err)
	}
	return nil
}
