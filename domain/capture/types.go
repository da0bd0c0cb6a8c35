package capture

import "context"

// Driver writes one screenshot of the device to path. Implementations block
// until the file is complete.
type Driver interface {
	Snapshot(ctx context.Context, path string) error
}

// DriverFunc adapts a function to Driver.
type DriverFunc func(ctx context.Context, path string) error

func (f DriverFunc) Snapshot(ctx context.Context, path string) error { return f(ctx, path) }
