// Package assets names the template images the default rules look for and
// opens the directory they are read from.
package assets

import (
	"fmt"
	"io/fs"
	"os"
)

// Template file names used by the default rules.
const (
	ClaimGems = "claim_gems.png"
	RetryRun  = "retry_run.png"
)

// Open returns the template directory as a file system. It fails early when
// dir is missing so startup errors name the directory rather than a file.
func Open(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("assets: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("assets: %s is not a directory", dir)
	}
	return os.DirFS(dir), nil
}
