//go:build !linux

package debug

import "errors"

func residentSetSize() (uint64, error) {
	return 0, errors.New("resident set size not supported on this platform")
}
