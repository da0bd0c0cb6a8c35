//go:build linux

package debug

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// residentSetSize reads the resident page count from /proc/self/statm.
func residentSetSize() (uint64, error) {
	data, err := os.ReadFile("/proc/self/statm")
	if err != nil {
		return 0, err
	}
	return parseStatm(string(data), os.Getpagesize())
}

func parseStatm(s string, pageSize int) (uint64, error) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return 0, fmt.Errorf("statm: unexpected %q", s)
	}
	pages, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("statm: %w", err)
	}
	return pages * uint64(pageSize), nil
}
