//go:build windows

package preflight

import "errors"

// availableBytes is not implemented on Windows, the free space check is skipped.
func availableBytes(path string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
