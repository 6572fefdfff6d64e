//go:build !linux

package probe

import (
	"errors"
	"fmt"
)

// ReadBitrate is only implemented on Linux.
func ReadBitrate(iface string) (int64, error) {
	return 0, fmt.Errorf("wireless bit rate on %s: %w", iface, errors.ErrUnsupported)
}
