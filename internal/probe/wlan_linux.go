//go:build linux

package probe

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const siocgiwrate = 0x8B21

// iwreq mirrors struct iwreq with the iw_param member of the union.
type iwreq struct {
	name     [unix.IFNAMSIZ]byte
	value    int32
	fixed    uint8
	disabled uint8
	flags    uint16
	_        [8]byte
}

// ReadBitrate issues SIOCGIWRATE for iface. Wired and virtual interfaces
// fail with EOPNOTSUPP or similar.
func ReadBitrate(iface string) (int64, error) {
	if len(iface) >= unix.IFNAMSIZ {
		return 0, fmt.Errorf("interface name %q too long", iface)
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("opening ioctl socket: %w", err)
	}
	defer unix.Close(fd)

	var req iwreq
	copy(req.name[:], iface)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), siocgiwrate, uintptr(unsafe.Pointer(&req)))
	if errno != 0 {
		return 0, fmt.Errorf("SIOCGIWRATE %s: %w", iface, errno)
	}
	return int64(req.value), nil
}
