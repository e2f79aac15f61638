//go:build !windows

package client

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// setBroadcast enables SO_BROADCAST on conn so WriteToUDP can target the
// LAN broadcast address for discovery requests (spec §6). Go's net
// package never sets this itself; the syscall is the only way to reach
// it, so this one socket-option call stays on golang.org/x/sys rather
// than a higher-level library.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("client: get raw conn: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return fmt.Errorf("client: control raw conn: %w", err)
	}
	return sockErr
}
