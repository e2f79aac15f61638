//go:build windows

package client

import (
	"fmt"
	"net"

	"golang.org/x/sys/windows"
)

// setBroadcast enables SO_BROADCAST on conn, the Windows-socket
// counterpart of broadcast_unix.go's syscall.
func setBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return fmt.Errorf("client: get raw conn: %w", err)
	}
	var sockErr error
	err = raw.Control(func(fd uintptr) {
		sockErr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
	})
	if err != nil {
		return fmt.Errorf("client: control raw conn: %w", err)
	}
	return sockErr
}
