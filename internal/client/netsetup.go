package client

import "net"

// joinMulticast opens a socket bound to port and joined to group, for
// receiving (data/heartbeat/control listeners).
func joinMulticast(group string, port uint16) (*net.UDPConn, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(group), Port: int(port)}
	return net.ListenMulticastUDP("udp4", nil, addr)
}

// sendSocket opens an unconnected UDP socket for WriteToUDP sends
// (focus claims, feedback, discovery requests), bound to an ephemeral
// local port.
func sendSocket() (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
}

// udpAddr builds the destination address for group:port.
func udpAddr(group string, port uint16) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(group), Port: int(port)}
}

// broadcastSocket opens a UDP socket with broadcast permission set, for
// sending DiscoverRequest on the LAN broadcast address.
func broadcastSocket() (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
}
