package host

import "net"

// joinMulticast opens a socket bound to group:port and joined to the
// multicast group, for receiving (the control listener).
func joinMulticast(group string, port uint16) (*net.UDPConn, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(group), Port: int(port)}
	return net.ListenMulticastUDP("udp4", nil, addr)
}

// sendSocket opens an unconnected UDP socket suitable for WriteToUDP
// sends (multicast publish, unicast relay, acks), bound to an ephemeral
// local port.
func sendSocket() (*net.UDPConn, error) {
	return net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
}

// udpAddr builds the destination address for group:port.
func udpAddr(group string, port uint16) *net.UDPAddr {
	return &net.UDPAddr{IP: net.ParseIP(group), Port: int(port)}
}
