package host

import (
	"net"

	"github.com/hakolsound/midinet/sdk/protocol"
)

// ControlListener decodes FocusPacket claims/releases handed to it by
// ControlReceiver's demux loop and drives the FocusManager (spec §4.8).
type ControlListener struct {
	focus *FocusManager
}

// NewControlListener builds a listener over focus.
func NewControlListener(focus *FocusManager) *ControlListener {
	return &ControlListener{focus: focus}
}

func (l *ControlListener) handle(buf []byte, remote *net.UDPAddr) {
	pkt, err := protocol.DecodeFocusPacket(buf)
	if err != nil {
		return
	}
	switch pkt.Action {
	case protocol.FocusClaim:
		l.focus.HandleClaim(pkt.ClientID, pkt.Sequence, remote.IP)
	case protocol.FocusRelease:
		l.focus.HandleRelease(pkt.ClientID)
	}
}
