package host

import (
	"net"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// FeedbackReceiver decodes upstream feedback framed as MidiDataPacket
// (spec §4.8's "only the focus holder routes its virtual-device
// feedback upstream... itself passed through the pipeline before
// transmission") and drives the physical controller. Packets are
// handed to it by ControlReceiver's demux loop, since the wire shares
// one group:port between FocusPacket and feedback traffic.
type FeedbackReceiver struct {
	pipeline *pipeline.Pipeline
	focus    *FocusManager
	output   contracts.OutputDevice
	logger   contracts.Logger
}

// NewFeedbackReceiver builds a receiver.
func NewFeedbackReceiver(pl *pipeline.Pipeline, focus *FocusManager, output contracts.OutputDevice, logger contracts.Logger) *FeedbackReceiver {
	return &FeedbackReceiver{pipeline: pl, focus: focus, output: output, logger: logger}
}

func (r *FeedbackReceiver) handle(buf []byte, remote *net.UDPAddr) {
	pkt, err := protocol.DecodeMidiDataPacket(buf)
	if err != nil {
		return
	}
	if !r.focus.IsHolderAddr(remote.IP) {
		return
	}
	r.focus.NoteFeedback()
	processed := r.pipeline.ProcessAll(pkt.Midi)
	if len(processed) == 0 {
		return
	}
	if err := r.output.Send(processed); err != nil && r.logger != nil {
		r.logger.Warn("feedback device send failed", r.logger.Field().Error("error", err))
	}
}
