package host

import (
	"context"
	"net"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/inputmux"
	"github.com/hakolsound/midinet/sdk/midimsg"
	"github.com/hakolsound/midinet/sdk/pipeline"
	"github.com/hakolsound/midinet/sdk/protocol"
	"github.com/hakolsound/midinet/sdk/ringbuffer"
	"github.com/hakolsound/midinet/sdk/state"
)

// JournalInterval is the periodic full-state snapshot cadence named in
// spec §4.4 step 6 ("approximately 100 ms").
const JournalInterval = 100 * time.Millisecond

// Broadcaster is the host-side wire encoder loop (spec §4.4): it drains
// the input mux, runs the pipeline, maintains the authoritative
// MidiState, and sends MidiDataPacket over multicast plus unicast
// fan-out.
type Broadcaster struct {
	mux      *inputmux.Mux
	pipeline *pipeline.Pipeline
	state    *state.MidiState
	hostID   uint8

	conn     *net.UDPConn
	dataAddr *net.UDPAddr
	relay    *UnicastRelay

	journalInterval time.Duration
	lastJournal     time.Time
	seq             uint16

	rawTap func(burst []byte)

	logger contracts.Logger
}

// SetRawTap installs a callback invoked with every raw burst popped
// from the mux, before pipeline processing. Used by the MIDI failover
// trigger (spec §4.9), which watches the input stream rather than the
// filtered/remapped output.
func (b *Broadcaster) SetRawTap(tap func(burst []byte)) {
	b.rawTap = tap
}

// NewBroadcaster wires a Broadcaster. conn must already be bound for
// sending (TTL 1, loopback enabled, per spec §6) to dataAddr.
func NewBroadcaster(mux *inputmux.Mux, pl *pipeline.Pipeline, st *state.MidiState, hostID uint8, conn *net.UDPConn, dataAddr *net.UDPAddr, relay *UnicastRelay, logger contracts.Logger) *Broadcaster {
	return &Broadcaster{
		mux:             mux,
		pipeline:        pl,
		state:           st,
		hostID:          hostID,
		conn:            conn,
		dataAddr:        dataAddr,
		relay:           relay,
		journalInterval: JournalInterval,
		logger:          logger,
	}
}

// Run drives the broadcaster loop until ctx is canceled.
func (b *Broadcaster) Run(ctx context.Context) error {
	buf := make([]byte, ringbuffer.MinSlotSize)
	done := ctx.Done()
	for {
		n, ok := b.mux.Pop(buf, done)
		if !ok {
			return ctx.Err()
		}
		b.handleBurst(buf[:n])
	}
}

func (b *Broadcaster) handleBurst(burst []byte) {
	if b.rawTap != nil {
		b.rawTap(burst)
	}
	processed := b.pipeline.ProcessAll(burst)
	if len(processed) == 0 {
		return
	}
	for _, msg := range midimsg.Split(processed) {
		b.state.Apply(msg)
	}

	var journal []byte
	forceJournal := b.mux.ConsumeForceJournal()
	if forceJournal || time.Since(b.lastJournal) >= b.journalInterval {
		journal = state.EncodeJournal(b.state.Snapshot())
		b.lastJournal = time.Now()
	}

	b.seq++
	pkt := &protocol.MidiDataPacket{
		Sequence:    b.seq,
		TimestampUS: uint64(time.Now().UnixMicro()),
		HostID:      b.hostID,
		Midi:        processed,
		Journal:     journal,
	}
	encoded := pkt.Encode()

	if _, err := b.conn.WriteToUDP(encoded, b.dataAddr); err != nil && b.logger != nil {
		b.logger.Warn("multicast data send failed", b.logger.Field().Error("error", err))
	}
	if b.relay != nil {
		b.relay.Send(encoded)
	}
}
