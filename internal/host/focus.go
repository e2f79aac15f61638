package host

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/hakolsound/midinet/sdk/contracts"
	"github.com/hakolsound/midinet/sdk/protocol"
)

// FocusAutoReleaseTimeout is spec §4.8/§5's "10 s of no upstream
// feedback" auto-release window.
const FocusAutoReleaseTimeout = 10 * time.Second

// FocusManager implements the host's single focus-slot arbitration
// (spec §4.8): exactly one client at a time is designated the upstream
// feedback source.
type FocusManager struct {
	conn    *net.UDPConn
	ackAddr *net.UDPAddr
	logger  contracts.Logger

	mu    sync.Mutex
	state FocusState
}

// NewFocusManager builds a manager that unicasts Ack replies to the
// multicast control group over conn.
func NewFocusManager(conn *net.UDPConn, ackAddr *net.UDPAddr, logger contracts.Logger) *FocusManager {
	return &FocusManager{conn: conn, ackAddr: ackAddr, logger: logger}
}

// HandleClaim processes a FocusAction::Claim per spec §4.8's accept
// rule, acking the client on acceptance. addr is the claim's source
// address, remembered so FeedbackReceiver can recognize the holder's
// unicast feedback traffic (the wire's MidiDataPacket carries no room
// for a 32-bit client_id).
func (f *FocusManager) HandleClaim(clientID uint32, seq uint16, addr net.IP) {
	f.mu.Lock()
	accept := !f.state.HasHolder ||
		f.state.HolderClientID == clientID ||
		protocol.SequenceWins(seq, f.state.LastClaimSeq)
	if accept {
		f.state.HasHolder = true
		f.state.HolderClientID = clientID
		f.state.HolderAddr = addr
		f.state.LastClaimSeq = seq
		f.state.ClaimedAt = time.Now()
		f.state.LastFeedbackAt = time.Now()
	}
	f.mu.Unlock()

	if !accept {
		return
	}
	ack := &protocol.FocusPacket{
		Action:      protocol.FocusAck,
		ClientID:    clientID,
		Sequence:    seq,
		TimestampUS: uint64(time.Now().UnixMicro()),
	}
	if _, err := f.conn.WriteToUDP(ack.Encode(), f.ackAddr); err != nil && f.logger != nil {
		f.logger.Warn("focus ack send failed", f.logger.Field().Error("error", err))
	}
}

// HandleRelease clears the slot iff clientID currently holds it.
func (f *FocusManager) HandleRelease(clientID uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state.HasHolder && f.state.HolderClientID == clientID {
		f.state = FocusState{}
	}
}

// IsHolder reports whether clientID currently holds focus.
func (f *FocusManager) IsHolder(clientID uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.HasHolder && f.state.HolderClientID == clientID
}

// IsHolderAddr reports whether addr matches the current holder's
// recorded source address.
func (f *FocusManager) IsHolderAddr(addr net.IP) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.HasHolder && f.state.HolderAddr != nil && f.state.HolderAddr.Equal(addr)
}

// NoteFeedback records that the holder just sent upstream feedback,
// resetting the auto-release clock.
func (f *FocusManager) NoteFeedback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.LastFeedbackAt = time.Now()
}

// Snapshot returns the current focus state, for status reporting.
func (f *FocusManager) Snapshot() FocusState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// RunAutoRelease periodically clears the slot once it has gone
// FocusAutoReleaseTimeout without feedback, until ctx is canceled.
func (f *FocusManager) RunAutoRelease(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			if f.state.HasHolder && time.Since(f.state.LastFeedbackAt) > FocusAutoReleaseTimeout {
				if f.logger != nil {
					f.logger.Info("focus auto-released", f.logger.Field().Uint64("client_id", uint64(f.state.HolderClientID)))
				}
				f.state = FocusState{}
			}
			f.mu.Unlock()
		}
	}
}
