package state

import (
	"testing"

	"pgregory.net/rapid"
)

// decode(encode(s)) == s for every reachable state s (spec §8 law).
// "Reachable" states are generated by replaying a random sequence of
// channel-voice messages into a fresh MidiState, which is exactly how
// the sender and receiver build up state in production.
func TestJournalRoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := New()

		statuses := []byte{0x80, 0x90, 0xB0, 0xC0, 0xE0, 0xD0}
		n := rapid.IntRange(0, 40).Draw(t, "n")
		for i := 0; i < n; i++ {
			channel := byte(rapid.IntRange(0, 15).Draw(t, "channel"))
			status := statuses[rapid.IntRange(0, len(statuses)-1).Draw(t, "statusIdx")] | channel
			d1 := byte(rapid.IntRange(0, 127).Draw(t, "d1"))
			d2 := byte(rapid.IntRange(0, 127).Draw(t, "d2"))

			switch status & 0xF0 {
			case 0xC0, 0xD0:
				s.Apply([]byte{status, d1})
			default:
				s.Apply([]byte{status, d1, d2})
			}
		}

		original := s.Snapshot()
		decoded, err := DecodeJournal(EncodeJournal(original))
		if err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		if decoded != original {
			t.Fatalf("round trip mismatch:\n  original=%+v\n  decoded=%+v", original, decoded)
		}
	})
}
