package modes

// Downlink formats 0..31 are real Mode S. Values from 32 up are reserved
// sentinels for things that travel through the same message stream but are
// not Mode S frames.
const (
	DFModeAC                 = 32
	DFEventTimestampJump     = 33
	DFEventModeChange        = 34
	DFEventEpochRollover     = 35
	DFEventRadarcapeStatus   = 36
	DFEventRadarcapePosition = 37
)

// Synthetic timestamps. Frames that originate from multilateration results
// carry MagicMLATTimestamp ("MLAT" in the low bytes) and must never touch
// the receiver clock tracking.
const (
	MagicMLATTimestamp uint64 = 0xFF004D4C4154
	MagicUATTimestamp  uint64 = 0xFF004D4C4155
)

// IsSyntheticTimestamp reports whether ts carries no receiver clock
// information at all.
func IsSyntheticTimestamp(ts uint64) bool {
	return ts == 0 || (ts >= MagicMLATTimestamp && ts <= MagicMLATTimestamp+10)
}

type (
	// Message is one decoded frame or one metadata event. Frames own their
	// payload bytes; the input window they were parsed from may be reused
	// immediately.
	Message struct {
		// Timestamp units depend on the reader mode that produced the
		// message: 12MHz ticks for Beast/AVRMLAT, nanoseconds since UTC
		// midnight for Radarcape, widened 20MHz ticks for SBS.
		Timestamp uint64
		Signal    uint8

		DF    uint8
		NUCp  uint8
		Valid bool

		EvenCPR bool
		OddCPR  bool

		CRCResidual uint32
		HasResidual bool

		// Addr is the 24 bit ICAO address, or the raw 13 bit squawk for
		// Mode A/C messages.
		Addr    uint32
		HasAddr bool

		Altitude    int32
		HasAltitude bool

		// Squawk is the decoded 4 octal digit identity from DF5/DF21.
		Squawk    uint32
		HasSquawk bool

		// Event is set iff DF >= DFEventTimestampJump.
		Event Event

		Payload []byte
	}
)

// IsEvent reports whether the message is a metadata event rather than a
// decoded frame.
func (m *Message) IsEvent() bool {
	return m.DF >= DFEventTimestampJump
}
