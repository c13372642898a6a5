package decoder

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"plane.watch/mlat-client/lib/modes"
)

type (
	// Reader turns raw receiver bytes into decoded Mode S / Mode A/C
	// messages and metadata events. It owns the wire-format mode, the
	// receiver clock tracker, the filters and the statistics counters.
	//
	// A Reader is single threaded: callers serialise Feed. It never
	// buffers input; Feed reports how many bytes it consumed and the
	// caller re-presents the rest.
	Reader struct {
		log zerolog.Logger

		mode  Mode
		clock clock

		// radarcapeUTCBugfix is latched from status frames: newer
		// firmware reports the current second, older firmware the next
		// one.
		radarcapeUTCBugfix bool

		AllowModeChange     bool
		WantZeroTimestamps  bool
		WantMLATMessages    bool
		WantInvalidMessages bool
		WantEvents          bool

		filter *Filter
		seen   *SeenCache

		receivedMessages   uint64
		suppressedMessages uint64
		mlatMessages       uint64

		pendingErr error
	}

	Option func(*Reader)

	// Stats is a snapshot of the Reader's counters.
	Stats struct {
		ReceivedMessages   uint64
		SuppressedMessages uint64
		MlatMessages       uint64
	}
)

func WithMode(m Mode) Option {
	return func(r *Reader) {
		r.setMode(m)
	}
}

func WithModeChangeAllowed(allowed bool) Option {
	return func(r *Reader) {
		r.AllowModeChange = allowed
	}
}

func WithEvents(want bool) Option {
	return func(r *Reader) {
		r.WantEvents = want
	}
}

func WithMLATMessages(want bool) Option {
	return func(r *Reader) {
		r.WantMLATMessages = want
	}
}

func WithInvalidMessages(want bool) Option {
	return func(r *Reader) {
		r.WantInvalidMessages = want
	}
}

func WithZeroTimestamps(want bool) Option {
	return func(r *Reader) {
		r.WantZeroTimestamps = want
	}
}

func WithFilter(f *Filter) Option {
	return func(r *Reader) {
		r.filter = f
	}
}

func WithSeenCache(s *SeenCache) Option {
	return func(r *Reader) {
		r.seen = s
	}
}

func NewReader(opts ...Option) *Reader {
	r := &Reader{
		mode:  ModeNone,
		clock: newClock(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = log.With().Str("section", "decoder").Str("mode", r.mode.String()).Logger()
	return r
}

func (r *Reader) Mode() Mode {
	return r.mode
}

// SetMode switches wire format and resets the clock tracker; timestamps
// do not survive a mode change.
func (r *Reader) SetMode(m Mode) {
	r.setMode(m)
}

func (r *Reader) setMode(m Mode) {
	traits := modeTable[m]
	r.mode = m
	r.clock.reset(traits.frequency, traits.radarcape)
	r.log = log.With().Str("section", "decoder").Str("mode", traits.name).Logger()
}

// SetFilter replaces the filter. Only call between Feed invocations.
func (r *Reader) SetFilter(f *Filter) {
	r.filter = f
}

func (r *Reader) SeenCache() *SeenCache {
	return r.seen
}

func (r *Reader) Stats() Stats {
	return Stats{
		ReceivedMessages:   r.receivedMessages,
		SuppressedMessages: r.suppressedMessages,
		MlatMessages:       r.mlatMessages,
	}
}

// LastTimestamp returns the clock tracker's current reference, in the
// units of the active mode.
func (r *Reader) LastTimestamp() uint64 {
	return r.clock.lastTimestamp
}

// Feed parses as much of buf as holds complete records and returns the
// number of bytes consumed, the emitted messages, and whether a framing
// error is pending. A pending error is raised by the next Feed call so
// callers can drain good messages before handling the fault. With
// maxMessages > 0 the parse stops early once the message list is full.
func (r *Reader) Feed(buf []byte, maxMessages int) (int, []*modes.Message, bool, error) {
	if nil != r.pendingErr {
		err := r.pendingErr
		r.pendingErr = nil
		return 0, nil, false, err
	}

	var (
		consumed int
		msgs     []*modes.Message
		err      error
	)

	switch r.mode {
	case ModeBeast, ModeRadarcape, ModeRadarcapeEmulated:
		consumed, msgs, err = r.parseBeast(buf, maxMessages)
	case ModeAVR, ModeAVRMLAT:
		consumed, msgs, err = r.parseAVR(buf, maxMessages)
	case ModeSBS:
		consumed, msgs, err = r.parseSBS(buf, maxMessages)
	default:
		return 0, nil, false, ErrNoModeSelected
	}

	if nil != err {
		if len(msgs) > 0 {
			// two phase error surface: hand back the good frames now,
			// raise the fault on the next call
			r.pendingErr = err
			return consumed, msgs, true, nil
		}
		return consumed, nil, false, err
	}
	return consumed, msgs, false, nil
}

// process runs the shared tail of every parser: field decode, counters,
// then the filter.
func (r *Reader) process(msgs []*modes.Message, timestamp uint64, signal uint8, payload []byte) []*modes.Message {
	msg := modes.DecodeFrame(timestamp, signal, payload)
	r.receivedMessages++
	if !r.accept(&msg) {
		r.suppressedMessages++
		return msgs
	}
	return append(msgs, &msg)
}

func (r *Reader) eventMessage(df uint8, timestamp uint64, ev modes.Event) *modes.Message {
	return &modes.Message{
		Timestamp: timestamp,
		DF:        df,
		Valid:     true,
		Event:     ev,
	}
}
