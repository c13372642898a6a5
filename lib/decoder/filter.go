package decoder

import (
	"plane.watch/mlat-client/lib/modes"
)

type (
	// Filter is the per-message accept/reject policy applied after field
	// decode. A nil Filter accepts everything. Filters are replaced
	// atomically between Feed calls, never mutated during one.
	Filter struct {
		// DefaultAccept lists downlink formats that are always wanted.
		DefaultAccept map[uint8]bool
		// SpecificAccept lists (DF, ICAO address) pairs that are wanted
		// even when the DF is not in DefaultAccept.
		SpecificAccept map[uint8]map[uint32]struct{}
		// ModeAC, when non-nil, restricts Mode A/C messages to the listed
		// raw squawk codes.
		ModeAC map[uint32]struct{}
	}

	FilterOption func(*Filter)
)

// WithAcceptedDF marks whole downlink formats as wanted.
func WithAcceptedDF(dfs ...uint8) FilterOption {
	return func(f *Filter) {
		for _, df := range dfs {
			f.DefaultAccept[df] = true
		}
	}
}

// WithAcceptedAddress marks a single aircraft's messages of the given DF
// as wanted.
func WithAcceptedAddress(df uint8, addr uint32) FilterOption {
	return func(f *Filter) {
		set, ok := f.SpecificAccept[df]
		if !ok {
			set = make(map[uint32]struct{})
			f.SpecificAccept[df] = set
		}
		set[addr] = struct{}{}
	}
}

// WithModeACCodes installs a Mode A/C squawk accept list.
func WithModeACCodes(codes ...uint32) FilterOption {
	return func(f *Filter) {
		if nil == f.ModeAC {
			f.ModeAC = make(map[uint32]struct{})
		}
		for _, code := range codes {
			f.ModeAC[code] = struct{}{}
		}
	}
}

func NewFilter(opts ...FilterOption) *Filter {
	f := &Filter{
		DefaultAccept:  make(map[uint8]bool),
		SpecificAccept: make(map[uint8]map[uint32]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Filter) empty() bool {
	return len(f.DefaultAccept) == 0 && len(f.SpecificAccept) == 0
}

// accept decides whether msg is emitted from a Feed call. It owns the
// seen-address side effect for DF 11/17/18 and the mlat counter on the
// Reader; process counts the suppressed messages.
func (r *Reader) accept(msg *modes.Message) bool {
	if msg.Timestamp == modes.MagicMLATTimestamp && !r.WantMLATMessages {
		r.mlatMessages++
		return false
	}
	if r.clock.outliers > 0 {
		return false
	}
	if msg.Timestamp < r.clock.lastTimestamp {
		return false
	}

	if msg.DF == modes.DFModeAC && nil != r.filter && nil != r.filter.ModeAC {
		_, ok := r.filter.ModeAC[msg.Addr]
		return ok
	}

	if !msg.Valid {
		return r.WantInvalidMessages
	}

	if nil != r.seen && msg.HasAddr {
		switch msg.DF {
		case 11, 17, 18:
			r.seen.Add(msg.Addr)
		}
	}

	if 0 == msg.Timestamp && !r.WantZeroTimestamps {
		return false
	}

	if nil == r.filter || r.filter.empty() {
		return true
	}
	if r.filter.DefaultAccept[msg.DF] {
		return true
	}
	if set, ok := r.filter.SpecificAccept[msg.DF]; ok && msg.HasAddr {
		if _, ok = set[msg.Addr]; ok {
			return true
		}
	}
	return false
}
