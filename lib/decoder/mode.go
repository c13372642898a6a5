package decoder

type (
	// Mode selects the wire format the Reader expects and, with it, the
	// units of the hardware timestamps it produces.
	Mode int

	modeTraits struct {
		name string
		// frequency is the tick rate of the hardware timestamp counter in
		// Hz. Zero means the format carries no usable clock.
		frequency float64
		// epoch is set when the counter restarts at a known point in time
		// rather than at receiver power-on.
		epoch     string
		radarcape bool
	}
)

const (
	ModeNone Mode = iota
	ModeBeast
	ModeRadarcape
	ModeRadarcapeEmulated
	ModeAVR
	ModeAVRMLAT
	ModeSBS
)

const EpochUTCMidnight = "utc_midnight"

var modeTable = map[Mode]modeTraits{
	ModeNone:              {name: "NONE"},
	ModeBeast:             {name: "BEAST", frequency: 12e6},
	ModeRadarcape:         {name: "RADARCAPE", frequency: 1e9, epoch: EpochUTCMidnight, radarcape: true},
	ModeRadarcapeEmulated: {name: "RADARCAPE_EMULATED", frequency: 1e9, epoch: EpochUTCMidnight, radarcape: true},
	ModeAVR:               {name: "AVR"},
	ModeAVRMLAT:           {name: "AVRMLAT", frequency: 12e6},
	ModeSBS:               {name: "SBS", frequency: 20e6},
}

func (m Mode) String() string {
	if t, ok := modeTable[m]; ok {
		return t.name
	}
	return "UNKNOWN"
}

// Frequency returns the Hz of the mode's timestamp counter.
func (m Mode) Frequency() float64 {
	return modeTable[m].frequency
}

// Epoch returns the timestamp epoch label, empty when the counter is
// free-running.
func (m Mode) Epoch() string {
	return modeTable[m].epoch
}

// ModeByName maps the wire-format names used in config and status
// reporting back to a Mode.
func ModeByName(name string) (Mode, bool) {
	for m, t := range modeTable {
		if t.name == name {
			return m, true
		}
	}
	return ModeNone, false
}
