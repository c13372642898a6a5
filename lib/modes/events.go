package modes

// One structured payload type per event kind. The field names match what
// downstream consumers (and the sink JSON) expect.

type (
	Event interface {
		EventType() string
	}

	ModeChangeEvent struct {
		Mode      string  `json:"mode"`
		Frequency float64 `json:"frequency"`
		Epoch     string  `json:"epoch,omitempty"`
	}

	TimestampJumpEvent struct {
		LastTimestamp uint64 `json:"last_timestamp"`
	}

	EpochRolloverEvent struct{}

	// GPSStatus decodes the third status byte of a Radarcape status frame.
	GPSStatus struct {
		UTCSynchronised bool `json:"utc_synchronised"`
		TimeLock        bool `json:"time_lock"`
		Emulated        bool `json:"emulated"`
		GoodSats        bool `json:"good_sats"`
		PPSStable       bool `json:"pps_stable"`
		SelfTestOK      bool `json:"self_test_ok"`
		AntennaOK       bool `json:"antenna_ok"`
	}

	RadarcapeStatusEvent struct {
		Settings          []string  `json:"settings"`
		TimestampPPSDelta float64   `json:"timestamp_pps_delta"`
		GPS               GPSStatus `json:"gps_status"`
	}

	RadarcapePositionEvent struct {
		Lat float32 `json:"lat"`
		Lon float32 `json:"lon"`
		Alt float32 `json:"alt"`
	}
)

func (ModeChangeEvent) EventType() string        { return "mode_change" }
func (TimestampJumpEvent) EventType() string     { return "timestamp_jump" }
func (EpochRolloverEvent) EventType() string     { return "epoch_rollover" }
func (RadarcapeStatusEvent) EventType() string   { return "radarcape_status" }
func (RadarcapePositionEvent) EventType() string { return "radarcape_position" }

// RadarcapeSettings expands the settings byte of a status frame into the
// option labels the receiver firmware uses. The byte carries the c,d,e,f,
// g,h,i,j option switches in bits 0..7; the e and c bits together pick the
// output format label.
func RadarcapeSettings(settings uint8) []string {
	labels := make([]string, 0, 7)
	switch {
	case settings&0x01 != 0:
		labels = append(labels, "beast")
	case settings&0x04 != 0:
		labels = append(labels, "avrmlat")
	default:
		labels = append(labels, "avr")
	}
	if settings&0x02 != 0 {
		labels = append(labels, "filtered_frames")
	} else {
		labels = append(labels, "all_frames")
	}
	if settings&0x08 != 0 {
		labels = append(labels, "no_crc")
	} else {
		labels = append(labels, "check_crc")
	}
	if settings&0x10 != 0 {
		labels = append(labels, "gps_timestamps")
	} else {
		labels = append(labels, "legacy_timestamps")
	}
	if settings&0x20 != 0 {
		labels = append(labels, "rtscts")
	} else {
		labels = append(labels, "no_rtscts")
	}
	if settings&0x40 != 0 {
		labels = append(labels, "no_fec")
	} else {
		labels = append(labels, "fec")
	}
	if settings&0x80 != 0 {
		labels = append(labels, "modeac")
	} else {
		labels = append(labels, "no_modeac")
	}
	return labels
}

// DecodeGPSStatus expands the gps status byte of a Radarcape status frame.
func DecodeGPSStatus(b uint8) GPSStatus {
	return GPSStatus{
		UTCSynchronised: b&0x80 != 0,
		TimeLock:        b&0x40 != 0,
		Emulated:        b&0x20 != 0,
		GoodSats:        b&0x10 != 0,
		PPSStable:       b&0x08 != 0,
		SelfTestOK:      b&0x04 != 0,
		AntennaOK:       b&0x02 != 0,
	}
}
