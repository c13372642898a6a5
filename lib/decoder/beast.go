package decoder

import (
	"encoding/binary"
	"math"

	"plane.watch/mlat-client/lib/modes"
)

// Beast / Radarcape binary framing. Each record is ESC (0x1A), a type
// byte, then for types '1'..'4' a 6 byte big endian timestamp, a signal
// byte and the payload; type '5' is a bare 21 byte Radarcape position
// record. Every 0x1A inside the post-type region travels doubled.

const beastEscape = 0x1A

// frame start offsets in 12MHz ticks: the hardware timestamps the end of
// the frame, multilateration wants the start
const (
	beastOffsetModeAC = 244 // 20.3us
	beastOffsetModeS  = 768 // 64us
)

// frame start offsets in nanoseconds for GPS timestamped records; unlike
// the 12MHz case, long frames use 120us rather than the short frame's 64us
const (
	rcOffsetModeAC = 20300
	rcOffsetShort  = 64000
	rcOffsetLong   = 120000
)

// readEscaped copies len(out) doubling-decoded bytes from buf starting at
// pos. It returns the new position and whether the read completed; a bare
// 0x1A inside the region is a framing violation.
func readEscaped(buf []byte, pos int, out []byte) (int, bool, error) {
	for n := 0; n < len(out); n++ {
		if pos >= len(buf) {
			return pos, false, nil
		}
		b := buf[pos]
		if beastEscape == b {
			if pos+1 >= len(buf) {
				// cannot tell yet whether the escape is doubled
				return pos, false, nil
			}
			if beastEscape != buf[pos+1] {
				return pos, false, framingErr(pos, "unescaped 0x1A inside record")
			}
			pos += 2
		} else {
			pos++
		}
		out[n] = b
	}
	return pos, true, nil
}

func (r *Reader) parseBeast(buf []byte, maxMessages int) (int, []*modes.Message, error) {
	msgs := make([]*modes.Message, 0, len(buf)/11+2)
	consumed := 0

	for consumed < len(buf) {
		if maxMessages > 0 && len(msgs) >= maxMessages {
			break
		}
		if beastEscape != buf[consumed] {
			return consumed, msgs, framingErr(consumed, "expected 0x1A escape, got 0x%02X", buf[consumed])
		}
		if consumed+1 >= len(buf) {
			break
		}

		recType := buf[consumed+1]
		var payloadLen int
		hasTimestamp := true
		switch recType {
		case '1':
			payloadLen = 2
		case '2':
			payloadLen = 7
		case '3':
			payloadLen = 14
		case '4':
			payloadLen = 14
		case '5':
			payloadLen = 21
			hasTimestamp = false
		default:
			return consumed, msgs, framingErr(consumed+1, "unrecognised record type 0x%02X", recType)
		}

		need := payloadLen
		if hasTimestamp {
			need += 7 // timestamp + signal
		}
		var raw [28]byte
		data := raw[:need]

		newPos, complete, err := readEscaped(buf, consumed+2, data)
		if nil != err {
			return consumed, msgs, err
		}
		if !complete {
			break
		}

		var (
			rawTS   uint64
			signal  uint8
			payload []byte
		)
		if hasTimestamp {
			rawTS = uint64(data[0])<<40 | uint64(data[1])<<32 | uint64(data[2])<<24 |
				uint64(data[3])<<16 | uint64(data[4])<<8 | uint64(data[5])
			signal = data[6]
			payload = data[7:]
		} else {
			payload = data
		}
		consumed = newPos

		switch recType {
		case '4':
			msgs = r.handleStatus(msgs, rawTS, payload)
		case '5':
			msgs = r.handlePosition(msgs, payload)
		default:
			var ts uint64
			modeAC := recType == '1'
			if r.clock.radarcape {
				ts, msgs = r.radarcapeTimestamp(msgs, rawTS, recType, modeAC)
			} else {
				ts, msgs = r.beastTimestamp(msgs, rawTS, recType, modeAC)
			}
			if !modeAC {
				r.clock.update(ts)
			}
			msgs = r.process(msgs, ts, signal, payload)
		}
	}

	return consumed, msgs, nil
}

// handleStatus digests a Radarcape status record: latch the UTC bugfix
// flag, follow a receiver mode change, and surface the settings as events.
func (r *Reader) handleStatus(msgs []*modes.Message, rawTS uint64, payload []byte) []*modes.Message {
	settings := payload[0]
	ppsDelta := int8(payload[1])
	gpsByte := payload[2]

	r.radarcapeUTCBugfix = gpsByte&0x80 != 0

	if r.AllowModeChange {
		newMode := ModeBeast
		if settings&0x10 != 0 {
			newMode = ModeRadarcape
			if gpsByte&0x20 != 0 {
				newMode = ModeRadarcapeEmulated
			}
		}
		if newMode != r.mode {
			r.log.Info().
				Str("from", r.mode.String()).
				Str("to", newMode.String()).
				Msg("Receiver changed mode")
			r.setMode(newMode)
			if r.WantEvents {
				msgs = append(msgs, r.eventMessage(modes.DFEventModeChange, rawTS, modes.ModeChangeEvent{
					Mode:      newMode.String(),
					Frequency: newMode.Frequency(),
					Epoch:     newMode.Epoch(),
				}))
			}
		}
	}

	if r.WantEvents {
		msgs = append(msgs, r.eventMessage(modes.DFEventRadarcapeStatus, rawTS, modes.RadarcapeStatusEvent{
			Settings:          modes.RadarcapeSettings(settings),
			TimestampPPSDelta: float64(ppsDelta),
			GPS:               modes.DecodeGPSStatus(gpsByte),
		}))
	}
	return msgs
}

func (r *Reader) handlePosition(msgs []*modes.Message, payload []byte) []*modes.Message {
	if !r.WantEvents {
		return msgs
	}
	return append(msgs, r.eventMessage(modes.DFEventRadarcapePosition, 0, modes.RadarcapePositionEvent{
		Lat: math.Float32frombits(binary.BigEndian.Uint32(payload[4:8])),
		Lon: math.Float32frombits(binary.BigEndian.Uint32(payload[8:12])),
		Alt: math.Float32frombits(binary.BigEndian.Uint32(payload[12:16])),
	}))
}

// beastTimestamp handles a free-running 12MHz counter: outlier check, then
// shift the timestamp back to the start of the frame.
func (r *Reader) beastTimestamp(msgs []*modes.Message, ts uint64, recType byte, modeAC bool) (uint64, []*modes.Message) {
	outlier := false
	if !modeAC {
		// stale Mode A/C is common in real feeds, do not let it trip the clock
		outlier = r.clock.check(ts)
	}
	if r.WantEvents && outlier && r.clock.outliers > outlierLimit {
		msgs = append(msgs, r.eventMessage(modes.DFEventTimestampJump, ts, modes.TimestampJumpEvent{
			LastTimestamp: r.clock.lastTimestamp,
		}))
	}

	var offset uint64
	switch recType {
	case '1':
		offset = beastOffsetModeAC
	case '2', '3':
		offset = beastOffsetModeS
	}
	if offset > ts {
		ts = 0
	} else {
		ts -= offset
	}
	return ts, msgs
}

// radarcapeTimestamp handles GPS timestamps: the raw 48 bits pack
// seconds-of-day<<30 | nanoseconds. Older firmware reports the next
// second; the bugfix flag says the receiver already corrected for it.
func (r *Reader) radarcapeTimestamp(msgs []*modes.Message, raw uint64, recType byte, modeAC bool) (uint64, []*modes.Message) {
	secs := raw >> 30
	nanos := raw & 0x3FFFFFFF

	if !r.radarcapeUTCBugfix {
		if 0 == secs {
			secs = daySecs - 1
		} else {
			secs--
		}
	}
	ts := secs*1e9 + nanos

	var offset uint64
	switch recType {
	case '1':
		offset = rcOffsetModeAC
	case '2':
		offset = rcOffsetShort
	case '3':
		offset = rcOffsetLong
	}
	if offset > ts {
		// the frame started before midnight
		ts = ts + daySecs*1e9 - offset
	} else {
		ts -= offset
	}

	outlier := false
	if !modeAC {
		outlier = r.clock.check(ts)
	}
	switch {
	case r.WantEvents && r.clock.lastTimestamp >= rolloverLateSec*1e9 && ts <= rolloverEarly*1e9:
		msgs = append(msgs, r.eventMessage(modes.DFEventEpochRollover, ts, modes.EpochRolloverEvent{}))
	case r.WantEvents && outlier && r.clock.outliers > outlierLimit:
		msgs = append(msgs, r.eventMessage(modes.DFEventTimestampJump, ts, modes.TimestampJumpEvent{
			LastTimestamp: r.clock.lastTimestamp,
		}))
	}
	return ts, msgs
}
