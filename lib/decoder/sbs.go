package decoder

import (
	"plane.watch/mlat-client/lib/modes"
)

// SBS / Kinetic framed binary. Records travel between DLE STX and DLE ETX
// with 0x10 doubling inside, followed by two (also escaped) CRC bytes.
// Record content is type, spare, 24 bit little endian timestamp, data.
//
// The data carries Mode S XOR-scrambled with its own CRC; folding the CRC
// of the leading bytes back into the last three recovers the canonical
// frame.

const (
	sbsDLE = 0x10
	sbsSTX = 0x02
	sbsETX = 0x03

	// maximum unescaped record content: type + spare + timestamp + 14 data
	sbsMaxRecord = 19

	// the 20MHz counter ticks 160 times per transmitted byte; used to move
	// the frame-end timestamp to a consistent start-of-frame reference
	sbsTicksPerByte = 160
)

func (r *Reader) parseSBS(buf []byte, maxMessages int) (int, []*modes.Message, error) {
	msgs := make([]*modes.Message, 0, len(buf)/13+1)
	consumed := 0

	for consumed < len(buf) {
		if maxMessages > 0 && len(msgs) >= maxMessages {
			break
		}
		if sbsDLE != buf[consumed] {
			return consumed, msgs, framingErr(consumed, "expected DLE, got 0x%02X", buf[consumed])
		}
		if consumed+1 >= len(buf) {
			break
		}
		if sbsSTX != buf[consumed+1] {
			return consumed, msgs, framingErr(consumed+1, "expected STX, got 0x%02X", buf[consumed+1])
		}

		var content [sbsMaxRecord]byte
		n := 0
		pos := consumed + 2
		terminated := false
		incomplete := false

		for !terminated {
			if pos >= len(buf) {
				incomplete = true
				break
			}
			b := buf[pos]
			if sbsDLE == b {
				if pos+1 >= len(buf) {
					incomplete = true
					break
				}
				switch buf[pos+1] {
				case sbsDLE:
					pos += 2
				case sbsETX:
					pos += 2
					terminated = true
					continue
				default:
					return consumed, msgs, framingErr(pos+1, "unexpected 0x%02X after DLE", buf[pos+1])
				}
			} else {
				pos++
			}
			if n >= sbsMaxRecord {
				return consumed, msgs, framingErr(pos, "record exceeds %d bytes", sbsMaxRecord)
			}
			content[n] = b
			n++
		}
		if incomplete {
			break
		}

		// two trailing CRC bytes, not verified: the descramble below folds
		// the frame CRC back in anyway
		for k := 0; k < 2; k++ {
			if pos >= len(buf) {
				incomplete = true
				break
			}
			if sbsDLE == buf[pos] {
				if pos+1 >= len(buf) {
					incomplete = true
					break
				}
				if sbsDLE != buf[pos+1] {
					return consumed, msgs, framingErr(pos+1, "unescaped DLE in CRC trailer")
				}
				pos += 2
			} else {
				pos++
			}
		}
		if incomplete {
			break
		}

		if n < 5 {
			return consumed, msgs, framingErr(consumed, "short record: %d bytes", n)
		}

		recType := content[0]
		ts24 := uint64(content[2]) | uint64(content[3])<<8 | uint64(content[4])<<16
		data := content[5:n]

		var wantLen int
		switch recType {
		case 0x01, 0x05:
			wantLen = 14
		case 0x07:
			wantLen = 7
		case 0x09:
			wantLen = 2
		default:
			// unknown record types are fine, just not for us
			consumed = pos
			continue
		}
		if len(data) != wantLen {
			return consumed, msgs, framingErr(consumed, "type 0x%02X record with %d data bytes", recType, len(data))
		}
		consumed = pos

		if recType != 0x09 {
			// undo the XOR scramble
			crc := modes.CRC(data[:wantLen-3])
			data[wantLen-3] ^= byte(crc >> 16)
			data[wantLen-2] ^= byte(crc >> 8)
			data[wantLen-1] ^= byte(crc)
		}

		// widen the 24 bit counter, then anchor to start-of-frame + 112us
		// regardless of payload length
		ts := r.clock.widenSBS(ts24) + uint64(14-wantLen)*sbsTicksPerByte

		msgs = r.process(msgs, ts, 0, data)
	}

	return consumed, msgs, nil
}
