package modes

type frameKind int

const (
	frameModeAC frameKind = iota
	frameShort
	frameLong
	frameUnknown
)

func kindOf(payload []byte) frameKind {
	switch len(payload) {
	case 2:
		return frameModeAC
	case 7:
		return frameShort
	case 14:
		return frameLong
	}
	return frameUnknown
}

// DecodeFrame decodes a 2, 7 or 14 byte frame into a Message. The payload
// is copied; the caller may reuse its buffer. Frames whose length does not
// match their downlink format, or whose CRC disqualifies them, come back
// with Valid false and whatever fields could still be extracted.
func DecodeFrame(timestamp uint64, signal uint8, payload []byte) Message {
	msg := Message{
		Timestamp: timestamp,
		Signal:    signal,
		Payload:   append([]byte(nil), payload...),
	}

	if kindOf(payload) == frameModeAC {
		msg.DF = DFModeAC
		msg.Addr = uint32(payload[0])<<8 | uint32(payload[1])
		msg.HasAddr = true
		msg.Valid = true
		return msg
	}

	df := (payload[0] >> 3) & 0x1F
	msg.DF = df

	// short frames are 7 bytes, long frames 14; anything else is noise
	if df < 16 && len(payload) != 7 {
		return msg
	}
	if df >= 16 && len(payload) != 14 {
		return msg
	}

	residual := Residual(payload)
	msg.CRCResidual = residual
	msg.HasResidual = true

	switch df {
	case 0, 4, 16, 20:
		// altitude replies; the CRC is overlaid with the ICAO address
		msg.Addr = residual
		msg.HasAddr = true
		ac13 := uint32(payload[2]&0x1F)<<8 | uint32(payload[3])
		msg.Altitude, msg.HasAltitude = DecodeAC13(ac13)
		msg.Valid = true

	case 5, 21:
		msg.Addr = residual
		msg.HasAddr = true
		msg.Squawk = decodeIdentity(payload[2], payload[3])
		msg.HasSquawk = true
		msg.Valid = true

	case 24:
		msg.Addr = residual
		msg.HasAddr = true
		msg.Valid = true

	case 11:
		msg.Valid = residual&^uint32(0x7F) == 0
		if msg.Valid {
			msg.Addr = uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
			msg.HasAddr = true
		}

	case 17, 18:
		msg.Valid = 0 == residual
		if msg.Valid {
			msg.Addr = uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3])
			msg.HasAddr = true
			decodeExtendedSquitter(&msg, payload)
		}
	}

	return msg
}

// decodeExtendedSquitter pulls the multilateration-relevant fields out of a
// valid DF17/DF18 ME block: NUCp, CPR phase, barometric altitude.
func decodeExtendedSquitter(msg *Message, payload []byte) {
	metype := payload[4] >> 3

	airborne := (metype >= 9 && metype <= 18) || (metype >= 20 && metype <= 22)
	if !airborne {
		return
	}

	switch {
	case metype <= 18:
		msg.NUCp = 18 - metype
	case metype <= 21:
		msg.NUCp = 29 - metype
	default:
		// metype 22: GNSS height with no position accuracy claim
		msg.NUCp = 0
	}

	if payload[6]&0x04 != 0 {
		msg.OddCPR = true
	} else {
		msg.EvenCPR = true
	}

	ac12 := uint32(payload[5])<<4 | uint32(payload[6]&0xF0)>>4
	msg.Altitude, msg.HasAltitude = DecodeAC12(ac12)

	// All-zero CPR content decodes to a position, but not one any real
	// transponder emits. Reject it rather than feed the server garbage.
	cprLat := uint32(payload[6]&0x03)<<15 | uint32(payload[7])<<7 | uint32(payload[8])>>1
	cprLon := uint32(payload[8]&0x01)<<16 | uint32(payload[9])<<8 | uint32(payload[10])
	if 0 == cprLat || 0 == cprLon {
		msg.Valid = false
		msg.EvenCPR = false
		msg.OddCPR = false
	}
}

// decodeIdentity unpacks the Gillham-interleaved squawk of DF5/DF21.
// Bits 20..32 of the message interleave as C1-A1-C2-A2-C4-A4-0-B1-D1-B2-D2-B4-D4;
// each of A,B,C,D is an octal digit of the identity.
func decodeIdentity(b2, b3 byte) uint32 {
	msg2 := uint32(b2)
	msg3 := uint32(b3)

	a := ((msg3 & 0x80) >> 5) | ((msg2 & 0x02) >> 0) | ((msg2 & 0x08) >> 3)
	b := ((msg3 & 0x02) << 1) | ((msg3 & 0x08) >> 2) | ((msg3 & 0x20) >> 5)
	c := ((msg2 & 0x01) << 2) | ((msg2 & 0x04) >> 1) | ((msg2 & 0x10) >> 4)
	d := ((msg3 & 0x01) << 2) | ((msg3 & 0x04) >> 1) | ((msg3 & 0x10) >> 4)

	return a*1000 + b*100 + c*10 + d
}
