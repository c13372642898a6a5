package modes

// Altitude decoding for the 13 bit AC field of DF0/4/16/20 and the 12 bit
// field of DF17/DF18 airborne position messages.
//
// AC13 bit layout, high bit first:
//
//	C1 A1 C2 A2 C4 A4 M B1 Q B2 D2 B4 D4
//
// With Q set the field is a 25ft binary count; with Q clear it is a
// Gillham (reflected binary) code. The M bit selects metric altitude,
// which nothing around here transmits.

// DecodeAC13 converts a 13 bit altitude code to feet. The second return is
// false when the code carries no usable altitude.
func DecodeAC13(ac13 uint32) (int32, bool) {
	if 0 == ac13 {
		return 0, false
	}
	if ac13&0x0040 != 0 { // M bit
		return 0, false
	}
	if ac13&0x0010 != 0 { // Q bit, 25ft encoding
		n := int32(((ac13 & 0x1F80) >> 2) | ((ac13 & 0x0020) >> 1) | (ac13 & 0x000F))
		return n*25 - 1000, true
	}

	// Gillham code
	if 0 == ac13&0x1500 {
		// illegal C bits
		return 0, false
	}

	var h uint32
	if ac13&0x1000 != 0 { // C1
		h ^= 7
	}
	if ac13&0x0400 != 0 { // C2
		h ^= 3
	}
	if ac13&0x0100 != 0 { // C4
		h ^= 1
	}
	if h&5 == 5 {
		h ^= 2
	}
	if h > 5 {
		return 0, false
	}

	var f uint32
	if ac13&0x0010 != 0 { // D1
		f ^= 0x1FF
	}
	if ac13&0x0004 != 0 { // D2
		f ^= 0x0FF
	}
	if ac13&0x0001 != 0 { // D4
		f ^= 0x07F
	}
	if ac13&0x0800 != 0 { // A1
		f ^= 0x03F
	}
	if ac13&0x0200 != 0 { // A2
		f ^= 0x01F
	}
	if ac13&0x0080 != 0 { // A4
		f ^= 0x00F
	}
	if ac13&0x0020 != 0 { // B1
		f ^= 0x007
	}
	if ac13&0x0008 != 0 { // B2
		f ^= 0x003
	}
	if ac13&0x0002 != 0 { // B4
		f ^= 0x001
	}

	if f&1 != 0 {
		h = 6 - h
	}

	alt := int32(500*f+100*h) - 1300
	if alt < -1200 {
		return 0, false
	}
	return alt, true
}

// DecodeAC12 converts the 12 bit altitude field of an airborne position
// message. AC12 is AC13 with the M bit squeezed out.
func DecodeAC12(ac12 uint32) (int32, bool) {
	return DecodeAC13(((ac12 & 0x0FC0) << 1) | (ac12 & 0x003F))
}
