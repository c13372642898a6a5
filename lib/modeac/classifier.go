package modeac

// A raw 2 byte Mode A/C reply is ambiguous: the same 13 pulse positions
// carry either a squawk code (Mode A) or a Gillham altitude (Mode C), and
// nothing in the reply says which. The Classifier disambiguates
// statistically, using the squawks and altitudes the Mode S decoder has
// seen from DF5/DF21 and DF0/DF4/DF16/DF20. The counts accumulate for the
// life of the Classifier; they do not age out.
//
// This is deliberately not wired into the decoder core; feed it from the
// decoded message stream when a deployment actually receives raw Mode A/C.

type Class int

const (
	ClassUnknown Class = iota
	ClassSquawk
	ClassAltitude
)

func (c Class) String() string {
	switch c {
	case ClassSquawk:
		return "squawk"
	case ClassAltitude:
		return "altitude"
	}
	return "unknown"
}

// altitudes are bucketed to 100ft; a Mode C match tolerates one bucket of
// disagreement either side
const altitudeBucketFt = 100

type Classifier struct {
	squawkHits   map[uint32]uint32
	altitudeHits map[int32]uint32
}

func NewClassifier() *Classifier {
	return &Classifier{
		squawkHits:   make(map[uint32]uint32),
		altitudeHits: make(map[int32]uint32),
	}
}

// RecordSquawk notes an identity seen in a DF5/DF21 reply, in the decoded
// 4-octal-digit form.
func (c *Classifier) RecordSquawk(identity uint32) {
	c.squawkHits[identity]++
}

// RecordAltitude notes a barometric altitude seen in a Mode S altitude
// reply.
func (c *Classifier) RecordAltitude(feet int32) {
	c.altitudeHits[bucket(feet)]++
}

func bucket(feet int32) int32 {
	if feet < 0 {
		return -bucket(-feet)
	}
	return (feet + altitudeBucketFt/2) / altitudeBucketFt
}

// Classify decides what a raw interleaved Mode A/C code most likely is.
func (c *Classifier) Classify(code uint32) Class {
	var squawkVotes, altitudeVotes uint32

	squawkVotes = c.squawkHits[Identity(code)]

	if feet, ok := GillhamAltitude(code); ok {
		b := bucket(feet)
		for _, d := range []int32{-1, 0, 1} {
			altitudeVotes += c.altitudeHits[b+d]
		}
	}

	switch {
	case squawkVotes == 0 && altitudeVotes == 0:
		return ClassUnknown
	case squawkVotes >= altitudeVotes:
		return ClassSquawk
	}
	return ClassAltitude
}

// Identity decodes the raw code as a Mode A squawk. The 13 bit reply
// carries, high bit first, C1 A1 C2 A2 C4 A4 X B1 D1 B2 D2 B4 D4; the
// A/B/C/D groups are the octal digits of the identity.
func Identity(code uint32) uint32 {
	var a, b, c, d uint32

	if code&0x0800 != 0 { // A1
		a |= 1
	}
	if code&0x0200 != 0 { // A2
		a |= 2
	}
	if code&0x0080 != 0 { // A4
		a |= 4
	}
	if code&0x0020 != 0 { // B1
		b |= 1
	}
	if code&0x0008 != 0 { // B2
		b |= 2
	}
	if code&0x0002 != 0 { // B4
		b |= 4
	}
	if code&0x1000 != 0 { // C1
		c |= 1
	}
	if code&0x0400 != 0 { // C2
		c |= 2
	}
	if code&0x0100 != 0 { // C4
		c |= 4
	}
	if code&0x0010 != 0 { // D1
		d |= 1
	}
	if code&0x0004 != 0 { // D2
		d |= 2
	}
	if code&0x0001 != 0 { // D4
		d |= 4
	}

	return a*1000 + b*100 + c*10 + d
}

// GillhamAltitude decodes the raw code as a Mode C altitude. Unlike the
// Mode S AC13 field there is no Q bit; D1 is a real data pulse and the X
// pulse (0x0040) must be clear.
func GillhamAltitude(code uint32) (int32, bool) {
	if code&0x0040 != 0 {
		return 0, false
	}
	if 0 == code&0x1500 {
		return 0, false
	}

	var h uint32
	if code&0x1000 != 0 { // C1
		h ^= 7
	}
	if code&0x0400 != 0 { // C2
		h ^= 3
	}
	if code&0x0100 != 0 { // C4
		h ^= 1
	}
	if h&5 == 5 {
		h ^= 2
	}
	if h > 5 {
		return 0, false
	}

	var f uint32
	if code&0x0010 != 0 { // D1
		f ^= 0x1FF
	}
	if code&0x0004 != 0 { // D2
		f ^= 0x0FF
	}
	if code&0x0001 != 0 { // D4
		f ^= 0x07F
	}
	if code&0x0800 != 0 { // A1
		f ^= 0x03F
	}
	if code&0x0200 != 0 { // A2
		f ^= 0x01F
	}
	if code&0x0080 != 0 { // A4
		f ^= 0x00F
	}
	if code&0x0020 != 0 { // B1
		f ^= 0x007
	}
	if code&0x0008 != 0 { // B2
		f ^= 0x003
	}
	if code&0x0002 != 0 { // B4
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
