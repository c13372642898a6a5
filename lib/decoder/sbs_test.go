package decoder

import (
	"bytes"
	"errors"
	"testing"

	"plane.watch/mlat-client/lib/modes"
)

// scramble XORs the frame CRC into the trailing bytes, producing the wire
// form SBS uses.
func scramble(frame []byte) []byte {
	out := append([]byte(nil), frame...)
	crc := modes.CRC(out[:len(out)-3])
	out[len(out)-3] ^= byte(crc >> 16)
	out[len(out)-2] ^= byte(crc >> 8)
	out[len(out)-1] ^= byte(crc)
	return out
}

// escapeDLE doubles every 0x10.
func escapeDLE(in []byte) []byte {
	out := make([]byte, 0, len(in)+2)
	for _, b := range in {
		out = append(out, b)
		if sbsDLE == b {
			out = append(out, b)
		}
	}
	return out
}

func sbsRecord(recType byte, ts24 uint32, data []byte) []byte {
	content := []byte{recType, 0x00, byte(ts24), byte(ts24 >> 8), byte(ts24 >> 16)}
	content = append(content, data...)

	rec := []byte{sbsDLE, sbsSTX}
	rec = append(rec, escapeDLE(content)...)
	rec = append(rec, sbsDLE, sbsETX)
	rec = append(rec, escapeDLE([]byte{0xAA, 0xBB})...)
	return rec
}

func TestParseSBSLongFrame(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	canonical := []byte{0x8D, 0x48, 0x40, 0xD6, 0x20, 0x2C, 0xC3, 0x71, 0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x98}
	rec := sbsRecord(0x01, 0x000500, scramble(canonical))

	consumed, msgs, errPending, err := r.Feed(rec, 0)
	if nil != err || errPending {
		t.Fatal(err)
	}
	if consumed != len(rec) {
		t.Errorf("consumed %d of %d", consumed, len(rec))
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}

	msg := msgs[0]
	if msg.DF != 17 || !msg.Valid {
		t.Errorf("descramble failed: DF%d valid=%v", msg.DF, msg.Valid)
	}
	if msg.Addr != 0x4840D6 {
		t.Errorf("wrong address %06X", msg.Addr)
	}
	if !bytes.Equal(msg.Payload, canonical) {
		t.Errorf("payload %X, want the canonical frame", msg.Payload)
	}
	// 14 byte frames anchor with no extra offset
	if msg.Timestamp != 0x500 {
		t.Errorf("timestamp %X, want 500", msg.Timestamp)
	}
}

func TestParseSBSShortFrame(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	rec := sbsRecord(0x07, 0x001000, scramble(df11Frame))

	_, msgs, _, err := r.Feed(rec, 0)
	if nil != err {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].DF != 11 || !msgs[0].Valid {
		t.Errorf("bad decode: DF%d valid=%v", msgs[0].DF, msgs[0].Valid)
	}
	// short frames end 7 bytes early; the timestamp moves to the common
	// start-of-frame + 112us reference
	if want := uint64(0x1000 + 7*sbsTicksPerByte); msgs[0].Timestamp != want {
		t.Errorf("timestamp %d, want %d", msgs[0].Timestamp, want)
	}
}

func TestParseSBSModeAC(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	rec := sbsRecord(0x09, 0x002000, []byte{0x1A, 0x42})

	_, msgs, _, err := r.Feed(rec, 0)
	if nil != err {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].DF != modes.DFModeAC {
		t.Fatalf("expected one Mode A/C message, got %d", len(msgs))
	}
	if msgs[0].Addr != 0x1A42 {
		t.Errorf("wrong code %04X", msgs[0].Addr)
	}
}

func TestParseSBSEscapedContent(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	// both payload bytes are DLE and travel doubled
	rec := sbsRecord(0x09, 0x003000, []byte{0x10, 0x10})

	consumed, msgs, _, err := r.Feed(rec, 0)
	if nil != err {
		t.Fatal(err)
	}
	if consumed != len(rec) {
		t.Errorf("consumed %d of %d", consumed, len(rec))
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !bytes.Equal(msgs[0].Payload, []byte{0x10, 0x10}) {
		t.Errorf("escape decoding failed, payload %X", msgs[0].Payload)
	}
}

func TestParseSBSUnknownTypeSkipped(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	rec := sbsRecord(0x03, 0x004000, []byte{0x01, 0x02, 0x03})

	consumed, msgs, _, err := r.Feed(rec, 0)
	if nil != err {
		t.Fatal(err)
	}
	if consumed != len(rec) {
		t.Errorf("unknown record types should still be consumed, got %d of %d", consumed, len(rec))
	}
	if len(msgs) != 0 {
		t.Errorf("unknown record types produce no messages, got %d", len(msgs))
	}
}

func TestParseSBSCounterWrap(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	canonical := []byte{0x8D, 0x48, 0x40, 0xD6, 0x20, 0x2C, 0xC3, 0x71, 0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x98}

	buf := append(
		sbsRecord(0x01, 0xFFFF00, scramble(canonical)),
		sbsRecord(0x01, 0x000100, scramble(canonical))...)

	_, msgs, _, err := r.Feed(buf, 0)
	if nil != err {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Timestamp != 0xFFFF00 {
		t.Errorf("first timestamp %X, want FFFF00", msgs[0].Timestamp)
	}
	if msgs[1].Timestamp != 0x01000100 {
		t.Errorf("wrapped timestamp widened to %X, want 01000100", msgs[1].Timestamp)
	}
}

func TestParseSBSTruncated(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	rec := sbsRecord(0x09, 0x005000, []byte{0x20, 0x21})

	consumed, msgs, errPending, err := r.Feed(rec[:len(rec)-3], 0)
	if nil != err || errPending {
		t.Fatal(err)
	}
	if consumed != 0 || len(msgs) != 0 {
		t.Errorf("partial record should consume nothing, got (%d, %d msgs)", consumed, len(msgs))
	}
}

func TestParseSBSLostSync(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))

	var fe *FramingError
	_, _, _, err := r.Feed([]byte{0x42, 0x42}, 0)
	if !errors.As(err, &fe) {
		t.Fatalf("expected a framing error, got %v", err)
	}

	r = NewReader(WithMode(ModeSBS))
	_, _, _, err = r.Feed([]byte{0x10, 0x07, 0x00}, 0)
	if !errors.As(err, &fe) {
		t.Fatalf("DLE without STX should be a framing error, got %v", err)
	}
}

func TestParseSBSOversizeRecord(t *testing.T) {
	r := NewReader(WithMode(ModeSBS))
	rec := sbsRecord(0x01, 0x006000, make([]byte, 20))

	_, _, _, err := r.Feed(rec, 0)
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("oversize record should be a framing error, got %v", err)
	}
}
