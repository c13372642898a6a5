package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plane.watch/mlat-client/lib/modes"
)

func TestHexAddr(t *testing.T) {
	assert.Equal(t, "4840d6", hexAddr(0x4840D6))
	assert.Equal(t, "000001", hexAddr(1))
}

func TestEnvelopeFrameJSON(t *testing.T) {
	alt := int32(12125)
	env := envelope{
		Instance:  "test",
		Type:      "frame",
		Timestamp: 42,
		DF:        17,
		Addr:      hexAddr(0x4840D6),
		Altitude:  &alt,
		EvenCPR:   true,
	}

	body, err := json.Marshal(&env)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(body, &back))
	assert.Equal(t, "frame", back["type"])
	assert.Equal(t, "4840d6", back["addr"])
	assert.Equal(t, float64(12125), back["altitude"])
	assert.Equal(t, true, back["even_cpr"])
	assert.NotContains(t, back, "odd_cpr")
	assert.NotContains(t, back, "squawk")
}

func TestEnvelopeForFrame(t *testing.T) {
	s := &NatsSink{instance: "test", tag: "roof"}
	msg := &modes.Message{
		Timestamp: 42,
		Signal:    40,
		DF:        17,
		Valid:     true,
		Addr:      0x4840D6,
		HasAddr:   true,
		Payload:   []byte{0x8D, 0x48},
	}

	env := s.envelopeFor(msg)
	assert.Equal(t, "frame", env.Type)
	assert.Equal(t, "roof", env.Tag)
	assert.Equal(t, "4840d6", env.Addr)
	require.NotNil(t, env.Rssi)
	assert.InDelta(t, 16.0, *env.Rssi, 0.05)
	assert.Equal(t, "8d48", env.Payload)
}

func TestEnvelopeForFrameWithoutSignal(t *testing.T) {
	s := &NatsSink{instance: "test"}
	env := s.envelopeFor(&modes.Message{DF: 17, Valid: true})
	assert.Nil(t, env.Rssi, "formats without signal levels publish no rssi")
}

func TestEnvelopeForEvent(t *testing.T) {
	s := &NatsSink{instance: "test"}
	msg := &modes.Message{
		DF:    modes.DFEventEpochRollover,
		Valid: true,
		Event: modes.EpochRolloverEvent{},
	}

	env := s.envelopeFor(msg)
	assert.Equal(t, "epoch_rollover", env.Type)
	assert.NotNil(t, env.Event)
}

func TestEnvelopeEventJSON(t *testing.T) {
	env := envelope{
		Instance: "test",
		Type:     "mode_change",
		Event: modes.ModeChangeEvent{
			Mode:      "RADARCAPE",
			Frequency: 1e9,
			Epoch:     "utc_midnight",
		},
	}

	body, err := json.Marshal(&env)
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(body, &back))
	event, ok := back["event"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "RADARCAPE", event["mode"])
	assert.Equal(t, "utc_midnight", event["epoch"])
}
