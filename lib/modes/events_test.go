package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRadarcapeSettings(t *testing.T) {
	tests := []struct {
		name     string
		settings uint8
		want     []string
	}{
		{
			name:     "radarcape defaults",
			settings: 0x11,
			want: []string{"beast", "all_frames", "check_crc", "gps_timestamps",
				"no_rtscts", "fec", "no_modeac"},
		},
		{
			name:     "avr legacy",
			settings: 0x00,
			want: []string{"avr", "all_frames", "check_crc", "legacy_timestamps",
				"no_rtscts", "fec", "no_modeac"},
		},
		{
			name:     "avr with mlat timestamps",
			settings: 0x04,
			want: []string{"avrmlat", "all_frames", "check_crc", "legacy_timestamps",
				"no_rtscts", "fec", "no_modeac"},
		},
		{
			name:     "everything on",
			settings: 0xFB,
			want: []string{"beast", "filtered_frames", "no_crc", "gps_timestamps",
				"rtscts", "no_fec", "modeac"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RadarcapeSettings(tt.settings))
		})
	}
}

func TestDecodeGPSStatus(t *testing.T) {
	status := DecodeGPSStatus(0x80 | 0x40 | 0x02)
	assert.True(t, status.UTCSynchronised)
	assert.True(t, status.TimeLock)
	assert.True(t, status.AntennaOK)
	assert.False(t, status.Emulated)
	assert.False(t, status.GoodSats)
}

func TestIsSyntheticTimestamp(t *testing.T) {
	assert.True(t, IsSyntheticTimestamp(0))
	assert.True(t, IsSyntheticTimestamp(MagicMLATTimestamp))
	assert.True(t, IsSyntheticTimestamp(MagicMLATTimestamp+10))
	assert.False(t, IsSyntheticTimestamp(MagicMLATTimestamp+11))
	assert.False(t, IsSyntheticTimestamp(1))
	assert.False(t, IsSyntheticTimestamp(MagicUATTimestamp+11))
}

func TestEventTypes(t *testing.T) {
	assert.Equal(t, "mode_change", ModeChangeEvent{}.EventType())
	assert.Equal(t, "timestamp_jump", TimestampJumpEvent{}.EventType())
	assert.Equal(t, "epoch_rollover", EpochRolloverEvent{}.EventType())
	assert.Equal(t, "radarcape_status", RadarcapeStatusEvent{}.EventType())
	assert.Equal(t, "radarcape_position", RadarcapePositionEvent{}.EventType())
}
