package modes

import "math"

// SignalRssi converts the raw signal byte to a dBish value for display.
// Formats without signal levels report 0, which comes out as -Inf.
func (m *Message) SignalRssi() float64 {
	return 10 * math.Log10(float64(m.Signal))
}
