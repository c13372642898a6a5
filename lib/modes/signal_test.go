package modes

import (
	"fmt"
	"math"
	"testing"
)

func TestSignalRssi(t *testing.T) {
	tests := []struct {
		name   string
		signal uint8
		want   string
	}{
		{name: "no signal", signal: 0, want: "-Inf"},
		{name: "weak", signal: 38, want: "15.8"},
		{name: "stronger", signal: 40, want: "16.0"},
		{name: "saturated", signal: 255, want: "24.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{Signal: tt.signal}
			if got := fmt.Sprintf("%0.1f", msg.SignalRssi()); got != tt.want {
				t.Errorf("SignalRssi() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignalRssiNoSignalIsInf(t *testing.T) {
	msg := Message{}
	if !math.IsInf(msg.SignalRssi(), -1) {
		t.Error("a missing signal level should read as -Inf")
	}
}
