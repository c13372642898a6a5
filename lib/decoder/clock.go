package decoder

import (
	"math"
	"time"

	"plane.watch/mlat-client/lib/modes"
)

// The receiver clock tracker. Hardware timestamps are only trusted when
// they advance at roughly the rate the local monotonic clock does; a
// timestamp that disagrees by more than maxOffsetFactor seconds worth of
// ticks is an outlier. A single outlier is discarded as noise; a second
// consecutive one is taken as evidence the receiver clock really did reset
// and is adopted.

const (
	outlierLimit    = 1
	maxOffsetFactor = 1.25

	// ignore small backwards steps, they are reordering not clock resets
	backwardsWindowSecs = 90

	daySecs         = 86400
	rolloverLateSec = 86340
	rolloverEarly   = 60
)

var monoStart = time.Now()

func monoNowMillis() int64 {
	return time.Since(monoStart).Milliseconds()
}

type clock struct {
	frequency float64
	radarcape bool

	lastTimestamp uint64
	lastMono      int64
	outliers      int

	// nowMillis is swappable so the outlier maths can be tested without
	// sleeping.
	nowMillis func() int64
}

func newClock() clock {
	return clock{nowMillis: monoNowMillis}
}

// reset is called whenever the Reader mode changes; timestamps from the
// previous mode are in different units and must not be compared.
func (c *clock) reset(frequency float64, radarcape bool) {
	c.frequency = frequency
	c.radarcape = radarcape
	c.lastTimestamp = 0
	c.lastMono = 0
	c.outliers = 0
}

// check classifies ts against the wall clock. It returns true for an
// outlier and maintains the consecutive-outlier counter.
func (c *clock) check(ts uint64) bool {
	if modes.IsSyntheticTimestamp(ts) {
		return false
	}
	if 0 == c.frequency || 0 == c.lastTimestamp {
		return false
	}

	mono := c.nowMillis()
	tsElapsed := float64(int64(ts) - int64(c.lastTimestamp))
	sysElapsed := float64(mono-c.lastMono) * (c.frequency / 1000)

	if math.Abs(tsElapsed-sysElapsed) > maxOffsetFactor*c.frequency {
		c.outliers++
		return true
	}
	c.outliers = 0
	return false
}

// update adopts ts as the new clock reference, subject to the outlier and
// day-boundary rules.
func (c *clock) update(ts uint64) {
	if modes.IsSyntheticTimestamp(ts) {
		return
	}
	if 0 == c.lastTimestamp || 0 == c.frequency {
		c.adopt(ts)
		return
	}
	if c.lastTimestamp > ts && float64(c.lastTimestamp-ts) < backwardsWindowSecs*c.frequency {
		return
	}
	if c.radarcape && ts >= rolloverLateSec*1e9 && c.lastTimestamp <= rolloverEarly*1e9 {
		// the day just rolled over; do not rewind across the boundary
		return
	}
	if c.outliers > 0 && c.outliers <= outlierLimit {
		// tentatively discard a lone outlier; a second consecutive one
		// falls through and re-arms the clock
		return
	}
	c.adopt(ts)
}

func (c *clock) adopt(ts uint64) {
	c.lastTimestamp = ts
	c.lastMono = c.nowMillis()
	c.outliers = 0
}

// widenSBS lifts a 24 bit counter sample into the 64 bit time base,
// assuming at least one message per ~839ms counter wrap. The widened value
// is adopted unconditionally; SBS has no outlier handling.
func (c *clock) widenSBS(raw24 uint64) uint64 {
	full := (c.lastTimestamp &^ uint64(0xFFFFFF)) | (raw24 & 0xFFFFFF)
	if full < c.lastTimestamp {
		full += 1 << 24
	}
	c.adopt(full)
	return full
}
