package mpeg

// PTSCorrector repairs non-monotonic timestamps for one stream. It is owned
// by the decode loop of that stream and needs no locking.
type PTSCorrector struct {
	FaultyPTS int
	FaultyDTS int

	lastPTS  int64
	lastDTS  int64
	last     int64
	returned bool
}

// NewPTSCorrector returns a corrector with no history.
func NewPTSCorrector() PTSCorrector {
	return PTSCorrector{lastPTS: NoPTS, lastDTS: NoPTS}
}

// Reset forgets all history; used when the stream is re-initialised.
func (c *PTSCorrector) Reset() {
	*c = NewPTSCorrector()
}

// Guess returns the best presentation timestamp for a decoded unit. The
// result never goes below the previous result.
func (c *PTSCorrector) Guess(pts, dts int64) int64 {
	if dts != NoPTS {
		if c.lastDTS != NoPTS && dts <= c.lastDTS {
			c.FaultyDTS++
		}
		c.lastDTS = dts
	}
	if pts != NoPTS {
		if c.lastPTS != NoPTS && pts <= c.lastPTS {
			c.FaultyPTS++
		}
		c.lastPTS = pts
	}

	guess := NoPTS
	if pts != NoPTS && (c.FaultyPTS <= c.FaultyDTS || dts == NoPTS) {
		guess = pts
	} else if dts != NoPTS {
		guess = dts
	} else if pts != NoPTS {
		guess = pts
	}

	switch {
	case guess == NoPTS && !c.returned:
		guess = 0
	case guess == NoPTS:
		guess = c.last
	case c.returned && guess < c.last:
		guess = c.last
	}

	c.last = guess
	c.returned = true
	return guess
}
