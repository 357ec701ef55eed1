package engine

// Clock turns a steady frame signal into ticks. Every framesPerTick frames
// one tick is due. The frame position inside the current tick is exposed for
// interpolated drawing.
type Clock struct {
	framesPerTick int
	frame         int
	frames        uint64
}

// NewClock returns a clock that signals a tick every framesPerTick frames.
func NewClock(framesPerTick int) *Clock {
	if framesPerTick < 1 {
		framesPerTick = 1
	}
	return &Clock{framesPerTick: framesPerTick}
}

// Advance counts one frame and reports whether a tick is due.
func (c *Clock) Advance() bool {
	c.frames++
	c.frame = (c.frame + 1) % c.framesPerTick
	return c.frame == 0
}

// Sync restarts the sub-tick counter. The engine calls it when a tick runs.
func (c *Clock) Sync() {
	c.frame = 0
}

// RenderPhase is the fraction of the current tick that has elapsed, in [0,1).
func (c *Clock) RenderPhase() float64 {
	return float64(c.frame) / float64(c.framesPerTick)
}

// Frames returns the number of frames counted so far.
func (c *Clock) Frames() uint64 { return c.frames }

// FramesPerTick returns the configured divisor.
func (c *Clock) FramesPerTick() int { return c.framesPerTick }
