// Package interrupt models the interrupt mask and interrupt nesting state of a
// single CPU. On hardware, Disable and Restore compile down to masking and
// unmasking interrupts; here they flip a flag so that the scheduling logic can
// run hosted.
//
// A Controller is not safe for concurrent use. The hosted port only ever runs
// one goroutine at a time, which is what a single CPU looks like.
package interrupt

// State is the opaque mask state returned by Disable. It must be passed back
// to Restore in reverse order of the Disable calls.
type State uint8

const (
	enabled State = iota
	disabled
)

// Controller is the interrupt controller of one CPU.
type Controller struct {
	masked  bool
	nesting int
}

// Disable masks interrupts and returns the previous state. Calls nest.
func (c *Controller) Disable() State {
	state := enabled
	if c.masked {
		state = disabled
	}
	c.masked = true
	return state
}

// Restore restores the mask to what it was before the matching Disable.
func (c *Controller) Restore(state State) {
	c.masked = state == disabled
}

// Enable unconditionally unmasks interrupts. It is used when a thread runs
// for the first time, since there is no Disable for it to undo.
func (c *Controller) Enable() {
	c.masked = false
}

// Disabled reports whether interrupts are currently masked.
func (c *Controller) Disabled() bool {
	return c.masked
}

// In returns whether the CPU is currently inside an interrupt handler.
func (c *Controller) In() bool {
	return c.nesting > 0
}

// Enter is called on interrupt entry.
func (c *Controller) Enter() {
	c.nesting++
}

// Leave is called on interrupt exit. It returns true when leaving the
// outermost handler, which is when the exception return path must check
// whether to switch threads.
func (c *Controller) Leave() bool {
	if c.nesting == 0 {
		panic("interrupt: leaving an interrupt that was never entered")
	}
	c.nesting--
	return c.nesting == 0
}
