package wizard

// Controller is the step cursor. It never touches form state.
type Controller struct {
	current int
	count   int
}

// NewController returns a cursor positioned on the first of count steps.
func NewController(count int) *Controller {
	if count < 0 {
		count = 0
	}
	return &Controller{count: count}
}

// Current returns the active step index.
func (c *Controller) Current() int { return c.current }

// Count returns the number of steps.
func (c *Controller) Count() int { return c.count }

// IsFirst reports whether the cursor is on the first step.
func (c *Controller) IsFirst() bool { return c.current == 0 }

// IsLast reports whether the cursor is on the final step.
func (c *Controller) IsLast() bool { return c.current >= c.count-1 }

// Advance moves to the next step. It is a no-op on the last step and reports
// whether the cursor moved.
func (c *Controller) Advance() bool {
	if c.IsLast() {
		return false
	}
	c.current++
	return true
}

// Retreat moves to the previous step. It is a no-op on the first step.
func (c *Controller) Retreat() bool {
	if c.IsFirst() {
		return false
	}
	c.current--
	return true
}

// Reset returns the cursor to the first step.
func (c *Controller) Reset() { c.current = 0 }
