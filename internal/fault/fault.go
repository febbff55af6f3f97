// Package fault contains the helpers used to keep a guest fault at the
// smallest possible scope.
package fault

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Counter is the process-wide tally of contained faults, reported in the
// shutdown summary.
type Counter struct {
	n atomic.Int64
}

// Inc records one fault.
func (c *Counter) Inc() {
	c.n.Add(1)
}

// Add records n faults. Negative values are ignored.
func (c *Counter) Add(n int) {
	if n > 0 {
		c.n.Add(int64(n))
	}
}

// Count returns the number of faults recorded.
func (c *Counter) Count() int {
	return int(c.n.Load())
}

// Guard runs fn and turns a panic into an error.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case error:
				err = fmt.Errorf("panic: %w", v)
			case string:
				err = errors.New("panic: " + v)
			default:
				err = fmt.Errorf("panic: %v", v)
			}
		}
	}()
	return fn()
}
