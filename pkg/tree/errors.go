package tree

import (
	"errors"
	"fmt"
	"time"

	"github.com/vanderheijden86/vtree/pkg/model"
)

var (
	// ErrInvalidModelState is returned when binding a disposed or foreign
	// node.
	ErrInvalidModelState = errors.New("invalid model state")
	// ErrIndexOutOfRange is returned for a slot or row outside the pool or
	// lookup table.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrStructuralRace is returned when a traversal observed a children
	// list changing underneath it.
	ErrStructuralRace = errors.New("structural race detected")
)

// BindError wraps a failed bind or unbind with the row it targeted.
type BindError struct {
	Op  string // "bind" or "unbind"
	Row int
	Err error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.Op, e.Row, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

// LoadError wraps a lazy-load failure with the node it was loading.
type LoadError struct {
	Node  model.Node
	Cause error
	Time  time.Time
}

func (e *LoadError) Error() string {
	label := "<nil>"
	if e.Node != nil {
		label = e.Node.Label()
	}
	return fmt.Sprintf("load children of %q failed: %v", label, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}
