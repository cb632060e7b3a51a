package main

import (
	"context"
	"errors"

	"github.com/sweeney/irrigation-controller/internal/control"
)

var errNotApplied = errors.New("command not applied")

type commandRequest struct {
	action control.Action
	done   chan error
}

// commandQueue hands web commands to the control loop and waits for the
// result.
type commandQueue chan commandRequest

// Submit blocks until the loop has applied a, or ctx ends. A command that
// was already handed over still runs if ctx ends while waiting for it.
func (q commandQueue) Submit(ctx context.Context, a control.Action) error {
	req := commandRequest{action: a, done: make(chan error, 1)}
	select {
	case q <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
