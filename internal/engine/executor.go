package engine

import (
	"context"
	"errors"

	"github.com/quillmail/quill/internal/directive"
	"github.com/quillmail/quill/internal/domain"
)

// execute runs one directive against the function registry with the
// configured timeout. Registry-level failures (unknown function, bad
// arguments) and timeouts are folded into the record's Error field so
// the round can continue; they never abort it.
func (e *Engine) execute(ctx context.Context, call directive.Call) domain.FunctionCallRecord {
	rec := domain.FunctionCallRecord{
		Name:      call.Name,
		Arguments: call.Arguments,
	}

	execCtx, cancel := context.WithTimeout(ctx, e.cfg.ToolTimeout)
	defer cancel()

	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := e.funcs.Invoke(execCtx, call.Name, call.Arguments)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			rec.Error = out.err.Error()
			return rec
		}
		rec.Result = out.result
		return rec

	case <-execCtx.Done():
		// A handler ignoring its context is abandoned, not force-killed.
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			rec.Error = ErrToolTimeout.Error()
		} else {
			rec.Error = execCtx.Err().Error()
		}
		return rec
	}
}
