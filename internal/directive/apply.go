/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package directive

import (
	"context"

	"github.com/marcus-qen/agentcore/internal/agenterr"
)

// Apply interprets the full directive set a turn produced, in order,
// against host. StateModification directives are applied here too —
// re-applying what FoldState already folded into the agent's state is
// safe because folding is idempotent (spec.md §8 testable property 9)
// — everything else (Emit, Spawn, SpawnAgent, StopChild, Schedule,
// Stop, Enqueue, ErrorDirective) has effects only this function can
// carry out. Apply does not stop at the first error: it records each
// one against host and continues, then returns the joined error (nil
// if every directive succeeded) so one bad Emit cannot suppress a
// Stop directive queued after it.
func Apply(ctx context.Context, host Host, state map[string]any, ds []Directive) (map[string]any, error) {
	next, _, err := FoldState(state, ds)
	if err != nil {
		host.RecordError(string(agenterr.KindDirective), "state fold failed", map[string]any{"error": err.Error()})
		return state, err
	}

	var errs []error
	for _, d := range ds {
		if err := applyEffect(ctx, host, d); err != nil {
			errs = append(errs, err)
			host.RecordError(string(agenterr.KindDirective), "directive application failed", map[string]any{
				"kind":  d.DirectiveKind(),
				"error": err.Error(),
			})
		}
	}

	return next, agenterr.Chain(errs...)
}

func applyEffect(ctx context.Context, host Host, d Directive) error {
	switch v := d.(type) {
	case StateModification:
		return nil // already folded by Apply's FoldState call
	case Emit:
		return host.Dispatch(ctx, v.Sink, v.SignalType, v.Data)
	case Spawn:
		return host.SpawnChild(v.ChildID, v.Entry)
	case SpawnAgent:
		return host.SpawnAgent(v.InstanceID, v.Class, v.InitState)
	case StopChild:
		host.StopChild(v.ChildID, v.Reason)
		return nil
	case Schedule:
		return host.Schedule(v.JobID, v.Delay, v.CronExpr, v.SignalType, v.Data)
	case Stop:
		host.RequestStop(v.Reason)
		return nil
	case Pause:
		return host.Pause(v.Reason)
	case Enqueue:
		host.Enqueue(v.SignalType, v.Data, v.Delay)
		return nil
	case ErrorDirective:
		host.RecordError(v.Kind, v.Message, v.Meta)
		return nil
	default:
		return agenterr.Newf(agenterr.KindDirective, "unknown directive kind %q", d.DirectiveKind())
	}
}
