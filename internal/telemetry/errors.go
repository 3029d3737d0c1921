/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0
*/

package telemetry

import "github.com/marcus-qen/agentcore/internal/agenterr"

func tracerContractErr(spanName string, calls int32) error {
	return agenterr.Newf(agenterr.KindTracerContract,
		"span %q finisher invoked %d times, want exactly 1", spanName, calls).
		WithMeta("span", spanName).
		WithMeta("finish_calls", calls)
}
