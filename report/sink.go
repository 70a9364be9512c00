// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package report

import (
	"github.com/charmbracelet/log"

	"github.com/ttbt-io/masterprobe/engine"
)

// LogSink writes one log line per finished step and workflow.
type LogSink struct {
	Logger *log.Logger
}

var _ engine.Observer = LogSink{}

func (s LogSink) StepFinished(e engine.StepEvent) {
	kv := []any{
		"workflow", e.Workflow,
		"step", e.Step,
		"target", e.Target,
		"attempts", e.Attempt,
		"duration", e.Duration,
	}
	switch {
	case !e.Succeeded:
		s.Logger.Error("step failed", append(kv, "kind", e.ErrorKind, "err", e.ErrorDetail)...)
	case e.UsedFallback:
		s.Logger.Warn("step passed", append(kv, "candidate", e.CandidateIndex, "tier", e.Tier)...)
	default:
		s.Logger.Info("step passed", append(kv, "candidate", e.CandidateIndex, "tier", e.Tier)...)
	}
}

func (s LogSink) WorkflowFinished(e engine.WorkflowEvent) {
	kv := []any{"workflow", e.Workflow, "state", e.State, "steps", len(e.Steps), "duration", e.Duration}
	if !e.Succeeded {
		s.Logger.Error("workflow aborted", append(kv, "step", e.FailedStep, "kind", e.ErrorKind, "err", e.ErrorDetail)...)
		return
	}
	s.Logger.Info("workflow completed", kv...)
}
