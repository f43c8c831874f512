/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package trace captures per-step execution records and renders them as
// a Chrome trace-event JSON array — the same format and begin/end-event
// shape as scm/trace.go's Tracefile, generalized from a single global
// trace file to one ExecutionTrace per call and from function names to
// ruleset step ids.
package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/launix-de/ordo-engine/value"
	"github.com/pierrec/lz4/v4"
)

// Config is the host-supplied trace configuration, per spec §6.
type Config struct {
	Enabled          bool
	CaptureInput     bool
	CaptureVariables bool
	MaxSteps         int
	SampleRate       float64 // in [0,1]; carried for hosts, the executor does not read it (Enabled alone decides)
	CompressOutput   bool    // lz4-compress chrome-trace JSON written via WriteTo
}

// StepTrace is one step's contribution to an ExecutionTrace.
type StepTrace struct {
	StepID            string
	StepName          string
	DurationUs        int64
	NextStepOrResult  string
	InputSnapshot     *value.Value
	VariablesSnapshot map[string]value.Value
}

// ExecutionTrace is the full per-execution record: an identifying UUID
// (so a host can correlate it with logs/metrics from the same call),
// the step-id path joined in visitation order, and each step's detail.
type ExecutionTrace struct {
	ExecutionID uuid.UUID
	Path        []string
	Steps       []StepTrace
}

// NewExecutionTrace starts an empty trace tagged with a fresh execution
// id, minted once per Execute call the way a request-scoped engine would
// tag a trace for correlation.
func NewExecutionTrace() *ExecutionTrace {
	return &ExecutionTrace{ExecutionID: uuid.New()}
}

// Append records one completed step, subject to cfg's MaxSteps cap —
// once reached, further steps are silently dropped from the trace (the
// execution itself is unaffected).
func (t *ExecutionTrace) Append(cfg Config, st StepTrace) {
	if cfg.MaxSteps > 0 && len(t.Steps) >= cfg.MaxSteps {
		return
	}
	t.Path = append(t.Path, st.StepID)
	t.Steps = append(t.Steps, st)
}

// chromeEvent mirrors the field set scm/trace.go's EventFull emits, kept
// here as the JSON shape rather than reusing scm's type directly since
// this package has its own lifecycle (one ExecutionTrace per execution,
// not one process-wide file).
type chromeEvent struct {
	Name string `json:"name"`
	Cat  string `json:"cat"`
	Ph   string `json:"ph"`
	TS   int64  `json:"ts"`
	PID  int    `json:"pid"`
	TID  int    `json:"tid"`
	S    string `json:"s"`
}

// WriteTo renders t as a Chrome trace-event JSON array (one begin/end
// event pair per step, mirroring scm/trace.go's B/E phases) to w,
// optionally lz4-compressed when cfg.CompressOutput is set — the same
// compression memcp's storage package reaches for on column data.
func WriteTo(w io.Writer, cfg Config, t *ExecutionTrace) error {
	if cfg.CompressOutput {
		lw := lz4.NewWriter(w)
		defer lw.Close()
		w = lw
	}
	events := make([]chromeEvent, 0, len(t.Steps)*2)
	var ts int64
	for i, st := range t.Steps {
		events = append(events, chromeEvent{
			Name: st.StepID, Cat: "step", Ph: "B", TS: ts, PID: 0, TID: i, S: "g",
		})
		ts += st.DurationUs
		events = append(events, chromeEvent{
			Name: st.StepID, Cat: "step", Ph: "E", TS: ts, PID: 0, TID: i, S: "g",
		})
	}
	enc := json.NewEncoder(w)
	return enc.Encode(events)
}

// stepStart returns the wall-clock start used to time a single step; kept
// as its own function so the executor's call sites read as intent
// ("time this step") rather than a bare time.Now().
func stepStart() time.Time { return time.Now() }

// StepTimer measures one step's wall-clock duration in microseconds.
type StepTimer struct{ start time.Time }

func StartStep() StepTimer { return StepTimer{start: stepStart()} }

func (s StepTimer) ElapsedUs() int64 { return time.Since(s.start).Microseconds() }

// Logger is the injected sink the rule package's Log action writes
// through. The default implementation below mirrors scm/trace.go's
// Tracefile: a JSON-lines file behind one mutex, not a logging
// framework the teacher never pulls in.
type Logger interface {
	Log(level, message string, fields map[string]interface{})
}

// FileLogger is the package's default Logger: one JSON object per line,
// append-only, guarded by a single mutex exactly like Tracefile.
type FileLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func NewFileLogger(w io.Writer) *FileLogger { return &FileLogger{w: w} }

type logLine struct {
	Time    string                 `json:"time"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

func (f *FileLogger) Log(level, message string, fields map[string]interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	line := logLine{Time: time.Now().UTC().Format(time.RFC3339Nano), Level: level, Message: message, Fields: fields}
	b, err := json.Marshal(line)
	if err != nil {
		return
	}
	fmt.Fprintln(f.w, string(b))
}
