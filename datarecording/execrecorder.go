package datarecording

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ExecInfoTable is the table that describes the recorded process.
const ExecInfoTable = "exec_info"

// ExecInfo is one property of the recorded process.
type ExecInfo struct {
	Property string
	Value    string
}

// ExecRecorder records how the traced process was started and when it
// ended.
type ExecRecorder struct {
	recorder DataRecorder
	entries  []ExecInfo
}

// NewExecRecorder creates an ExecRecorder that writes to the recorder.
func NewExecRecorder(recorder DataRecorder) *ExecRecorder {
	recorder.CreateTable(ExecInfoTable, ExecInfo{})

	return &ExecRecorder{recorder: recorder}
}

// Start logs the start time, the command line, the executable and the
// working directory.
func (e *ExecRecorder) Start() {
	e.add("Start Time", formatTime(time.Now()))
	e.add("Command", strings.Join(os.Args, " "))

	if ex, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(ex); err == nil {
			ex = resolved
		}

		e.add("Executable", ex)
		e.add("Executable Directory", filepath.Dir(ex))
	}

	if cwd, err := os.Getwd(); err == nil {
		e.add("Working Directory", cwd)
	}
}

// Add records a custom property.
func (e *ExecRecorder) Add(property, value string) {
	e.add(property, value)
}

func (e *ExecRecorder) add(property, value string) {
	e.entries = append(e.entries, ExecInfo{Property: property, Value: value})
}

// End writes the collected properties along with the exit time.
func (e *ExecRecorder) End() {
	e.add("End Time", formatTime(time.Now()))

	for _, entry := range e.entries {
		e.recorder.InsertData(ExecInfoTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func formatTime(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000000000")
}
