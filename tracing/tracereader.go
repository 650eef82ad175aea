package tracing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/datarecording"
)

// BindQuery selects binds from a trace. Empty fields are ignored.
type BindQuery struct {
	// Session selects the binds of one tracing session.
	Session string

	// Name selects binds by simple component name.
	Name string

	// OnlyFailed selects the binds that completed without success.
	OnlyFailed bool

	// OnlyIncomplete selects the binds that never stopped.
	OnlyIncomplete bool
}

// BindTraceReader reads the binds written by a DBTracer.
type BindTraceReader struct {
	reader datarecording.DataReader
}

// NewBindTraceReader creates a reader on top of a DataReader.
func NewBindTraceReader(reader datarecording.DataReader) *BindTraceReader {
	reader.MapTable(BindTable, bindTableEntry{})

	return &BindTraceReader{reader: reader}
}

// ListBinds returns the binds that match the query, in start order.
func (r *BindTraceReader) ListBinds(
	ctx context.Context,
	query BindQuery,
) ([]BindRecord, error) {
	var (
		where []string
		args  []any
	)

	if query.Session != "" {
		where = append(where, "Session = ?")
		args = append(args, query.Session)
	}

	if query.OnlyFailed {
		where = append(where, "Completed = ? AND Success = ?")
		args = append(args, true, false)
	}

	if query.OnlyIncomplete {
		where = append(where, "Completed = ?")
		args = append(args, false)
	}

	rows, _, err := r.reader.Query(ctx, BindTable, datarecording.QueryParams{
		Where:   strings.Join(where, " AND "),
		Args:    args,
		OrderBy: "Session ASC, StartSeq ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("reading binds: %w", err)
	}

	records := make([]BindRecord, 0, len(rows))

	for _, row := range rows {
		rec, err := bindRecordFromEntry(row.(*bindTableEntry))
		if err != nil {
			return nil, err
		}

		if query.Name != "" && rec.SimpleName() != query.Name {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// ListSessions returns the sessions recorded in the trace.
func (r *BindTraceReader) ListSessions(ctx context.Context) ([]string, error) {
	rows, _, err := r.reader.Query(ctx, BindTable, datarecording.QueryParams{
		OrderBy: "Session ASC",
	})
	if err != nil {
		return nil, fmt.Errorf("reading sessions: %w", err)
	}

	var sessions []string

	for _, row := range rows {
		s := row.(*bindTableEntry).Session
		if len(sessions) == 0 || sessions[len(sessions)-1] != s {
			sessions = append(sessions, s)
		}
	}

	return sessions, nil
}

func bindRecordFromEntry(e *bindTableEntry) (BindRecord, error) {
	id, err := activity.Parse(e.ActivityID)
	if err != nil {
		return BindRecord{}, fmt.Errorf("bind %q: %w", e.Name, err)
	}

	related, err := activity.Parse(e.RelatedActivityID)
	if err != nil {
		return BindRecord{}, fmt.Errorf("bind %q: %w", e.Name, err)
	}

	entry, err := ParseEntryPoint(e.EntryPoint)
	if err != nil {
		return BindRecord{}, fmt.Errorf("bind %q: %w", e.Name, err)
	}

	rec := BindRecord{
		ActivityID:        id,
		RelatedActivityID: related,
		Name:              e.Name,
		EntryPoint:        entry,
		ContextLabel:      e.ContextLabel,
		Success:           e.Success,
		ResultPath:        e.ResultPath,
		Completed:         e.Completed,
		StartTime:         time.Unix(0, e.StartTime),
		StartSeq:          uint64(e.StartSeq),
		StopSeq:           openSeq,
	}

	if e.Completed {
		rec.EndTime = time.Unix(0, e.EndTime)
		rec.StopSeq = uint64(e.StopSeq)
	}

	return rec, nil
}
