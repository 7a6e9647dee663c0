// Package jobs normalizes data transfer job statuses and watches job lists
// for status transitions.
package jobs

import (
	"errors"
	"fmt"
	"math"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/format"
)

// Status is the closed set of states the console renders.
type Status string

const (
	Pending    Status = "Pending"
	InProgress Status = "InProgress"
	Paused     Status = "Paused"
	Completed  Status = "Completed"
	Failed     Status = "Failed"
	Cancelled  Status = "Cancelled"
)

var ErrUnrecognizedStatus = errors.New("unrecognized job status")

// backendStatuses is matched case-sensitively.
var backendStatuses = map[string]Status{
	"Pending":      Pending,
	"InProgress":   InProgress,
	"Running":      InProgress,
	"Partitioning": InProgress,
	"Paused":       Paused,
	"Completed":    Completed,
	"Failed":       Failed,
	"Faulted":      Failed,
	"Skipped":      Cancelled,
	"Cancelled":    Cancelled,
}

// MapStatus converts a backend status. Values outside the table are an error,
// never a guess.
func MapStatus(raw string) (Status, error) {
	s, ok := backendStatuses[raw]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnrecognizedStatus, raw)
	}
	return s, nil
}

// Terminal reports whether no further transition is expected.
func (s Status) Terminal() bool {
	return s == Completed || s == Failed || s == Cancelled
}

// Actions lists the job actions the console offers for a job in status s.
// Complete only applies to online jobs, which keep replicating until told
// to stop.
func Actions(s Status, mode string) []string {
	online := mode == "Online"
	switch s {
	case Pending:
		return []string{arm.JobActionPause, arm.JobActionCancel}
	case InProgress:
		if online {
			return []string{arm.JobActionPause, arm.JobActionComplete, arm.JobActionCancel}
		}
		return []string{arm.JobActionPause, arm.JobActionCancel}
	case Paused:
		if online {
			return []string{arm.JobActionResume, arm.JobActionComplete, arm.JobActionCancel}
		}
		return []string{arm.JobActionResume, arm.JobActionCancel}
	default:
		return nil
	}
}

// Allowed reports whether action is offered for status s.
func Allowed(s Status, mode, action string) bool {
	for _, a := range Actions(s, mode) {
		if a == action {
			return true
		}
	}
	return false
}

type Endpoint struct {
	AccountName   string `json:"accountName,omitempty"`
	DatabaseName  string `json:"databaseName"`
	ContainerName string `json:"containerName"`
}

// CopyJobRecord is one job row in the monitoring view.
type CopyJobRecord struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	Status               Status   `json:"status"`
	CompletionPercentage int      `json:"completionPercentage"`
	Duration             string   `json:"duration"`
	LastUpdatedTime      string   `json:"lastUpdatedTime"`
	Timestamp            int64    `json:"timestamp"`
	Mode                 string   `json:"mode"`
	Source               Endpoint `json:"source"`
	Destination          Endpoint `json:"destination"`
	Error                string   `json:"error,omitempty"`
	Actions              []string `json:"actions,omitempty"`
}

// NewRecord normalizes a backend job. Unknown statuses are returned as
// ErrUnrecognizedStatus. Durations and timestamps that fail to parse are
// kept as the backend sent them.
func NewRecord(job arm.DataTransferJob) (CopyJobRecord, error) {
	p := job.Properties
	status, err := MapStatus(p.Status)
	if err != nil {
		return CopyJobRecord{}, fmt.Errorf("job %s: %w", job.Name, err)
	}

	name := job.Name
	if name == "" {
		name = p.JobName
	}
	rec := CopyJobRecord{
		ID:                   job.ID,
		Name:                 name,
		Status:               status,
		CompletionPercentage: completion(p.ProcessedCount, p.TotalCount),
		Duration:             p.Duration,
		LastUpdatedTime:      p.LastUpdatedUTCTime,
		Mode:                 p.Mode,
		Source: Endpoint{
			AccountName:   p.Source.RemoteAccountName,
			DatabaseName:  p.Source.DatabaseName,
			ContainerName: p.Source.ContainerName,
		},
		Destination: Endpoint{
			AccountName:   p.Destination.RemoteAccountName,
			DatabaseName:  p.Destination.DatabaseName,
			ContainerName: p.Destination.ContainerName,
		},
		Actions: Actions(status, p.Mode),
	}
	if p.Error != nil {
		rec.Error = p.Error.Message
	}
	if d, ok := format.ConvertTime(p.Duration); ok {
		rec.Duration = d
	}
	if dt, ok := format.FormatUTCDateTime(p.LastUpdatedUTCTime); ok {
		rec.LastUpdatedTime = dt.FormattedDateTime
		rec.Timestamp = dt.Timestamp
	}
	return rec, nil
}

func completion(processed, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := math.Round(float64(processed) / float64(total) * 100)
	return int(min(max(pct, 0), 100))
}

// IsEqual is a coarse diff: equal lengths and every job in prev has a job
// with the same name and status in next. Progress and duration are ignored.
func IsEqual(prev, next []CopyJobRecord) bool {
	if len(prev) != len(next) {
		return false
	}
	byName := make(map[string]Status, len(next))
	for _, j := range next {
		byName[j.Name] = j.Status
	}
	for _, j := range prev {
		s, ok := byName[j.Name]
		if !ok || s != j.Status {
			return false
		}
	}
	return true
}
