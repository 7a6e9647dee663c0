package jobs

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
)

const DefaultPollInterval = 30 * time.Second

// Lister reads the data transfer jobs of one account.
type Lister interface {
	ListDataTransferJobs(ctx context.Context, accountID string) ([]arm.DataTransferJob, error)
}

// Poller lists jobs on a fixed interval and calls OnChange whenever a job
// changes status or the set of jobs changes. A tick that arrives while the
// previous poll is still running is skipped.
type Poller struct {
	Lister    Lister
	AccountID string
	Interval  time.Duration
	OnChange  func([]CopyJobRecord)

	busy atomic.Bool
	last []CopyJobRecord
	seen bool
}

// Run polls until ctx is done. It returns only after any in-flight poll has
// finished, so OnChange is never called once Run has returned.
func (p *Poller) Run(ctx context.Context) {
	if p.Lister == nil || p.OnChange == nil {
		return
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	var inflight sync.WaitGroup
	defer inflight.Wait()

	p.tick(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				p.tick(ctx)
			}()
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.busy.CompareAndSwap(false, true) {
		metrics.JobPollsTotal.WithLabelValues("skipped").Inc()
		return
	}
	defer p.busy.Store(false)

	records, err := p.PollOnce(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, ErrUnrecognizedStatus) {
			slog.Error("job list contains an unrecognized status", "account", p.AccountID, "err", err)
		} else {
			slog.Warn("job poll failed", "account", p.AccountID, "err", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	if p.seen && IsEqual(p.last, records) {
		return
	}
	if p.seen {
		metrics.JobStatusTransitionsTotal.WithLabelValues(p.AccountID).Inc()
	}
	p.last = records
	p.seen = true
	p.OnChange(records)
}

// PollOnce lists and normalizes the account's jobs.
func (p *Poller) PollOnce(ctx context.Context) ([]CopyJobRecord, error) {
	raw, err := p.Lister.ListDataTransferJobs(ctx, p.AccountID)
	if err != nil {
		metrics.JobPollsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	records, err := Normalize(raw)
	if err != nil {
		metrics.JobPollsTotal.WithLabelValues("unrecognized").Inc()
		return nil, err
	}
	metrics.JobPollsTotal.WithLabelValues("ok").Inc()
	return records, nil
}

// Normalize converts every job; the first unrecognized status fails the list.
func Normalize(raw []arm.DataTransferJob) ([]CopyJobRecord, error) {
	out := make([]CopyJobRecord, 0, len(raw))
	for _, job := range raw {
		rec, err := NewRecord(job)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
