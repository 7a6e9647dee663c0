// Package prereq decides whether a container copy job may start.
//
// Resolve walks each applicable group's sections in order. A section is
// evaluated only while every earlier section of its group is satisfied;
// later sections are reported unsatisfied without running their validators,
// because their remediations depend on the earlier ones.
package prereq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

// AccountReader fetches a fresh account document.
type AccountReader interface {
	GetDatabaseAccount(ctx context.Context, accountID string) (arm.DatabaseAccount, error)
}

// AccessChecker decides whether a principal can read an account's data.
type AccessChecker interface {
	HasReadAccess(ctx context.Context, principalID string, account resourceid.AccountRef) (bool, error)
}

// DefaultValidationTimeout bounds a shared validation once no single caller
// owns its lifetime.
const DefaultValidationTimeout = time.Minute

type Resolver struct {
	Accounts AccountReader
	Access   AccessChecker
	// ValidationTimeout bounds each shared network validation; zero uses
	// DefaultValidationTimeout.
	ValidationTimeout time.Duration

	flight singleflight.Group
}

// Resolve computes the prerequisite groups for state. It never mutates
// state; derived outcomes are written to cache.
func (r *Resolver) Resolve(ctx context.Context, state copyjob.State, cache *Cache) []Group {
	if cache == nil {
		cache = NewCache()
	}

	var groups []Group
	if state.CrossAccount() {
		groups = append(groups, r.resolveGroup(ctx, crossAccountDef, state, cache))
	}
	if state.MigrationType == copyjob.Online {
		groups = append(groups, r.resolveGroup(ctx, onlineDef, state, cache))
	}
	return groups
}

func (r *Resolver) resolveGroup(ctx context.Context, def groupDef, state copyjob.State, cache *Cache) Group {
	group := Group{
		ID:          def.id,
		Title:       def.title,
		Description: def.description,
		Sections:    make([]Section, 0, len(def.sections)),
	}

	allPriorSatisfied := true
	for _, sd := range def.sections {
		section := Section{ID: sd.id, Title: sd.title, Description: sd.description}

		if !allPriorSatisfied {
			section.State = Unsatisfied
			section.Blocked = true
			group.Sections = append(group.Sections, section)
			continue
		}

		ok, err := r.evaluate(ctx, sd, state, cache)
		switch {
		case err != nil:
			section.State = NotEvaluated
			section.Err = err
			group.Err = errors.Join(group.Err, fmt.Errorf("%s: %w", sd.id, err))
		case ok:
			section.State = Satisfied
			section.Disabled = true
		default:
			section.State = Unsatisfied
		}

		allPriorSatisfied = section.State == Satisfied
		group.Sections = append(group.Sections, section)
	}
	return group
}

func (r *Resolver) evaluate(ctx context.Context, sd sectionDef, state copyjob.State, cache *Cache) (bool, error) {
	fingerprint := sd.fingerprint(state)
	if v, ok := cache.Get(sd.id, fingerprint); ok {
		return v, nil
	}

	generation := cache.Generation()
	started := time.Now()
	value, err := r.run(ctx, sd, fingerprint, state)
	metrics.SectionValidationDuration.WithLabelValues(string(sd.id)).Observe(time.Since(started).Seconds())
	if err != nil {
		metrics.SectionValidationsTotal.WithLabelValues(string(sd.id), "error").Inc()
		slog.Warn("prerequisite validation failed", "section", sd.id, "err", err)
		return false, err
	}

	outcome := "unsatisfied"
	if value {
		outcome = "satisfied"
	}
	metrics.SectionValidationsTotal.WithLabelValues(string(sd.id), outcome).Inc()

	if !cache.Store(generation, sd.id, fingerprint, value) {
		metrics.StaleValidationsDiscardedTotal.Inc()
		slog.Debug("discarding stale prerequisite result", "section", sd.id)
	}
	return value, nil
}

// run invokes the section validator. Network-bound validators are shared by
// concurrent passes with the same section and fingerprint. The shared call
// is detached from the caller that started it, so a caller giving up never
// fails the others; each caller still stops waiting when its own ctx ends.
func (r *Resolver) run(ctx context.Context, sd sectionDef, fingerprint string, state copyjob.State) (bool, error) {
	if sd.local {
		return sd.validate(ctx, r, state)
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	timeout := r.ValidationTimeout
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	ch := r.flight.DoChan(string(sd.id)+"\x00"+fingerprint, func() (any, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()
		return sd.validate(shared, r, state)
	})
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return false, res.Err
		}
		return res.Val.(bool), nil
	}
}
