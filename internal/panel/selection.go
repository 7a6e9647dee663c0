package panel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

// ErrInvalidSelection wraps selection input that cannot be applied.
var ErrInvalidSelection = errors.New("invalid copy job selection")

// Endpoint is one side of a copy as the console submits it: an account
// resource id plus the chosen database and container.
type Endpoint struct {
	AccountID      string `json:"accountId"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	DatabaseID     string `json:"databaseId,omitempty"`
	ContainerID    string `json:"containerId,omitempty"`
}

// Selection is a partial update of the panel. Nil fields are left alone.
type Selection struct {
	JobName       *string   `json:"jobName,omitempty"`
	MigrationType *string   `json:"migrationType,omitempty"`
	Source        *Endpoint `json:"source,omitempty"`
	Target        *Endpoint `json:"target,omitempty"`
}

// Apply reads the accounts named by sel and pushes the changes into s.
// Both accounts are fetched concurrently; on error s is left untouched.
func Apply(ctx context.Context, s *Session, accounts prereq.AccountReader, sel Selection) error {
	var mode copyjob.MigrationType
	if sel.MigrationType != nil {
		m, err := copyjob.ParseMigrationType(*sel.MigrationType)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
		}
		mode = m
	}

	var src, dst resourceid.AccountRef
	g, gctx := errgroup.WithContext(ctx)
	if sel.Source != nil {
		g.Go(func() (err error) {
			src, err = loadAccount(gctx, accounts, sel.Source.AccountID)
			return err
		})
	}
	if sel.Target != nil {
		g.Go(func() (err error) {
			dst, err = loadAccount(gctx, accounts, sel.Target.AccountID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if sel.JobName != nil {
		s.SetJobName(strings.TrimSpace(*sel.JobName))
	}
	if sel.Source != nil {
		s.SetSource(copyjob.Source{
			Account:      src,
			Subscription: firstNonEmpty(sel.Source.SubscriptionID, src.SubscriptionID),
			DatabaseID:   sel.Source.DatabaseID,
			ContainerID:  sel.Source.ContainerID,
		})
	}
	if sel.Target != nil {
		s.SetTarget(copyjob.Target{
			Account:        dst,
			SubscriptionID: firstNonEmpty(sel.Target.SubscriptionID, dst.SubscriptionID),
			DatabaseID:     sel.Target.DatabaseID,
			ContainerID:    sel.Target.ContainerID,
		})
	}
	if sel.MigrationType != nil {
		s.SetMigrationType(mode)
	}
	return nil
}

func loadAccount(ctx context.Context, accounts prereq.AccountReader, id string) (resourceid.AccountRef, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return resourceid.AccountRef{}, nil
	}
	if !resourceid.Parse(id).Complete() {
		return resourceid.AccountRef{}, fmt.Errorf("%w: malformed database account id %q", ErrInvalidSelection, id)
	}
	if accounts == nil {
		return resourceid.NewAccountRef(resourceid.AccountRef{ResourceID: id}), nil
	}
	acct, err := accounts.GetDatabaseAccount(ctx, id)
	if err != nil {
		return resourceid.AccountRef{}, err
	}
	ref := acct.AccountRef()
	if ref.ResourceID == "" {
		ref.ResourceID = id
		ref = resourceid.NewAccountRef(ref)
	}
	return ref, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
