package panel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

const (
	srcID = "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.DocumentDB/databaseAccounts/src"
	dstID = "/subscriptions/sub-2/resourceGroups/rg-2/providers/Microsoft.DocumentDB/databaseAccounts/dst"
)

type countingAccounts struct {
	calls int32
	acct  arm.DatabaseAccount
}

func (c *countingAccounts) GetDatabaseAccount(ctx context.Context, id string) (arm.DatabaseAccount, error) {
	atomic.AddInt32(&c.calls, 1)
	return c.acct, nil
}

type countingAccess struct {
	calls int32
}

func (c *countingAccess) HasReadAccess(ctx context.Context, principalID string, account resourceid.AccountRef) (bool, error) {
	atomic.AddInt32(&c.calls, 1)
	return true, nil
}

type stubRemediator struct {
	err   error
	apply func(copyjob.State) copyjob.State
}

func (s stubRemediator) Apply(ctx context.Context, section prereq.SectionID, state copyjob.State) (copyjob.State, error) {
	if s.err != nil {
		return state, s.err
	}
	return s.apply(state), nil
}

func readyState() copyjob.State {
	return copyjob.State{
		MigrationType: copyjob.Online,
		Source:        copyjob.Source{Account: resourceid.AccountRef{ResourceID: srcID}},
		Target: copyjob.Target{Account: resourceid.AccountRef{
			ResourceID:      dstID,
			IdentityType:    resourceid.IdentityTypeSystemAssigned,
			DefaultIdentity: resourceid.DefaultIdentitySystemAssigned,
			PrincipalID:     "principal-1",
		}},
	}
}

func onlineReadyAccount() arm.DatabaseAccount {
	acct := arm.DatabaseAccount{ID: srcID}
	acct.Properties.BackupPolicy.Type = resourceid.BackupPolicyContinuous
	acct.Properties.EnableAllVersionsAndDeletesChangeFeed = true
	acct.Properties.Capabilities = []arm.Capability{{Name: resourceid.CapabilityOnlineContainerCopy}}
	return acct
}

func TestModeRoundTripRevalidatesOnlineSectionsOnly(t *testing.T) {
	t.Parallel()

	accounts := &countingAccounts{acct: onlineReadyAccount()}
	access := &countingAccess{}
	s := Open(&prereq.Resolver{Accounts: accounts, Access: access}, readyState())
	defer s.Close()
	ctx := context.Background()

	groups, err := s.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !prereq.AllSatisfied(groups) || len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if got := atomic.LoadInt32(&accounts.calls); got != 2 {
		t.Fatalf("account reads = %d want 2", got)
	}

	s.SetMigrationType(copyjob.Offline)
	cached := s.Cached()
	if _, ok := cached[prereq.PointInTimeRestore]; ok {
		t.Fatal("online section survived leaving Online")
	}
	if !cached[prereq.ReadPermissionAssigned] {
		t.Fatal("cross-account section dropped on mode change")
	}

	groups, _ = s.Resolve(ctx)
	if len(groups) != 1 || groups[0].ID != prereq.CrossAccountGroup {
		t.Fatalf("offline groups = %+v", groups)
	}

	s.SetMigrationType(copyjob.Online)
	if _, err := s.Resolve(ctx); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := atomic.LoadInt32(&accounts.calls); got != 4 {
		t.Fatalf("account reads = %d want 4 after returning to Online", got)
	}
	if got := atomic.LoadInt32(&access.calls); got != 1 {
		t.Fatalf("access checks = %d want 1", got)
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	t.Parallel()

	s := Open(nil, copyjob.State{})
	defer s.Close()
	if s.Snapshot().MigrationType != copyjob.Offline {
		t.Fatal("default mode should be Offline")
	}

	s.SetSource(copyjob.Source{Account: resourceid.AccountRef{ResourceID: srcID, Capabilities: []string{"A"}}})
	snap := s.Snapshot()
	snap.Source.Account.Capabilities[0] = "B"
	if got := s.Snapshot().Source.Account.Capabilities[0]; got != "A" {
		t.Fatalf("capability = %q, snapshot leaked into session", got)
	}
	if s.Snapshot().Source.Account.AccountName != "src" {
		t.Fatal("source account not normalized")
	}
}

func TestRemediateStoresStateAndForgetsSection(t *testing.T) {
	t.Parallel()

	state := readyState()
	state.MigrationType = copyjob.Offline
	state.Target.Account.IdentityType = resourceid.IdentityTypeNone
	s := Open(&prereq.Resolver{Access: &countingAccess{}}, state)
	defer s.Close()
	ctx := context.Background()

	groups, _ := s.Resolve(ctx)
	if sec, _ := prereq.Find(groups, prereq.AddManagedIdentity); sec.State != prereq.Unsatisfied {
		t.Fatalf("before: %v", sec.State)
	}

	fix := stubRemediator{apply: func(st copyjob.State) copyjob.State {
		st.Target.Account.IdentityType = resourceid.IdentityTypeSystemAssigned
		return st
	}}
	if err := s.Remediate(ctx, fix, prereq.AddManagedIdentity); err != nil {
		t.Fatalf("Remediate: %v", err)
	}
	if _, ok := s.Cached()[prereq.AddManagedIdentity]; ok {
		t.Fatal("remediated section still cached")
	}

	groups, _ = s.Resolve(ctx)
	if !prereq.AllSatisfied(groups) {
		t.Fatalf("after: %+v", groups)
	}
}

func TestRemediateFailureKeepsState(t *testing.T) {
	t.Parallel()

	s := Open(nil, readyState())
	defer s.Close()
	boom := errors.New("boom")
	err := s.Remediate(context.Background(), stubRemediator{err: boom}, prereq.OnlineCopyEnabled)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if s.Snapshot().Target.Account.PrincipalID != "principal-1" {
		t.Fatal("state changed after failed remediation")
	}
}

func TestClosedSessionRejectsWork(t *testing.T) {
	t.Parallel()

	s := Open(nil, readyState())
	s.Close()
	if _, err := s.Resolve(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Resolve err = %v", err)
	}
	if err := s.Remediate(context.Background(), stubRemediator{}, prereq.AddManagedIdentity); !errors.Is(err, ErrClosed) {
		t.Fatalf("Remediate err = %v", err)
	}
}
