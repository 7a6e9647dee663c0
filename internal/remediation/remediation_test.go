package remediation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
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

type fakeARM struct {
	accounts    map[string]arm.DatabaseAccount
	patchStatus string
	patches     []string
	gets        int
	assignments []arm.RoleAssignmentProperties
}

func (f *fakeARM) GetDatabaseAccount(ctx context.Context, id string) (arm.DatabaseAccount, error) {
	f.gets++
	return f.accounts[id], nil
}

func (f *fakeARM) PatchDatabaseAccount(ctx context.Context, id string, patch any) (string, error) {
	raw, _ := json.Marshal(patch)
	f.patches = append(f.patches, string(raw))
	if f.patchStatus != arm.OperationSucceeded {
		return f.patchStatus, nil
	}
	acct := f.accounts[id]
	var decoded struct {
		Identity   *arm.ManagedIdentity `json:"identity"`
		Properties map[string]json.RawMessage
	}
	_ = json.Unmarshal(raw, &decoded)
	if decoded.Identity != nil {
		acct.Identity = &arm.ManagedIdentity{Type: decoded.Identity.Type, PrincipalID: "new-principal"}
	}
	if v, ok := decoded.Properties["defaultIdentity"]; ok {
		_ = json.Unmarshal(v, &acct.Properties.DefaultIdentity)
	}
	if v, ok := decoded.Properties["enableAllVersionsAndDeletesChangeFeed"]; ok {
		_ = json.Unmarshal(v, &acct.Properties.EnableAllVersionsAndDeletesChangeFeed)
	}
	if v, ok := decoded.Properties["capabilities"]; ok {
		_ = json.Unmarshal(v, &acct.Properties.Capabilities)
	}
	f.accounts[id] = acct
	return arm.OperationSucceeded, nil
}

func (f *fakeARM) CreateSQLRoleAssignment(ctx context.Context, accountID, roleDefinitionID, scope, principalID string) (arm.RoleAssignment, error) {
	p := arm.RoleAssignmentProperties{RoleDefinitionID: roleDefinitionID, Scope: scope, PrincipalID: principalID}
	f.assignments = append(f.assignments, p)
	return arm.RoleAssignment{Properties: p}, nil
}

func newFake() *fakeARM {
	return &fakeARM{
		patchStatus: arm.OperationSucceeded,
		accounts: map[string]arm.DatabaseAccount{
			srcID: {ID: srcID, Properties: arm.DatabaseAccountProperties{Capabilities: []arm.Capability{{Name: "EnableServerless"}}}},
			dstID: {ID: dstID},
		},
	}
}

func baseState() copyjob.State {
	return copyjob.State{
		MigrationType: copyjob.Online,
		Source:        copyjob.Source{Account: resourceid.NewAccountRef(resourceid.AccountRef{ResourceID: srcID})},
		Target:        copyjob.Target{Account: resourceid.NewAccountRef(resourceid.AccountRef{ResourceID: dstID, PrincipalID: "p-1"})},
	}
}

func TestApplyEnableManagedIdentityReplacesTargetAccount(t *testing.T) {
	t.Parallel()

	fake := newFake()
	state := baseState()
	next, err := Remediator{ARM: fake}.Apply(context.Background(), prereq.AddManagedIdentity, state)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !next.Target.Account.HasManagedIdentity() || next.Target.Account.PrincipalID != "new-principal" {
		t.Fatalf("target account not refreshed: %+v", next.Target.Account)
	}
	if state.Target.Account.HasManagedIdentity() {
		t.Fatal("input state mutated")
	}
	if len(fake.patches) != 1 || fake.patches[0] != `{"identity":{"type":"SystemAssigned"}}` {
		t.Fatalf("patches = %v", fake.patches)
	}
	if fake.gets != 1 {
		t.Fatalf("gets = %d want 1 fresh read", fake.gets)
	}
}

func TestApplySetDefaultIdentity(t *testing.T) {
	t.Parallel()

	fake := newFake()
	next, err := Remediator{ARM: fake}.Apply(context.Background(), prereq.DefaultManagedIdentity, baseState())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !next.Target.Account.HasDefaultManagedIdentity() {
		t.Fatalf("default identity = %q", next.Target.Account.DefaultIdentity)
	}
	if fake.patches[0] != `{"properties":{"defaultIdentity":"SystemAssignedIdentity"}}` {
		t.Fatalf("patch = %s", fake.patches[0])
	}
}

func TestApplyNotSucceededLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	fake := newFake()
	fake.patchStatus = arm.OperationFailed
	state := baseState()
	next, err := Remediator{ARM: fake}.Apply(context.Background(), prereq.AddManagedIdentity, state)
	if !errors.Is(err, ErrOperationNotSucceeded) {
		t.Fatalf("err = %v, want ErrOperationNotSucceeded", err)
	}
	if next.Target.Account.HasManagedIdentity() {
		t.Fatal("state changed after failed operation")
	}
	if fake.gets != 0 {
		t.Fatalf("gets = %d, want no refresh after failure", fake.gets)
	}
}

func TestApplyAssignReadPermission(t *testing.T) {
	t.Parallel()

	fake := newFake()
	next, err := Remediator{ARM: fake}.Apply(context.Background(), prereq.ReadPermissionAssigned, baseState())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !next.SourceReadAccessFromTarget {
		t.Fatal("SourceReadAccessFromTarget not set")
	}
	if len(fake.assignments) != 1 {
		t.Fatalf("assignments = %d", len(fake.assignments))
	}
	got := fake.assignments[0]
	if got.PrincipalID != "p-1" || got.Scope != srcID || !strings.HasSuffix(got.RoleDefinitionID, "/sqlRoleDefinitions/00000000-0000-0000-0000-000000000001") {
		t.Fatalf("assignment = %+v", got)
	}
}

func TestApplyAssignReadPermissionNeedsPrincipal(t *testing.T) {
	t.Parallel()

	state := baseState()
	state.Target.Account.PrincipalID = ""
	if _, err := (Remediator{ARM: newFake()}).Apply(context.Background(), prereq.ReadPermissionAssigned, state); err == nil {
		t.Fatal("expected missing principal error")
	}
}

func TestApplyEnableOnlineCopy(t *testing.T) {
	t.Parallel()

	fake := newFake()
	next, err := Remediator{ARM: fake}.Apply(context.Background(), prereq.OnlineCopyEnabled, baseState())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !next.Source.Account.OnlineCopyEnabled() {
		t.Fatalf("source account = %+v", next.Source.Account)
	}
	if !next.Source.Account.HasCapability("EnableServerless") {
		t.Fatal("existing capabilities dropped")
	}
	if len(fake.patches) != 2 {
		t.Fatalf("patches = %v, want change feed then capabilities", fake.patches)
	}

	// A second run has nothing left to patch.
	fake.patches = nil
	if _, err := (Remediator{ARM: fake}).Apply(context.Background(), prereq.OnlineCopyEnabled, next); err != nil {
		t.Fatalf("Apply again: %v", err)
	}
	if len(fake.patches) != 0 {
		t.Fatalf("patches = %v, want none", fake.patches)
	}
}

func TestApplyPointInTimeRestoreIsManual(t *testing.T) {
	t.Parallel()

	_, err := Remediator{ARM: newFake()}.Apply(context.Background(), prereq.PointInTimeRestore, baseState())
	if !errors.Is(err, ErrManualRemediation) {
		t.Fatalf("err = %v", err)
	}
	_, err = Remediator{ARM: newFake()}.Apply(context.Background(), prereq.SectionID("bogus"), baseState())
	if !errors.Is(err, ErrUnknownSection) {
		t.Fatalf("err = %v", err)
	}
}
