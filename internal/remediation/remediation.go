// Package remediation applies the account changes that satisfy unmet
// copy-job prerequisites.
package remediation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/metrics"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
	"github.com/Azure/cosmos-explorer-sub010/internal/rbac"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

var (
	// ErrOperationNotSucceeded means the management plane finished the
	// change with a status other than Succeeded; nothing was applied locally.
	ErrOperationNotSucceeded = errors.New("remediation: operation did not succeed")
	// ErrManualRemediation is returned for sections the portal must fix.
	ErrManualRemediation = errors.New("remediation: section must be fixed in the Azure portal")
	ErrUnknownSection    = errors.New("remediation: unknown section")
)

// ARM is the subset of the management-plane client used by Remediator.
type ARM interface {
	GetDatabaseAccount(ctx context.Context, accountID string) (arm.DatabaseAccount, error)
	PatchDatabaseAccount(ctx context.Context, accountID string, patch any) (string, error)
	CreateSQLRoleAssignment(ctx context.Context, accountID, roleDefinitionID, scope, principalID string) (arm.RoleAssignment, error)
}

type Remediator struct {
	ARM ARM
}

type identityPatch struct {
	Identity struct {
		Type string `json:"type"`
	} `json:"identity"`
}

type propertiesPatch struct {
	Properties map[string]any `json:"properties"`
}

// Apply runs the remediation for section against state and returns the
// updated state. Outcomes are not trusted: callers re-resolve afterwards.
func (r Remediator) Apply(ctx context.Context, section prereq.SectionID, state copyjob.State) (copyjob.State, error) {
	if r.ARM == nil {
		return state, errors.New("remediation arm client is nil")
	}
	next := state.Clone()
	var err error
	switch section {
	case prereq.AddManagedIdentity:
		next.Target.Account, err = r.EnableManagedIdentity(ctx, state.Target.Account)
	case prereq.DefaultManagedIdentity:
		next.Target.Account, err = r.SetDefaultManagedIdentity(ctx, state.Target.Account)
	case prereq.ReadPermissionAssigned:
		err = r.AssignReadPermission(ctx, state.Source.Account, state.Target.Account.PrincipalID)
		if err == nil {
			next.SourceReadAccessFromTarget = true
		}
	case prereq.OnlineCopyEnabled:
		next.Source.Account, err = r.EnableOnlineCopy(ctx, state.Source.Account)
	case prereq.PointInTimeRestore:
		err = ErrManualRemediation
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RemediationsTotal.WithLabelValues(string(section), outcome).Inc()
	if err != nil {
		return state, err
	}
	slog.Info("remediation applied", "section", section)
	return next, nil
}

// EnableManagedIdentity attaches a system assigned identity to account.
func (r Remediator) EnableManagedIdentity(ctx context.Context, account resourceid.AccountRef) (resourceid.AccountRef, error) {
	var patch identityPatch
	patch.Identity.Type = resourceid.IdentityTypeSystemAssigned
	return r.patchAndRefresh(ctx, account, patch)
}

// SetDefaultManagedIdentity makes the system assigned identity the account default.
func (r Remediator) SetDefaultManagedIdentity(ctx context.Context, account resourceid.AccountRef) (resourceid.AccountRef, error) {
	patch := propertiesPatch{Properties: map[string]any{
		"defaultIdentity": resourceid.DefaultIdentitySystemAssigned,
	}}
	return r.patchAndRefresh(ctx, account, patch)
}

// AssignReadPermission grants the built-in Data Reader role on source to principalID.
func (r Remediator) AssignReadPermission(ctx context.Context, source resourceid.AccountRef, principalID string) error {
	if source.IsZero() {
		return errors.New("source account is required")
	}
	if strings.TrimSpace(principalID) == "" {
		return errors.New("target principal id is required")
	}
	roleDefinitionID := source.ResourceID + "/sqlRoleDefinitions/" + rbac.BuiltInDataReaderRoleID
	_, err := r.ARM.CreateSQLRoleAssignment(ctx, source.ResourceID, roleDefinitionID, source.ResourceID, principalID)
	return err
}

// EnableOnlineCopy turns on the all-versions-and-deletes change feed and
// appends the online copy capability, skipping steps already applied.
func (r Remediator) EnableOnlineCopy(ctx context.Context, account resourceid.AccountRef) (resourceid.AccountRef, error) {
	if account.IsZero() {
		return account, errors.New("source account is required")
	}
	current, err := r.ARM.GetDatabaseAccount(ctx, account.ResourceID)
	if err != nil {
		return account, err
	}

	if !current.Properties.EnableAllVersionsAndDeletesChangeFeed {
		patch := propertiesPatch{Properties: map[string]any{
			"enableAllVersionsAndDeletesChangeFeed": true,
		}}
		if err := r.patch(ctx, account.ResourceID, patch); err != nil {
			return account, err
		}
	}

	if !current.AccountRef().HasCapability(resourceid.CapabilityOnlineContainerCopy) {
		caps := append([]arm.Capability(nil), current.Properties.Capabilities...)
		caps = append(caps, arm.Capability{Name: resourceid.CapabilityOnlineContainerCopy})
		patch := propertiesPatch{Properties: map[string]any{"capabilities": caps}}
		if err := r.patch(ctx, account.ResourceID, patch); err != nil {
			return account, err
		}
	}

	fresh, err := r.ARM.GetDatabaseAccount(ctx, account.ResourceID)
	if err != nil {
		return account, err
	}
	return fresh.AccountRef(), nil
}

func (r Remediator) patchAndRefresh(ctx context.Context, account resourceid.AccountRef, patch any) (resourceid.AccountRef, error) {
	if account.IsZero() {
		return account, errors.New("target account is required")
	}
	if err := r.patch(ctx, account.ResourceID, patch); err != nil {
		return account, err
	}
	fresh, err := r.ARM.GetDatabaseAccount(ctx, account.ResourceID)
	if err != nil {
		return account, err
	}
	return fresh.AccountRef(), nil
}

func (r Remediator) patch(ctx context.Context, accountID string, patch any) error {
	if r.ARM == nil {
		return errors.New("remediation arm client is nil")
	}
	status, err := r.ARM.PatchDatabaseAccount(ctx, accountID, patch)
	if err != nil {
		return err
	}
	if status != arm.OperationSucceeded {
		return fmt.Errorf("%w: status %q", ErrOperationNotSucceeded, status)
	}
	return nil
}
