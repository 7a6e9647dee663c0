// Package rbac decides whether a principal can read data from a database
// account through its data-plane role assignments.
package rbac

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

// BuiltInDataReaderRoleID is the well-known name of the Cosmos DB Built-in Data Reader role.
const BuiltInDataReaderRoleID = "00000000-0000-0000-0000-000000000001"

// RequiredDataActions must all appear in one permission entry of a custom role.
var RequiredDataActions = []string{
	"Microsoft.DocumentDB/databaseAccounts/readMetadata",
	"Microsoft.DocumentDB/databaseAccounts/sqlDatabases/containers/items/read",
}

// RoleReader is the subset of the management-plane client used by Evaluator.
type RoleReader interface {
	ListSQLRoleAssignments(ctx context.Context, accountID string) ([]arm.RoleAssignment, error)
	GetSQLRoleDefinition(ctx context.Context, roleDefinitionID string) (arm.RoleDefinition, error)
}

type Evaluator struct {
	Roles RoleReader
}

// HasReadAccess reports whether principalID holds a role on account that
// grants item reads. Any fetch failure fails the whole check.
func (e Evaluator) HasReadAccess(ctx context.Context, principalID string, account resourceid.AccountRef) (bool, error) {
	if e.Roles == nil {
		return false, errors.New("rbac role reader is nil")
	}
	principalID = strings.TrimSpace(principalID)
	if principalID == "" || account.IsZero() {
		return false, nil
	}

	assignments, err := e.Roles.ListSQLRoleAssignments(ctx, account.ResourceID)
	if err != nil {
		return false, err
	}
	roleIDs := roleDefinitionIDsFor(assignments, principalID)
	if len(roleIDs) == 0 {
		return false, nil
	}

	defs := make([]arm.RoleDefinition, len(roleIDs))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range roleIDs {
		g.Go(func() error {
			def, err := e.Roles.GetSQLRoleDefinition(gctx, id)
			if err != nil {
				return err
			}
			defs[i] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, def := range defs {
		if Sufficient(def) {
			return true, nil
		}
	}
	return false, nil
}

// Sufficient reports whether a single role definition grants item reads.
func Sufficient(def arm.RoleDefinition) bool {
	if def.Name == BuiltInDataReaderRoleID {
		return true
	}
	for _, p := range def.Properties.Permissions {
		if containsAll(p.DataActions, RequiredDataActions) {
			return true
		}
	}
	return false
}

func roleDefinitionIDsFor(assignments []arm.RoleAssignment, principalID string) []string {
	seen := make(map[string]struct{}, len(assignments))
	var out []string
	for _, a := range assignments {
		if !strings.EqualFold(strings.TrimSpace(a.Properties.PrincipalID), principalID) {
			continue
		}
		id := strings.TrimSpace(a.Properties.RoleDefinitionID)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsAll(have, want []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, a := range have {
		set[a] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; !ok {
			return false
		}
	}
	return true
}
