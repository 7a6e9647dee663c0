package prereq

import (
	"context"
	"errors"
	"strings"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

type validateFunc func(ctx context.Context, r *Resolver, state copyjob.State) (bool, error)

type sectionDef struct {
	id          SectionID
	title       string
	description string
	// local validators derive the outcome from the state alone.
	local bool
	// fingerprint captures the parts of the state the outcome depends on.
	fingerprint func(state copyjob.State) string
	validate    validateFunc
}

type groupDef struct {
	id          GroupID
	title       string
	description string
	sections    []sectionDef
}

var crossAccountDef = groupDef{
	id:          CrossAccountGroup,
	title:       "Cross-account container copy",
	description: "The destination account reads the source account with its managed identity.",
	sections: []sectionDef{
		{
			id:          AddManagedIdentity,
			title:       "Enable system assigned managed identity",
			description: "The destination account needs a managed identity to authenticate to the source account.",
			local:       true,
			fingerprint: func(s copyjob.State) string {
				return key(s.Target.Account.ResourceID, s.Target.Account.IdentityType)
			},
			validate: func(_ context.Context, _ *Resolver, s copyjob.State) (bool, error) {
				return s.Target.Account.HasManagedIdentity(), nil
			},
		},
		{
			id:          DefaultManagedIdentity,
			title:       "Set the managed identity as default",
			description: "The destination account uses its managed identity by default for outbound access.",
			local:       true,
			fingerprint: func(s copyjob.State) string {
				return key(s.Target.Account.ResourceID, s.Target.Account.DefaultIdentity)
			},
			validate: func(_ context.Context, _ *Resolver, s copyjob.State) (bool, error) {
				return s.Target.Account.HasDefaultManagedIdentity(), nil
			},
		},
		{
			id:          ReadPermissionAssigned,
			title:       "Grant read permission on the source account",
			description: "The destination identity needs a data-plane role that can read source items.",
			fingerprint: func(s copyjob.State) string {
				return key(s.Target.Account.PrincipalID, s.Source.Account.ResourceID)
			},
			validate: func(ctx context.Context, r *Resolver, s copyjob.State) (bool, error) {
				if s.Source.Account.IsZero() || s.Target.Account.PrincipalID == "" {
					return false, nil
				}
				if r.Access == nil {
					return false, errors.New("prereq access checker is nil")
				}
				return r.Access.HasReadAccess(ctx, s.Target.Account.PrincipalID, s.Source.Account)
			},
		},
	},
}

var onlineDef = groupDef{
	id:          OnlineGroup,
	title:       "Online container copy",
	description: "The source account stays live while changes replicate to the destination.",
	sections: []sectionDef{
		{
			id:          PointInTimeRestore,
			title:       "Enable point in time restore",
			description: "Online copy requires continuous backup on the source account.",
			fingerprint: sourceFingerprint,
			validate: func(ctx context.Context, r *Resolver, s copyjob.State) (bool, error) {
				acct, ok, err := r.freshSource(ctx, s)
				if err != nil || !ok {
					return false, err
				}
				return acct.HasContinuousBackup(), nil
			},
		},
		{
			id:          OnlineCopyEnabled,
			title:       "Enable online copy",
			description: "The source account needs the all-versions-and-deletes change feed and the online copy capability.",
			fingerprint: sourceFingerprint,
			validate: func(ctx context.Context, r *Resolver, s copyjob.State) (bool, error) {
				acct, ok, err := r.freshSource(ctx, s)
				if err != nil || !ok {
					return false, err
				}
				return acct.OnlineCopyEnabled(), nil
			},
		},
	},
}

func sourceFingerprint(s copyjob.State) string {
	return key(s.Source.Account.ResourceID)
}

func key(parts ...string) string {
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, "|")
}

// freshSource re-reads the source account so online checks see remediations
// applied since the account was selected.
func (r *Resolver) freshSource(ctx context.Context, s copyjob.State) (resourceid.AccountRef, bool, error) {
	if s.Source.Account.IsZero() {
		return resourceid.AccountRef{}, false, nil
	}
	if r.Accounts == nil {
		return s.Source.Account, true, nil
	}
	acct, err := r.Accounts.GetDatabaseAccount(ctx, s.Source.Account.ResourceID)
	if err != nil {
		return resourceid.AccountRef{}, false, err
	}
	return acct.AccountRef(), true, nil
}
