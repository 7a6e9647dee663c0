package resourceid

import "strings"

const (
	IdentityTypeNone           = "None"
	IdentityTypeSystemAssigned = "SystemAssigned"
	IdentityTypeUserAssigned   = "UserAssigned"

	DefaultIdentitySystemAssigned     = "SystemAssignedIdentity"
	defaultIdentityUserAssignedPrefix = "UserAssignedIdentity="

	BackupPolicyContinuous = "Continuous"
	BackupPolicyPeriodic   = "Periodic"

	CapabilityOnlineContainerCopy = "EnableOnlineContainerCopy"
)

// AccountRef is an immutable snapshot of a database account as seen by the
// copy-job panel.
type AccountRef struct {
	ResourceID     string
	SubscriptionID string
	ResourceGroup  string
	AccountName    string

	PrincipalID     string
	IdentityType    string
	DefaultIdentity string

	BackupPolicyType                      string
	EnableAllVersionsAndDeletesChangeFeed bool
	Capabilities                          []string
}

// NewAccountRef fills the identity fields of ref from its resource id.
func NewAccountRef(ref AccountRef) AccountRef {
	if p := Parse(ref.ResourceID); p.Complete() {
		ref.SubscriptionID = p.SubscriptionID
		ref.ResourceGroup = p.ResourceGroup
		ref.AccountName = p.AccountName
	}
	ref.Capabilities = append([]string(nil), ref.Capabilities...)
	return ref
}

// IsZero reports whether no account has been selected.
func (a AccountRef) IsZero() bool {
	return strings.TrimSpace(a.ResourceID) == ""
}

// Same reports whether a and b identify the same account.
func (a AccountRef) Same(b AccountRef) bool {
	return IsIntraAccountCopy(a.ResourceID, b.ResourceID)
}

// HasManagedIdentity reports whether a system or user assigned identity is attached.
func (a AccountRef) HasManagedIdentity() bool {
	t := strings.ToLower(a.IdentityType)
	return strings.Contains(t, strings.ToLower(IdentityTypeSystemAssigned)) ||
		strings.Contains(t, strings.ToLower(IdentityTypeUserAssigned))
}

// HasDefaultManagedIdentity reports whether the account's default identity is a managed identity.
func (a AccountRef) HasDefaultManagedIdentity() bool {
	d := strings.TrimSpace(a.DefaultIdentity)
	return d == DefaultIdentitySystemAssigned || strings.HasPrefix(d, defaultIdentityUserAssignedPrefix)
}

// HasContinuousBackup reports whether point-in-time restore is enabled.
func (a AccountRef) HasContinuousBackup() bool {
	return strings.EqualFold(a.BackupPolicyType, BackupPolicyContinuous)
}

// HasCapability reports whether the named capability is enabled.
func (a AccountRef) HasCapability(name string) bool {
	for _, c := range a.Capabilities {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// OnlineCopyEnabled reports whether the account can serve as an online copy source.
func (a AccountRef) OnlineCopyEnabled() bool {
	return a.EnableAllVersionsAndDeletesChangeFeed && a.HasCapability(CapabilityOnlineContainerCopy)
}
