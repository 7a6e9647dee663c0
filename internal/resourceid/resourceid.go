package resourceid

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var accountPattern = regexp.MustCompile(`(?i)^/subscriptions/([^/]+)/resourceGroups/([^/]+)/providers/Microsoft\.DocumentDB/databaseAccounts/([^/]+)/?$`)

var fold = cases.Fold()

// Parsed is the decomposition of a database account resource path.
// Any field may be empty when the input did not match the canonical shape;
// callers check Complete rather than relying on a non-nil result.
type Parsed struct {
	SubscriptionID string
	ResourceGroup  string
	AccountName    string
}

// Complete reports whether all three identity fields were recovered.
func (p *Parsed) Complete() bool {
	return p != nil && p.SubscriptionID != "" && p.ResourceGroup != "" && p.AccountName != ""
}

// Parse decomposes /subscriptions/{sub}/resourceGroups/{rg}/providers/Microsoft.DocumentDB/databaseAccounts/{name}.
// It returns nil for empty input and a Parsed with empty fields for input
// that does not match.
func Parse(resourceID string) *Parsed {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return nil
	}
	m := accountPattern.FindStringSubmatch(resourceID)
	if m == nil {
		return &Parsed{}
	}
	return &Parsed{
		SubscriptionID: m[1],
		ResourceGroup:  m[2],
		AccountName:    m[3],
	}
}

// BuildAccountID renders the canonical account resource path.
func BuildAccountID(subscriptionID, resourceGroup, accountName string) string {
	return "/subscriptions/" + subscriptionID +
		"/resourceGroups/" + resourceGroup +
		"/providers/Microsoft.DocumentDB/databaseAccounts/" + accountName
}

// SameAccount compares two parsed identities case-insensitively.
func SameAccount(a, b *Parsed) bool {
	if !a.Complete() || !b.Complete() {
		return false
	}
	return equalFold(a.SubscriptionID, b.SubscriptionID) &&
		equalFold(a.ResourceGroup, b.ResourceGroup) &&
		equalFold(a.AccountName, b.AccountName)
}

// IsIntraAccountCopy reports whether both resource ids name the same account.
func IsIntraAccountCopy(source, target string) bool {
	return SameAccount(Parse(source), Parse(target))
}

func equalFold(a, b string) bool {
	return fold.String(a) == fold.String(b)
}
