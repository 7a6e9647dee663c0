package arm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

const (
	OperationSucceeded = "Succeeded"
	OperationFailed    = "Failed"
	OperationCanceled  = "Canceled"
)

type ManagedIdentity struct {
	Type                   string                     `json:"type"`
	PrincipalID            string                     `json:"principalId,omitempty"`
	TenantID               string                     `json:"tenantId,omitempty"`
	UserAssignedIdentities map[string]json.RawMessage `json:"userAssignedIdentities,omitempty"`
}

type BackupPolicy struct {
	Type string `json:"type"`
}

type Capability struct {
	Name string `json:"name"`
}

type DatabaseAccountProperties struct {
	DocumentEndpoint                      string       `json:"documentEndpoint,omitempty"`
	ProvisioningState                     string       `json:"provisioningState,omitempty"`
	DefaultIdentity                       string       `json:"defaultIdentity,omitempty"`
	BackupPolicy                          BackupPolicy `json:"backupPolicy"`
	EnableAllVersionsAndDeletesChangeFeed bool         `json:"enableAllVersionsAndDeletesChangeFeed,omitempty"`
	Capabilities                          []Capability `json:"capabilities,omitempty"`
}

type DatabaseAccount struct {
	ID         string                    `json:"id"`
	Name       string                    `json:"name"`
	Location   string                    `json:"location"`
	Kind       string                    `json:"kind,omitempty"`
	Identity   *ManagedIdentity          `json:"identity,omitempty"`
	Properties DatabaseAccountProperties `json:"properties"`
}

// CapabilityNames flattens the account capability list.
func (a DatabaseAccount) CapabilityNames() []string {
	out := make([]string, 0, len(a.Properties.Capabilities))
	for _, c := range a.Properties.Capabilities {
		if name := strings.TrimSpace(c.Name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func (c *Client) GetDatabaseAccount(ctx context.Context, accountID string) (DatabaseAccount, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return DatabaseAccount{}, errors.New("database account id is required")
	}
	endpoint, err := c.resourceURL(accountID, c.apiVersion)
	if err != nil {
		return DatabaseAccount{}, err
	}
	var out DatabaseAccount
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return DatabaseAccount{}, err
	}
	return out, nil
}

// PatchDatabaseAccount applies patch to the account and waits for the
// long-running operation, returning its terminal status.
func (c *Client) PatchDatabaseAccount(ctx context.Context, accountID string, patch any) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", errors.New("database account id is required")
	}
	endpoint, err := c.resourceURL(accountID, c.apiVersion)
	if err != nil {
		return "", err
	}
	resp, err := c.do(ctx, http.MethodPatch, endpoint, patch)
	if err != nil {
		return "", err
	}

	if opURL := strings.TrimSpace(resp.header.Get("Azure-AsyncOperation")); opURL != "" {
		return c.waitForOperation(ctx, opURL)
	}

	var body struct {
		Properties struct {
			ProvisioningState string `json:"provisioningState"`
		} `json:"properties"`
	}
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &body); err != nil {
			return "", err
		}
	}
	if state := strings.TrimSpace(body.Properties.ProvisioningState); state != "" {
		return state, nil
	}
	if resp.status == http.StatusOK {
		return OperationSucceeded, nil
	}
	return "", errors.New("arm patch accepted without an operation to track")
}

func (c *Client) waitForOperation(ctx context.Context, opURL string) (string, error) {
	for {
		var op struct {
			Status string `json:"status"`
		}
		if err := c.getJSON(ctx, opURL, &op); err != nil {
			return "", err
		}
		switch status := strings.TrimSpace(op.Status); status {
		case OperationSucceeded, OperationFailed, OperationCanceled:
			return status, nil
		}
		if err := sleep(ctx, c.operationInterval); err != nil {
			return "", err
		}
	}
}

// AccountRef converts the account into the snapshot used by the copy-job panel.
func (a DatabaseAccount) AccountRef() resourceid.AccountRef {
	ref := resourceid.AccountRef{
		ResourceID:                            a.ID,
		DefaultIdentity:                       a.Properties.DefaultIdentity,
		BackupPolicyType:                      a.Properties.BackupPolicy.Type,
		EnableAllVersionsAndDeletesChangeFeed: a.Properties.EnableAllVersionsAndDeletesChangeFeed,
		Capabilities:                          a.CapabilityNames(),
	}
	if a.Identity != nil {
		ref.IdentityType = a.Identity.Type
		ref.PrincipalID = a.Identity.PrincipalID
	}
	return resourceid.NewAccountRef(ref)
}
