package arm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type RoleAssignmentProperties struct {
	RoleDefinitionID string `json:"roleDefinitionId"`
	Scope            string `json:"scope"`
	PrincipalID      string `json:"principalId"`
}

type RoleAssignment struct {
	ID         string                   `json:"id,omitempty"`
	Name       string                   `json:"name,omitempty"`
	Properties RoleAssignmentProperties `json:"properties"`
}

type Permission struct {
	DataActions    []string `json:"dataActions"`
	NotDataActions []string `json:"notDataActions,omitempty"`
}

type RoleDefinitionProperties struct {
	RoleName         string       `json:"roleName"`
	Type             string       `json:"type"`
	AssignableScopes []string     `json:"assignableScopes,omitempty"`
	Permissions      []Permission `json:"permissions"`
}

type RoleDefinition struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Properties RoleDefinitionProperties `json:"properties"`
}

// ListSQLRoleAssignments returns every data-plane role assignment on the account.
func (c *Client) ListSQLRoleAssignments(ctx context.Context, accountID string) ([]RoleAssignment, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, errors.New("database account id is required")
	}
	endpoint, err := c.resourceURL(accountID+"/sqlRoleAssignments", c.apiVersion)
	if err != nil {
		return nil, err
	}

	var out []RoleAssignment
	for endpoint != "" {
		var page struct {
			Value    []RoleAssignment `json:"value"`
			NextLink string           `json:"nextLink"`
		}
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		endpoint = strings.TrimSpace(page.NextLink)
	}
	return out, nil
}

// GetSQLRoleDefinition fetches a role definition by its full resource id.
func (c *Client) GetSQLRoleDefinition(ctx context.Context, roleDefinitionID string) (RoleDefinition, error) {
	roleDefinitionID = strings.TrimSpace(roleDefinitionID)
	if roleDefinitionID == "" {
		return RoleDefinition{}, errors.New("role definition id is required")
	}
	endpoint, err := c.resourceURL(roleDefinitionID, c.apiVersion)
	if err != nil {
		return RoleDefinition{}, err
	}
	var out RoleDefinition
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return RoleDefinition{}, err
	}
	return out, nil
}

// CreateSQLRoleAssignment grants roleDefinitionID to principalID at scope on
// the account under a fresh assignment name.
func (c *Client) CreateSQLRoleAssignment(ctx context.Context, accountID, roleDefinitionID, scope, principalID string) (RoleAssignment, error) {
	accountID = strings.TrimSpace(accountID)
	principalID = strings.TrimSpace(principalID)
	if accountID == "" {
		return RoleAssignment{}, errors.New("database account id is required")
	}
	if principalID == "" {
		return RoleAssignment{}, errors.New("principal id is required")
	}
	endpoint, err := c.resourceURL(accountID+"/sqlRoleAssignments/"+uuid.NewString(), c.apiVersion)
	if err != nil {
		return RoleAssignment{}, err
	}
	payload := RoleAssignment{Properties: RoleAssignmentProperties{
		RoleDefinitionID: roleDefinitionID,
		Scope:            scope,
		PrincipalID:      principalID,
	}}
	resp, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return RoleAssignment{}, err
	}
	out := payload
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return RoleAssignment{}, err
		}
	}
	return out, nil
}
