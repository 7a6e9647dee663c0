// Package copyjob holds the user's in-progress copy-job selection.
package copyjob

import (
	"fmt"
	"strings"

	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

type MigrationType string

const (
	Offline MigrationType = "Offline"
	Online  MigrationType = "Online"
)

// ParseMigrationType accepts the mode names case-insensitively.
func ParseMigrationType(raw string) (MigrationType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "offline":
		return Offline, nil
	case "online":
		return Online, nil
	default:
		return "", fmt.Errorf("unknown migration type %q (want Online or Offline)", raw)
	}
}

type Source struct {
	Account      resourceid.AccountRef
	Subscription string
	DatabaseID   string
	ContainerID  string
}

type Target struct {
	Account        resourceid.AccountRef
	SubscriptionID string
	DatabaseID     string
	ContainerID    string
}

// State is a value snapshot of the copy-job panel selection. Copies share
// no mutable data with the original.
type State struct {
	JobName                    string
	MigrationType              MigrationType
	Source                     Source
	Target                     Target
	SourceReadAccessFromTarget bool
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.Source.Account = resourceid.NewAccountRef(s.Source.Account)
	out.Target.Account = resourceid.NewAccountRef(s.Target.Account)
	return out
}

// CrossAccount reports whether source and target are different accounts.
// Missing accounts count as different.
func (s State) CrossAccount() bool {
	return !resourceid.IsIntraAccountCopy(s.Source.Account.ResourceID, s.Target.Account.ResourceID)
}

// Containers returns the single source/destination pair selected in s, or
// nil when either side is incomplete.
func (s State) Containers() []ContainerPair {
	if s.Source.DatabaseID == "" || s.Source.ContainerID == "" || s.Target.DatabaseID == "" || s.Target.ContainerID == "" {
		return nil
	}
	return []ContainerPair{{
		SourceDatabaseName:  s.Source.DatabaseID,
		SourceContainerName: s.Source.ContainerID,
		TargetDatabaseName:  s.Target.DatabaseID,
		TargetContainerName: s.Target.ContainerID,
	}}
}

type ContainerPair struct {
	SourceDatabaseName  string `json:"sourceDatabaseName"`
	SourceContainerName string `json:"sourceContainerName"`
	TargetDatabaseName  string `json:"targetDatabaseName"`
	TargetContainerName string `json:"targetContainerName"`
}
