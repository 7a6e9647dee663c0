package jobs

import (
	"errors"
	"strings"
	"time"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/format"
)

// NewCreateInput builds the request for a copy job owned by the target
// account. An empty job name falls back to the generated default.
func NewCreateInput(state copyjob.State, now time.Time) (accountID string, in arm.CreateDataTransferJobInput, err error) {
	pairs := state.Containers()
	if len(pairs) != 1 {
		return "", in, errors.New("source and target database and container are required")
	}
	if state.Target.Account.IsZero() {
		return "", in, errors.New("target account is required")
	}
	if state.Source.Account.IsZero() {
		return "", in, errors.New("source account is required")
	}

	name := strings.TrimSpace(state.JobName)
	if name == "" {
		name = format.DefaultJobName(pairs, now)
	}
	mode := state.MigrationType
	if mode == "" {
		mode = copyjob.Offline
	}

	in = arm.CreateDataTransferJobInput{
		JobName:         name,
		Mode:            string(mode),
		SourceDatabase:  pairs[0].SourceDatabaseName,
		SourceContainer: pairs[0].SourceContainerName,
		TargetDatabase:  pairs[0].TargetDatabaseName,
		TargetContainer: pairs[0].TargetContainerName,
	}
	if state.CrossAccount() {
		in.RemoteAccountName = state.Source.Account.AccountName
	}
	return state.Target.Account.ResourceID, in, nil
}
