package arm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const componentCosmosDBSQL = "CosmosDBSql"

// Job actions accepted by the data transfer service.
const (
	JobActionPause    = "pause"
	JobActionResume   = "resume"
	JobActionCancel   = "cancel"
	JobActionComplete = "complete"
)

type DataTransferEndpoint struct {
	Component         string `json:"component"`
	RemoteAccountName string `json:"remoteAccountName,omitempty"`
	DatabaseName      string `json:"databaseName"`
	ContainerName     string `json:"containerName"`
}

type DataTransferError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type DataTransferJobProperties struct {
	JobName            string               `json:"jobName,omitempty"`
	Source             DataTransferEndpoint `json:"source"`
	Destination        DataTransferEndpoint `json:"destination"`
	Status             string               `json:"status,omitempty"`
	ProcessedCount     int64                `json:"processedCount,omitempty"`
	TotalCount         int64                `json:"totalCount,omitempty"`
	LastUpdatedUTCTime string               `json:"lastUpdatedUtcTime,omitempty"`
	WorkerCount        int                  `json:"workerCount,omitempty"`
	Duration           string               `json:"duration,omitempty"`
	Mode               string               `json:"mode,omitempty"`
	Error              *DataTransferError   `json:"error,omitempty"`
}

type DataTransferJob struct {
	ID         string                    `json:"id,omitempty"`
	Name       string                    `json:"name,omitempty"`
	Properties DataTransferJobProperties `json:"properties"`
}

// CreateDataTransferJobInput describes a container copy into the account that
// owns the job.
type CreateDataTransferJobInput struct {
	JobName           string
	Mode              string
	RemoteAccountName string
	SourceDatabase    string
	SourceContainer   string
	TargetDatabase    string
	TargetContainer   string
}

func (c *Client) jobsURL(accountID string, parts ...string) (string, error) {
	accountID = strings.TrimRight(strings.TrimSpace(accountID), "/")
	if accountID == "" {
		return "", errors.New("database account id is required")
	}
	path := accountID + "/dataTransferJobs"
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return "", errors.New("data transfer job path segment is required")
		}
		path += "/" + url.PathEscape(p)
	}
	return c.resourceURL(path, DataTransferAPIVersion)
}

func (c *Client) ListDataTransferJobs(ctx context.Context, accountID string) ([]DataTransferJob, error) {
	endpoint, err := c.jobsURL(accountID)
	if err != nil {
		return nil, err
	}

	var out []DataTransferJob
	for endpoint != "" {
		var page struct {
			Value    []DataTransferJob `json:"value"`
			NextLink string            `json:"nextLink"`
		}
		if err := c.getJSON(ctx, endpoint, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Value...)
		endpoint = strings.TrimSpace(page.NextLink)
	}
	return out, nil
}

func (c *Client) GetDataTransferJob(ctx context.Context, accountID, jobName string) (DataTransferJob, error) {
	endpoint, err := c.jobsURL(accountID, jobName)
	if err != nil {
		return DataTransferJob{}, err
	}
	var out DataTransferJob
	if err := c.getJSON(ctx, endpoint, &out); err != nil {
		return DataTransferJob{}, err
	}
	return out, nil
}

func (c *Client) CreateDataTransferJob(ctx context.Context, accountID string, in CreateDataTransferJobInput) (DataTransferJob, error) {
	endpoint, err := c.jobsURL(accountID, in.JobName)
	if err != nil {
		return DataTransferJob{}, err
	}
	payload := DataTransferJob{Properties: DataTransferJobProperties{
		Source: DataTransferEndpoint{
			Component:         componentCosmosDBSQL,
			RemoteAccountName: in.RemoteAccountName,
			DatabaseName:      in.SourceDatabase,
			ContainerName:     in.SourceContainer,
		},
		Destination: DataTransferEndpoint{
			Component:     componentCosmosDBSQL,
			DatabaseName:  in.TargetDatabase,
			ContainerName: in.TargetContainer,
		},
		Mode: in.Mode,
	}}
	resp, err := c.do(ctx, http.MethodPut, endpoint, payload)
	if err != nil {
		return DataTransferJob{}, err
	}
	var out DataTransferJob
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return DataTransferJob{}, err
	}
	return out, nil
}

// DataTransferJobAction posts one of the JobAction* verbs to the job.
func (c *Client) DataTransferJobAction(ctx context.Context, accountID, jobName, action string) (DataTransferJob, error) {
	switch action {
	case JobActionPause, JobActionResume, JobActionCancel, JobActionComplete:
	default:
		return DataTransferJob{}, fmt.Errorf("unsupported data transfer job action %q", action)
	}
	endpoint, err := c.jobsURL(accountID, jobName, action)
	if err != nil {
		return DataTransferJob{}, err
	}
	resp, err := c.do(ctx, http.MethodPost, endpoint, struct{}{})
	if err != nil {
		return DataTransferJob{}, err
	}
	var out DataTransferJob
	if len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, &out); err != nil {
			return DataTransferJob{}, err
		}
	}
	return out, nil
}
