package httpapp

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v5"

	"github.com/Azure/cosmos-explorer-sub010/internal/arm"
	"github.com/Azure/cosmos-explorer-sub010/internal/jobs"
	"github.com/Azure/cosmos-explorer-sub010/internal/resourceid"
)

func (es *EchoServer) jobAccount(c *echo.Context) (string, error) {
	if es.deps.ARM == nil {
		return "", echo.NewHTTPError(http.StatusNotImplemented, "management client is not configured")
	}
	account := strings.TrimSpace(c.QueryParam("account"))
	if !resourceid.Parse(account).Complete() {
		return "", echo.NewHTTPError(http.StatusBadRequest, "account query parameter must be a database account resource id")
	}
	return account, nil
}

func (es *EchoServer) handleListJobs(c *echo.Context) error {
	account, err := es.jobAccount(c)
	if err != nil {
		return err
	}
	raw, err := es.deps.ARM.ListDataTransferJobs(c.Request().Context(), account)
	if err != nil {
		return err
	}
	records, err := jobs.Normalize(raw)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"jobs": records})
}

func (es *EchoServer) handleGetJob(c *echo.Context) error {
	account, err := es.jobAccount(c)
	if err != nil {
		return err
	}
	job, err := es.deps.ARM.GetDataTransferJob(c.Request().Context(), account, c.Param("name"))
	if err != nil {
		return err
	}
	rec, err := jobs.NewRecord(job)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// handleJobAction checks the action against the job's current status before
// forwarding it, so a stale console cannot pause a finished job.
func (es *EchoServer) handleJobAction(c *echo.Context) error {
	account, err := es.jobAccount(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	name := c.Param("name")
	action := strings.ToLower(strings.TrimSpace(c.Param("action")))

	switch action {
	case arm.JobActionPause, arm.JobActionResume, arm.JobActionCancel, arm.JobActionComplete:
	default:
		return echo.NewHTTPError(http.StatusNotFound, "unknown job action "+action)
	}

	job, err := es.deps.ARM.GetDataTransferJob(ctx, account, name)
	if err != nil {
		return err
	}
	current, err := jobs.NewRecord(job)
	if err != nil {
		return err
	}
	if !jobs.Allowed(current.Status, current.Mode, action) {
		return echo.NewHTTPError(http.StatusConflict, "cannot "+action+" a job that is "+string(current.Status))
	}

	updated, err := es.deps.ARM.DataTransferJobAction(ctx, account, name, action)
	if err != nil {
		return err
	}
	if updated.Properties.Status == "" {
		return c.JSON(http.StatusAccepted, current)
	}
	if updated.Name == "" {
		updated.Name = current.Name
	}
	rec, err := jobs.NewRecord(updated)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}
