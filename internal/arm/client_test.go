package arm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const testAccountID = "/subscriptions/sub-1/resourceGroups/rg-1/providers/Microsoft.DocumentDB/databaseAccounts/acct-1"

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewWithOptions(StaticToken("tkn"), Options{
		Endpoint:          srv.URL,
		OperationInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	return c
}

func TestMissingTokenIsHardError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	c, err := NewWithOptions(StaticToken("  "), Options{Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewWithOptions: %v", err)
	}
	_, err = c.GetDatabaseAccount(context.Background(), testAccountID)
	if !errors.Is(err, ErrMissingToken) {
		t.Fatalf("err = %v, want ErrMissingToken", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("server called %d times without a token", calls)
	}
}

func TestGetDatabaseAccount(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tkn" {
			t.Errorf("Authorization = %q", got)
		}
		if r.URL.Path != testAccountID {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("api-version"); got != DefaultAccountAPIVer {
			t.Errorf("api-version = %q", got)
		}
		_, _ = w.Write([]byte(`{"id":"` + testAccountID + `","name":"acct-1","identity":{"type":"SystemAssigned","principalId":"p-1"},"properties":{"defaultIdentity":"SystemAssignedIdentity","backupPolicy":{"type":"Continuous"},"enableAllVersionsAndDeletesChangeFeed":true,"capabilities":[{"name":"EnableOnlineContainerCopy"},{"name":" "}]}}`))
	}))
	defer srv.Close()

	acct, err := newTestClient(t, srv).GetDatabaseAccount(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("GetDatabaseAccount: %v", err)
	}
	if acct.Identity == nil || acct.Identity.PrincipalID != "p-1" {
		t.Fatalf("identity = %+v", acct.Identity)
	}
	if acct.Properties.BackupPolicy.Type != "Continuous" {
		t.Fatalf("backup policy = %q", acct.Properties.BackupPolicy.Type)
	}
	if names := acct.CapabilityNames(); len(names) != 1 || names[0] != "EnableOnlineContainerCopy" {
		t.Fatalf("CapabilityNames() = %v", names)
	}
}

func TestAPIErrorIsParsed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ms-request-id", "req-1")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"AuthorizationFailed","message":"no access"}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).GetDatabaseAccount(context.Background(), testAccountID)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden || apiErr.Code != "AuthorizationFailed" || apiErr.RequestID != "req-1" {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "no access") {
		t.Fatalf("error text = %q", err.Error())
	}
	if IsNotFound(err) {
		t.Fatal("IsNotFound() = true for 403")
	}
}

func TestThrottledRequestIsRetried(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"id":"x","name":"acct-1","properties":{}}`))
	}))
	defer srv.Close()

	if _, err := newTestClient(t, srv).GetDatabaseAccount(context.Background(), testAccountID); err != nil {
		t.Fatalf("GetDatabaseAccount: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("calls = %d want 2", got)
	}
}

func TestListSQLRoleAssignmentsPaging(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sqlRoleAssignments") {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("page") == "2" {
			_, _ = w.Write([]byte(`{"value":[{"name":"a2","properties":{"principalId":"p-2","roleDefinitionId":"rd-2"}}]}`))
			return
		}
		next := srv.URL + testAccountID + "/sqlRoleAssignments?page=2"
		_ = json.NewEncoder(w).Encode(map[string]any{
			"value":    []map[string]any{{"name": "a1", "properties": map[string]any{"principalId": "p-1", "roleDefinitionId": "rd-1"}}},
			"nextLink": next,
		})
	}))
	defer srv.Close()

	got, err := newTestClient(t, srv).ListSQLRoleAssignments(context.Background(), testAccountID)
	if err != nil {
		t.Fatalf("ListSQLRoleAssignments: %v", err)
	}
	if len(got) != 2 || got[1].Properties.PrincipalID != "p-2" {
		t.Fatalf("assignments = %+v", got)
	}
}

func TestCreateSQLRoleAssignment(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotBody RoleAssignment
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).CreateSQLRoleAssignment(context.Background(), testAccountID, testAccountID+"/sqlRoleDefinitions/00000000-0000-0000-0000-000000000001", testAccountID, "p-1")
	if err != nil {
		t.Fatalf("CreateSQLRoleAssignment: %v", err)
	}
	prefix := testAccountID + "/sqlRoleAssignments/"
	if !strings.HasPrefix(gotPath, prefix) || len(gotPath) == len(prefix) {
		t.Fatalf("path = %q", gotPath)
	}
	if gotBody.Properties.PrincipalID != "p-1" || gotBody.Properties.Scope != testAccountID {
		t.Fatalf("body = %+v", gotBody)
	}
}

func TestPatchDatabaseAccountWaitsForAsyncOperation(t *testing.T) {
	t.Parallel()

	var polls int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPatch:
			w.Header().Set("Azure-AsyncOperation", srv.URL+"/operations/op-1?api-version=x")
			w.WriteHeader(http.StatusAccepted)
		case strings.HasPrefix(r.URL.Path, "/operations/op-1"):
			if atomic.AddInt32(&polls, 1) < 3 {
				_, _ = w.Write([]byte(`{"status":"InProgress"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"Succeeded"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv).PatchDatabaseAccount(context.Background(), testAccountID, map[string]any{
		"identity": map[string]string{"type": "SystemAssigned"},
	})
	if err != nil {
		t.Fatalf("PatchDatabaseAccount: %v", err)
	}
	if status != OperationSucceeded {
		t.Fatalf("status = %q", status)
	}
	if got := atomic.LoadInt32(&polls); got != 3 {
		t.Fatalf("polls = %d want 3", got)
	}
}

func TestPatchDatabaseAccountUsesProvisioningState(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"properties":{"provisioningState":"Updating"}}`))
	}))
	defer srv.Close()

	status, err := newTestClient(t, srv).PatchDatabaseAccount(context.Background(), testAccountID, map[string]any{})
	if err != nil {
		t.Fatalf("PatchDatabaseAccount: %v", err)
	}
	if status != "Updating" {
		t.Fatalf("status = %q want Updating", status)
	}
}

func TestDataTransferJobEndpoints(t *testing.T) {
	t.Parallel()

	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api-version"); got != DataTransferAPIVersion {
			t.Errorf("api-version = %q", got)
		}
		seen = append(seen, r.Method+" "+strings.TrimPrefix(r.URL.Path, testAccountID))
		switch {
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/dataTransferJobs"):
			_, _ = w.Write([]byte(`{"value":[{"name":"job-1","properties":{"jobName":"job-1","status":"Running","processedCount":5,"totalCount":10}}]}`))
		default:
			_, _ = w.Write([]byte(`{"name":"job-1","properties":{"jobName":"job-1","status":"Paused"}}`))
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv)
	ctx := context.Background()

	jobs, err := c.ListDataTransferJobs(ctx, testAccountID)
	if err != nil {
		t.Fatalf("ListDataTransferJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Properties.Status != "Running" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if _, err := c.CreateDataTransferJob(ctx, testAccountID, CreateDataTransferJobInput{JobName: "job-1", Mode: "Offline", SourceDatabase: "db", SourceContainer: "c", TargetDatabase: "db2", TargetContainer: "c2"}); err != nil {
		t.Fatalf("CreateDataTransferJob: %v", err)
	}
	job, err := c.DataTransferJobAction(ctx, testAccountID, "job-1", JobActionPause)
	if err != nil {
		t.Fatalf("DataTransferJobAction: %v", err)
	}
	if job.Properties.Status != "Paused" {
		t.Fatalf("status = %q", job.Properties.Status)
	}
	if _, err := c.DataTransferJobAction(ctx, testAccountID, "job-1", "explode"); err == nil {
		t.Fatal("expected unsupported action error")
	}

	want := []string{
		"GET /dataTransferJobs",
		"PUT /dataTransferJobs/job-1",
		"POST /dataTransferJobs/job-1/pause",
	}
	if strings.Join(seen, "|") != strings.Join(want, "|") {
		t.Fatalf("requests = %v want %v", seen, want)
	}
}

func TestClientCredentialsCachesToken(t *testing.T) {
	t.Parallel()

	var tokenRequests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/tenant/oauth2/v2.0/token") {
			http.NotFound(w, r)
			return
		}
		_ = r.ParseForm()
		if got := r.PostForm.Get("scope"); got != managementScope {
			t.Errorf("scope = %q", got)
		}
		atomic.AddInt32(&tokenRequests, 1)
		_, _ = w.Write([]byte(`{"access_token":"abc","expires_in":"3600"}`))
	}))
	defer srv.Close()

	cc, err := NewClientCredentials("{TENANT}", "client", "secret", ClientCredentialsOptions{AuthorityBaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClientCredentials: %v", err)
	}
	for i := 0; i < 3; i++ {
		tok, err := cc.Token(context.Background())
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "abc" {
			t.Fatalf("token = %q", tok)
		}
	}
	if got := atomic.LoadInt32(&tokenRequests); got != 1 {
		t.Fatalf("tokenRequests = %d want 1", got)
	}
}

func TestNewClientCredentialsValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewClientCredentials("", "c", "s", ClientCredentialsOptions{}); err == nil {
		t.Fatal("expected tenant error")
	}
	if _, err := NewClientCredentials("t", "", "s", ClientCredentialsOptions{}); err == nil {
		t.Fatal("expected client error")
	}
	if _, err := NewClientCredentials("t", "c", " ", ClientCredentialsOptions{}); err == nil {
		t.Fatal("expected secret error")
	}
}
