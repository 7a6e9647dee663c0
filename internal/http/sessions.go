package httpapp

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v5"

	"github.com/Azure/cosmos-explorer-sub010/internal/copyjob"
	"github.com/Azure/cosmos-explorer-sub010/internal/format"
	"github.com/Azure/cosmos-explorer-sub010/internal/jobs"
	"github.com/Azure/cosmos-explorer-sub010/internal/panel"
	"github.com/Azure/cosmos-explorer-sub010/internal/prereq"
)

const maxBodyBytes = 1 << 20

var errSessionNotFound = errors.New("copy job session not found")

type storedSession struct {
	sess     *panel.Session
	lastUsed time.Time
}

// sessionStore keeps one panel session per open console panel. Sessions
// idle for longer than idle are closed by sweep.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*storedSession
	idle     time.Duration
	now      func() time.Time
	done     chan struct{}
	stopOnce sync.Once
}

func newSessionStore(idle time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*storedSession),
		idle:     idle,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (s *sessionStore) add(sess *panel.Session) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &storedSession{sess: sess, lastUsed: s.now()}
	s.mu.Unlock()
	return id
}

func (s *sessionStore) get(id string) (*panel.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, errSessionNotFound
	}
	entry.lastUsed = s.now()
	return entry.sess, nil
}

func (s *sessionStore) remove(id string) (*panel.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	delete(s.sessions, id)
	return entry.sess, true
}

// sweep closes sessions whose last request is older than the idle timeout
// and reports how many it closed.
func (s *sessionStore) sweep() int {
	if s.idle <= 0 {
		return 0
	}
	cutoff := s.now().Add(-s.idle)
	var expired []*panel.Session
	s.mu.Lock()
	for id, entry := range s.sessions {
		if entry.lastUsed.Before(cutoff) {
			expired = append(expired, entry.sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	if len(expired) > 0 {
		slog.Info("closed idle copy job sessions", "count", len(expired))
	}
	return len(expired)
}

func (s *sessionStore) sweepEvery(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *sessionStore) closeAll() {
	s.stopOnce.Do(func() { close(s.done) })
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*storedSession)
	s.mu.Unlock()
	for _, entry := range all {
		entry.sess.Close()
	}
}

type stateView struct {
	JobName                    string                  `json:"jobName"`
	DefaultJobName             string                  `json:"defaultJobName,omitempty"`
	MigrationType              copyjob.MigrationType   `json:"migrationType"`
	Source                     endpointView            `json:"source"`
	Target                     endpointView            `json:"target"`
	SourceReadAccessFromTarget bool                    `json:"sourceReadAccessFromTarget"`
	Containers                 []copyjob.ContainerPair `json:"containers,omitempty"`
}

type endpointView struct {
	AccountID      string `json:"accountId,omitempty"`
	AccountName    string `json:"accountName,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`
	DatabaseID     string `json:"databaseId,omitempty"`
	ContainerID    string `json:"containerId,omitempty"`
	PrincipalID    string `json:"principalId,omitempty"`
}

type sessionView struct {
	ID    string    `json:"id"`
	State stateView `json:"state"`
}

func newStateView(s copyjob.State, now time.Time) stateView {
	return stateView{
		JobName:        s.JobName,
		DefaultJobName: format.DefaultJobName(s.Containers(), now),
		MigrationType:  s.MigrationType,
		Source: endpointView{
			AccountID:      s.Source.Account.ResourceID,
			AccountName:    s.Source.Account.AccountName,
			SubscriptionID: s.Source.Subscription,
			DatabaseID:     s.Source.DatabaseID,
			ContainerID:    s.Source.ContainerID,
		},
		Target: endpointView{
			AccountID:      s.Target.Account.ResourceID,
			AccountName:    s.Target.Account.AccountName,
			SubscriptionID: s.Target.SubscriptionID,
			DatabaseID:     s.Target.DatabaseID,
			ContainerID:    s.Target.ContainerID,
			PrincipalID:    s.Target.Account.PrincipalID,
		},
		SourceReadAccessFromTarget: s.SourceReadAccessFromTarget,
		Containers:                 s.Containers(),
	}
}

type sectionView struct {
	ID          prereq.SectionID `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Completed   *bool            `json:"completed"`
	Disabled    bool             `json:"disabled"`
	Blocked     bool             `json:"blocked,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type groupView struct {
	ID          prereq.GroupID `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Sections    []sectionView  `json:"sections"`
	Error       string         `json:"error,omitempty"`
}

type prerequisitesView struct {
	Ready  bool        `json:"ready"`
	Groups []groupView `json:"groups"`
}

func newPrerequisitesView(groups []prereq.Group) prerequisitesView {
	out := prerequisitesView{Ready: prereq.AllSatisfied(groups), Groups: make([]groupView, 0, len(groups))}
	for _, g := range groups {
		gv := groupView{ID: g.ID, Title: g.Title, Description: g.Description, Sections: make([]sectionView, 0, len(g.Sections))}
		if g.Err != nil {
			gv.Error = g.Err.Error()
		}
		for _, s := range g.Sections {
			sv := sectionView{
				ID:          s.ID,
				Title:       s.Title,
				Description: s.Description,
				Completed:   s.Completed(),
				Disabled:    s.Disabled,
				Blocked:     s.Blocked,
			}
			if s.Err != nil {
				sv.Error = s.Err.Error()
			}
			gv.Sections = append(gv.Sections, sv)
		}
		out.Groups = append(out.Groups, gv)
	}
	return out
}

func decodeJSON(c *echo.Context, v any) error {
	dec := json.NewDecoder(io.LimitReader(c.Request().Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body: "+err.Error())
	}
	return nil
}

func (es *EchoServer) session(c *echo.Context) (*panel.Session, error) {
	return es.sessions.get(strings.TrimSpace(c.Param("id")))
}

func (es *EchoServer) applySelection(c *echo.Context, sess *panel.Session) error {
	var sel panel.Selection
	if err := decodeJSON(c, &sel); err != nil {
		return err
	}
	if err := panel.Apply(c.Request().Context(), sess, es.deps.ARM, sel); err != nil {
		return badRequestIfInput(err)
	}
	return nil
}

func (es *EchoServer) handleCreateSession(c *echo.Context) error {
	sess := panel.Open(es.deps.Resolver, copyjob.State{})
	if err := es.applySelection(c, sess); err != nil {
		sess.Close()
		return err
	}
	id := es.sessions.add(sess)
	return c.JSON(http.StatusCreated, sessionView{ID: id, State: newStateView(sess.Snapshot(), time.Now())})
}

func (es *EchoServer) handleGetSession(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionView{ID: c.Param("id"), State: newStateView(sess.Snapshot(), time.Now())})
}

func (es *EchoServer) handleUpdateSession(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	if err := es.applySelection(c, sess); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessionView{ID: c.Param("id"), State: newStateView(sess.Snapshot(), time.Now())})
}

func (es *EchoServer) handleCloseSession(c *echo.Context) error {
	sess, ok := es.sessions.remove(strings.TrimSpace(c.Param("id")))
	if !ok {
		return errSessionNotFound
	}
	sess.Close()
	return c.NoContent(http.StatusNoContent)
}

func (es *EchoServer) handlePrerequisites(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	groups, err := sess.Resolve(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPrerequisitesView(groups))
}

func (es *EchoServer) handleRevalidate(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	var ids []prereq.SectionID
	for _, raw := range c.Request().URL.Query()["section"] {
		if raw = strings.TrimSpace(raw); raw != "" {
			ids = append(ids, prereq.SectionID(raw))
		}
	}
	sess.Revalidate(ids...)
	groups, err := sess.Resolve(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPrerequisitesView(groups))
}

func (es *EchoServer) handleRemediate(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	if es.deps.Remediator == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "remediation is not configured")
	}
	section := prereq.SectionID(strings.TrimSpace(c.Param("section")))
	if err := sess.Remediate(c.Request().Context(), es.deps.Remediator, section); err != nil {
		return err
	}
	groups, err := sess.Resolve(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newPrerequisitesView(groups))
}

func (es *EchoServer) handleCreateJob(c *echo.Context) error {
	sess, err := es.session(c)
	if err != nil {
		return err
	}
	if es.deps.ARM == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "management client is not configured")
	}
	ctx := c.Request().Context()
	groups, err := sess.Resolve(ctx)
	if err != nil {
		return err
	}
	if !prereq.AllSatisfied(groups) {
		return c.JSON(http.StatusConflict, newPrerequisitesView(groups))
	}

	accountID, in, err := jobs.NewCreateInput(sess.Snapshot(), time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := es.deps.ARM.CreateDataTransferJob(ctx, accountID, in)
	if err != nil {
		return err
	}
	if created.Name == "" {
		created.Name = in.JobName
	}
	if created.Properties.Status == "" {
		created.Properties.Status = string(jobs.Pending)
	}
	rec, err := jobs.NewRecord(created)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, rec)
}
