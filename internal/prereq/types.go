package prereq

// SectionID names a prerequisite section; it is also the validation cache key.
type SectionID string

const (
	AddManagedIdentity     SectionID = "addManagedIdentity"
	DefaultManagedIdentity SectionID = "defaultManagedIdentity"
	ReadPermissionAssigned SectionID = "readPermissionAssigned"
	PointInTimeRestore     SectionID = "pointInTimeRestore"
	OnlineCopyEnabled      SectionID = "onlineCopyEnabled"
)

// OnlineSections are dropped from the cache when the copy leaves Online mode.
var OnlineSections = []SectionID{PointInTimeRestore, OnlineCopyEnabled}

type GroupID string

const (
	CrossAccountGroup GroupID = "crossAccountConfigs"
	OnlineGroup       GroupID = "onlineConfigs"
)

// State is the outcome of one section in one resolution pass.
type State int

const (
	NotEvaluated State = iota
	Satisfied
	Unsatisfied
)

func (s State) String() string {
	switch s {
	case Satisfied:
		return "satisfied"
	case Unsatisfied:
		return "unsatisfied"
	default:
		return "not_evaluated"
	}
}

type Section struct {
	ID          SectionID
	Title       string
	Description string
	State       State
	// Disabled is true exactly when State is Satisfied: the remediation
	// control has nothing left to do.
	Disabled bool
	// Blocked marks a section forced Unsatisfied because an earlier section
	// in its group was not satisfied; its validator did not run.
	Blocked bool
	Err     error
}

// Completed mirrors the tri-state used by the console: nil means not yet known.
func (s Section) Completed() *bool {
	switch s.State {
	case Satisfied:
		v := true
		return &v
	case Unsatisfied:
		v := false
		return &v
	default:
		return nil
	}
}

type Group struct {
	ID          GroupID
	Title       string
	Description string
	Sections    []Section
	// Err joins the failures of sections whose validators could not finish.
	Err error
}

// Satisfied reports whether every section in the group is satisfied.
func (g Group) Satisfied() bool {
	for _, s := range g.Sections {
		if s.State != Satisfied {
			return false
		}
	}
	return true
}

// AllSatisfied reports whether a copy job may start.
func AllSatisfied(groups []Group) bool {
	for _, g := range groups {
		if !g.Satisfied() {
			return false
		}
	}
	return true
}

// Find returns the section with id across groups.
func Find(groups []Group, id SectionID) (Section, bool) {
	for _, g := range groups {
		for _, s := range g.Sections {
			if s.ID == id {
				return s, true
			}
		}
	}
	return Section{}, false
}
