package family

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// Member roles as stored on the roster.
const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Role types distinguish parents beyond the generic role label.
const (
	RoleTypeMama = "mama"
	RoleTypePapa = "papa"
)

// Member is one person on the family roster.
type Member struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	RoleType string `json:"roleType,omitempty"`
}

// Task is a coordination task tracked for the family.
type Task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	AssignedTo string `json:"assignedTo,omitempty"`
	CreatedBy  string `json:"createdBy,omitempty"`
	Completed  bool   `json:"completed"`
}

// Appointment is a scheduled visit for a child with a provider.
type Appointment struct {
	ID         string    `json:"id"`
	ChildID    string    `json:"childId"`
	ProviderID string    `json:"providerId,omitempty"`
	Title      string    `json:"title"`
	Date       time.Time `json:"date"`
}

// Provider is an external care provider (doctor, dentist, teacher).
type Provider struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
}

// GrowthRecord is one growth measurement for a child.
type GrowthRecord struct {
	ID         string    `json:"id"`
	ChildID    string    `json:"childId"`
	RecordedAt time.Time `json:"recordedAt"`
	HeightCm   float64   `json:"heightCm,omitempty"`
	WeightKg   float64   `json:"weightKg,omitempty"`
}

// EmotionalRecord is one emotional check-in for a child.
type EmotionalRecord struct {
	ID         string    `json:"id"`
	ChildID    string    `json:"childId"`
	RecordedAt time.Time `json:"recordedAt"`
	Mood       string    `json:"mood"`
}

// Data is the read-only family snapshot handed to the core by the caller.
// It seeds the knowledge graph, validates extracted names, and drives the
// classifier's data-presence confidence boosts.
type Data struct {
	FamilyID   string `json:"familyId"`
	FamilyName string `json:"familyName,omitempty"`

	Members      []Member      `json:"members,omitempty"`
	Tasks        []Task        `json:"tasks,omitempty"`
	Appointments []Appointment `json:"appointments,omitempty"`
	Providers    []Provider    `json:"providers,omitempty"`

	GrowthRecords    []GrowthRecord    `json:"growthRecords,omitempty"`
	EmotionalRecords []EmotionalRecord `json:"emotionalRecords,omitempty"`

	// Presence flags for data the core never inspects directly.
	HasSurveyData  bool `json:"hasSurveyData,omitempty"`
	HasBalanceData bool `json:"hasBalanceData,omitempty"`

	// Optional survey snapshot used for prompt context.
	CurrentWeek    int     `json:"currentWeek,omitempty"`
	MamaPercentage float64 `json:"mamaPercentage,omitempty"`
}

// Children returns the roster members with the child role.
func (d *Data) Children() []Member {
	return lo.Filter(d.Members, func(m Member, _ int) bool {
		return m.Role == RoleChild
	})
}

// Parents returns the roster members with the parent role.
func (d *Data) Parents() []Member {
	return lo.Filter(d.Members, func(m Member, _ int) bool {
		return m.Role == RoleParent
	})
}

// ChildNames returns the names of all children on the roster.
func (d *Data) ChildNames() []string {
	return lo.Map(d.Children(), func(m Member, _ int) string {
		return m.Name
	})
}

// ProviderByID looks up a care provider by id.
func (d *Data) ProviderByID(id string) (Provider, bool) {
	return lo.Find(d.Providers, func(p Provider) bool {
		return p.ID == id
	})
}

// MemberByID looks up a roster member by id.
func (d *Data) MemberByID(id string) (Member, bool) {
	return lo.Find(d.Members, func(m Member) bool {
		return m.ID == id
	})
}

// ParentByRoleType returns the parent with the given role type, if exactly
// one exists. Used for "mom"/"dad" name substitution.
func (d *Data) ParentByRoleType(roleType string) (Member, bool) {
	matches := lo.Filter(d.Parents(), func(m Member, _ int) bool {
		return strings.EqualFold(m.RoleType, roleType)
	})
	if len(matches) != 1 {
		return Member{}, false
	}
	return matches[0], true
}

// SingleChild returns the family's only child, if the roster has exactly one.
// Generic references like "your child" are only resolved when unambiguous.
func (d *Data) SingleChild() (Member, bool) {
	children := d.Children()
	if len(children) != 1 {
		return Member{}, false
	}
	return children[0], true
}

// IsChildName reports whether name matches a child on the roster,
// case-insensitively.
func (d *Data) IsChildName(name string) bool {
	name = strings.TrimSpace(name)
	return lo.SomeBy(d.Children(), func(m Member) bool {
		return strings.EqualFold(m.Name, name)
	})
}
