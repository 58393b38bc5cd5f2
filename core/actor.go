package core

// Roles
const (
	RoleMentor = "mentor"
	RoleMentee = "mentee"
	RoleAdmin  = "admin"
)

// Actor is the authenticated identity performing an operation.
// It is resolved once at the API boundary and passed to every service call.
type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsMentor() bool { return a.Role == RoleMentor }
func (a Actor) IsMentee() bool { return a.Role == RoleMentee }
func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
