package pomodoro

// TimerRole es el nivel de privilegio de un miembro sobre un timer.
type TimerRole int

const (
	RoleOther TimerRole = iota
	RoleManager
	RoleOwner
	RoleAdmin
)

func (r TimerRole) String() string {
	switch r {
	case RoleAdmin:
		return "ADMIN"
	case RoleOwner:
		return "OWNER"
	case RoleManager:
		return "MANAGER"
	default:
		return "OTHER"
	}
}

// MemberContext es lo que el adapter sabe del miembro que interactúa.
type MemberContext struct {
	UserID         string
	RoleIDs        []string
	IsGuildAdmin   bool
	ManageChannels bool // permiso sobre el canal del timer
}

// RoleFor calcula el privilegio del miembro: admin de guild > owner del
// timer > manage_channels o rol manager configurado > resto.
func (t *Timer) RoleFor(m MemberContext) TimerRole {
	row := t.Row()
	switch {
	case m.IsGuildAdmin:
		return RoleAdmin
	case row.OwnerID != nil && *row.OwnerID == m.UserID:
		return RoleOwner
	case m.ManageChannels:
		return RoleManager
	case row.ManagerRoleID != nil && containsID(m.RoleIDs, *row.ManagerRoleID):
		return RoleManager
	default:
		return RoleOther
	}
}

func containsID(ids []string, want string) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
