package model

// Role is the coarse authorization level carried by an authenticated caller.
type Role string

const (
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// AtLeast reports whether r ranks at or above min.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min]
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// RouteRoles maps each operation group to its minimum caller role. Every
// entity uses DefaultRouteRoles unless its config overrides it.
type RouteRoles struct {
	Read      Role
	Write     Role
	Delete    Role
	Analytics Role
}

// DefaultRouteRoles is the standard assignment: reads for any authenticated
// user, mutations for managers, physical deletes for admins, health and
// statistics for managers.
func DefaultRouteRoles() RouteRoles {
	return RouteRoles{
		Read:      RoleUser,
		Write:     RoleManager,
		Delete:    RoleAdmin,
		Analytics: RoleManager,
	}
}

// EntityConfig is the static, process-wide description of one coded entity
// type. It is the only thing a concrete entity has to supply to get the full
// CRUD/query surface.
type EntityConfig struct {
	EntityName       string
	TableName        string
	APIPath          string
	CodeLength       int
	SearchableFields []string
	DefaultLimit     int
	MaxLimit         int
	Roles            RouteRoles
}

// baseSortFields are always accepted as ORDER BY columns, regardless of the
// entity's searchable fields.
var baseSortFields = []string{"code", "name", "is_active", "created_at", "updated_at"}

// SortableField validates a requested sort column against the allow-list of
// base columns plus the configured searchable fields, falling back to "code"
// for anything unknown. The allow-list is the injection guard for the one
// query fragment that cannot be parameterized.
func (c EntityConfig) SortableField(requested string) string {
	for _, f := range baseSortFields {
		if f == requested {
			return f
		}
	}
	for _, f := range c.SearchableFields {
		if f == requested {
			return f
		}
	}
	return "code"
}
