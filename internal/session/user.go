package session

import (
	"context"
	"strconv"
	"strings"
)

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleTeamMember Role = "team_member"
)

// Capability names one boolean access flag on the user record.
type Capability string

const (
	CapabilityDashboard  Capability = "dashboard"
	CapabilityLeads      Capability = "leads"
	CapabilityStudents   Capability = "students"
	CapabilityUsers      Capability = "users"
	CapabilityTimesheets Capability = "timesheets"
	CapabilityAgencies   Capability = "agencies"
)

// User is the flat session identity record. Role and UserRole always carry
// the same value; older consumers read one or the other.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`

	Role     Role `json:"role"`
	UserRole Role `json:"userRole"`

	CanAccessDashboard  bool `json:"canAccessDashboard"`
	CanAccessLeads      bool `json:"canAccessLeads"`
	CanAccessStudents   bool `json:"canAccessStudents"`
	CanAccessUsers      bool `json:"canAccessUsers"`
	CanAccessTimesheets bool `json:"canAccessTimesheets"`
	CanAccessAgencies   bool `json:"canAccessAgencies"`

	IsActive bool `json:"isActive"`
}

func (u *User) Can(c Capability) bool {
	switch c {
	case CapabilityDashboard:
		return u.CanAccessDashboard
	case CapabilityLeads:
		return u.CanAccessLeads
	case CapabilityStudents:
		return u.CanAccessStudents
	case CapabilityUsers:
		return u.CanAccessUsers
	case CapabilityTimesheets:
		return u.CanAccessTimesheets
	case CapabilityAgencies:
		return u.CanAccessAgencies
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// NormalizeUser maps a raw backend user record onto the session model. The
// backend has shipped both snake_case and camelCase field names over time,
// so every field is probed under its known variants. Admins get every
// capability flag regardless of what the record carries.
func NormalizeUser(raw map[string]any) *User {
	u := &User{
		ID:        extractID(raw),
		Username:  stringField(raw, "username"),
		Email:     stringField(raw, "email"),
		FirstName: stringField(raw, "firstName", "first_name"),
		LastName:  stringField(raw, "lastName", "last_name"),
		Phone:     stringField(raw, "phone", "phoneNumber", "phone_number"),
	}

	u.Role = normalizeRole(raw)
	u.UserRole = u.Role

	u.CanAccessDashboard = boolField(raw, "canAccessDashboard", "can_access_dashboard")
	u.CanAccessLeads = boolField(raw, "canAccessLeads", "can_access_leads")
	u.CanAccessStudents = boolField(raw, "canAccessStudents", "can_access_students")
	u.CanAccessUsers = boolField(raw, "canAccessUsers", "can_access_users")
	u.CanAccessTimesheets = boolField(raw, "canAccessTimesheets", "can_access_timesheets")
	u.CanAccessAgencies = boolField(raw, "canAccessAgencies", "can_access_agencies")

	if u.Role == RoleAdmin {
		u.grantAll()
	}

	blocked := boolField(raw, "blocked")
	u.IsActive = !blocked

	return u
}

// FallbackUser covers the profile-fetch-failed path: admin identifiers get
// the full permission set, everyone else a conservative default of
// dashboard and timesheets only.
func FallbackUser(identifier string, id int64, adminIdentifiers []string) *User {
	u := &User{
		ID:       id,
		Username: identifier,
		Email:    identifier,
		IsActive: true,
	}

	if isAdminIdentifier(identifier, adminIdentifiers) {
		u.Role = RoleAdmin
		u.UserRole = RoleAdmin
		u.grantAll()
		return u
	}

	u.Role = RoleTeamMember
	u.UserRole = RoleTeamMember
	u.CanAccessDashboard = true
	u.CanAccessTimesheets = true
	return u
}

func (u *User) grantAll() {
	u.CanAccessDashboard = true
	u.CanAccessLeads = true
	u.CanAccessStudents = true
	u.CanAccessUsers = true
	u.CanAccessTimesheets = true
	u.CanAccessAgencies = true
}

func isAdminIdentifier(identifier string, adminIdentifiers []string) bool {
	for _, admin := range adminIdentifiers {
		if strings.EqualFold(identifier, admin) {
			return true
		}
	}
	return false
}

func normalizeRole(raw map[string]any) Role {
	value := stringField(raw, "userRole", "user_role")
	if value == "" {
		// role may be a plain string or a populated Strapi role object
		switch v := raw["role"].(type) {
		case string:
			value = v
		case map[string]any:
			if name, ok := v["type"].(string); ok && name != "" {
				value = name
			} else if name, ok := v["name"].(string); ok {
				value = name
			}
		}
	}

	if strings.Contains(strings.ToLower(value), "admin") {
		return RoleAdmin
	}
	return RoleTeamMember
}

func stringField(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func boolField(raw map[string]any, keys ...string) bool {
	for _, key := range keys {
		if v, ok := raw[key].(bool); ok {
			return v
		}
	}
	return false
}

func extractID(raw map[string]any) int64 {
	switch v := raw["id"].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			return id
		}
	}
	return 0
}

type contextKey string

const userContextKey contextKey = "sessionUser"

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey).(*User)
	return u, ok && u != nil
}
