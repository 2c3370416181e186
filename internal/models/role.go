package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is the closed set of account roles. The zero value is not a valid role.
type Role uint8

// Account roles.
const (
	RoleUnknown Role = iota
	RoleStudent
	RoleTeacher
	RoleAdmin
)

// Roles lists every valid role.
var Roles = []Role{RoleStudent, RoleTeacher, RoleAdmin}

// ParseRole converts the textual form of a role. Unknown strings are rejected.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "teacher":
		return RoleTeacher, nil
	case "admin":
		return RoleAdmin, nil
	}
	return RoleUnknown, fmt.Errorf("models: unknown role %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "student"
	case RoleTeacher:
		return "teacher"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleTeacher || r == RoleAdmin
}

// IsStaff reports whether the role may issue rewards.
func (r Role) IsStaff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("models: cannot marshal role %d", r)
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(text []byte) error {
	role, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer so roles are stored as text.
func (r Role) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("models: cannot store role %d", r)
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *Role) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	}
	return fmt.Errorf("models: cannot scan %T into Role", src)
}
