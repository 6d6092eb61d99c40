// Package scope defines the owner-scope identifier that determines the
// visibility of manuals and categories. A scope is either a personal user
// scope or a shared group scope; the zero value means "no scope" (global
// resources such as the default category).
package scope

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// Kind discriminates the two scope variants.
type Kind int

const (
	KindNone Kind = iota
	KindPersonal
	KindGroup
)

// ID is an owner-scope identifier. IDs are comparable; two IDs are equal
// iff they have the same kind and the same underlying identifier.
type ID struct {
	kind    Kind
	userID  string
	groupID int64
}

// Personal returns the scope owned by a single user.
func Personal(userID string) ID {
	return ID{kind: KindPersonal, userID: userID}
}

// SharedGroup returns the scope owned by a group.
func SharedGroup(groupID int64) ID {
	return ID{kind: KindGroup, groupID: groupID}
}

// Kind returns the variant of the scope.
func (id ID) Kind() Kind { return id.kind }

// IsZero reports whether the scope is unset (global/shared resources).
func (id ID) IsZero() bool { return id.kind == KindNone }

// UserID returns the owning user id for personal scopes.
func (id ID) UserID() (string, bool) {
	if id.kind != KindPersonal {
		return "", false
	}
	return id.userID, true
}

// GroupID returns the owning group id for group scopes.
func (id ID) GroupID() (int64, bool) {
	if id.kind != KindGroup {
		return 0, false
	}
	return id.groupID, true
}

// String returns the stored form of the scope: "u:<userID>" for personal
// scopes, "g:<groupID>" for group scopes, and "" for the zero value.
func (id ID) String() string {
	switch id.kind {
	case KindPersonal:
		return "u:" + id.userID
	case KindGroup:
		return "g:" + strconv.FormatInt(id.groupID, 10)
	default:
		return ""
	}
}

// Parse converts a stored scope string back into an ID. The empty string
// parses to the zero ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return ID{}, nil
	}
	prefix, rest, found := strings.Cut(s, ":")
	if !found || rest == "" {
		return ID{}, fmt.Errorf("malformed scope id %q", s)
	}
	switch prefix {
	case "u":
		return Personal(rest), nil
	case "g":
		gid, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			return ID{}, fmt.Errorf("malformed group scope id %q: %w", s, err)
		}
		return SharedGroup(gid), nil
	default:
		return ID{}, fmt.Errorf("unknown scope kind in %q", s)
	}
}

// Value implements driver.Valuer. The zero ID is stored as NULL.
func (id ID) Value() (driver.Value, error) {
	if id.IsZero() {
		return nil, nil
	}
	return id.String(), nil
}

// Scan implements sql.Scanner. NULL scans to the zero ID.
func (id *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*id = ID{}
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*id = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into scope.ID", src)
	}
}
