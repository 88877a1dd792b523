package domain

import "errors"

// ErrUnknownAccessLevel is returned when deserializing an access level
// that is neither "read" nor "write".
var ErrUnknownAccessLevel = errors.New("unknown access level")

// TagKind categorizes what a tag represents. Folders organize papers,
// item types and genres classify them, custom covers everything user-defined,
// and system is reserved for tags the server creates on a user's behalf.
type TagKind string

const (
	TagKindFolder   TagKind = "folder"
	TagKindItemType TagKind = "itemType"
	TagKindGenre    TagKind = "genre"
	TagKindCustom   TagKind = "custom"
	TagKindSystem   TagKind = "system"
)

// Valid reports whether the kind is one of the known values.
func (k TagKind) Valid() bool {
	switch k {
	case TagKindFolder, TagKindItemType, TagKindGenre, TagKindCustom, TagKindSystem:
		return true
	default:
		return false
	}
}

// AccessLevel defines the level of access granted on a tag.
type AccessLevel int

const (
	// AccessRead allows viewing papers carrying the tag.
	AccessRead AccessLevel = iota
	// AccessWrite allows creating and updating papers carrying the tag,
	// and managing the tag itself.
	AccessWrite
)

// String returns the string representation of the access level.
func (l AccessLevel) String() string {
	switch l {
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ParseAccessLevel converts a string to AccessLevel.
func ParseAccessLevel(s string) (AccessLevel, bool) {
	switch s {
	case "read":
		return AccessRead, true
	case "write":
		return AccessWrite, true
	default:
		return AccessRead, false
	}
}

// MarshalText implements encoding.TextMarshaler so levels serialize as
// "read"/"write" rather than integers.
func (l AccessLevel) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *AccessLevel) UnmarshalText(text []byte) error {
	parsed, ok := ParseAccessLevel(string(text))
	if !ok {
		return ErrUnknownAccessLevel
	}
	*l = parsed
	return nil
}

// CanRead returns true if the level allows reading.
func (l AccessLevel) CanRead() bool {
	return l == AccessRead || l == AccessWrite
}

// CanWrite returns true if the level allows writing.
func (l AccessLevel) CanWrite() bool {
	return l == AccessWrite
}

// Grant is a single (user, access level) pair attached to a tag.
type Grant struct {
	UserID string      `json:"user_id"`
	Level  AccessLevel `json:"access_level"`
}

// TagSharing holds the access grants for a tag. IsPublic is stored and
// serialized but never consulted by access checks.
type TagSharing struct {
	SharedWith []Grant `json:"shared_with"`
	IsPublic   bool    `json:"is_public"`
}

// Tag is a named, typed label and the unit of sharing. Papers are never
// shared directly; access always flows through the grants on their tags.
type Tag struct {
	Entity
	OwnerUserID string     `json:"owner_user_id"`
	Kind        TagKind    `json:"kind"`
	Value       string     `json:"value"`
	Label       string     `json:"label,omitempty"`
	Sharing     TagSharing `json:"sharing"`
}

// GrantFor returns the first grant for the given user, if any.
func (t *Tag) GrantFor(userID string) (Grant, bool) {
	for _, g := range t.Sharing.SharedWith {
		if g.UserID == userID {
			return g, true
		}
	}
	return Grant{}, false
}

// HasAccess reports whether the user holds at least the required level on
// the tag. Write grants satisfy read checks; read grants do not satisfy
// write checks. Ungranted users are denied regardless of IsPublic.
func (t *Tag) HasAccess(userID string, required AccessLevel) bool {
	for _, g := range t.Sharing.SharedWith {
		if g.UserID != userID {
			continue
		}
		if required == AccessRead {
			if g.Level.CanRead() {
				return true
			}
		} else if g.Level.CanWrite() {
			return true
		}
	}
	return false
}
