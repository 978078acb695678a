package models

// Principal is the authenticated caller as supplied by the identity provider.
// It is resolved per request and never persisted.
type Principal struct {
	TokenIdentifier string
}

// ScopeKind tells which membership rule granted access to an org id.
type ScopeKind int

const (
	// ScopeOrganization is a real multi-user organization the user belongs to.
	ScopeOrganization ScopeKind = iota + 1
	// ScopePersonal is the implicit scope keyed by the user's own identity.
	ScopePersonal
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeOrganization:
		return "organization"
	case ScopePersonal:
		return "personal"
	default:
		return "unknown"
	}
}

// Scope is the tenant boundary an operation runs in.
type Scope struct {
	Kind ScopeKind
	// OrgID is the org id as stored on files and favorites.
	OrgID string
	// UserID is set for ScopePersonal.
	UserID string
}
