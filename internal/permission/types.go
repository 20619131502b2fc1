// Package permission implements ObjectOS's end-user object/field/record
// authorization engine: profile-based permission sets, organization-wide
// defaults combined with sharing rules for row-level security, and
// field-level visibility/editability.
//
// This is distinct from system/framework's CapabilityManager, which gates
// what a plugin may do to the kernel (publish a bus topic, register a
// service). Engine gates what an authenticated end user may do to business
// data.
package permission

import "time"

// Action is one of the four CRUD actions a permission set can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// FieldAction is one of the two field-level actions CheckField evaluates.
type FieldAction string

const (
	FieldActionRead FieldAction = "read"
	FieldActionEdit FieldAction = "edit"
)

// Context carries the identity and tenancy information a check is
// evaluated against.
type Context struct {
	UserID         string
	OrganizationID string
	Profiles       []string
	Role           string
	PermissionSets []string
	Metadata       map[string]any
}

// firstProfile returns the profile used for {{ profile }} substitution, or
// "" if the context has none.
func (c Context) firstProfile() string {
	if len(c.Profiles) == 0 {
		return ""
	}
	return c.Profiles[0]
}

// ProfilePermission is the access a single profile has on an object.
type ProfilePermission struct {
	AllowCreate bool
	AllowRead   bool
	AllowEdit   bool
	AllowDelete bool

	// ViewFilters is a record-level filter, as a nested map ready for
	// template substitution. A nil/empty map means unrestricted.
	ViewFilters map[string]any

	// Expression is an optional goja boolean expression evaluated against
	// the candidate record in place of (or in addition to) ViewFilters.
	Expression string
}

// FieldPermission controls visibility/editability of one field.
type FieldPermission struct {
	VisibleTo  []string
	EditableBy []string
}

// PermissionSet attaches an object to per-profile access rules and
// per-field visibility rules. Name identifies the set so a Context can
// restrict evaluation to only the sets a user has been assigned
// (ctx.PermissionSets); an empty assignment list means every registered
// set for the object applies.
type PermissionSet struct {
	Name    string
	Object  string
	Profile map[string]ProfilePermission
	Field   map[string]FieldPermission
}

// InternalAccess is the organization-wide default's access level for users
// inside the owning organization.
type InternalAccess string

const (
	AccessPrivate            InternalAccess = "private"
	AccessPublicReadOnly     InternalAccess = "public_read_only"
	AccessPublicReadWrite    InternalAccess = "public_read_write"
	AccessControlledByParent InternalAccess = "controlled_by_parent"
)

// OrgWideDefault is the baseline row-level access policy for an object.
type OrgWideDefault struct {
	Object                   string
	InternalAccess           InternalAccess
	ExternalAccess           InternalAccess
	GrantAccessUsingHierarchy bool
}

// SharingRuleType names the basis on which a sharing rule extends access.
type SharingRuleType string

const (
	SharingOwnerBased     SharingRuleType = "owner_based"
	SharingCriteriaBased  SharingRuleType = "criteria_based"
	SharingTerritoryBased SharingRuleType = "territory_based"
)

// SharingAccessLevel is the access a sharing rule grants.
type SharingAccessLevel string

const (
	SharingReadOnly  SharingAccessLevel = "read_only"
	SharingReadWrite SharingAccessLevel = "read_write"
)

// SharingRule extends OrgWideDefault access to a target group under a
// condition determined by Type.
type SharingRule struct {
	Object      string
	Type        SharingRuleType
	SourceGroup string
	TargetGroup string
	AccessLevel SharingAccessLevel

	// Criteria is a PaesslerAG/jsonpath expression evaluated against the
	// candidate record for criteria_based rules.
	Criteria string

	Cascade []string
}

// CheckResult is the outcome of Engine.Check.
type CheckResult struct {
	Allowed bool
	Reason  string
	Filters map[string]any
}

// cacheEntry is the value stored for a (userID, object, action) cache key.
type cacheEntry struct {
	result    CheckResult
	expiresAt time.Time
}
