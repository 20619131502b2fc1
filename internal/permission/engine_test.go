package permission

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestEngine_PermissionGrant is spec.md §8 concrete scenario 2: a profile
// that grants read with a viewFilters template resolves to {ownerId: "u1"}.
func TestEngine_PermissionGrant(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Name:   "sales-standard",
		Object: "account",
		Profile: map[string]ProfilePermission{
			"sales": {
				AllowRead:   true,
				ViewFilters: map[string]any{"ownerId": "{{ userId }}"},
			},
		},
	}))

	ctx := Context{UserID: "u1", Profiles: []string{"sales"}}
	result, err := e.Check(context.Background(), ctx, "account", ActionRead)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, map[string]any{"ownerId": "u1"}, result.Filters)
}

// TestEngine_PermissionDeny is spec.md §8 concrete scenario 3: the same
// context lacks allowDelete, so the check is denied with the exact reason
// text spec.md gives.
func TestEngine_PermissionDeny(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Name:   "sales-standard",
		Object: "account",
		Profile: map[string]ProfilePermission{
			"sales": {AllowRead: true},
		},
	}))

	ctx := Context{UserID: "u1", Profiles: []string{"sales"}}
	result, err := e.Check(context.Background(), ctx, "account", ActionDelete)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, "No permission for action 'delete' on object 'account'", result.Reason)
}

// TestEngine_NoPermissionSet_DefaultDeny covers spec.md §4.6: with no
// permission set registered for the object, the default is deny.
func TestEngine_NoPermissionSet_DefaultDeny(t *testing.T) {
	e := NewEngine(EngineConfig{})
	result, err := e.Check(context.Background(), Context{UserID: "u1"}, "unregistered", ActionRead)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestEngine_NoPermissionSet_AllowByDefault(t *testing.T) {
	e := NewEngine(EngineConfig{}).AllowByDefault()
	result, err := e.Check(context.Background(), Context{UserID: "u1"}, "unregistered", ActionRead)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

// TestEngine_UnrestrictedBeatsFilter ensures that if at least one granting
// profile declares no filters, the grant is unrestricted even if another
// granting profile declared a filter (spec.md §4.6).
func TestEngine_UnrestrictedBeatsFilter(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Name:   "restricted",
		Object: "account",
		Profile: map[string]ProfilePermission{
			"sales":   {AllowRead: true, ViewFilters: map[string]any{"ownerId": "{{ userId }}"}},
			"manager": {AllowRead: true},
		},
	}))

	ctx := Context{UserID: "u1", Profiles: []string{"sales", "manager"}}
	result, err := e.Check(context.Background(), ctx, "account", ActionRead)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Nil(t, result.Filters)
}

// TestEngine_CombinesMultipleFiltersWithOR covers the "otherwise combine
// under a top-level OR" branch of spec.md §4.6.
func TestEngine_CombinesMultipleFiltersWithOR(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Name:   "combo",
		Object: "account",
		Profile: map[string]ProfilePermission{
			"sales":   {AllowRead: true, ViewFilters: map[string]any{"ownerId": "{{ userId }}"}},
			"support": {AllowRead: true, ViewFilters: map[string]any{"teamId": "{{ teamId }}"}},
		},
	}))

	ctx := Context{
		UserID:   "u1",
		Profiles: []string{"sales", "support"},
		Metadata: map[string]any{"teamId": "t9"},
	}
	result, err := e.Check(context.Background(), ctx, "account", ActionRead)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, map[string]any{
		"$or": []any{
			map[string]any{"ownerId": "u1"},
			map[string]any{"teamId": "t9"},
		},
	}, result.Filters)
}

func TestEngine_CheckField_Matrix(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Name:   "fields",
		Object: "account",
		Field: map[string]FieldPermission{
			"name":   {VisibleTo: []string{"sales"}, EditableBy: []string{"sales"}},
			"region": {VisibleTo: []string{"sales"}},
			"ssn":    {},
		},
	}))

	ctx := Context{UserID: "u1", Profiles: []string{"sales"}}

	assert.True(t, e.CheckField(ctx, "account", "name", FieldActionRead))
	assert.True(t, e.CheckField(ctx, "account", "name", FieldActionEdit))

	assert.True(t, e.CheckField(ctx, "account", "region", FieldActionRead))
	assert.False(t, e.CheckField(ctx, "account", "region", FieldActionEdit))

	assert.False(t, e.CheckField(ctx, "account", "ssn", FieldActionRead))
	assert.False(t, e.CheckField(ctx, "account", "ssn", FieldActionEdit))
}

// TestStore_RejectsEditableWithoutVisible covers "editable requires
// readable, validated at load time" (spec.md §4.6).
func TestStore_RejectsEditableWithoutVisible(t *testing.T) {
	s := NewStore()
	err := s.RegisterPermissionSet(PermissionSet{
		Object: "account",
		Field: map[string]FieldPermission{
			"ssn": {EditableBy: []string{"admin"}},
		},
	})
	assert.Error(t, err)
}

func TestEngine_ClearUserCache(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Object:  "account",
		Profile: map[string]ProfilePermission{"sales": {AllowRead: true}},
	}))

	ctx := Context{UserID: "u1", Profiles: []string{"sales"}}
	first, err := e.Check(context.Background(), ctx, "account", ActionRead)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	e.ClearUserCache(context.Background(), "u1")

	// After clearing, a changed permission set takes effect immediately
	// rather than returning the stale cached result.
	require.NoError(t, e.Store().RegisterPermissionSet(PermissionSet{
		Object:  "account",
		Profile: map[string]ProfilePermission{"sales": {AllowRead: false}},
	}))
	second, err := e.Check(context.Background(), ctx, "account", ActionRead)
	require.NoError(t, err)
	assert.False(t, second.Allowed)
}

func TestEngine_GetRecordFilters_PrivateOWD(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterOWD(OrgWideDefault{Object: "account", InternalAccess: AccessPrivate}))

	ctx := Context{UserID: "u1"}
	filters, err := e.GetRecordFilters(ctx, "account")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ownerId": "u1"}, filters)
}

func TestEngine_GetRecordFilters_PublicReadWrite(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterOWD(OrgWideDefault{Object: "account", InternalAccess: AccessPublicReadWrite}))

	filters, err := e.GetRecordFilters(Context{UserID: "u1"}, "account")
	require.NoError(t, err)
	assert.Nil(t, filters)
}

func TestEngine_GetRecordFilters_PublicReadOnlyRestrictsWrites(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterOWD(OrgWideDefault{Object: "account", InternalAccess: AccessPublicReadOnly}))

	ctx := Context{UserID: "u1"}
	readFilters, err := e.GetRecordFilters(ctx, "account")
	require.NoError(t, err)
	assert.Nil(t, readFilters)

	writeFilters, err := e.RecordFiltersForAction(ctx, "account", ActionUpdate)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ownerId": "u1"}, writeFilters)
}

func TestEngine_GetRecordFilters_SharingRuleExtendsPrivate(t *testing.T) {
	e := NewEngine(EngineConfig{})
	require.NoError(t, e.Store().RegisterOWD(OrgWideDefault{Object: "account", InternalAccess: AccessPrivate}))
	require.NoError(t, e.Store().RegisterSharingRule(SharingRule{
		Object:      "account",
		Type:        SharingOwnerBased,
		SourceGroup: "west-region",
		TargetGroup: "support-team",
		AccessLevel: SharingReadOnly,
	}))

	filters, err := e.GetRecordFilters(Context{UserID: "u1"}, "account")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"$or": []any{
			map[string]any{"ownerId": "u1"},
			map[string]any{"ownerGroup": "west-region", "sharedWithGroup": "support-team"},
		},
	}, filters)
}
