package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterGetList(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "account", Customizable: true, Content: map[string]any{"label": "Account"}}))
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "contact", Customizable: true}))

	e, ok := r.Get(TypeObject, "account")
	require.True(t, ok)
	assert.Equal(t, "account", e.ID)

	list := r.List(TypeObject)
	assert.Len(t, list, 2)
	assert.Equal(t, "account", list[0].ID)
}

// TestRegistry_SystemOwnedUnregisterIsNoOp is spec.md §8 invariant 7:
// unregister(type, id) on a system-flagged entry is a no-op that raises;
// the entry is still present after.
func TestRegistry_SystemOwnedUnregisterIsNoOp(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "user", Customizable: false}))

	err := r.Unregister(TypeObject, "user")
	assert.Error(t, err)

	_, ok := r.Get(TypeObject, "user")
	assert.True(t, ok, "system-owned entry must still be present")
}

func TestRegistry_CustomizableUnregisterSucceeds(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "custom_object__c", Customizable: true}))

	require.NoError(t, r.Unregister(TypeObject, "custom_object__c"))
	_, ok := r.Get(TypeObject, "custom_object__c")
	assert.False(t, ok)
}

// TestRegistry_ValidateObjectCustomizable_NotYetExisting covers spec.md
// §4.10: validation methods return true for entries that do not yet exist.
func TestRegistry_ValidateObjectCustomizable_NotYetExisting(t *testing.T) {
	r := NewRegistry()
	ok, err := r.ValidateObjectCustomizable("not_yet_created__c")
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestRegistry_ValidateObjectCustomizable_SystemOwned(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "user", Customizable: false}))

	ok, err := r.ValidateObjectCustomizable("user")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestRegistry_ValidateFieldCustomizable(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeField, ID: "user.email", Customizable: false}))

	ok, err := r.ValidateFieldCustomizable("user", "email")
	assert.False(t, ok)
	assert.Error(t, err)

	ok, err = r.ValidateFieldCustomizable("user", "nickname")
	assert.True(t, ok)
	assert.NoError(t, err)
}

func TestRegistry_UnregisterPackageSkipsSystemOwned(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "custom_a__c", Package: "acme", Customizable: true}))
	require.NoError(t, r.Register(Entry{Type: TypeObject, ID: "user", Package: "acme", Customizable: false}))

	removed, skipped := r.UnregisterPackage("acme")
	assert.Equal(t, 1, removed)
	assert.Len(t, skipped, 1)

	_, ok := r.Get(TypeObject, "user")
	assert.True(t, ok)
	_, ok = r.Get(TypeObject, "custom_a__c")
	assert.False(t, ok)
}
