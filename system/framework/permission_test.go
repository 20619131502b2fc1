package framework

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityManager_Creation(t *testing.T) {
	cm := NewCapabilityManager()
	require.NotNil(t, cm)
	assert.NotEmpty(t, cm.AllCapabilities())
}

func TestCapabilityManager_StandardCapabilities(t *testing.T) {
	cm := NewCapabilityManager()

	standard := []string{
		CapBusPublish,
		CapBusSubscribe,
		CapBusGate,
		CapRegistryRead,
		CapRegistryRegister,
		CapJobSchedule,
		CapJobCancel,
		CapNotifySend,
		CapMetadataRead,
		CapMetadataWrite,
		CapAuditRead,
		CapAdmin,
	}

	for _, name := range standard {
		assert.NotNilf(t, cm.GetCapability(name), "expected capability %s to be registered", name)
	}
}

func TestCapabilityManager_GrantAndCheck(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.Grant(ctx, "crm-core", CapBusPublish, "system"))
	assert.Equal(t, CapabilityGranted, cm.Check(ctx, "crm-core", CapBusPublish))
	assert.Equal(t, CapabilityDenied, cm.Check(ctx, "crm-core", CapBusGate))
}

func TestCapabilityManager_GrantUnknownCapability(t *testing.T) {
	cm := NewCapabilityManager()
	err := cm.Grant(context.Background(), "crm-core", "bogus.capability", "system")
	assert.Error(t, err)
}

func TestCapabilityManager_Revoke(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.Grant(ctx, "crm-core", CapBusPublish, "system"))
	require.NoError(t, cm.Revoke(ctx, "crm-core", CapBusPublish, "system"))
	assert.Equal(t, CapabilityDenied, cm.Check(ctx, "crm-core", CapBusPublish))
}

func TestCapabilityManager_GrantWithExpiry(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.GrantWithExpiry(ctx, "crm-core", CapBusPublish, "system", time.Now().Add(-time.Minute)))
	assert.Equal(t, CapabilityDenied, cm.Check(ctx, "crm-core", CapBusPublish))
}

func TestCapabilityManager_GrantAllGivesAdmin(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.GrantAll(ctx, "audit-pipeline", "system"))
	assert.Equal(t, CapabilityGranted, cm.Check(ctx, "audit-pipeline", CapBusPublish))
	assert.Equal(t, CapabilityGranted, cm.Check(ctx, "audit-pipeline", CapAuditRead))
}

func TestCapabilityManager_GrantGroup(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.GrantGroup(ctx, "job-dispatcher", CapabilityGroupJobQueue.Name, "system"))
	assert.Equal(t, CapabilityGranted, cm.Check(ctx, "job-dispatcher", CapJobSchedule))
	assert.Equal(t, CapabilityGranted, cm.Check(ctx, "job-dispatcher", CapJobCancel))
	assert.Equal(t, CapabilityDenied, cm.Check(ctx, "job-dispatcher", CapNotifySend))
}

func TestCapabilityManager_GrantsFor(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.Grant(ctx, "crm-core", CapBusPublish, "system"))
	require.NoError(t, cm.Grant(ctx, "crm-core", CapRegistryRead, "system"))

	grants := cm.GrantsFor("crm-core")
	assert.Len(t, grants, 2)
}

func TestCapabilityManager_AuditLog(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	require.NoError(t, cm.Grant(ctx, "crm-core", CapBusPublish, "system"))
	cm.Check(ctx, "crm-core", CapBusPublish)

	entries := cm.AuditLog(0)
	require.NotEmpty(t, entries)

	var sawCheck bool
	for _, e := range entries {
		if e.Operation == "check" {
			sawCheck = true
		}
	}
	assert.True(t, sawCheck)
}

func TestCapabilityManager_AuditCallback(t *testing.T) {
	cm := NewCapabilityManager()
	ctx := context.Background()

	var seen []CapabilityAuditEntry
	cm.SetAuditCallback(func(entry CapabilityAuditEntry) {
		seen = append(seen, entry)
	})

	require.NoError(t, cm.Grant(ctx, "crm-core", CapBusPublish, "system"))
	require.Len(t, seen, 1)
	assert.Equal(t, "grant", seen[0].Operation)
}

func TestCapabilityGrant_IsExpired(t *testing.T) {
	g := &CapabilityGrant{}
	assert.False(t, g.IsExpired())

	g.ExpiresAt = time.Now().Add(-time.Second)
	assert.True(t, g.IsExpired())

	g.ExpiresAt = time.Now().Add(time.Hour)
	assert.False(t, g.IsExpired())
}
