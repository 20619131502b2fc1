// Package framework provides the capability system controlling which
// plugins may publish/subscribe to bus topics or reach system services.
// This is distinct from the end-user Permission Engine that gates
// object/field/record access to business data, this layer gates what a
// plugin itself is allowed to do against the kernel.
package framework

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Capability represents a single grantable action a plugin can be allowed
// to perform against the kernel.
type Capability struct {
	// Name is the unique identifier for this capability (e.g. "bus.publish").
	Name string

	// Group is the capability group this belongs to.
	Group string

	// Description is a human-readable description of what this capability allows.
	Description string

	// ProtectionLevel indicates how dangerous this capability is.
	ProtectionLevel ProtectionLevel
}

// ProtectionLevel indicates the risk level of a capability.
type ProtectionLevel int

const (
	// ProtectionNormal is for low-risk capabilities any plugin may hold.
	ProtectionNormal ProtectionLevel = iota
	// ProtectionDangerous is for capabilities that can affect other plugins' data.
	ProtectionDangerous
	// ProtectionSystem is for capabilities only granted to kernel-provided plugins.
	ProtectionSystem
)

// String returns a human-readable protection level.
func (p ProtectionLevel) String() string {
	switch p {
	case ProtectionNormal:
		return "normal"
	case ProtectionDangerous:
		return "dangerous"
	case ProtectionSystem:
		return "system"
	default:
		return "unknown"
	}
}

// CapabilityGroup represents a group of related capabilities.
type CapabilityGroup struct {
	Name        string
	Description string
	Priority    int
}

// Standard capability groups, one per kernel component a plugin can reach.
var (
	CapabilityGroupBus      = &CapabilityGroup{Name: "bus", Description: "Event/hook bus access", Priority: 100}
	CapabilityGroupRegistry = &CapabilityGroup{Name: "registry", Description: "Service registry access", Priority: 90}
	CapabilityGroupJobQueue = &CapabilityGroup{Name: "jobqueue", Description: "Job queue access", Priority: 80}
	CapabilityGroupNotify   = &CapabilityGroup{Name: "notify", Description: "Notification queue access", Priority: 70}
	CapabilityGroupMetadata = &CapabilityGroup{Name: "metadata", Description: "Metadata registry access", Priority: 60}
	CapabilityGroupAudit    = &CapabilityGroup{Name: "audit", Description: "Audit pipeline access", Priority: 50}
	CapabilityGroupAdmin    = &CapabilityGroup{Name: "admin", Description: "Kernel administration", Priority: 10}
)

// Standard capabilities.
const (
	CapBusPublish   = "bus.publish"
	CapBusSubscribe = "bus.subscribe"
	CapBusGate      = "bus.gate"

	CapRegistryRead     = "registry.read"
	CapRegistryRegister = "registry.register"

	CapJobSchedule = "jobqueue.schedule"
	CapJobCancel   = "jobqueue.cancel"

	CapNotifySend = "notify.send"

	CapMetadataRead  = "metadata.read"
	CapMetadataWrite = "metadata.write"

	CapAuditRead = "audit.read"

	// CapAdmin grants every capability, used for kernel-internal plugins.
	CapAdmin = "admin.*"
)

// CapabilityGrant represents a granted capability with metadata.
type CapabilityGrant struct {
	Capability string
	GrantedAt  time.Time
	GrantedBy  string
	ExpiresAt  time.Time
}

// IsExpired reports whether the grant has lapsed.
func (g *CapabilityGrant) IsExpired() bool {
	if g.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(g.ExpiresAt)
}

// CapabilityResult is the outcome of a capability check.
type CapabilityResult int

const (
	CapabilityDenied CapabilityResult = iota
	CapabilityGranted
)

func (r CapabilityResult) String() string {
	if r == CapabilityGranted {
		return "granted"
	}
	return "denied"
}

// CapabilityAuditEntry records a grant/revoke/check operation.
type CapabilityAuditEntry struct {
	Timestamp  time.Time
	Operation  string
	Plugin     string
	Capability string
	Result     CapabilityResult
	GrantedBy  string
	Details    map[string]any
}

// CapabilityManager tracks which capabilities are granted to which plugins.
// A single instance is owned by the bootstrap Kernel; bootstrap.Assemble
// grants the capabilities listed in Config.CapabilityGrants before Init
// runs.
type CapabilityManager struct {
	capabilities map[string]*Capability
	groups       map[string]*CapabilityGroup

	// grants per plugin: plugin -> capability -> grant
	grants map[string]map[string]*CapabilityGrant

	auditLog      []CapabilityAuditEntry
	maxAuditSize  int
	auditCallback func(entry CapabilityAuditEntry)

	mu sync.RWMutex
}

// NewCapabilityManager creates a CapabilityManager pre-seeded with the
// standard kernel capability set.
func NewCapabilityManager() *CapabilityManager {
	cm := &CapabilityManager{
		capabilities: make(map[string]*Capability),
		groups:       make(map[string]*CapabilityGroup),
		grants:       make(map[string]map[string]*CapabilityGrant),
		auditLog:     make([]CapabilityAuditEntry, 0, 1000),
		maxAuditSize: 10000,
	}
	cm.registerStandardCapabilities()
	return cm
}

func (cm *CapabilityManager) registerStandardCapabilities() {
	cm.RegisterGroup(CapabilityGroupBus)
	cm.RegisterGroup(CapabilityGroupRegistry)
	cm.RegisterGroup(CapabilityGroupJobQueue)
	cm.RegisterGroup(CapabilityGroupNotify)
	cm.RegisterGroup(CapabilityGroupMetadata)
	cm.RegisterGroup(CapabilityGroupAudit)
	cm.RegisterGroup(CapabilityGroupAdmin)

	cm.RegisterCapability(&Capability{Name: CapBusPublish, Group: CapabilityGroupBus.Name, Description: "Publish/trigger bus topics", ProtectionLevel: ProtectionNormal})
	cm.RegisterCapability(&Capability{Name: CapBusSubscribe, Group: CapabilityGroupBus.Name, Description: "Hook bus topics", ProtectionLevel: ProtectionNormal})
	cm.RegisterCapability(&Capability{Name: CapBusGate, Group: CapabilityGroupBus.Name, Description: "Hook gate (before*) topics", ProtectionLevel: ProtectionDangerous})

	cm.RegisterCapability(&Capability{Name: CapRegistryRead, Group: CapabilityGroupRegistry.Name, Description: "Look up registered services", ProtectionLevel: ProtectionNormal})
	cm.RegisterCapability(&Capability{Name: CapRegistryRegister, Group: CapabilityGroupRegistry.Name, Description: "Register a named service", ProtectionLevel: ProtectionDangerous})

	cm.RegisterCapability(&Capability{Name: CapJobSchedule, Group: CapabilityGroupJobQueue.Name, Description: "Enqueue jobs", ProtectionLevel: ProtectionNormal})
	cm.RegisterCapability(&Capability{Name: CapJobCancel, Group: CapabilityGroupJobQueue.Name, Description: "Cancel queued jobs", ProtectionLevel: ProtectionDangerous})

	cm.RegisterCapability(&Capability{Name: CapNotifySend, Group: CapabilityGroupNotify.Name, Description: "Enqueue notifications", ProtectionLevel: ProtectionNormal})

	cm.RegisterCapability(&Capability{Name: CapMetadataRead, Group: CapabilityGroupMetadata.Name, Description: "Read metadata entries", ProtectionLevel: ProtectionNormal})
	cm.RegisterCapability(&Capability{Name: CapMetadataWrite, Group: CapabilityGroupMetadata.Name, Description: "Write metadata entries", ProtectionLevel: ProtectionDangerous})

	cm.RegisterCapability(&Capability{Name: CapAuditRead, Group: CapabilityGroupAudit.Name, Description: "Query the audit log", ProtectionLevel: ProtectionDangerous})

	cm.RegisterCapability(&Capability{Name: CapAdmin, Group: CapabilityGroupAdmin.Name, Description: "Full kernel access", ProtectionLevel: ProtectionSystem})
}

// RegisterCapability registers a new capability.
func (cm *CapabilityManager) RegisterCapability(cap *Capability) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.capabilities[cap.Name] = cap
}

// RegisterGroup registers a new capability group.
func (cm *CapabilityManager) RegisterGroup(group *CapabilityGroup) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.groups[group.Name] = group
}

// GetCapability returns a capability by name.
func (cm *CapabilityManager) GetCapability(name string) *Capability {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.capabilities[name]
}

// GetGroup returns a capability group by name.
func (cm *CapabilityManager) GetGroup(name string) *CapabilityGroup {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.groups[name]
}

// Grant grants a capability to a plugin.
func (cm *CapabilityManager) Grant(ctx context.Context, plugin, capability, grantedBy string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.capabilities[capability]; !ok {
		return fmt.Errorf("framework: unknown capability %q", capability)
	}

	if cm.grants[plugin] == nil {
		cm.grants[plugin] = make(map[string]*CapabilityGrant)
	}
	cm.grants[plugin][capability] = &CapabilityGrant{
		Capability: capability,
		GrantedAt:  time.Now(),
		GrantedBy:  grantedBy,
	}

	cm.audit(CapabilityAuditEntry{
		Timestamp:  time.Now(),
		Operation:  "grant",
		Plugin:     plugin,
		Capability: capability,
		Result:     CapabilityGranted,
		GrantedBy:  grantedBy,
	})
	return nil
}

// GrantWithExpiry grants a capability that lapses at expiresAt.
func (cm *CapabilityManager) GrantWithExpiry(ctx context.Context, plugin, capability, grantedBy string, expiresAt time.Time) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, ok := cm.capabilities[capability]; !ok {
		return fmt.Errorf("framework: unknown capability %q", capability)
	}
	if cm.grants[plugin] == nil {
		cm.grants[plugin] = make(map[string]*CapabilityGrant)
	}
	cm.grants[plugin][capability] = &CapabilityGrant{
		Capability: capability,
		GrantedAt:  time.Now(),
		GrantedBy:  grantedBy,
		ExpiresAt:  expiresAt,
	}

	cm.audit(CapabilityAuditEntry{
		Timestamp:  time.Now(),
		Operation:  "grant_with_expiry",
		Plugin:     plugin,
		Capability: capability,
		Result:     CapabilityGranted,
		GrantedBy:  grantedBy,
		Details:    map[string]any{"expires_at": expiresAt},
	})
	return nil
}

// Revoke revokes a capability from a plugin.
func (cm *CapabilityManager) Revoke(ctx context.Context, plugin, capability, revokedBy string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.grants[plugin] != nil {
		delete(cm.grants[plugin], capability)
	}

	cm.audit(CapabilityAuditEntry{
		Timestamp:  time.Now(),
		Operation:  "revoke",
		Plugin:     plugin,
		Capability: capability,
		Result:     CapabilityDenied,
		GrantedBy:  revokedBy,
	})
	return nil
}

// Check reports whether plugin currently holds capability.
func (cm *CapabilityManager) Check(ctx context.Context, plugin, capability string) CapabilityResult {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	result := cm.checkLocked(plugin, capability)
	cm.audit(CapabilityAuditEntry{
		Timestamp:  time.Now(),
		Operation:  "check",
		Plugin:     plugin,
		Capability: capability,
		Result:     result,
	})
	return result
}

func (cm *CapabilityManager) checkLocked(plugin, capability string) CapabilityResult {
	if grants, ok := cm.grants[plugin]; ok {
		if grant, ok := grants[capability]; ok && !grant.IsExpired() {
			return CapabilityGranted
		}
	}
	return cm.checkWildcardLocked(plugin, capability)
}

// checkWildcardLocked checks for admin, group, or prefix-wildcard grants.
// Caller must hold the manager's lock.
func (cm *CapabilityManager) checkWildcardLocked(plugin, capability string) CapabilityResult {
	grants, ok := cm.grants[plugin]
	if !ok {
		return CapabilityDenied
	}

	if grant, ok := grants[CapAdmin]; ok && !grant.IsExpired() {
		return CapabilityGranted
	}

	if cap, ok := cm.capabilities[capability]; ok && cap.Group != "" {
		groupCap := cap.Group + ".*"
		if grant, ok := grants[groupCap]; ok && !grant.IsExpired() {
			return CapabilityGranted
		}
	}

	for grantedCap, grant := range grants {
		if grant.IsExpired() {
			continue
		}
		if strings.HasSuffix(grantedCap, "*") {
			prefix := grantedCap[:len(grantedCap)-1]
			if strings.HasPrefix(capability, prefix) {
				return CapabilityGranted
			}
		}
	}

	return CapabilityDenied
}

// GrantsFor returns all unexpired grants held by a plugin.
func (cm *CapabilityManager) GrantsFor(plugin string) []*CapabilityGrant {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	var result []*CapabilityGrant
	for _, grant := range cm.grants[plugin] {
		if !grant.IsExpired() {
			result = append(result, grant)
		}
	}
	return result
}

// AllCapabilities returns every registered capability.
func (cm *CapabilityManager) AllCapabilities() []*Capability {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	result := make([]*Capability, 0, len(cm.capabilities))
	for _, cap := range cm.capabilities {
		result = append(result, cap)
	}
	return result
}

// AuditLog returns the most recent limit audit entries (0 or negative means all).
func (cm *CapabilityManager) AuditLog(limit int) []CapabilityAuditEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if limit <= 0 || limit > len(cm.auditLog) {
		limit = len(cm.auditLog)
	}
	start := len(cm.auditLog) - limit
	if start < 0 {
		start = 0
	}

	result := make([]CapabilityAuditEntry, limit)
	copy(result, cm.auditLog[start:])
	return result
}

// SetAuditCallback installs a callback invoked (synchronously, under lock)
// for every audit entry appended.
func (cm *CapabilityManager) SetAuditCallback(callback func(entry CapabilityAuditEntry)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.auditCallback = callback
}

// audit appends an entry to the log. Caller must hold the write lock.
func (cm *CapabilityManager) audit(entry CapabilityAuditEntry) {
	if len(cm.auditLog) >= cm.maxAuditSize {
		cm.auditLog = cm.auditLog[cm.maxAuditSize/2:]
	}
	cm.auditLog = append(cm.auditLog, entry)

	if cm.auditCallback != nil {
		cm.auditCallback(entry)
	}
}

// GrantAll grants admin (all capabilities) to a plugin, for kernel-internal
// plugins such as the audit pipeline or job queue dispatcher.
func (cm *CapabilityManager) GrantAll(ctx context.Context, plugin, grantedBy string) error {
	return cm.Grant(ctx, plugin, CapAdmin, grantedBy)
}

// GrantGroup grants every capability in a group to a plugin.
func (cm *CapabilityManager) GrantGroup(ctx context.Context, plugin, group, grantedBy string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.grants[plugin] == nil {
		cm.grants[plugin] = make(map[string]*CapabilityGrant)
	}
	for _, cap := range cm.capabilities {
		if cap.Group == group {
			cm.grants[plugin][cap.Name] = &CapabilityGrant{
				Capability: cap.Name,
				GrantedAt:  time.Now(),
				GrantedBy:  grantedBy,
			}
		}
	}

	cm.audit(CapabilityAuditEntry{
		Timestamp:  time.Now(),
		Operation:  "grant_group",
		Plugin:     plugin,
		Capability: group,
		Result:     CapabilityGranted,
		GrantedBy:  grantedBy,
	})
	return nil
}
