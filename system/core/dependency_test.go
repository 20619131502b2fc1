package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyResolverOrdersDependenciesFirst(t *testing.T) {
	d := NewDependencyResolver()
	d.DependsOn("reports", "billing")
	d.DependsOn("billing", "crm")

	order, err := d.Resolve([]string{"reports", "billing", "crm"})
	require.NoError(t, err)

	pos := map[string]int{}
	for i, name := range order {
		pos[name] = i
	}
	assert.Less(t, pos["crm"], pos["billing"])
	assert.Less(t, pos["billing"], pos["reports"])
}

func TestDependencyResolverDetectsCycle(t *testing.T) {
	d := NewDependencyResolver()
	d.DependsOn("a", "b")
	d.DependsOn("b", "c")
	d.DependsOn("c", "a")

	_, err := d.Resolve([]string{"a", "b", "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestDependencyResolverVerifyCatchesMissing(t *testing.T) {
	d := NewDependencyResolver()
	d.DependsOn("reports", "billing")

	err := d.Verify([]string{"reports"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "billing")
}

func TestDependencyResolverDependents(t *testing.T) {
	d := NewDependencyResolver()
	d.DependsOn("reports", "billing")
	d.DependsOn("invoicing", "billing")

	assert.Equal(t, []string{"invoicing", "reports"}, d.Dependents("billing"))
}
