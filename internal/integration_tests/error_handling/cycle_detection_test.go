package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/diag"
	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/testutil"
)

// TestErrorHandling_CycleReportsEveryParticipant validates that a
// reference cycle fails the build and the reported path names every node
// in the cycle, closed back on itself.
func TestErrorHandling_CycleReportsEveryParticipant(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
locals {
  a = local.c
  b = local.a
  c = local.b
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})

	require.Error(t, res.Err)
	var cycErr diag.CyclicReferenceError
	require.ErrorAs(t, res.Err, &cycErr)

	assert.Len(t, cycErr.Cycle, 4, "three participants plus the closing repeat")
	assert.Equal(t, cycErr.Cycle[0], cycErr.Cycle[len(cycErr.Cycle)-1])
	assert.Contains(t, cycErr.Cycle, "local.a")
	assert.Contains(t, cycErr.Cycle, "local.b")
	assert.Contains(t, cycErr.Cycle, "local.c")

	// The build failed, so there is nothing to run.
	assert.Nil(t, res.Result)
}

// TestErrorHandling_SelfReferenceIsACycle validates the one-node cycle.
func TestErrorHandling_SelfReferenceIsACycle(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `locals { a = local.a + 1 }`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})

	var cycErr diag.CyclicReferenceError
	require.ErrorAs(t, res.Err, &cycErr)
	assert.Equal(t, []string{"local.a", "local.a"}, cycErr.Cycle)
}

// TestErrorHandling_UndefinedReferenceFailsTheBuild validates that a
// reference to a declaration that does not exist is caught statically,
// naming both ends of the dangling edge.
func TestErrorHandling_UndefinedReferenceFailsTheBuild(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
output "oops" {
  value = var.not_declared
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})

	require.Error(t, res.Err)
	var undefErr diag.UndefinedSymbolError
	require.ErrorAs(t, res.Err, &undefErr)
	assert.Equal(t, "var.not_declared", undefErr.Symbol)
	assert.Equal(t, "output.oops", undefErr.Referrer)
}
