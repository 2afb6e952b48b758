package integration_tests

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/testutil"
	"github.com/specialistvlad/terrane/internal/value"
)

// TestDagConcurrency_EveryNodeEvaluatesExactlyOnce validates memoization
// under contention: a wide fan of independent locals all read the same
// shared dependency through an 8-worker pool, and no node evaluates twice.
func TestDagConcurrency_EveryNodeEvaluatesExactlyOnce(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("locals {\n")
	sb.WriteString("  shared = 21 * 2\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, "  fan%d = local.shared + %d\n", i, i)
	}
	sb.WriteString("}\n")

	files := map[string]string{"main.hcl": sb.String()}

	res := testutil.RunWorkspace(t, files, graph.Options{Workers: 8})
	require.NoError(t, res.Err)

	for id, count := range res.Result.Stats.Evaluations {
		assert.Equal(t, int64(1), count, "node %s", id)
	}
	assert.Equal(t, int64(41), res.Result.Stats.Total())
}

// TestDagConcurrency_DiamondObservesOneSharedResult validates fan-out and
// fan-in: both arms of a diamond read the same base value, and the join
// sees consistent results from both.
func TestDagConcurrency_DiamondObservesOneSharedResult(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
locals {
  base  = 10
  left  = local.base * 2
  right = local.base + 5
  join  = local.left + local.right
}

output "join" {
  value = local.join
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{Workers: 4})
	require.NoError(t, res.Err)

	assert.True(t, value.Equal(value.IntVal(35), res.Result.Outputs["join"].Value))
	assert.Equal(t, int64(1), res.Result.Stats.Evaluations["local.base"])
}

// TestDagConcurrency_SingleWorkerStillCompletes validates that resolution
// never deadlocks on a minimal pool, whatever the dependency shape.
func TestDagConcurrency_SingleWorkerStillCompletes(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
locals {
  a = 1
  b = local.a + 1
  c = local.b + 1
  d = local.c + 1
}

output "depth" {
  value = local.d
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{Workers: 1})
	require.NoError(t, res.Err)
	assert.True(t, value.Equal(value.IntVal(4), res.Result.Outputs["depth"].Value))
}

// TestDagConcurrency_IndependentSubgraphsSurviveEachOther validates that a
// failure in one subgraph neither blocks nor corrupts a concurrent one.
func TestDagConcurrency_IndependentSubgraphsSurviveEachOther(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("locals {\n")
	sb.WriteString("  broken = 1 / 0\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&sb, "  ok%d = %d\n", i, i)
	}
	sb.WriteString("}\n")

	files := map[string]string{"main.hcl": sb.String()}

	res := testutil.RunWorkspace(t, files, graph.Options{Workers: 8})
	require.Error(t, res.Err)

	require.Len(t, res.Result.Failures, 1)
	assert.Equal(t, "local.broken", res.Result.Failures[0].Addr.String())
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("local.ok%d", i)
		assert.Equal(t, int64(1), res.Result.Stats.Evaluations[id], "node %s", id)
	}
}
