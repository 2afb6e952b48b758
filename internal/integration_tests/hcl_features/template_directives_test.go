package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/terrane/internal/graph"
	"github.com/specialistvlad/terrane/internal/testutil"
	"github.com/specialistvlad/terrane/internal/value"
)

// TestHclFeatures_TemplateInterpolation validates string templates over
// every interpolable kind, and Unknown infection of the whole template.
func TestHclFeatures_TemplateInterpolation(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
variable "port" {
  default = 8080
}

variable "tls" {
  default = true
}

variable "pending" {}

output "listen" {
  value = "0.0.0.0:${var.port} tls=${var.tls}"
}

output "waiting" {
  value = "addr-${var.pending}"
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{
		Variables: map[string]value.Value{"pending": value.Unknown},
	})
	require.NoError(t, res.Err)

	assert.True(t, value.Equal(
		value.StringVal("0.0.0.0:8080 tls=true"),
		res.Result.Outputs["listen"].Value,
	))
	assert.True(t, res.Result.Outputs["waiting"].Value.IsUnknown())
}

// TestHclFeatures_TemplateForDirective validates that %{for} directives
// survive the desugaring into comprehension-plus-join.
func TestHclFeatures_TemplateForDirective(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
variable "hosts" {
  default = ["alpha", "beta"]
}

output "upstreams" {
  value = "%{ for h in var.hosts }server ${h}; %{ endfor }"
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})
	require.NoError(t, res.Err)

	assert.True(t, value.Equal(
		value.StringVal("server alpha; server beta; "),
		res.Result.Outputs["upstreams"].Value,
	))
}

// TestHclFeatures_TemplateIfDirective validates conditional directives.
func TestHclFeatures_TemplateIfDirective(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"main.hcl": `
variable "debug" {
  default = false
}

output "flags" {
  value = "--listen%{ if var.debug } --verbose%{ endif }"
}
`,
	}

	res := testutil.RunWorkspace(t, files, graph.Options{})
	require.NoError(t, res.Err)

	assert.True(t, value.Equal(
		value.StringVal("--listen"),
		res.Result.Outputs["flags"].Value,
	))
}
