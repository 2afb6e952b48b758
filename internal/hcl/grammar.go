package hcl

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot is the decode target for the top-level blocks of a workspace
// file. There is deliberately no ",remain" body: an unrecognized block or
// attribute at the top level is a user error and must surface as one.
type fileRoot struct {
	Variables []*variableBlock `hcl:"variable,block"`
	Locals    []*localsBlock   `hcl:"locals,block"`
	Resources []*resourceBlock `hcl:"resource,block"`
	Outputs   []*outputBlock   `hcl:"output,block"`
}

// variableBlock is a raw `variable "name" { ... }` block.
type variableBlock struct {
	Name        string             `hcl:"name,label"`
	Type        hcl.Expression     `hcl:"type,optional"`
	Description string             `hcl:"description,optional"`
	Default     hcl.Expression     `hcl:"default,optional"`
	Sensitive   bool               `hcl:"sensitive,optional"`
	Validations []*validationBlock `hcl:"validation,block"`
}

// validationBlock is one `validation { ... }` rule inside a variable.
type validationBlock struct {
	Condition    hcl.Expression `hcl:"condition"`
	ErrorMessage string         `hcl:"error_message"`
}

// localsBlock is a raw `locals { ... }` block. Every attribute in the
// body becomes its own named declaration.
type localsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

// resourceBlock is a raw `resource "type" "name" { ... }` block. The body
// stays undecoded here because its attributes are free-form arguments
// mixed with meta-arguments; translateResource separates them.
type resourceBlock struct {
	Type string   `hcl:"type,label"`
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

// outputBlock is a raw `output "name" { ... }` block.
type outputBlock struct {
	Name        string         `hcl:"name,label"`
	Value       hcl.Expression `hcl:"value"`
	Description string         `hcl:"description,optional"`
	Sensitive   bool           `hcl:"sensitive,optional"`
}

// lifecycleBlock is the `lifecycle { ... }` meta-block of a resource.
type lifecycleBlock struct {
	PreventDestroy      bool           `hcl:"prevent_destroy,optional"`
	CreateBeforeDestroy bool           `hcl:"create_before_destroy,optional"`
	IgnoreChanges       hcl.Expression `hcl:"ignore_changes,optional"`
}
