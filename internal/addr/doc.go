/*
Package addr provides a structured, type-safe representation for symbol
paths and instance addresses, based on the canonical dotted/indexed format.

A path is a dot-separated sequence of steps, where each step is a name
optionally followed by index brackets, e.g. `resource.server.web["alpha"].id`
or `local.names[0]`.

This package enforces the path schema and centralizes all formatting and
parsing logic, so the rest of the system never manipulates raw strings.
*/
package addr
