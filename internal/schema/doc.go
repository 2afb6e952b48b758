// Copyright (c) 2025 Vladyslav Kazantsev
// SPDX-License-Identifier: MIT
//
// Package schema provides the Go struct representation of a Terrane
// configuration. Its core purpose is to hold the user's declarations as
// strongly-typed, immutable values carrying unevaluated expression trees.
//
// # Core Concepts
//
// The schema is built around a few key structures:
//
//   - Config: The root container for one evaluation run. It aggregates all
//     declarations parsed from a workspace and offers lookup by address.
//
//   - Variable: A declared input. It carries an optional type constraint,
//     an optional default expression, and user-supplied validation rules.
//
//   - Local: A named intermediate expression.
//
//   - Resource: A declared desired-state object. Its arguments stay as raw
//     expression trees until the graph evaluates them; a Multiplicity
//     setting (count or for_each) may expand it into several instances.
//
//   - Output: A named result exported at the end of a run.
//
// Why a separate schema package?
//
// Declarations arrive from a front end (HCL files today, potentially an
// API tomorrow) and are consumed by the reference analyzer, the graph
// builder and the evaluator. Keeping them in a front-end-neutral package
// means none of those consumers needs to know how configuration is
// written, only what was declared. Expressions are internal/ast trees,
// never surface syntax.
//
// Everything in this package is immutable after construction. Evaluation
// state — resolved values, instance expansions, failures — lives in
// internal/graph, never here, so a Config can be shared by concurrent
// runs.
package schema
