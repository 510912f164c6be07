// Package ir provides the functional graph IR shared by every other package.
//
// A Module is an arena that owns graphs and nodes. Graphs and nodes are named
// by opaque identifiers (GraphID, NodeID); zero is never a valid identifier.
//
// Every function is a Graph: an ordered parameter list plus one output node.
// Nodes come in three kinds:
//   - Apply: an operator and ordered operands, owned by one graph
//   - Parameter: a formal argument, owned by one graph
//   - Constant: an unowned wrapper around a Value
//
// Closures are constants whose Value references another graph. There are no
// parent pointers: which graph a nested function belongs to is derived from
// data flow (which graph owns the nodes it reads), never stored.
//
// This package imports nothing internal. All other internal packages import ir.
package ir
