/*
Package domain contains the core model of the GameFlow engine.

It defines the editable flow graph (nodes, typed ports and edges), the
runtime flow state, validation issues and the events exchanged with
behaviors and lifecycle hooks. The package is pure: it performs no I/O and
depends only on the schema package for value typing.

# Key Entities

  - Graph: an arena of Nodes keyed by stable NodeID plus an edge list.
  - Node: one of Entry, State, Condition, Action or Exit, with ordered ports.
  - Port: a typed connection point (Exec, Bool or Data<T>).
  - FlowState: the cursor of one running instance of a compiled flow.
  - ValidationIssue: a finding reported by the validator, keyed by node id.
*/
package domain
