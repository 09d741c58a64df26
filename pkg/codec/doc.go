/*
Package codec reads and writes graphs, compiled flows and flow states.

Two graph representations are supported:

  - The JSON document (MarshalGraph / UnmarshalGraph) is the lossless,
    id-based persistence form. Unmarshal(Marshal(g)) is structurally equal
    to g, including node ids and port order.
  - The authoring Definition, written as YAML or HCL, addresses nodes by
    name and is built through package dsl. It is what people write by hand.

Compiled flows and flow states are encoded as canonical JSON with sorted
map keys.
*/
package codec
