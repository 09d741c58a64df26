/*
Package ports defines the driven ports (interfaces) of the GameFlow engine.

These interfaces decouple the engine from behavior providers, graph sources,
state storage and locking backends.

# Key Interfaces

  - Behaviors: resolves the predicates and actions named by node payloads.
  - GraphLoader: loads an editable Graph (from files or memory).
  - StateStore: persists FlowState per instance.
  - DistributedLocker: serializes access to one instance across replicas.
*/
package ports
