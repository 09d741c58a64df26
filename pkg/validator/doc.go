/*
Package validator performs static analysis over a flow graph.

Validate never fails fast: every check runs and all findings are returned
in a Report so an editor can present them at once. Checks run in this order:

 1. exactly one entry node (MissingEntry, MultipleEntry)
 2. reachability from the entry over execution edges (UnreachableNode, warning)
 3. unconditional cycles made only of State nodes (InfiniteLoop)
 4. value inputs that are neither connected nor defaulted (UnboundInput)
 5. execution outputs without an edge on reachable nodes (DeadEnd)
 6. execution outputs with more than one edge (AmbiguousTransition)
 7. behaviors the provider does not know (UnknownBehavior)
 8. default values that do not satisfy their port type (InvalidDefault)

Only UnreachableNode is a warning; every other kind blocks compilation.
*/
package validator
