/*
Package compiler lowers a validated flow graph into a Flow: a flat,
index-based form with no references back to the graph.

Index order is fixed so builds are reproducible: the entry node is index 0,
the remaining nodes follow in breadth-first discovery order over execution
edges (successors in ascending node id), and nodes never discovered are
appended in ascending node id. Payloads and default values are deep copied.

Compile refuses graphs with fatal validation issues by returning a
*ValidationError, which matches domain.ErrValidationFailed.
*/
package compiler
