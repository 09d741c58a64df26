/*
Package runtime interprets compiled flows.

An Engine is created once per compiled flow, binding every behavior at load
time. It keeps no per-instance state: each FlowState is owned by the caller
and advanced with Step, one synchronous transition per call. Step never
modifies its input, so a failed step leaves the caller's state untouched.
*/
package runtime
