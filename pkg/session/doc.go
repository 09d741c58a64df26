/*
Package session keeps a registry of running flow instances.

A Manager starts instances with fresh ids, steps them by id and persists
every committed state through a ports.StateStore. Steps on one instance are
serialized with a reference-counted local mutex and, when configured, a
ports.DistributedLocker shared by every replica.
*/
package session
