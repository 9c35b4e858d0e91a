// Package dirty tracks whether an object has been modified since it was last marked clean.
//
// Types opt in by embedding Tracker, or by implementing Target themselves. Writes are routed
// through interceptors built with Setter, whose advice proceeds with the write and then flips
// the target from Clean to Dirty. Inspect checks types that implement the state accessors by
// hand and reports contract violations as diagnostics:
//
//	MY001  DirtyState is implemented without a SetDirtyState method
//	MY002  SetDirtyState has a value receiver, so writes never reach the object
package dirty
