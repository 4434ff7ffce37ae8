// Package permission provides the capability registry, immutable
// permission sets, and the role→capability table used by the
// authentication core.
//
// Sets are bitmask snapshots over a frozen registry: a resolved role
// always maps to a complete, internally consistent capability set, and
// a set is only ever replaced wholesale, never mutated in place.
package permission
