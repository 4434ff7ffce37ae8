// Package directory is a SQL-backed reference implementation of the
// core's Directory contract, for embedders that keep profiles and role
// assignments in their own database rather than the identity platform.
package directory
