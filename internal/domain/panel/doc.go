// Package panel contains core domain types for the security panel:
// the remote status enum, the public alarm state enum with a total mapping
// between the two, zones, site metadata and the per-cycle change snapshot.
package panel
