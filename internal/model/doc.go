// Package model defines the data structures shared by the sitemirror passes.
//
// This package contains the following main types:
//   - Document: an HTML page being rewritten
//   - RunReport and AssetRecord: the outcome of a localize pass
//   - RestructureReport: the pages moved by a restructure pass
//   - AuditReport and Finding: problems left in the migrated site
//
// The models are serializable to JSON for report output and ledger storage.
package model
