// Package productsync contains the Product Sync bounded context.
// It reconciles a supplier catalog against the variants of a storefront.
//
// Key concepts:
//   - SupplierProduct: a row of a supplier catalog snapshot (barcode, SKU, price, quantity, location)
//   - StorefrontVariant: a variant owned by the storefront, read through the StorefrontClient port
//   - SupplierCatalogLookup: port for barcode and SKU queries over a catalog snapshot
//   - UpdateLogEntry: immutable ledger row grouped by a per-run gid
//   - UnmatchedProductForReview: last-run snapshot of variants that failed matching
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package productsync
