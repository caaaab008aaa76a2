// Package models contains the GORM persistence models of the sync tables.
// Domain types stay free of GORM tags; each model converts to and from its
// domain counterpart with ToDomain and a From function.
//
// Tables:
//   - supplier_products: current supplier catalog snapshot
//   - custom_csvs, custom_csv_products: uploaded feeds
//   - products_update_logs: the change ledger, grouped by gid
//   - unmatched_products_for_review, hidden_unmatched_products: review registry and its hidden overlay
//   - stock_data_sources: configured supplier sources
package models
