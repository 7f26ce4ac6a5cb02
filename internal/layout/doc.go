// Package layout defines the records persisted by the home-screen store.
//
// This package contains value types only. Every other internal package
// imports layout; layout imports nothing internal.
//
// Key constraints:
//   - Item and screen ids are issued once and never reused
//   - A non-folder item's container is Desktop, Hotseat, or a folder id
//   - Folders do not nest
//   - All JSON tags use snake_case
package layout
