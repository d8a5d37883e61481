// Package models defines the core domain models for SplitIt.
//
// # Money
//
// Every monetary field is an int64 holding minor currency units (cents for
// USD). There are no floating-point amounts anywhere in the split or ledger
// path; display formatting lives in the money package.
//
// # Model Overview
//
//   - Receipt: one uploaded bill with its line items
//   - Item: a single priced line on a receipt
//   - Participant: a person splitting receipts, with a running total
//   - Allocation: the persisted amount one participant owes for one item
//   - Settlement: a recorded payment that reduces a participant's
//     outstanding balance going forward
//   - User: a registered account that owns receipts
//
// # Design Principles
//
//  1. Allocations are only ever written as a full replacement set for a
//     receipt's items, never patched row by row
//  2. A participant's running total always equals the sum of their
//     allocation amounts; settlements are tracked and reported separately
//  3. Relationships use ID strings instead of pointers to avoid circular
//     references
package models
