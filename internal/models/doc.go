// Package models defines the core domain models for splitit.
//
// # Entities
//
//   - User: a registered account, identified by ID and a globally unique handle (Name)
//   - Friend: a directed "knows" edge from one user to another user's handle
//   - Group: a named set of members owned by the user who created it
//   - Expense: an amount paid by one user and split among participants by percentage shares
//
// # Relationships
//
// Every relationship is keyed by user ID. Names carried on Participant and Member are
// display snapshots only and are never used to join records.
//
// # Sync state
//
// Expenses and Groups carry a Synced flag. Any mutation clears it and bumps UpdatedAt;
// only the sync reconciler sets it, and only when UpdatedAt is unchanged since upload.
package models
