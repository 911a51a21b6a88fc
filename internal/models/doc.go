// Package models defines the core domain models for the household ledger.
//
// # Tenancy
//
// A Couple is the isolation boundary. Every other model carries a CoupleID
// and every store query filters by it:
//   - Couple, CoupleMember: the tenant and the users that belong to it
//   - Participant: a registered user or a guest who can pay or owe
//   - Category, ExpenseGroup, GroupMember: ways to organize spend
//   - Expense, ExpenseSplit: what was paid, and who owes which share
//
// # Money
//
// Amounts are integer cents. For every committed expense the split shares
// sum exactly to AmountCents; the payer is always one of the split
// participants.
//
// # Soft deletion
//
// Participants, categories, groups and expenses are never removed
// physically. DeletedAt is set instead and default queries exclude the row.
package models
