// Package checkin stores and queries exercise check-ins.
//
// A check-in is written as a primary record plus two index memberships: the
// per-user set and the per-user-per-day set. Create writes the primary
// first and Delete removes it first, so an interrupted batch can only leave
// index ids whose primary is gone. Listing skips and prunes such ids, and
// Reconcile rebuilds both indexes from the primaries.
//
// Records that fail to decode are skipped during listing and logged; they
// are never returned to callers.
package checkin
