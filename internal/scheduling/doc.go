// Package scheduling allocates non-overlapping publish slots over a rolling
// timeline of queue commitments.
package scheduling
