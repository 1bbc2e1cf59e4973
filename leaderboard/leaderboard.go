package leaderboard

import "scorekit/core"

// Board abstracts the fast-path top-N store. All mutation goes through
// Upsert and Replace; callers only ever see copies.
type Board interface {
	// Upsert inserts or updates the user's entry and trims the category back
	// to the configured size. The updated user is evictable like anyone else.
	Upsert(category core.Category, e core.Entry)
	// Snapshot returns an immutable copy of the category's current ranking.
	Snapshot(category core.Category) core.Snapshot
	// Replace atomically swaps the whole category's contents. Reserved for
	// the synchronizer.
	Replace(category core.Category, entries []core.Entry)
	// Categories lists every category the board currently tracks.
	Categories() []core.Category
}
