// Package repositories implements SQLite persistence for client-local state.
//
// Key Implementations:
//   - [StateRepository] : string key/value store over the player_state table
//   - [MemoryStore] : in-process [models.StateStore] for tests and ephemeral sessions
//   - [HistoryRepository] : search history with most-recent-first listing
//
// Each key is read and written independently; nothing here is transactional across keys.
package repositories
