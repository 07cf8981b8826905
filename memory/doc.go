// Package memory provides per-conversation chat history and its persistence.
//
// Persistence model:
//   - One record per conversation id (a file for FileBackend, a row for SQLiteBackend).
//   - The whole ordered sequence is rewritten on every mutation.
//   - The system message is not stored; callers prepend it at send time.
//
// Invariant: an assistant message requesting tools and the function results
// answering it stay adjacent, and trimming drops them together.
package memory
