package hrana

import "strings"

// SQLStore is the per-stream cache mapping small integer ids to previously
// submitted SQL text. It is owned exclusively by whichever pipeline request
// currently holds the stream's baton (the registry removes it from the table
// on Take), so it needs no locking of its own.
type SQLStore struct {
	texts map[int32]string
}

// NewSQLStore creates an empty store.
func NewSQLStore() *SQLStore {
	return &SQLStore{texts: make(map[int32]string)}
}

// Store inserts or overwrites the SQL text for id.
func (s *SQLStore) Store(id int32, sql string) {
	s.texts[id] = sql
}

// Forget removes the mapping for id; forgetting an unknown id is a no-op.
func (s *SQLStore) Forget(id int32) {
	delete(s.texts, id)
}

// Resolve returns the SQL text for a statement descriptor: inline SQL
// verbatim if present, else the cached text for sql_id, else empty. Callers
// treat empty SQL as inert.
func (s *SQLStore) Resolve(sql *string, sqlID *int32) string {
	if sql != nil {
		return *sql
	}
	if sqlID != nil {
		return s.texts[*sqlID]
	}
	return ""
}

// isEmptySQL reports whether the resolved text contains no statement.
func isEmptySQL(sql string) bool {
	return strings.TrimSpace(sql) == ""
}
