package db

import "encoding/json"

// jsonMarshal and jsonUnmarshal are thin wrappers kept local to this package
// so the repository methods in postgres.go read uniformly; they carry no behavior
// beyond encoding/json's own.
func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func jsonUnmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// Store aggregates the Postgres and Redis handles used across the AdCP
// components. It is constructed once at startup and passed down to the
// tenant, catalog, lifecycle, creative, inventory, scheduler and webhook
// packages.
type Store struct {
	Postgres *Postgres
	Redis    *RedisStore
}

// NewStore wires an already-initialized Postgres and Redis connection into
// a single Store handle.
func NewStore(pg *Postgres, redis *RedisStore) *Store {
	return &Store{Postgres: pg, Redis: redis}
}

// Close shuts down both underlying connections.
func (s *Store) Close() {
	if s == nil {
		return
	}
	s.Postgres.Close()
	s.Redis.Close()
}
