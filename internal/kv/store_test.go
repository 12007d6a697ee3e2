package kv

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisFromClient(client), mr
}

// setupTestPostgres connects to TEST_DATABASE_URL, applies the migrations
// and empties kv_entries. It returns nil when the variable is unset.
func setupTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		return nil
	}

	ctx := context.Background()
	pg, err := NewPostgres(ctx, url)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(pg.Close)

	if err := pg.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	if _, err := pg.pool.Exec(ctx, "TRUNCATE kv_entries"); err != nil {
		t.Fatalf("truncating kv_entries: %v", err)
	}
	return pg
}

// backends returns every Store implementation under test. Postgres joins
// the set when TEST_DATABASE_URL is set.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	rs, _ := setupTestRedis(t)
	out := map[string]Store{
		"memory": NewMemory(),
		"redis":  rs,
	}
	if pg := setupTestPostgres(t); pg != nil {
		out["postgres"] = pg
	}
	return out
}

func TestStore_GetMissing(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(context.Background(), "nope")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_SetGetDelete(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			if err := s.Set(ctx, "k", []byte(`"v1"`)); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := s.Get(ctx, "k")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if string(got) != `"v1"` {
				t.Errorf("got %s, want %s", got, `"v1"`)
			}

			exists, err := s.Exists(ctx, "k")
			if err != nil || !exists {
				t.Errorf("expected key to exist, got %v (err %v)", exists, err)
			}

			if err := s.Delete(ctx, "k"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			exists, _ = s.Exists(ctx, "k")
			if exists {
				t.Error("key should be gone after delete")
			}

			// Deleting a missing key is not an error.
			if err := s.Delete(ctx, "k"); err != nil {
				t.Errorf("delete of missing key: %v", err)
			}
		})
	}
}

func TestStore_SetNX(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := s.SetNX(ctx, "once", []byte(`1`))
			if err != nil || !ok {
				t.Fatalf("first SetNX should succeed, got %v (err %v)", ok, err)
			}
			ok, err = s.SetNX(ctx, "once", []byte(`2`))
			if err != nil {
				t.Fatalf("second SetNX: %v", err)
			}
			if ok {
				t.Error("second SetNX should not overwrite")
			}

			got, _ := s.Get(ctx, "once")
			if string(got) != "1" {
				t.Errorf("got %s, want 1", got)
			}
		})
	}
}

func TestStore_UpdateJSON_Counter(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for i := 0; i < 3; i++ {
				err := UpdateJSON(ctx, s, "counter", func(n *int64) error {
					*n++
					return nil
				})
				if err != nil {
					t.Fatalf("update %d: %v", i, err)
				}
			}

			n, found, err := GetJSON[int64](ctx, s, "counter")
			if err != nil || !found {
				t.Fatalf("get counter: found=%v err=%v", found, err)
			}
			if n != 3 {
				t.Errorf("counter = %d, want 3", n)
			}
		})
	}
}

func TestStore_UpdateJSON_ConcurrentIncrements(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 5

			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					errs <- UpdateJSON(ctx, s, "hits", func(m *map[string]int64) error {
						if *m == nil {
							*m = map[string]int64{}
						}
						(*m)["blog"]++
						return nil
					})
				}()
			}
			wg.Wait()
			close(errs)

			for err := range errs {
				if err != nil {
					t.Fatalf("concurrent update: %v", err)
				}
			}

			m, _, err := GetJSON[map[string]int64](ctx, s, "hits")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if m["blog"] != workers {
				t.Errorf("blog = %d, want %d (lost update)", m["blog"], workers)
			}
		})
	}
}

func TestStore_UpdateError_LeavesValue(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")

			if err := SetJSON(ctx, s, "v", 7); err != nil {
				t.Fatalf("set: %v", err)
			}
			err := UpdateJSON(ctx, s, "v", func(n *int) error { return boom })
			if !errors.Is(err, boom) {
				t.Errorf("expected boom, got %v", err)
			}

			n, _, _ := GetJSON[int](ctx, s, "v")
			if n != 7 {
				t.Errorf("value = %d, want 7 after failed update", n)
			}
		})
	}
}

func TestGetJSON_Missing(t *testing.T) {
	s := NewMemory()
	v, found, err := GetJSON[[]string](context.Background(), s, "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if found {
		t.Error("found should be false for a missing key")
	}
	if v != nil {
		t.Errorf("expected zero value, got %v", v)
	}
}

func TestGetJSON_Corrupt(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	s.Set(ctx, "bad", []byte("{not json"))

	if _, _, err := GetJSON[map[string]int](ctx, s, "bad"); err == nil {
		t.Error("expected decode error for corrupt value")
	}
}

func TestRedisStore_ServerDown(t *testing.T) {
	s, mr := setupTestRedis(t)
	mr.Close()

	_, err := s.Get(context.Background(), "k")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestPostgresStore_MigrationsIdempotent(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	if err := pg.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("second migration run: %v", err)
	}

	var n int
	err := pg.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = $1",
		"001_kv_entries.up.sql",
	).Scan(&n)
	if err != nil {
		t.Fatalf("counting migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("migration recorded %d times, want 1", n)
	}
}

func TestPostgresStore_UpdateCreatesMissingKey(t *testing.T) {
	pg := setupTestPostgres(t)
	if pg == nil {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	var seen []byte
	err := pg.Update(ctx, "fresh", func(current []byte) ([]byte, error) {
		seen = current
		return []byte(`["a@x.com"]`), nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if seen != nil {
		t.Errorf("expected no current value, got %s", seen)
	}

	index, found, err := GetJSON[[]string](ctx, pg, "fresh")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if len(index) != 1 || index[0] != "a@x.com" {
		t.Errorf("index = %v", index)
	}
}
