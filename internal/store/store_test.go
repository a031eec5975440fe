package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/socratic-labs/dialogue/internal/domain"
)

var (
	_ Repository = (*MemoryStore)(nil)
	_ Repository = (*SQLiteStore)(nil)
)

func newSeed() *domain.Session {
	return domain.NewSession(domain.DefaultTopic, "seed", time.Now())
}

func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestGetOrCreateIsLazyAndStable(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			init := func() *domain.Session {
				calls++
				return newSeed()
			}

			first, err := repo.GetOrCreate(ctx, "s1", init)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			second, err := repo.GetOrCreate(ctx, "s1", init)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}

			if calls != 1 {
				t.Errorf("expected init to run once, ran %d times", calls)
			}
			if len(first.History) != 1 || len(second.History) != 1 {
				t.Errorf("expected seeded history, got %d and %d", len(first.History), len(second.History))
			}
		})
	}
}

func TestUpdatePersistsMutation(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			updated, err := repo.Update(ctx, "s1", newSeed, func(s *domain.Session) error {
				s.Append(domain.NewMessage(domain.SenderUser, "hi", time.Now()))
				s.NoteFallacy("label")
				s.Progress.Advance(3, 4, 5)
				return nil
			})
			if err != nil {
				t.Fatalf("Update failed: %v", err)
			}
			if len(updated.History) != 2 {
				t.Errorf("expected 2 messages in result, got %d", len(updated.History))
			}

			got, err := repo.GetOrCreate(ctx, "s1", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			if len(got.History) != 2 || got.History[1].Content != "hi" {
				t.Errorf("mutation not stored: %+v", got.History)
			}
			if len(got.Fallacies) != 1 || got.Fallacies[0] != "label" {
				t.Errorf("fallacies not stored: %v", got.Fallacies)
			}
			if got.Progress.IdentifyingAssumptions != 33 || got.Progress.ConstructingArguments != 45 {
				t.Errorf("progress not stored: %+v", got.Progress)
			}
		})
	}
}

func TestUpdateErrorDiscardsChanges(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")

			if _, err := repo.GetOrCreate(ctx, "s1", newSeed); err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			_, err := repo.Update(ctx, "s1", newSeed, func(s *domain.Session) error {
				s.Append(domain.NewMessage(domain.SenderUser, "lost", time.Now()))
				return boom
			})
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}

			got, err := repo.GetOrCreate(ctx, "s1", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			if len(got.History) != 1 {
				t.Errorf("failed update leaked %d messages", len(got.History)-1)
			}
		})
	}
}

func TestPutOverwrites(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, err := repo.Update(ctx, "s1", newSeed, func(s *domain.Session) error {
				s.NoteFallacy("old")
				return nil
			}); err != nil {
				t.Fatalf("Update failed: %v", err)
			}

			fresh := domain.NewSession("ethics", "again", time.Now())
			if err := repo.Put(ctx, "s1", fresh); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, err := repo.GetOrCreate(ctx, "s1", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			if got.Topic != "ethics" || len(got.Fallacies) != 0 || got.History[0].Content != "again" {
				t.Errorf("Put did not overwrite: %+v", got)
			}
		})
	}
}

func TestReturnedSessionsAreCopies(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			got, err := repo.GetOrCreate(ctx, "s1", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			got.Append(domain.NewMessage(domain.SenderUser, "local", time.Now()))

			again, err := repo.GetOrCreate(ctx, "s1", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			if len(again.History) != 1 {
				t.Errorf("caller mutation leaked into store")
			}
		})
	}
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 20

			var wg sync.WaitGroup
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := repo.Update(ctx, "shared", newSeed, func(s *domain.Session) error {
						s.Append(domain.NewMessage(domain.SenderUser, fmt.Sprintf("m%d", i), time.Now()))
						return nil
					})
					if err != nil {
						t.Errorf("Update failed: %v", err)
					}
				}()
			}
			wg.Wait()

			got, err := repo.GetOrCreate(ctx, "shared", newSeed)
			if err != nil {
				t.Fatalf("GetOrCreate failed: %v", err)
			}
			if len(got.History) != workers+1 {
				t.Errorf("expected %d messages, got %d", workers+1, len(got.History))
			}
		})
	}
}

func TestSQLiteInMemoryDSN(t *testing.T) {
	repo, err := NewSQLite("file:" + t.Name() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = repo.Close() }()

	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
	if _, err := repo.GetOrCreate(context.Background(), "s1", newSeed); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
}

func TestIsBusyError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("database is locked"), true},
		{errors.New("exec: SQLITE_BUSY (5)"), true},
		{errors.New("no such table"), false},
	}
	for _, tt := range tests {
		if got := isBusyError(tt.err); got != tt.want {
			t.Errorf("isBusyError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestWithBusyRetryStopsOnSuccess(t *testing.T) {
	attempts := 0
	err := withBusyRetry(context.Background(), "test", func() error {
		attempts++
		if attempts < 2 {
			return errors.New("database is locked")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestSQLiteUpdateSeedsOnceAcrossBusyRetries(t *testing.T) {
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = repo.Close() }()

	calls := 0
	init := func() *domain.Session {
		calls++
		return newSeed()
	}
	attempts := 0
	got, err := repo.Update(context.Background(), "s1", init, func(s *domain.Session) error {
		attempts++
		if attempts == 1 {
			s.NoteFallacy("dropped")
			return errors.New("database is locked")
		}
		s.Append(domain.NewMessage(domain.SenderUser, "hi", time.Now()))
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	if attempts != 2 {
		t.Fatalf("expected a retry, got %d attempts", attempts)
	}
	if calls != 1 {
		t.Errorf("expected init to run once across retries, ran %d times", calls)
	}
	if len(got.Fallacies) != 0 {
		t.Errorf("first attempt leaked into retry: %v", got.Fallacies)
	}
	if len(got.History) != 2 {
		t.Errorf("expected 2 messages, got %d", len(got.History))
	}
}

func TestSQLiteGetOrCreateDoesNotWriteExistingRow(t *testing.T) {
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = repo.Close() }()

	ctx := context.Background()
	if _, err := repo.GetOrCreate(ctx, "s1", newSeed); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := repo.db.ExecContext(ctx, `UPDATE sessions SET updated_at = 0 WHERE session_id = ?`, "s1"); err != nil {
		t.Fatalf("reset updated_at: %v", err)
	}

	if _, err := repo.GetOrCreate(ctx, "s1", newSeed); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	var updatedAt int64
	if err := repo.db.QueryRowContext(ctx, `SELECT updated_at FROM sessions WHERE session_id = ?`, "s1").Scan(&updatedAt); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if updatedAt != 0 {
		t.Errorf("expected read to leave updated_at untouched, got %d", updatedAt)
	}
}
