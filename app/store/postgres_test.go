package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"example/plan-api/app/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Set TEST_DATABASE_URL to a disposable Postgres database to run these.
func newPostgresDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	if Dialect(dsn) != DialectPostgres {
		t.Fatalf("TEST_DATABASE_URL must point at postgres, got %q", dsn)
	}
	db, err := Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newPostgresUser(t *testing.T, db *gorm.DB) string {
	t.Helper()
	userID := "test-" + uuid.NewString()
	t.Cleanup(func() {
		db.Where("user_id = ?", userID).Delete(&models.Plan{})
		db.Where("user_id = ?", userID).Delete(&models.Usage{})
		db.Where("id = ?", userID).Delete(&models.Profile{})
	})
	return userID
}

type planConsumer interface {
	ConsumeRequestAndInsertPlan(ctx context.Context, p models.NewPlan) (models.Plan, error)
}

func postgresStores(db *gorm.DB, freeLimit int) map[string]planConsumer {
	return map[string]planConsumer{
		"transaction": New(db, freeLimit),
		"rpc":         NewRPCStore(db, freeLimit),
	}
}

func TestPostgresConsumeRequestConcurrent(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	for name, s := range postgresStores(db, 3) {
		t.Run(name, func(t *testing.T) {
			userID := newPostgresUser(t, db)
			if _, err := s.ConsumeRequestAndInsertPlan(ctx, newPlan(userID)); err != nil {
				t.Fatalf("seed call: %v", err)
			}

			const n = 20
			var (
				wg      sync.WaitGroup
				mu      sync.Mutex
				ok      int
				limited int
				other   []error
			)
			start := make(chan struct{})
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					_, err := s.ConsumeRequestAndInsertPlan(ctx, newPlan(userID))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case IsLimitError(err):
						limited++
					default:
						other = append(other, err)
					}
				}()
			}
			close(start)
			wg.Wait()

			if len(other) > 0 {
				t.Fatalf("unexpected errors: %v", other)
			}
			if ok != 2 || limited != n-2 {
				t.Fatalf("ok=%d limited=%d, want ok=2 limited=%d", ok, limited, n-2)
			}
			if got := usageOf(t, db, userID); got != 3 {
				t.Fatalf("usage = %d, want 3", got)
			}
			if got := planCount(t, db, userID); got != 3 {
				t.Fatalf("plans = %d, want 3", got)
			}
		})
	}
}

func TestPostgresRPCStoreReturnsPlan(t *testing.T) {
	db := newPostgresDB(t)
	s := NewRPCStore(db, 1)
	ctx := context.Background()
	userID := newPostgresUser(t, db)

	plan, err := s.ConsumeRequestAndInsertPlan(ctx, newPlan(userID))
	if err != nil {
		t.Fatalf("ConsumeRequestAndInsertPlan error = %v", err)
	}
	if plan.ID == "" || plan.UserID != userID || plan.Title != "Plan a productive day" || plan.CreatedAt.IsZero() {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if plan.Model == nil || *plan.Model != "gpt-4o-mini" || plan.TokensIn == nil || *plan.TokensIn != 10 {
		t.Fatalf("unexpected accounting: %+v", plan)
	}
	if content := plan.ContentJSON.Data(); len(content.Blocks) != 1 || content.Meta.Source != models.SourceOpenAI {
		t.Fatalf("unexpected content: %+v", content)
	}

	_, err = s.ConsumeRequestAndInsertPlan(ctx, newPlan(userID))
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Message != "usage_limit_reached" {
		t.Fatalf("over-limit error = %#v, want raised usage_limit_reached", err)
	}
	if !IsLimitError(err) {
		t.Fatalf("IsLimitError(%v) = false", err)
	}
	if got := planCount(t, db, userID); got != 1 {
		t.Fatalf("plans = %d, want 1", got)
	}
}

func TestPostgresProUnlimited(t *testing.T) {
	db := newPostgresDB(t)
	ctx := context.Background()

	for name, s := range postgresStores(db, 1) {
		t.Run(name, func(t *testing.T) {
			userID := newPostgresUser(t, db)
			if err := New(db, 1).SetTier(ctx, userID, models.TierPro, ""); err != nil {
				t.Fatalf("SetTier: %v", err)
			}
			for i := 0; i < 3; i++ {
				if _, err := s.ConsumeRequestAndInsertPlan(ctx, newPlan(userID)); err != nil {
					t.Fatalf("call %d error = %v", i+1, err)
				}
			}
			if got := usageOf(t, db, userID); got != 3 {
				t.Fatalf("usage = %d, want 3", got)
			}
		})
	}
}
