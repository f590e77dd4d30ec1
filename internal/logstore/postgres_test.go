package logstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/platewise/platewise/internal/logstore"
	"github.com/platewise/platewise/pkg/nutrition"
)

// fakeDB records executed statements.
type fakeDB struct {
	execs []struct {
		sql  string
		args []any
	}
	execErr error
	pingErr error
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, struct {
		sql  string
		args []any
	}{sql, args})
	return pgconn.CommandTag{}, f.execErr
}

func (f *fakeDB) Ping(context.Context) error {
	return f.pingErr
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := logstore.NewPostgresStore(db)

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if len(db.execs) != 1 || !strings.Contains(db.execs[0].sql, "nutrition_logs") {
		t.Fatalf("Migrate: executed %v, want the schema statement", db.execs)
	}
}

func TestPostgresStore_InsertMarshalsJSONB(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := logstore.NewPostgresStore(db)

	entry := logstore.Entry{
		UserID:     "u1",
		LoggedAt:   time.Date(2026, 8, 24, 12, 30, 0, 0, time.UTC),
		MealType:   "lunch",
		Transcript: "two eggs",
		Items: []nutrition.MealItem{{
			ID: "item-1", DisplayName: "Egg", Qty: 2, Unit: nutrition.UnitCount,
			Macros: nutrition.MacroSet{Calories: 156},
		}},
		Totals: nutrition.MacroSet{Calories: 156},
	}
	if err := store.Insert(context.Background(), entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if len(db.execs) != 1 {
		t.Fatalf("Insert: executed %d statements, want 1", len(db.execs))
	}

	args := db.execs[0].args
	if len(args) != 6 {
		t.Fatalf("Insert: %d args, want 6", len(args))
	}
	if args[0] != "u1" || args[2] != "lunch" || args[3] != "two eggs" {
		t.Errorf("Insert args = %v, want user/meal/transcript in place", args[:4])
	}

	var items []nutrition.MealItem
	if err := json.Unmarshal(args[4].([]byte), &items); err != nil {
		t.Fatalf("items arg is not valid JSON: %v", err)
	}
	if len(items) != 1 || items[0].DisplayName != "Egg" {
		t.Errorf("stored items = %+v, want the Egg item", items)
	}

	var totals nutrition.MacroSet
	if err := json.Unmarshal(args[5].([]byte), &totals); err != nil {
		t.Fatalf("totals arg is not valid JSON: %v", err)
	}
	if totals.Calories != 156 {
		t.Errorf("stored totals = %+v, want 156 kcal", totals)
	}
}

func TestPostgresStore_InsertNilItemsStoredAsEmptyArray(t *testing.T) {
	t.Parallel()

	db := &fakeDB{}
	store := logstore.NewPostgresStore(db)

	if err := store.Insert(context.Background(), logstore.Entry{UserID: "u1"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if got := string(db.execs[0].args[4].([]byte)); got != "[]" {
		t.Errorf("items arg = %q, want [] for nil items", got)
	}
}

func TestPostgresStore_InsertSurfacesDBError(t *testing.T) {
	t.Parallel()

	db := &fakeDB{execErr: errors.New("connection refused")}
	store := logstore.NewPostgresStore(db)

	err := store.Insert(context.Background(), logstore.Entry{UserID: "u1"})
	if err == nil || !strings.Contains(err.Error(), "connection refused") {
		t.Fatalf("Insert: got %v, want the db failure", err)
	}
}

func TestPostgresStore_Ping(t *testing.T) {
	t.Parallel()

	healthy := logstore.NewPostgresStore(&fakeDB{})
	if err := healthy.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	broken := logstore.NewPostgresStore(&fakeDB{pingErr: errors.New("down")})
	if err := broken.Ping(context.Background()); err == nil {
		t.Fatal("Ping: got nil, want error")
	}
}

func TestNopStore_InsertFails(t *testing.T) {
	t.Parallel()

	if err := (logstore.NopStore{}).Insert(context.Background(), logstore.Entry{}); err == nil {
		t.Fatal("Insert: got nil, want not-configured error")
	}
}
