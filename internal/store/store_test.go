package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/beerstock/internal/db"
	"github.com/vyrodovalexey/beerstock/internal/model"
)

// storeFactories lists every Store implementation exercised by the shared tests.
func storeFactories() map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(_ *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			return NewSQLStore(db.NewTestDB(t), db.DriverSQLite)
		},
	}
}

func newBeer(name string) *model.Beer {
	return &model.Beer{
		Name:     name,
		Brand:    "Ambev",
		Max:      50,
		Quantity: 10,
		Type:     model.BeerTypeLager,
	}
}

func TestStore_SaveAssignsID(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			first, err := s.Save(ctx, newBeer("Brahma"))
			require.NoError(t, err)
			second, err := s.Save(ctx, newBeer("Skol"))
			require.NoError(t, err)

			assert.Positive(t, first.ID)
			assert.Positive(t, second.ID)
			assert.NotEqual(t, first.ID, second.ID)
			assert.Equal(t, "Brahma", first.Name)
			assert.Equal(t, model.BeerTypeLager, first.Type)
		})
	}
}

func TestStore_SaveDoesNotMutateInput(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			input := newBeer("Brahma")

			_, err := s.Save(context.Background(), input)
			require.NoError(t, err)

			assert.Zero(t, input.ID)
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			created, err := s.Save(ctx, newBeer("Brahma"))
			require.NoError(t, err)

			created.Quantity = 42
			_, err = s.Save(ctx, created)
			require.NoError(t, err)

			got, err := s.FindByID(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, 42, got.Quantity)
			assert.Equal(t, *created, *got)
		})
	}
}

func TestStore_SaveUnknownIDReturnsNotFound(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			beer := newBeer("Ghost")
			beer.ID = 999

			_, err := s.Save(context.Background(), beer)

			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_SaveNil(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			_, err := factory(t).Save(context.Background(), nil)

			assert.ErrorIs(t, err, ErrNilBeer)
		})
	}
}

func TestStore_FindByName(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			created, err := s.Save(ctx, newBeer("Brahma"))
			require.NoError(t, err)

			got, err := s.FindByName(ctx, "Brahma")
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)

			_, err = s.FindByName(ctx, "brahma")
			assert.ErrorIs(t, err, ErrNotFound, "lookup is case sensitive")
		})
	}
}

func TestStore_FindByID(t *testing.T) {
	tests := []struct {
		name    string
		id      int64
		wantErr error
	}{
		{"unknown id", 12345, ErrNotFound},
		{"zero id", 0, ErrInvalidID},
		{"negative id", -1, ErrInvalidID},
	}

	for storeName, factory := range storeFactories() {
		for _, tt := range tests {
			t.Run(storeName+"/"+tt.name, func(t *testing.T) {
				_, err := factory(t).FindByID(context.Background(), tt.id)

				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	}
}

func TestStore_FindAll(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			empty, err := s.FindAll(ctx)
			require.NoError(t, err)
			assert.NotNil(t, empty)
			assert.Empty(t, empty)

			for _, n := range []string{"Brahma", "Skol", "Heineken"} {
				_, err := s.Save(ctx, newBeer(n))
				require.NoError(t, err)
			}

			all, err := s.FindAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.Equal(t, "Brahma", all[0].Name)
			assert.Equal(t, "Heineken", all[2].Name)
		})
	}
}

func TestStore_DeleteByID(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			ctx := context.Background()

			created, err := s.Save(ctx, newBeer("Brahma"))
			require.NoError(t, err)

			require.NoError(t, s.DeleteByID(ctx, created.ID))

			_, err = s.FindByID(ctx, created.ID)
			assert.ErrorIs(t, err, ErrNotFound)

			err = s.DeleteByID(ctx, created.ID)
			assert.ErrorIs(t, err, ErrNotFound, "second delete")

			assert.ErrorIs(t, s.DeleteByID(ctx, 0), ErrInvalidID)
		})
	}
}

func TestStore_Ping(t *testing.T) {
	for name, factory := range storeFactories() {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, factory(t).Ping(context.Background()))
		})
	}
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	checks := map[string]error{
		"FindByName": func() error { _, err := s.FindByName(ctx, "x"); return err }(),
		"FindByID":   func() error { _, err := s.FindByID(ctx, 1); return err }(),
		"FindAll":    func() error { _, err := s.FindAll(ctx); return err }(),
		"Save":       func() error { _, err := s.Save(ctx, newBeer("x")); return err }(),
		"DeleteByID": s.DeleteByID(ctx, 1),
		"Ping":       s.Ping(ctx),
	}

	for op, err := range checks {
		if !errors.Is(err, context.Canceled) {
			t.Errorf("%s() error = %v, want context.Canceled", op, err)
		}
	}
}

func TestSQLStore_Rebind(t *testing.T) {
	tests := []struct {
		driver string
		query  string
		want   string
	}{
		{db.DriverSQLite, "SELECT * FROM beers WHERE id = ?", "SELECT * FROM beers WHERE id = ?"},
		{db.DriverPostgres, "SELECT * FROM beers WHERE id = ?", "SELECT * FROM beers WHERE id = $1"},
		{db.DriverPostgres, "UPDATE beers SET name = ?, brand = ? WHERE id = ?", "UPDATE beers SET name = $1, brand = $2 WHERE id = $3"},
		{db.DriverPostgres, "SELECT 1", "SELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.driver+"/"+tt.query, func(t *testing.T) {
			s := NewSQLStore(nil, tt.driver)

			assert.Equal(t, tt.want, s.rebind(tt.query))
		})
	}
}
