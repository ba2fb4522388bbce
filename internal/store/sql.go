package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/beerstock/internal/db"
	"github.com/vyrodovalexey/beerstock/internal/model"
)

const beerColumns = `id, name, brand, max, quantity, type`

// SQLStore implements Store on top of database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db     *sql.DB
	driver string
}

// NewSQLStore creates a store over an opened and migrated database.
func NewSQLStore(database *sql.DB, driver string) *SQLStore {
	return &SQLStore{
		db:     database,
		driver: driver,
	}
}

// rebind rewrites "?" placeholders into the "$n" form PostgreSQL expects.
func (s *SQLStore) rebind(query string) string {
	if s.driver != db.DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FindByName returns the beer with exactly this name.
func (s *SQLStore) FindByName(ctx context.Context, name string) (*model.Beer, error) {
	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+beerColumns+` FROM beers WHERE name = ? ORDER BY id LIMIT 1`), name,
	)

	beer, err := scanBeer(row)
	if err != nil {
		return nil, fmt.Errorf("find beer by name: %w", err)
	}
	return beer, nil
}

// FindByID retrieves a beer by its ID.
func (s *SQLStore) FindByID(ctx context.Context, id int64) (*model.Beer, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}

	row := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT `+beerColumns+` FROM beers WHERE id = ?`), id,
	)

	beer, err := scanBeer(row)
	if err != nil {
		return nil, fmt.Errorf("find beer by id: %w", err)
	}
	return beer, nil
}

// FindAll returns all beers ordered by ID.
func (s *SQLStore) FindAll(ctx context.Context) ([]model.Beer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+beerColumns+` FROM beers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("find all beers: %w", err)
	}
	defer rows.Close()

	beers := make([]model.Beer, 0)
	for rows.Next() {
		beer, err := scanBeer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning beer: %w", err)
		}
		beers = append(beers, *beer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find all beers: %w", err)
	}

	return beers, nil
}

// Save inserts a new beer or overwrites an existing one.
func (s *SQLStore) Save(ctx context.Context, beer *model.Beer) (*model.Beer, error) {
	if beer == nil {
		return nil, fmt.Errorf("save beer: %w", ErrNilBeer)
	}
	if beer.ID < 0 {
		return nil, ErrInvalidID
	}

	saved := *beer
	if saved.ID == 0 {
		err := s.db.QueryRowContext(ctx,
			s.rebind(`INSERT INTO beers (name, brand, max, quantity, type) VALUES (?, ?, ?, ?, ?) RETURNING id`),
			saved.Name, saved.Brand, saved.Max, saved.Quantity, string(saved.Type),
		).Scan(&saved.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting beer: %w", err)
		}
		return &saved, nil
	}

	result, err := s.db.ExecContext(ctx,
		s.rebind(`UPDATE beers SET name = ?, brand = ?, max = ?, quantity = ?, type = ?,
		 updated_at = CURRENT_TIMESTAMP WHERE id = ?`),
		saved.Name, saved.Brand, saved.Max, saved.Quantity, string(saved.Type), saved.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating beer: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return nil, fmt.Errorf("updating beer: %w", err)
	}

	return &saved, nil
}

// DeleteByID removes a beer by its ID.
func (s *SQLStore) DeleteByID(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}

	result, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM beers WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("deleting beer: %w", err)
	}
	if err := expectOneRow(result); err != nil {
		return fmt.Errorf("deleting beer: %w", err)
	}

	return nil
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBeer(row rowScanner) (*model.Beer, error) {
	var (
		beer     model.Beer
		beerType string
	)
	err := row.Scan(&beer.ID, &beer.Name, &beer.Brand, &beer.Max, &beer.Quantity, &beerType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	beer.Type = model.BeerType(beerType)
	return &beer, nil
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
