// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package store keeps the events and bookings the vignettes race on in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

var (
	// ErrStaleBooking is returned when a booking changed since it was read.
	ErrStaleBooking = errors.New("stale booking")
	// ErrSoldOut is returned when a decrement would take available seats below zero.
	ErrSoldOut = errors.New("event is sold out")
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNestedTransaction is returned when a transaction is started on a transaction store.
	ErrNestedTransaction = errors.New("transaction already in progress")
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
  id TEXT NOT NULL PRIMARY KEY,
  available_seats INTEGER NOT NULL CHECK (available_seats >= 0)
);
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT NOT NULL PRIMARY KEY,
  customer_name TEXT NOT NULL,
  seat_count INTEGER NOT NULL,
  event_id TEXT NOT NULL REFERENCES events (id),
  lock_version INTEGER NOT NULL DEFAULT 0
);
`

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store runs queries against the pool, or against a single transaction or
// connection when handed out by Transaction or Exclusive.
type Store struct {
	db *sql.DB
	q  queryer
}

// Booking is one row of the bookings table.
type Booking struct {
	ID           string
	CustomerName string
	SeatCount    int
	EventID      string
	LockVersion  int
}

// Open opens the SQLite database at path and creates the schema.
// Every pooled connection must see the same data, so in-memory databases are rejected.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if strings.Contains(path, ":memory:") {
		return nil, fmt.Errorf("in-memory databases are not supported: %s", path)
	}

	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, q: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Reset deletes every row.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM bookings`); err != nil {
		return fmt.Errorf("reset bookings: %w", err)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM events`); err != nil {
		return fmt.Errorf("reset events: %w", err)
	}
	return nil
}

// CreateEvent inserts an event with seats available seats.
func (s *Store) CreateEvent(ctx context.Context, id string, seats int) error {
	if _, err := s.q.ExecContext(ctx, `INSERT INTO events (id, available_seats) VALUES (?, ?)`, id, seats); err != nil {
		return fmt.Errorf("create event %s: %w", id, err)
	}
	return nil
}

// AvailableSeats reads the available seats of an event.
func (s *Store) AvailableSeats(ctx context.Context, eventID string) (int, error) {
	var seats int
	err := s.q.QueryRowContext(ctx, `SELECT available_seats FROM events WHERE id = ?`, eventID).Scan(&seats)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("read available seats: %w", err)
	}
	return seats, nil
}

// SetAvailableSeats overwrites the available seats of an event.
func (s *Store) SetAvailableSeats(ctx context.Context, eventID string, seats int) error {
	res, err := s.q.ExecContext(ctx, `UPDATE events SET available_seats = ? WHERE id = ?`, seats, eventID)
	if err != nil {
		return fmt.Errorf("set available seats: %w", translate(err))
	}
	return expectRow(res, "event "+eventID)
}

// DecrementAvailableSeats decrements the available seats of an event in place.
func (s *Store) DecrementAvailableSeats(ctx context.Context, eventID string, by int) error {
	res, err := s.q.ExecContext(ctx, `UPDATE events SET available_seats = available_seats - ? WHERE id = ?`, by, eventID)
	if err != nil {
		return fmt.Errorf("decrement available seats: %w", translate(err))
	}
	return expectRow(res, "event "+eventID)
}

// CreateBooking inserts a booking and returns it.
func (s *Store) CreateBooking(ctx context.Context, customer string, seats int, eventID string) (Booking, error) {
	b := Booking{ID: uuid.NewString(), CustomerName: customer, SeatCount: seats, EventID: eventID}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO bookings (id, customer_name, seat_count, event_id) VALUES (?, ?, ?, ?)`,
		b.ID, b.CustomerName, b.SeatCount, b.EventID,
	)
	if err != nil {
		return Booking{}, fmt.Errorf("create booking for %s: %w", customer, translate(err))
	}
	return b, nil
}

// Booking reads the first booking made by customer.
func (s *Store) Booking(ctx context.Context, customer string) (Booking, error) {
	var b Booking
	err := s.q.QueryRowContext(ctx,
		`SELECT id, customer_name, seat_count, event_id, lock_version
		   FROM bookings WHERE customer_name = ? ORDER BY rowid LIMIT 1`,
		customer,
	).Scan(&b.ID, &b.CustomerName, &b.SeatCount, &b.EventID, &b.LockVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, fmt.Errorf("booking of %s: %w", customer, ErrNotFound)
	}
	if err != nil {
		return Booking{}, fmt.Errorf("read booking: %w", err)
	}
	return b, nil
}

// UpdateBookingSeats sets the seat count of b if its lock version is still
// current, and returns the updated booking. A concurrent update yields ErrStaleBooking.
func (s *Store) UpdateBookingSeats(ctx context.Context, b Booking, seats int) (Booking, error) {
	res, err := s.q.ExecContext(ctx,
		`UPDATE bookings SET seat_count = ?, lock_version = lock_version + 1
		  WHERE id = ? AND lock_version = ?`,
		seats, b.ID, b.LockVersion,
	)
	if err != nil {
		return Booking{}, fmt.Errorf("update booking: %w", translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Booking{}, fmt.Errorf("update booking: %w", err)
	}
	if n == 0 {
		return Booking{}, fmt.Errorf("booking %s at version %d: %w", b.ID, b.LockVersion, ErrStaleBooking)
	}

	b.SeatCount = seats
	b.LockVersion++
	return b, nil
}

// BookingNames lists customer names of all bookings in insertion order.
func (s *Store) BookingNames(ctx context.Context) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT customer_name FROM bookings ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return names, nil
}

// TakenSeats sums the seat counts of all bookings.
func (s *Store) TakenSeats(ctx context.Context) (int, error) {
	var seats int
	if err := s.q.QueryRowContext(ctx, `SELECT COALESCE(SUM(seat_count), 0) FROM bookings`).Scan(&seats); err != nil {
		return 0, fmt.Errorf("sum taken seats: %w", err)
	}
	return seats, nil
}

// Transaction runs fn inside a deferred transaction, committing when fn
// returns nil and rolling back otherwise, including when fn panics.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) (err error) {
	if s.db == nil {
		return ErrNestedTransaction
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&Store{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// Exclusive runs fn holding the database write lock, taken with BEGIN
// IMMEDIATE on a dedicated connection. Concurrent callers queue behind the
// busy timeout, which makes it the SQLite counterpart of locking a row.
func (s *Store) Exclusive(ctx context.Context, fn func(tx *Store) error) error {
	if s.db == nil {
		return ErrNestedTransaction
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return fmt.Errorf("begin immediate: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	if err := fn(&Store{q: conn}); err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

// translate maps SQLite constraint violations onto store errors.
func translate(err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_CHECK {
		return fmt.Errorf("%w: %w", ErrSoldOut, err)
	}
	if strings.Contains(strings.ToLower(err.Error()), "check constraint failed: available_seats") {
		return fmt.Errorf("%w: %w", ErrSoldOut, err)
	}
	return err
}
