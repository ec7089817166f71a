// Package testutil opens an in-memory SQLite database with the application
// schema and seeds fixtures for repository and service tests.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

// schema mirrors the MySQL migration in SQLite syntax.
const schema = `
CREATE TABLE users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'passenger',
    status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users (id),
    token_hash TEXT NOT NULL UNIQUE,
    expires_at DATETIME NOT NULL,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL
);
CREATE TABLE operators (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL UNIQUE REFERENCES users (id),
    company_name TEXT NOT NULL,
    license_number TEXT NOT NULL UNIQUE,
    contact_phone TEXT NOT NULL DEFAULT '',
    verification_status TEXT NOT NULL DEFAULT 'pending',
    activity_status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE buses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operator_id INTEGER NOT NULL REFERENCES operators (id),
    plate_number TEXT NOT NULL UNIQUE,
    model TEXT NOT NULL DEFAULT '',
    capacity INTEGER NOT NULL,
    amenities TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'active',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE routes (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    origin TEXT NOT NULL,
    destination TEXT NOT NULL,
    distance_km INTEGER NOT NULL DEFAULT 0,
    estimated_minutes INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL,
    UNIQUE (origin, destination)
);
CREATE TABLE schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    bus_id INTEGER NOT NULL REFERENCES buses (id),
    route_id INTEGER NOT NULL REFERENCES routes (id),
    departure_time DATETIME NOT NULL,
    arrival_time DATETIME NOT NULL,
    price INTEGER NOT NULL,
    total_seats INTEGER NOT NULL,
    available_seats INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'scheduled',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    CHECK (available_seats >= 0 AND available_seats <= total_seats)
);
CREATE TABLE bookings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users (id),
    schedule_id INTEGER NOT NULL REFERENCES schedules (id),
    number_of_seats INTEGER NOT NULL,
    total_amount INTEGER NOT NULL,
    status TEXT NOT NULL DEFAULT 'confirmed',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL,
    cancelled_at DATETIME NULL
);
CREATE TABLE payments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    booking_id INTEGER NOT NULL UNIQUE REFERENCES bookings (id),
    amount INTEGER NOT NULL,
    method TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    transaction_ref TEXT NULL,
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);
CREATE TABLE tickets (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    booking_id INTEGER NOT NULL UNIQUE REFERENCES bookings (id),
    qr_code TEXT NOT NULL UNIQUE,
    issued_at DATETIME NOT NULL
);
CREATE TABLE reviews (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL REFERENCES users (id),
    target_type TEXT NOT NULL,
    target_id INTEGER NULL,
    rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
    comment TEXT NULL,
    is_approved INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL
);
`

var dbSeq atomic.Int64

// OpenDB returns a fresh in-memory database with the schema applied. A
// single connection is used so every goroutine sees the same database and
// transactions serialize the way row locks would.
func OpenDB(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=private&_pragma=foreign_keys(1)&_time_format=sqlite", dbSeq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// Fixture inserts rows directly and returns their ids.
type Fixture struct {
	T  testing.TB
	DB *sql.DB
}

func (f Fixture) insert(query string, args ...any) int64 {
	f.T.Helper()
	res, err := f.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		f.T.Fatalf("fixture insert: %v\n%s", err, query)
	}
	id, err := res.LastInsertId()
	if err != nil {
		f.T.Fatalf("fixture id: %v", err)
	}
	return id
}

func now() time.Time { return time.Now().UTC().Truncate(time.Second) }

// User creates a user with role; passwordHash may be empty.
func (f Fixture) User(email, role, passwordHash string) int64 {
	return f.insert(`INSERT INTO users (name, email, phone, password_hash, role, status, created_at, updated_at)
		VALUES (?, ?, '', ?, ?, 'active', ?, ?)`, "User "+email, email, passwordHash, role, now(), now())
}

// Operator creates a verified, active operator owned by userID.
func (f Fixture) Operator(userID int64, company string) int64 {
	return f.insert(`INSERT INTO operators (user_id, company_name, license_number, contact_phone,
		verification_status, activity_status, created_at, updated_at)
		VALUES (?, ?, ?, '', 'verified', 'active', ?, ?)`, userID, company, "LIC-"+company, now(), now())
}

func (f Fixture) Bus(operatorID int64, plate string, capacity int) int64 {
	return f.insert(`INSERT INTO buses (operator_id, plate_number, model, capacity, amenities, status, created_at, updated_at)
		VALUES (?, ?, 'Coach', ?, '', 'active', ?, ?)`, operatorID, plate, capacity, now(), now())
}

func (f Fixture) Route(origin, destination string) int64 {
	return f.insert(`INSERT INTO routes (origin, destination, distance_km, estimated_minutes, created_at)
		VALUES (?, ?, 600, 540, ?)`, origin, destination, now())
}

// Schedule creates a scheduled departure with all seats free.
func (f Fixture) Schedule(busID, routeID int64, departure time.Time, price int64, seats int) int64 {
	departure = departure.UTC().Truncate(time.Second)
	return f.insert(`INSERT INTO schedules (bus_id, route_id, departure_time, arrival_time, price,
		total_seats, available_seats, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'scheduled', ?, ?)`,
		busID, routeID, departure, departure.Add(9*time.Hour), price, seats, seats, now(), now())
}

// Booking creates a confirmed booking with its payment and ticket, and
// takes the seats from the schedule.
func (f Fixture) Booking(userID, scheduleID int64, seats int, amount int64) int64 {
	id := f.insert(`INSERT INTO bookings (user_id, schedule_id, number_of_seats, total_amount, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'confirmed', ?, ?)`, userID, scheduleID, seats, amount, now(), now())
	f.insert(`INSERT INTO payments (booking_id, amount, method, status, created_at, updated_at)
		VALUES (?, ?, 'mpesa', 'pending', ?, ?)`, id, amount, now(), now())
	f.insert(`INSERT INTO tickets (booking_id, qr_code, issued_at) VALUES (?, ?, ?)`,
		id, fmt.Sprintf("TKT-FIXTURE-%d", id), now())
	if _, err := f.DB.Exec(`UPDATE schedules SET available_seats = available_seats - ? WHERE id = ?`, seats, scheduleID); err != nil {
		f.T.Fatalf("fixture seats: %v", err)
	}
	return id
}

// Count returns SELECT COUNT(*) FROM table [WHERE where].
func (f Fixture) Count(table, where string, args ...any) int64 {
	f.T.Helper()
	q := "SELECT COUNT(*) FROM " + table
	if where != "" {
		q += " WHERE " + where
	}
	var n int64
	if err := f.DB.QueryRow(q, args...).Scan(&n); err != nil {
		f.T.Fatalf("count %s: %v", table, err)
	}
	return n
}

// AvailableSeats reads schedules.available_seats.
func (f Fixture) AvailableSeats(scheduleID int64) int {
	f.T.Helper()
	var n int
	if err := f.DB.QueryRow(`SELECT available_seats FROM schedules WHERE id = ?`, scheduleID).Scan(&n); err != nil {
		f.T.Fatalf("available seats: %v", err)
	}
	return n
}
