package sqlite

import "database/sql"

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// Amounts are minor units (paise); timestamps are unix seconds; meal dates
// are "YYYY-MM-DD" text so range scans stay lexicographic.
const schema = `
CREATE TABLE IF NOT EXISTS persons (
    id TEXT PRIMARY KEY,
    kind TEXT NOT NULL,
    name TEXT NOT NULL,
    ref_code TEXT NOT NULL,
    dept TEXT NOT NULL,
    phone TEXT NOT NULL DEFAULT '',
    amount_paid INTEGER NOT NULL DEFAULT 0,
    remaining INTEGER NOT NULL DEFAULT 0,
    breakfast_count INTEGER NOT NULL DEFAULT 0,
    lunch_count INTEGER NOT NULL DEFAULT 0,
    dinner_count INTEGER NOT NULL DEFAULT 0,
    metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_persons_ref_code ON persons(ref_code COLLATE NOCASE);

CREATE TABLE IF NOT EXISTS operators (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL COLLATE NOCASE UNIQUE,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS meal_records (
    person_id TEXT NOT NULL,
    date TEXT NOT NULL,
    breakfast INTEGER NOT NULL DEFAULT 0,
    lunch INTEGER NOT NULL DEFAULT 0,
    dinner INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (person_id, date),
    FOREIGN KEY (person_id) REFERENCES persons(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS transactions (
    id TEXT PRIMARY KEY,
    person_id TEXT NOT NULL,
    type TEXT NOT NULL,
    amount INTEGER NOT NULL,
    at INTEGER NOT NULL,
    mode TEXT NOT NULL DEFAULT '',
    meal TEXT NOT NULL DEFAULT '',
    bill_no INTEGER,
    remarks TEXT NOT NULL DEFAULT '',
    FOREIGN KEY (person_id) REFERENCES persons(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_transactions_person_at ON transactions(person_id, at, id);

CREATE TABLE IF NOT EXISTS bills (
    no INTEGER PRIMARY KEY AUTOINCREMENT,
    at INTEGER NOT NULL,
    customer_kind TEXT NOT NULL,
    person_id TEXT,
    guest_name TEXT NOT NULL DEFAULT '',
    operator_id TEXT,
    meal TEXT NOT NULL,
    amount INTEGER NOT NULL,
    mode TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_bills_at ON bills(at);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
    _, err := db.Exec(schema)
    return err
}
