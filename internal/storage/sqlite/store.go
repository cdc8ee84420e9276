// Package sqlite provides a SQLite-backed store for single-site deployments.
// It uses the pure Go driver so builds stay CGO-free.
package sqlite

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    "github.com/google/uuid"
    _ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/meta"
)

const dayLayout = "2006-01-02"

// Store implements the repository and writer interfaces on top of SQLite.
// Composite mutations run inside a single SQL transaction so balances, meal
// flags and ledger rows never drift apart.
type Store struct {
    db *sql.DB
}

// New opens (creating if needed) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
    dir := filepath.Dir(dbPath)
    if err := os.MkdirAll(dir, 0755); err != nil {
        return nil, fmt.Errorf("failed to create database directory: %w", err)
    }

    db, err := sql.Open("sqlite", dbPath)
    if err != nil {
        return nil, fmt.Errorf("failed to open database: %w", err)
    }

    // Single connection: serializes writes and keeps the pragma in effect
    // for every statement.
    db.SetMaxOpenConns(1)

    if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
        db.Close()
        return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
    }

    if err := runMigrations(db); err != nil {
        db.Close()
        return nil, fmt.Errorf("failed to run migrations: %w", err)
    }

    return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
    return s.db.Close()
}

// Ready reports whether the database is reachable.
func (s *Store) Ready(ctx context.Context) error {
    if err := s.db.PingContext(ctx); err != nil {
        return errs.ErrStoreUnavailable
    }
    return nil
}

// mapErr translates driver errors into the package error taxonomy.
func mapErr(err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, sql.ErrNoRows) {
        return errs.ErrNotFound
    }
    if strings.Contains(err.Error(), "UNIQUE constraint failed") {
        return errs.ErrDuplicateKey
    }
    return err
}

func marshalMeta(m meta.Metadata) (string, error) {
    if len(m) == 0 {
        return "{}", nil
    }
    b, err := json.Marshal(m)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

func unmarshalMeta(raw string) (meta.Metadata, error) {
    if raw == "" || raw == "{}" {
        return nil, nil
    }
    var m meta.Metadata
    if err := json.Unmarshal([]byte(raw), &m); err != nil {
        return nil, err
    }
    return m, nil
}

// --- Persons ---

const personCols = "id, kind, name, ref_code, dept, phone, amount_paid, remaining, breakfast_count, lunch_count, dinner_count, metadata"

func scanPerson(row interface{ Scan(...any) error }) (canteen.Person, error) {
    var p canteen.Person
    var id, kind, metaRaw string
    if err := row.Scan(&id, &kind, &p.Name, &p.RefCode, &p.Dept, &p.Phone,
        &p.AmountPaidMinor, &p.RemainingMinor,
        &p.BreakfastCount, &p.LunchCount, &p.DinnerCount, &metaRaw); err != nil {
        return canteen.Person{}, err
    }
    uid, err := uuid.Parse(id)
    if err != nil {
        return canteen.Person{}, fmt.Errorf("failed to parse person id: %w", err)
    }
    p.ID = uid
    p.Kind = canteen.PersonKind(kind)
    if p.Metadata, err = unmarshalMeta(metaRaw); err != nil {
        return canteen.Person{}, fmt.Errorf("failed to decode person metadata: %w", err)
    }
    return p, nil
}

func (s *Store) CreatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error) {
    metaRaw, err := marshalMeta(p.Metadata)
    if err != nil {
        return canteen.Person{}, fmt.Errorf("failed to encode metadata: %w", err)
    }
    _, err = s.db.ExecContext(ctx,
        "INSERT INTO persons ("+personCols+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
        p.ID.String(), string(p.Kind), p.Name, p.RefCode, p.Dept, p.Phone,
        p.AmountPaidMinor, p.RemainingMinor,
        p.BreakfastCount, p.LunchCount, p.DinnerCount, metaRaw,
    )
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    return p, nil
}

func (s *Store) UpdatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error) {
    metaRaw, err := marshalMeta(p.Metadata)
    if err != nil {
        return canteen.Person{}, fmt.Errorf("failed to encode metadata: %w", err)
    }
    res, err := s.db.ExecContext(ctx,
        `UPDATE persons SET kind = ?, name = ?, ref_code = ?, dept = ?, phone = ?,
            amount_paid = ?, remaining = ?,
            breakfast_count = ?, lunch_count = ?, dinner_count = ?, metadata = ?
         WHERE id = ?`,
        string(p.Kind), p.Name, p.RefCode, p.Dept, p.Phone,
        p.AmountPaidMinor, p.RemainingMinor,
        p.BreakfastCount, p.LunchCount, p.DinnerCount, metaRaw,
        p.ID.String(),
    )
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return canteen.Person{}, errs.ErrNotFound
    }
    return p, nil
}

func (s *Store) DeletePerson(ctx context.Context, id uuid.UUID) error {
    res, err := s.db.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id.String())
    if err != nil {
        return mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return errs.ErrNotFound
    }
    return nil
}

func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error) {
    row := s.db.QueryRowContext(ctx, "SELECT "+personCols+" FROM persons WHERE id = ?", id.String())
    p, err := scanPerson(row)
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    return p, nil
}

func (s *Store) GetPersonByRefCode(ctx context.Context, code string) (canteen.Person, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT "+personCols+" FROM persons WHERE ref_code = ? COLLATE NOCASE", code)
    p, err := scanPerson(row)
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    return p, nil
}

func (s *Store) ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error) {
    q := "SELECT " + personCols + " FROM persons"
    args := []any{}
    if kind != nil {
        q += " WHERE kind = ?"
        args = append(args, string(*kind))
    }
    q += " ORDER BY name, id"
    rows, err := s.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()

    var out []canteen.Person
    for rows.Next() {
        p, err := scanPerson(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, p)
    }
    return out, rows.Err()
}

// --- Operators ---

func (s *Store) CreateOperator(ctx context.Context, o canteen.Operator) (canteen.Operator, error) {
    _, err := s.db.ExecContext(ctx,
        "INSERT INTO operators (id, username, password_hash, created_at) VALUES (?, ?, ?, ?)",
        o.ID.String(), o.Username, o.PasswordHash, o.CreatedAt.Unix(),
    )
    if err != nil {
        return canteen.Operator{}, mapErr(err)
    }
    return o, nil
}

func scanOperator(row interface{ Scan(...any) error }) (canteen.Operator, error) {
    var o canteen.Operator
    var id string
    var created int64
    if err := row.Scan(&id, &o.Username, &o.PasswordHash, &created); err != nil {
        return canteen.Operator{}, err
    }
    uid, err := uuid.Parse(id)
    if err != nil {
        return canteen.Operator{}, fmt.Errorf("failed to parse operator id: %w", err)
    }
    o.ID = uid
    o.CreatedAt = time.Unix(created, 0).UTC()
    return o, nil
}

func (s *Store) GetOperator(ctx context.Context, id uuid.UUID) (canteen.Operator, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT id, username, password_hash, created_at FROM operators WHERE id = ?", id.String())
    o, err := scanOperator(row)
    if err != nil {
        return canteen.Operator{}, mapErr(err)
    }
    return o, nil
}

func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (canteen.Operator, error) {
    row := s.db.QueryRowContext(ctx,
        "SELECT id, username, password_hash, created_at FROM operators WHERE username = ? COLLATE NOCASE", username)
    o, err := scanOperator(row)
    if err != nil {
        return canteen.Operator{}, mapErr(err)
    }
    return o, nil
}

func (s *Store) ListOperators(ctx context.Context) ([]canteen.Operator, error) {
    rows, err := s.db.QueryContext(ctx,
        "SELECT id, username, password_hash, created_at FROM operators ORDER BY username")
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()

    var out []canteen.Operator
    for rows.Next() {
        o, err := scanOperator(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, o)
    }
    return out, rows.Err()
}

func (s *Store) DeleteOperator(ctx context.Context, id uuid.UUID) error {
    res, err := s.db.ExecContext(ctx, "DELETE FROM operators WHERE id = ?", id.String())
    if err != nil {
        return mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return errs.ErrNotFound
    }
    return nil
}

// --- Accounting writes ---

func nullUUID(id *uuid.UUID) any {
    if id == nil {
        return nil
    }
    return id.String()
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t canteen.Transaction) error {
    var billNo any
    if t.BillNo != nil {
        billNo = *t.BillNo
    }
    _, err := tx.ExecContext(ctx,
        `INSERT INTO transactions (id, person_id, type, amount, at, mode, meal, bill_no, remarks)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        t.ID.String(), t.PersonID.String(), string(t.Type), t.AmountMinor, t.At.Unix(),
        string(t.Mode), string(t.Meal), billNo, t.Remarks,
    )
    return err
}

func counterCol(m canteen.MealType) string {
    switch m {
    case canteen.MealBreakfast:
        return "breakfast_count"
    case canteen.MealLunch:
        return "lunch_count"
    default:
        return "dinner_count"
    }
}

// ApplyCharge appends a food transaction, bumps the owner's balance and meal
// counter, and upserts the day's meal flag, all in one SQL transaction.
func (s *Store) ApplyCharge(ctx context.Context, t canteen.Transaction) (canteen.Person, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return canteen.Person{}, fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    col := counterCol(t.Meal)
    res, err := tx.ExecContext(ctx,
        "UPDATE persons SET remaining = remaining + ?, "+col+" = "+col+" + 1 WHERE id = ?",
        t.AmountMinor, t.PersonID.String(),
    )
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return canteen.Person{}, errs.ErrNotFound
    }

    day := canteen.Day(t.At).Format(dayLayout)
    flag := string(t.Meal)
    _, err = tx.ExecContext(ctx,
        `INSERT INTO meal_records (person_id, date, `+flag+`) VALUES (?, ?, 1)
         ON CONFLICT (person_id, date) DO UPDATE SET `+flag+` = 1`,
        t.PersonID.String(), day,
    )
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }

    if err := insertTransaction(ctx, tx, t); err != nil {
        return canteen.Person{}, mapErr(err)
    }

    row := tx.QueryRowContext(ctx, "SELECT "+personCols+" FROM persons WHERE id = ?", t.PersonID.String())
    p, err := scanPerson(row)
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    if err := tx.Commit(); err != nil {
        return canteen.Person{}, fmt.Errorf("failed to commit transaction: %w", err)
    }
    return p, nil
}

// ApplyPayment appends a payment transaction and moves the balance fields.
func (s *Store) ApplyPayment(ctx context.Context, t canteen.Transaction) (canteen.Person, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return canteen.Person{}, fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    res, err := tx.ExecContext(ctx,
        "UPDATE persons SET remaining = remaining - ?, amount_paid = amount_paid + ? WHERE id = ?",
        t.AmountMinor, t.AmountMinor, t.PersonID.String(),
    )
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return canteen.Person{}, errs.ErrNotFound
    }

    if err := insertTransaction(ctx, tx, t); err != nil {
        return canteen.Person{}, mapErr(err)
    }

    row := tx.QueryRowContext(ctx, "SELECT "+personCols+" FROM persons WHERE id = ?", t.PersonID.String())
    p, err := scanPerson(row)
    if err != nil {
        return canteen.Person{}, mapErr(err)
    }
    if err := tx.Commit(); err != nil {
        return canteen.Person{}, fmt.Errorf("failed to commit transaction: %w", err)
    }
    return p, nil
}

// RemoveTransaction reverses t's balance effect and deletes its row. When
// clearMeal is set the day's flag is cleared too, and the meal record is
// dropped once empty.
func (s *Store) RemoveTransaction(ctx context.Context, t canteen.Transaction, clearMeal bool) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    res, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", t.ID.String())
    if err != nil {
        return mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return errs.ErrNotFound
    }

    switch t.Type {
    case canteen.TxFood:
        col := counterCol(t.Meal)
        _, err = tx.ExecContext(ctx,
            "UPDATE persons SET remaining = remaining - ?, "+col+" = "+col+" - 1 WHERE id = ?",
            t.AmountMinor, t.PersonID.String(),
        )
    case canteen.TxPayment:
        _, err = tx.ExecContext(ctx,
            "UPDATE persons SET remaining = remaining + ?, amount_paid = amount_paid - ? WHERE id = ?",
            t.AmountMinor, t.AmountMinor, t.PersonID.String(),
        )
    }
    if err != nil {
        return mapErr(err)
    }

    if clearMeal {
        if err := clearMealFlagTx(ctx, tx, t.PersonID, canteen.Day(t.At), t.Meal); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("failed to commit transaction: %w", err)
    }
    return nil
}

func clearMealFlagTx(ctx context.Context, tx *sql.Tx, personID uuid.UUID, day time.Time, meal canteen.MealType) error {
    flag := string(meal)
    date := day.Format(dayLayout)
    if _, err := tx.ExecContext(ctx,
        "UPDATE meal_records SET "+flag+" = 0 WHERE person_id = ? AND date = ?",
        personID.String(), date,
    ); err != nil {
        return mapErr(err)
    }
    _, err := tx.ExecContext(ctx,
        `DELETE FROM meal_records
         WHERE person_id = ? AND date = ? AND breakfast = 0 AND lunch = 0 AND dinner = 0`,
        personID.String(), date,
    )
    return mapErr(err)
}

// ClearMealFlag clears a single flag without touching balances.
func (s *Store) ClearMealFlag(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()
    if err := clearMealFlagTx(ctx, tx, personID, canteen.Day(date), meal); err != nil {
        return err
    }
    return tx.Commit()
}

// ResetPerson deletes all meals and transactions for a person and zeroes
// their balance fields and counters.
func (s *Store) ResetPerson(ctx context.Context, personID uuid.UUID) error {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("failed to begin transaction: %w", err)
    }
    defer tx.Rollback()

    res, err := tx.ExecContext(ctx,
        `UPDATE persons SET amount_paid = 0, remaining = 0,
            breakfast_count = 0, lunch_count = 0, dinner_count = 0
         WHERE id = ?`, personID.String())
    if err != nil {
        return mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return errs.ErrNotFound
    }
    if _, err := tx.ExecContext(ctx, "DELETE FROM transactions WHERE person_id = ?", personID.String()); err != nil {
        return mapErr(err)
    }
    if _, err := tx.ExecContext(ctx, "DELETE FROM meal_records WHERE person_id = ?", personID.String()); err != nil {
        return mapErr(err)
    }
    if err := tx.Commit(); err != nil {
        return fmt.Errorf("failed to commit transaction: %w", err)
    }
    return nil
}

// --- Reads ---

const txCols = "id, person_id, type, amount, at, mode, meal, bill_no, remarks"

func scanTransaction(row interface{ Scan(...any) error }) (canteen.Transaction, error) {
    var t canteen.Transaction
    var id, personID, typ, mode, meal string
    var at int64
    var billNo sql.NullInt64
    if err := row.Scan(&id, &personID, &typ, &t.AmountMinor, &at, &mode, &meal, &billNo, &t.Remarks); err != nil {
        return canteen.Transaction{}, err
    }
    tid, err := uuid.Parse(id)
    if err != nil {
        return canteen.Transaction{}, fmt.Errorf("failed to parse transaction id: %w", err)
    }
    pid, err := uuid.Parse(personID)
    if err != nil {
        return canteen.Transaction{}, fmt.Errorf("failed to parse person id: %w", err)
    }
    t.ID, t.PersonID = tid, pid
    t.Type = canteen.TxType(typ)
    t.At = time.Unix(at, 0).UTC()
    t.Mode = canteen.PaymentMode(mode)
    t.Meal = canteen.MealType(meal)
    if billNo.Valid {
        n := billNo.Int64
        t.BillNo = &n
    }
    return t, nil
}

func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (canteen.Transaction, error) {
    row := s.db.QueryRowContext(ctx, "SELECT "+txCols+" FROM transactions WHERE id = ?", id.String())
    t, err := scanTransaction(row)
    if err != nil {
        return canteen.Transaction{}, mapErr(err)
    }
    return t, nil
}

func (s *Store) TransactionsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.Transaction, error) {
    q := "SELECT " + txCols + " FROM transactions WHERE person_id = ?"
    args := []any{personID.String()}
    if from != nil {
        q += " AND at >= ?"
        args = append(args, from.Unix())
    }
    if to != nil {
        q += " AND at <= ?"
        args = append(args, to.Unix())
    }
    q += " ORDER BY at, id"
    rows, err := s.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()

    var out []canteen.Transaction
    for rows.Next() {
        t, err := scanTransaction(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, t)
    }
    return out, rows.Err()
}

func (s *Store) MealsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.MealRecord, error) {
    q := "SELECT person_id, date, breakfast, lunch, dinner FROM meal_records WHERE person_id = ?"
    args := []any{personID.String()}
    if from != nil {
        q += " AND date >= ?"
        args = append(args, canteen.Day(*from).Format(dayLayout))
    }
    if to != nil {
        q += " AND date <= ?"
        args = append(args, canteen.Day(*to).Format(dayLayout))
    }
    q += " ORDER BY date"
    rows, err := s.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()

    var out []canteen.MealRecord
    for rows.Next() {
        var r canteen.MealRecord
        var pid, date string
        if err := rows.Scan(&pid, &date, &r.Breakfast, &r.Lunch, &r.Dinner); err != nil {
            return nil, err
        }
        id, err := uuid.Parse(pid)
        if err != nil {
            return nil, fmt.Errorf("failed to parse person id: %w", err)
        }
        day, err := time.ParseInLocation(dayLayout, date, time.UTC)
        if err != nil {
            return nil, fmt.Errorf("failed to parse meal date: %w", err)
        }
        r.PersonID, r.Date = id, day
        out = append(out, r)
    }
    return out, rows.Err()
}

// --- Bills ---

// CreateBill inserts the bill and returns it with the number the
// AUTOINCREMENT sequence assigned.
func (s *Store) CreateBill(ctx context.Context, b canteen.Bill) (canteen.Bill, error) {
    metaRaw, err := marshalMeta(b.Metadata)
    if err != nil {
        return canteen.Bill{}, fmt.Errorf("failed to encode metadata: %w", err)
    }
    res, err := s.db.ExecContext(ctx,
        `INSERT INTO bills (at, customer_kind, person_id, guest_name, operator_id, meal, amount, mode, metadata)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
        b.At.Unix(), string(b.CustomerKind), nullUUID(b.PersonID), b.GuestName,
        nullUUID(b.OperatorID), string(b.Meal), b.AmountMinor, string(b.Mode), metaRaw,
    )
    if err != nil {
        return canteen.Bill{}, mapErr(err)
    }
    no, err := res.LastInsertId()
    if err != nil {
        return canteen.Bill{}, fmt.Errorf("failed to read bill number: %w", err)
    }
    b.No = no
    return b, nil
}

const billCols = "no, at, customer_kind, person_id, guest_name, operator_id, meal, amount, mode, metadata"

func scanBill(row interface{ Scan(...any) error }) (canteen.Bill, error) {
    var b canteen.Bill
    var at int64
    var kind, guestName, meal, mode, metaRaw string
    var personID, operatorID sql.NullString
    if err := row.Scan(&b.No, &at, &kind, &personID, &guestName, &operatorID,
        &meal, &b.AmountMinor, &mode, &metaRaw); err != nil {
        return canteen.Bill{}, err
    }
    b.At = time.Unix(at, 0).UTC()
    b.CustomerKind = canteen.CustomerKind(kind)
    b.GuestName = guestName
    b.Meal = canteen.MealType(meal)
    b.Mode = canteen.PaymentMode(mode)
    if personID.Valid {
        id, err := uuid.Parse(personID.String)
        if err != nil {
            return canteen.Bill{}, fmt.Errorf("failed to parse person id: %w", err)
        }
        b.PersonID = &id
    }
    if operatorID.Valid {
        id, err := uuid.Parse(operatorID.String)
        if err != nil {
            return canteen.Bill{}, fmt.Errorf("failed to parse operator id: %w", err)
        }
        b.OperatorID = &id
    }
    var err error
    if b.Metadata, err = unmarshalMeta(metaRaw); err != nil {
        return canteen.Bill{}, fmt.Errorf("failed to decode bill metadata: %w", err)
    }
    return b, nil
}

// DeleteBill removes a bill row. Billing uses it to back out a bill whose
// charge failed.
func (s *Store) DeleteBill(ctx context.Context, no int64) error {
    res, err := s.db.ExecContext(ctx, "DELETE FROM bills WHERE no = ?", no)
    if err != nil {
        return mapErr(err)
    }
    if n, _ := res.RowsAffected(); n == 0 {
        return errs.ErrNotFound
    }
    return nil
}

func (s *Store) GetBill(ctx context.Context, no int64) (canteen.Bill, error) {
    row := s.db.QueryRowContext(ctx, "SELECT "+billCols+" FROM bills WHERE no = ?", no)
    b, err := scanBill(row)
    if err != nil {
        return canteen.Bill{}, mapErr(err)
    }
    return b, nil
}

func (s *Store) BillsInRange(ctx context.Context, from, to *time.Time) ([]canteen.Bill, error) {
    q := "SELECT " + billCols + " FROM bills"
    args := []any{}
    var conds []string
    if from != nil {
        conds = append(conds, "at >= ?")
        args = append(args, from.Unix())
    }
    if to != nil {
        conds = append(conds, "at <= ?")
        args = append(args, to.Unix())
    }
    if len(conds) > 0 {
        q += " WHERE " + strings.Join(conds, " AND ")
    }
    q += " ORDER BY no"
    rows, err := s.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, mapErr(err)
    }
    defer rows.Close()

    var out []canteen.Bill
    for rows.Next() {
        b, err := scanBill(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, b)
    }
    return out, rows.Err()
}
