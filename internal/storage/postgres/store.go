package postgres

// Package postgres provides a pgx-backed storage implementation that satisfies
// the repository and writer interfaces used by the HTTP/API and services.
//
// It is intentionally small and explicit. The schema is applied on Open. This
// package focuses on mapping between the domain entities and SQL rows and
// running the necessary statements/transactions.

import (
    "context"
    "errors"
    "strconv"
    "strings"
    "time"

    "github.com/google/uuid"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgconn"
    "github.com/jackc/pgx/v5/pgxpool"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/meta"
)

const schema = `
create table if not exists persons (
    id uuid primary key,
    kind text not null,
    name text not null,
    ref_code text not null,
    dept text not null,
    phone text not null default '',
    amount_paid bigint not null default 0,
    remaining bigint not null default 0,
    breakfast_count int not null default 0,
    lunch_count int not null default 0,
    dinner_count int not null default 0,
    metadata jsonb not null default '{}'
);
create unique index if not exists idx_persons_ref_code on persons (lower(ref_code));

create table if not exists operators (
    id uuid primary key,
    username text not null,
    password_hash text not null,
    created_at timestamptz not null
);
create unique index if not exists idx_operators_username on operators (lower(username));

create table if not exists meal_records (
    person_id uuid not null references persons(id) on delete cascade,
    date date not null,
    breakfast boolean not null default false,
    lunch boolean not null default false,
    dinner boolean not null default false,
    primary key (person_id, date)
);

create table if not exists transactions (
    id uuid primary key,
    person_id uuid not null references persons(id) on delete cascade,
    type text not null,
    amount bigint not null,
    at timestamptz not null,
    mode text not null default '',
    meal text not null default '',
    bill_no bigint,
    remarks text not null default ''
);
create index if not exists idx_transactions_person_at on transactions (person_id, at, id);

create table if not exists bills (
    no bigserial primary key,
    at timestamptz not null,
    customer_kind text not null,
    person_id uuid,
    guest_name text not null default '',
    operator_id uuid,
    meal text not null,
    amount bigint not null,
    mode text not null,
    metadata jsonb not null default '{}'
);
create index if not exists idx_bills_at on bills (at);
`

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
    pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string and
// applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
    cfg, err := pgxpool.ParseConfig(dsn)
    if err != nil { return nil, err }
    pool, err := pgxpool.NewWithConfig(ctx, cfg)
    if err != nil { return nil, err }
    // Verify connection
    if err := pool.Ping(ctx); err != nil { pool.Close(); return nil, err }
    if _, err := pool.Exec(ctx, schema); err != nil { pool.Close(); return nil, err }
    return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { if s.pool != nil { s.pool.Close() } }

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error {
    if err := s.pool.Ping(ctx); err != nil { return errs.ErrStoreUnavailable }
    return nil
}

// mapErr folds pgx errors into the package error taxonomy.
func mapErr(err error) error {
    if err == nil { return nil }
    if errors.Is(err, pgx.ErrNoRows) { return errs.ErrNotFound }
    var pgErr *pgconn.PgError
    if errors.As(err, &pgErr) && pgErr.Code == "23505" { return errs.ErrDuplicateKey }
    return err
}

// --- Persons ---

const personCols = "id, kind, name, ref_code, dept, phone, amount_paid, remaining, breakfast_count, lunch_count, dinner_count, metadata"

func scanPerson(row pgx.Row) (canteen.Person, error) {
    var p canteen.Person
    var mdBytes []byte
    if err := row.Scan(&p.ID, &p.Kind, &p.Name, &p.RefCode, &p.Dept, &p.Phone,
        &p.AmountPaidMinor, &p.RemainingMinor,
        &p.BreakfastCount, &p.LunchCount, &p.DinnerCount, &mdBytes); err != nil {
        return canteen.Person{}, err
    }
    if len(mdBytes) > 0 {
        var m meta.Metadata
        if err := m.UnmarshalJSON(mdBytes); err == nil && len(m) > 0 { p.Metadata = m }
    }
    return p, nil
}

// CreatePerson inserts a person row.
func (s *Store) CreatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error) {
    md, _ := p.Metadata.MarshalStableJSON()
    _, err := s.pool.Exec(ctx, `
        insert into persons (`+personCols+`)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
    `, p.ID, p.Kind, p.Name, p.RefCode, p.Dept, p.Phone,
        p.AmountPaidMinor, p.RemainingMinor,
        p.BreakfastCount, p.LunchCount, p.DinnerCount, md)
    if err != nil { return canteen.Person{}, mapErr(err) }
    return p, nil
}

// UpdatePerson overwrites a person row.
func (s *Store) UpdatePerson(ctx context.Context, p canteen.Person) (canteen.Person, error) {
    md, _ := p.Metadata.MarshalStableJSON()
    ct, err := s.pool.Exec(ctx, `
        update persons
        set kind=$1, name=$2, ref_code=$3, dept=$4, phone=$5,
            amount_paid=$6, remaining=$7,
            breakfast_count=$8, lunch_count=$9, dinner_count=$10, metadata=$11
        where id=$12
    `, p.Kind, p.Name, p.RefCode, p.Dept, p.Phone,
        p.AmountPaidMinor, p.RemainingMinor,
        p.BreakfastCount, p.LunchCount, p.DinnerCount, md, p.ID)
    if err != nil { return canteen.Person{}, mapErr(err) }
    if ct.RowsAffected() == 0 { return canteen.Person{}, errs.ErrNotFound }
    return p, nil
}

// DeletePerson removes a person; meals and transactions cascade.
func (s *Store) DeletePerson(ctx context.Context, id uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `delete from persons where id=$1`, id)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

// GetPerson fetches a single person by id.
func (s *Store) GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error) {
    row := s.pool.QueryRow(ctx, `select `+personCols+` from persons where id=$1`, id)
    p, err := scanPerson(row)
    if err != nil { return canteen.Person{}, mapErr(err) }
    return p, nil
}

// GetPersonByRefCode resolves a person by external reference code.
func (s *Store) GetPersonByRefCode(ctx context.Context, code string) (canteen.Person, error) {
    row := s.pool.QueryRow(ctx, `select `+personCols+` from persons where lower(ref_code)=lower($1)`, code)
    p, err := scanPerson(row)
    if err != nil { return canteen.Person{}, mapErr(err) }
    return p, nil
}

// ListPersons returns persons, optionally filtered by kind, ordered by name.
func (s *Store) ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error) {
    q := `select ` + personCols + ` from persons`
    args := []any{}
    if kind != nil {
        q += ` where kind=$1`
        args = append(args, *kind)
    }
    q += ` order by name, id`
    rows, err := s.pool.Query(ctx, q, args...)
    if err != nil { return nil, mapErr(err) }
    defer rows.Close()
    out := make([]canteen.Person, 0)
    for rows.Next() {
        p, err := scanPerson(rows)
        if err != nil { return nil, err }
        out = append(out, p)
    }
    return out, rows.Err()
}

// --- Operators ---

// CreateOperator inserts an operator row.
func (s *Store) CreateOperator(ctx context.Context, o canteen.Operator) (canteen.Operator, error) {
    _, err := s.pool.Exec(ctx, `
        insert into operators (id, username, password_hash, created_at)
        values ($1,$2,$3,$4)
    `, o.ID, o.Username, o.PasswordHash, o.CreatedAt)
    if err != nil { return canteen.Operator{}, mapErr(err) }
    return o, nil
}

// GetOperator fetches an operator by id.
func (s *Store) GetOperator(ctx context.Context, id uuid.UUID) (canteen.Operator, error) {
    var o canteen.Operator
    err := s.pool.QueryRow(ctx, `
        select id, username, password_hash, created_at from operators where id=$1
    `, id).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
    if err != nil { return canteen.Operator{}, mapErr(err) }
    return o, nil
}

// GetOperatorByUsername resolves an operator by username.
func (s *Store) GetOperatorByUsername(ctx context.Context, username string) (canteen.Operator, error) {
    var o canteen.Operator
    err := s.pool.QueryRow(ctx, `
        select id, username, password_hash, created_at from operators where lower(username)=lower($1)
    `, username).Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt)
    if err != nil { return canteen.Operator{}, mapErr(err) }
    return o, nil
}

// ListOperators returns all operators ordered by username.
func (s *Store) ListOperators(ctx context.Context) ([]canteen.Operator, error) {
    rows, err := s.pool.Query(ctx, `
        select id, username, password_hash, created_at from operators order by username
    `)
    if err != nil { return nil, mapErr(err) }
    defer rows.Close()
    out := make([]canteen.Operator, 0)
    for rows.Next() {
        var o canteen.Operator
        if err := rows.Scan(&o.ID, &o.Username, &o.PasswordHash, &o.CreatedAt); err != nil { return nil, err }
        out = append(out, o)
    }
    return out, rows.Err()
}

// DeleteOperator removes an operator. Bills keep their operator id.
func (s *Store) DeleteOperator(ctx context.Context, id uuid.UUID) error {
    ct, err := s.pool.Exec(ctx, `delete from operators where id=$1`, id)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

// --- Accounting writes ---

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

func insertTransaction(ctx context.Context, tx pgx.Tx, t canteen.Transaction) error {
    _, err := tx.Exec(ctx, `
        insert into transactions (id, person_id, type, amount, at, mode, meal, bill_no, remarks)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    `, t.ID, t.PersonID, t.Type, t.AmountMinor, t.At, t.Mode, t.Meal, t.BillNo, t.Remarks)
    return err
}

// ApplyCharge appends a food transaction, bumps the balance and meal counter,
// and upserts the day's meal flag within one SQL transaction.
func (s *Store) ApplyCharge(ctx context.Context, t canteen.Transaction) (canteen.Person, error) {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return canteen.Person{}, err }
    defer func() { _ = tx.Rollback(ctx) }()

    col := counterCol(t.Meal)
    ct, err := tx.Exec(ctx,
        `update persons set remaining = remaining + $1, `+col+` = `+col+` + 1 where id=$2`,
        t.AmountMinor, t.PersonID)
    if err != nil { return canteen.Person{}, mapErr(err) }
    if ct.RowsAffected() == 0 { return canteen.Person{}, errs.ErrNotFound }

    flag := string(t.Meal)
    if _, err := tx.Exec(ctx, `
        insert into meal_records (person_id, date, `+flag+`)
        values ($1,$2,true)
        on conflict (person_id, date) do update set `+flag+` = true
    `, t.PersonID, canteen.Day(t.At)); err != nil {
        return canteen.Person{}, mapErr(err)
    }

    if err := insertTransaction(ctx, tx, t); err != nil { return canteen.Person{}, mapErr(err) }

    row := tx.QueryRow(ctx, `select `+personCols+` from persons where id=$1`, t.PersonID)
    p, err := scanPerson(row)
    if err != nil { return canteen.Person{}, mapErr(err) }
    if err := tx.Commit(ctx); err != nil { return canteen.Person{}, err }
    return p, nil
}

// ApplyPayment appends a payment transaction and moves the balance fields.
func (s *Store) ApplyPayment(ctx context.Context, t canteen.Transaction) (canteen.Person, error) {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return canteen.Person{}, err }
    defer func() { _ = tx.Rollback(ctx) }()

    ct, err := tx.Exec(ctx,
        `update persons set remaining = remaining - $1, amount_paid = amount_paid + $1 where id=$2`,
        t.AmountMinor, t.PersonID)
    if err != nil { return canteen.Person{}, mapErr(err) }
    if ct.RowsAffected() == 0 { return canteen.Person{}, errs.ErrNotFound }

    if err := insertTransaction(ctx, tx, t); err != nil { return canteen.Person{}, mapErr(err) }

    row := tx.QueryRow(ctx, `select `+personCols+` from persons where id=$1`, t.PersonID)
    p, err := scanPerson(row)
    if err != nil { return canteen.Person{}, mapErr(err) }
    if err := tx.Commit(ctx); err != nil { return canteen.Person{}, err }
    return p, nil
}

// RemoveTransaction reverses t's balance effect and deletes its row; when
// clearMeal is set the day's flag is cleared and the record dropped if empty.
func (s *Store) RemoveTransaction(ctx context.Context, t canteen.Transaction, clearMeal bool) error {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return err }
    defer func() { _ = tx.Rollback(ctx) }()

    ct, err := tx.Exec(ctx, `delete from transactions where id=$1`, t.ID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }

    switch t.Type {
    case canteen.TxFood:
        col := counterCol(t.Meal)
        _, err = tx.Exec(ctx,
            `update persons set remaining = remaining - $1, `+col+` = `+col+` - 1 where id=$2`,
            t.AmountMinor, t.PersonID)
    case canteen.TxPayment:
        _, err = tx.Exec(ctx,
            `update persons set remaining = remaining + $1, amount_paid = amount_paid - $1 where id=$2`,
            t.AmountMinor, t.PersonID)
    }
    if err != nil { return mapErr(err) }

    if clearMeal {
        if err := clearMealFlagTx(ctx, tx, t.PersonID, canteen.Day(t.At), t.Meal); err != nil { return err }
    }
    return tx.Commit(ctx)
}

func clearMealFlagTx(ctx context.Context, tx pgx.Tx, personID uuid.UUID, day time.Time, meal canteen.MealType) error {
    flag := string(meal)
    if _, err := tx.Exec(ctx,
        `update meal_records set `+flag+` = false where person_id=$1 and date=$2`,
        personID, day); err != nil {
        return mapErr(err)
    }
    _, err := tx.Exec(ctx, `
        delete from meal_records
        where person_id=$1 and date=$2 and not breakfast and not lunch and not dinner
    `, personID, day)
    return mapErr(err)
}

// ClearMealFlag clears a single flag without touching balances.
func (s *Store) ClearMealFlag(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) error {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return err }
    defer func() { _ = tx.Rollback(ctx) }()
    if err := clearMealFlagTx(ctx, tx, personID, canteen.Day(date), meal); err != nil { return err }
    return tx.Commit(ctx)
}

// ResetPerson wipes a person's history and zeroes their balance fields.
func (s *Store) ResetPerson(ctx context.Context, personID uuid.UUID) error {
    tx, err := s.pool.Begin(ctx)
    if err != nil { return err }
    defer func() { _ = tx.Rollback(ctx) }()

    ct, err := tx.Exec(ctx, `
        update persons set amount_paid=0, remaining=0,
            breakfast_count=0, lunch_count=0, dinner_count=0
        where id=$1
    `, personID)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    if _, err := tx.Exec(ctx, `delete from transactions where person_id=$1`, personID); err != nil { return mapErr(err) }
    if _, err := tx.Exec(ctx, `delete from meal_records where person_id=$1`, personID); err != nil { return mapErr(err) }
    return tx.Commit(ctx)
}

// --- Reads ---

const txCols = "id, person_id, type, amount, at, mode, meal, bill_no, remarks"

func scanTransaction(row pgx.Row) (canteen.Transaction, error) {
    var t canteen.Transaction
    if err := row.Scan(&t.ID, &t.PersonID, &t.Type, &t.AmountMinor, &t.At,
        &t.Mode, &t.Meal, &t.BillNo, &t.Remarks); err != nil {
        return canteen.Transaction{}, err
    }
    t.At = t.At.UTC()
    return t, nil
}

// GetTransaction fetches a transaction by id.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (canteen.Transaction, error) {
    row := s.pool.QueryRow(ctx, `select `+txCols+` from transactions where id=$1`, id)
    t, err := scanTransaction(row)
    if err != nil { return canteen.Transaction{}, mapErr(err) }
    return t, nil
}

// TransactionsByPerson returns a person's transactions within [from,to],
// ordered asc by (at, id).
func (s *Store) TransactionsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.Transaction, error) {
    q := `select ` + txCols + ` from transactions where person_id=$1`
    args := []any{personID}
    if from != nil {
        args = append(args, *from)
        q += ` and at >= $` + strconv.Itoa(len(args))
    }
    if to != nil {
        args = append(args, *to)
        q += ` and at <= $` + strconv.Itoa(len(args))
    }
    q += ` order by at, id`
    rows, err := s.pool.Query(ctx, q, args...)
    if err != nil { return nil, mapErr(err) }
    defer rows.Close()
    out := make([]canteen.Transaction, 0)
    for rows.Next() {
        t, err := scanTransaction(rows)
        if err != nil { return nil, err }
        out = append(out, t)
    }
    return out, rows.Err()
}

// MealsByPerson returns a person's meal records within [from,to], ordered by date.
func (s *Store) MealsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.MealRecord, error) {
    q := `select person_id, date, breakfast, lunch, dinner from meal_records where person_id=$1`
    args := []any{personID}
    if from != nil {
        args = append(args, canteen.Day(*from))
        q += ` and date >= $` + strconv.Itoa(len(args))
    }
    if to != nil {
        args = append(args, canteen.Day(*to))
        q += ` and date <= $` + strconv.Itoa(len(args))
    }
    q += ` order by date`
    rows, err := s.pool.Query(ctx, q, args...)
    if err != nil { return nil, mapErr(err) }
    defer rows.Close()
    out := make([]canteen.MealRecord, 0)
    for rows.Next() {
        var r canteen.MealRecord
        if err := rows.Scan(&r.PersonID, &r.Date, &r.Breakfast, &r.Lunch, &r.Dinner); err != nil { return nil, err }
        r.Date = canteen.Day(r.Date)
        out = append(out, r)
    }
    return out, rows.Err()
}

// --- Bills ---

// CreateBill inserts the bill and returns it with the sequence-assigned number.
func (s *Store) CreateBill(ctx context.Context, b canteen.Bill) (canteen.Bill, error) {
    md, _ := b.Metadata.MarshalStableJSON()
    err := s.pool.QueryRow(ctx, `
        insert into bills (at, customer_kind, person_id, guest_name, operator_id, meal, amount, mode, metadata)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        returning no
    `, b.At, b.CustomerKind, b.PersonID, b.GuestName, b.OperatorID, b.Meal, b.AmountMinor, b.Mode, md).Scan(&b.No)
    if err != nil { return canteen.Bill{}, mapErr(err) }
    return b, nil
}

const billCols = "no, at, customer_kind, person_id, guest_name, operator_id, meal, amount, mode, metadata"

func scanBill(row pgx.Row) (canteen.Bill, error) {
    var b canteen.Bill
    var mdBytes []byte
    if err := row.Scan(&b.No, &b.At, &b.CustomerKind, &b.PersonID, &b.GuestName,
        &b.OperatorID, &b.Meal, &b.AmountMinor, &b.Mode, &mdBytes); err != nil {
        return canteen.Bill{}, err
    }
    b.At = b.At.UTC()
    if len(mdBytes) > 0 {
        var m meta.Metadata
        if err := m.UnmarshalJSON(mdBytes); err == nil && len(m) > 0 { b.Metadata = m }
    }
    return b, nil
}

// DeleteBill removes a bill row. Billing uses it to back out a bill whose
// charge failed.
func (s *Store) DeleteBill(ctx context.Context, no int64) error {
    ct, err := s.pool.Exec(ctx, `delete from bills where no=$1`, no)
    if err != nil { return mapErr(err) }
    if ct.RowsAffected() == 0 { return errs.ErrNotFound }
    return nil
}

// GetBill fetches a bill by number.
func (s *Store) GetBill(ctx context.Context, no int64) (canteen.Bill, error) {
    row := s.pool.QueryRow(ctx, `select `+billCols+` from bills where no=$1`, no)
    b, err := scanBill(row)
    if err != nil { return canteen.Bill{}, mapErr(err) }
    return b, nil
}

// BillsInRange returns bills issued within [from,to], ordered by number.
func (s *Store) BillsInRange(ctx context.Context, from, to *time.Time) ([]canteen.Bill, error) {
    q := `select ` + billCols + ` from bills`
    args := []any{}
    var conds []string
    if from != nil {
        args = append(args, *from)
        conds = append(conds, `at >= $`+strconv.Itoa(len(args)))
    }
    if to != nil {
        args = append(args, *to)
        conds = append(conds, `at <= $`+strconv.Itoa(len(args)))
    }
    if len(conds) > 0 { q += ` where ` + strings.Join(conds, ` and `) }
    q += ` order by no`
    rows, err := s.pool.Query(ctx, q, args...)
    if err != nil { return nil, mapErr(err) }
    defer rows.Close()
    out := make([]canteen.Bill, 0)
    for rows.Next() {
        b, err := scanBill(rows)
        if err != nil { return nil, err }
        out = append(out, b)
    }
    return out, rows.Err()
}
