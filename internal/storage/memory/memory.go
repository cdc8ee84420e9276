package memory

// Package memory provides a simple in-memory implementation used for development and tests.
// It keeps code paths easy to follow while allowing the SQL stores to be plugged in later.
import (
    "context"
    "sort"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
)

// txKey tracks ordering for transactions per person: sorted asc by (At, ID)
type txKey struct {
    At time.Time
    ID uuid.UUID
}

// Store is an in-memory implementation of the repository+writer interfaces
// used by the services and the API. It is guarded by an RWMutex for
// concurrent reads/writes; composite mutations hold the write lock for their
// whole span, which makes each store operation atomic.
type Store struct {
    mu        sync.RWMutex
    persons   map[uuid.UUID]canteen.Person
    operators map[uuid.UUID]canteen.Operator
    // meals: personID -> day (midnight UTC) -> record
    meals map[uuid.UUID]map[time.Time]canteen.MealRecord
    txs   map[uuid.UUID]canteen.Transaction
    // Per-person sorted index of transactions for ordered scans
    txKeysByPerson map[uuid.UUID][]txKey
    bills          map[int64]canteen.Bill
    billSeq        int64
    // failNext makes the next n operations fail with ErrStoreUnavailable (test hook).
    failNext int
}

// New constructs an empty in-memory store.
func New() *Store {
    return &Store{
        persons:        make(map[uuid.UUID]canteen.Person),
        operators:      make(map[uuid.UUID]canteen.Operator),
        meals:          make(map[uuid.UUID]map[time.Time]canteen.MealRecord),
        txs:            make(map[uuid.UUID]canteen.Transaction),
        txKeysByPerson: make(map[uuid.UUID][]txKey),
        bills:          make(map[int64]canteen.Bill),
    }
}

// Seed helpers for local dev/tests.
func (s *Store) SeedPerson(p canteen.Person)     { s.mu.Lock(); s.persons[p.ID] = p; s.mu.Unlock() }
func (s *Store) SeedOperator(o canteen.Operator) { s.mu.Lock(); s.operators[o.ID] = o; s.mu.Unlock() }

// FailNext makes the next n operations return ErrStoreUnavailable. Test hook
// for the accounting engine's retry path.
func (s *Store) FailNext(n int) { s.mu.Lock(); s.failNext = n; s.mu.Unlock() }

// unavailableLocked consumes one pending failure. Caller must hold s.mu.
func (s *Store) unavailableLocked() bool {
    if s.failNext > 0 {
        s.failNext--
        return true
    }
    return false
}

// Ready reports store health; the in-memory store is always ready.
func (s *Store) Ready(_ context.Context) error { return nil }

// --- Persons ---

// CreatePerson persists a new person, enforcing reference-code uniqueness.
func (s *Store) CreatePerson(_ context.Context, p canteen.Person) (canteen.Person, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Person{}, errs.ErrStoreUnavailable
    }
    for _, other := range s.persons {
        if other.RefCode != "" && strings.EqualFold(other.RefCode, p.RefCode) {
            return canteen.Person{}, errs.ErrDuplicateKey
        }
    }
    s.persons[p.ID] = p
    return p, nil
}

// UpdatePerson overwrites a person row, keeping reference codes unique.
func (s *Store) UpdatePerson(_ context.Context, p canteen.Person) (canteen.Person, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Person{}, errs.ErrStoreUnavailable
    }
    if _, ok := s.persons[p.ID]; !ok {
        return canteen.Person{}, errs.ErrNotFound
    }
    for id, other := range s.persons {
        if id != p.ID && other.RefCode != "" && strings.EqualFold(other.RefCode, p.RefCode) {
            return canteen.Person{}, errs.ErrDuplicateKey
        }
    }
    s.persons[p.ID] = p
    return p, nil
}

// DeletePerson hard-deletes a person and cascades to their meals and transactions.
func (s *Store) DeletePerson(_ context.Context, id uuid.UUID) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    if _, ok := s.persons[id]; !ok {
        return errs.ErrNotFound
    }
    delete(s.persons, id)
    delete(s.meals, id)
    for _, k := range s.txKeysByPerson[id] {
        delete(s.txs, k.ID)
    }
    delete(s.txKeysByPerson, id)
    return nil
}

// GetPerson returns a person by id.
func (s *Store) GetPerson(_ context.Context, id uuid.UUID) (canteen.Person, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    p, ok := s.persons[id]
    if !ok {
        return canteen.Person{}, errs.ErrNotFound
    }
    return p, nil
}

// GetPersonByRefCode looks a person up by external reference code.
func (s *Store) GetPersonByRefCode(_ context.Context, code string) (canteen.Person, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    for _, p := range s.persons {
        if strings.EqualFold(p.RefCode, code) {
            return p, nil
        }
    }
    return canteen.Person{}, errs.ErrNotFound
}

// ListPersons returns persons, optionally filtered by kind, sorted by name.
func (s *Store) ListPersons(_ context.Context, kind *canteen.PersonKind) ([]canteen.Person, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]canteen.Person, 0, len(s.persons))
    for _, p := range s.persons {
        if kind != nil && p.Kind != *kind {
            continue
        }
        out = append(out, p)
    }
    sort.Slice(out, func(i, j int) bool {
        if out[i].Name == out[j].Name {
            return out[i].ID.String() < out[j].ID.String()
        }
        return out[i].Name < out[j].Name
    })
    return out, nil
}

// --- Operators ---

// CreateOperator persists an operator, enforcing username uniqueness.
func (s *Store) CreateOperator(_ context.Context, o canteen.Operator) (canteen.Operator, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Operator{}, errs.ErrStoreUnavailable
    }
    for _, other := range s.operators {
        if strings.EqualFold(other.Username, o.Username) {
            return canteen.Operator{}, errs.ErrDuplicateKey
        }
    }
    s.operators[o.ID] = o
    return o, nil
}

// GetOperator returns an operator by id.
func (s *Store) GetOperator(_ context.Context, id uuid.UUID) (canteen.Operator, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    o, ok := s.operators[id]
    if !ok {
        return canteen.Operator{}, errs.ErrNotFound
    }
    return o, nil
}

// GetOperatorByUsername resolves an operator by username.
func (s *Store) GetOperatorByUsername(_ context.Context, username string) (canteen.Operator, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    for _, o := range s.operators {
        if strings.EqualFold(o.Username, username) {
            return o, nil
        }
    }
    return canteen.Operator{}, errs.ErrNotFound
}

// ListOperators returns all operators sorted by username.
func (s *Store) ListOperators(_ context.Context) ([]canteen.Operator, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]canteen.Operator, 0, len(s.operators))
    for _, o := range s.operators {
        out = append(out, o)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
    return out, nil
}

// DeleteOperator removes an operator. Historical bills keep their operator id.
func (s *Store) DeleteOperator(_ context.Context, id uuid.UUID) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    if _, ok := s.operators[id]; !ok {
        return errs.ErrNotFound
    }
    delete(s.operators, id)
    return nil
}

// --- Accounting writes ---

// ApplyCharge atomically appends a food transaction, bumps the owner's
// remaining balance and meal counter, and upserts the day's meal flag.
func (s *Store) ApplyCharge(_ context.Context, t canteen.Transaction) (canteen.Person, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Person{}, errs.ErrStoreUnavailable
    }
    p, ok := s.persons[t.PersonID]
    if !ok {
        return canteen.Person{}, errs.ErrNotFound
    }
    p.RemainingMinor += t.AmountMinor
    bumpCounter(&p, t.Meal, +1)
    s.persons[p.ID] = p

    day := canteen.Day(t.At)
    byDay := s.meals[p.ID]
    if byDay == nil {
        byDay = make(map[time.Time]canteen.MealRecord)
        s.meals[p.ID] = byDay
    }
    rec, ok := byDay[day]
    if !ok {
        rec = canteen.MealRecord{PersonID: p.ID, Date: day}
    }
    setFlag(&rec, t.Meal, true)
    byDay[day] = rec

    s.txs[t.ID] = t
    s.insertTxIndexLocked(p.ID, txKey{At: t.At, ID: t.ID})
    return p, nil
}

// ApplyPayment atomically appends a payment transaction and moves the
// owner's balance fields.
func (s *Store) ApplyPayment(_ context.Context, t canteen.Transaction) (canteen.Person, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Person{}, errs.ErrStoreUnavailable
    }
    p, ok := s.persons[t.PersonID]
    if !ok {
        return canteen.Person{}, errs.ErrNotFound
    }
    p.RemainingMinor -= t.AmountMinor
    p.AmountPaidMinor += t.AmountMinor
    s.persons[p.ID] = p
    s.txs[t.ID] = t
    s.insertTxIndexLocked(p.ID, txKey{At: t.At, ID: t.ID})
    return p, nil
}

// RemoveTransaction atomically reverses t's balance effect and deletes its
// row. When clearMeal is set the day's meal flag is cleared as well; the meal
// record is dropped once no flag remains.
func (s *Store) RemoveTransaction(_ context.Context, t canteen.Transaction, clearMeal bool) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    if _, ok := s.txs[t.ID]; !ok {
        return errs.ErrNotFound
    }
    p, ok := s.persons[t.PersonID]
    if !ok {
        return errs.ErrNotFound
    }
    switch t.Type {
    case canteen.TxFood:
        p.RemainingMinor -= t.AmountMinor
        bumpCounter(&p, t.Meal, -1)
    case canteen.TxPayment:
        p.RemainingMinor += t.AmountMinor
        p.AmountPaidMinor -= t.AmountMinor
    }
    s.persons[p.ID] = p
    if clearMeal {
        s.clearMealLocked(p.ID, canteen.Day(t.At), t.Meal)
    }
    delete(s.txs, t.ID)
    s.dropTxIndexLocked(p.ID, t.ID)
    return nil
}

// ClearMealFlag clears a single meal flag without touching balances. Used for
// the defensive case of a flag with no backing transaction.
func (s *Store) ClearMealFlag(_ context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    if _, ok := s.persons[personID]; !ok {
        return errs.ErrNotFound
    }
    s.clearMealLocked(personID, canteen.Day(date), meal)
    return nil
}

// ResetPerson deletes all meals and transactions for a person and zeroes
// their balance fields and counters.
func (s *Store) ResetPerson(_ context.Context, personID uuid.UUID) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    p, ok := s.persons[personID]
    if !ok {
        return errs.ErrNotFound
    }
    p.RemainingMinor = 0
    p.AmountPaidMinor = 0
    p.BreakfastCount, p.LunchCount, p.DinnerCount = 0, 0, 0
    s.persons[personID] = p
    delete(s.meals, personID)
    for _, k := range s.txKeysByPerson[personID] {
        delete(s.txs, k.ID)
    }
    delete(s.txKeysByPerson, personID)
    return nil
}

// --- Reads ---

// GetTransaction returns a transaction by id.
func (s *Store) GetTransaction(_ context.Context, id uuid.UUID) (canteen.Transaction, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    t, ok := s.txs[id]
    if !ok {
        return canteen.Transaction{}, errs.ErrNotFound
    }
    return t, nil
}

// TransactionsByPerson returns a person's transactions within [from,to],
// sorted asc by (At, ID). Nil bounds are open.
func (s *Store) TransactionsByPerson(_ context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.Transaction, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    keys := s.txKeysByPerson[personID]
    out := make([]canteen.Transaction, 0, len(keys))
    for _, k := range keys {
        if from != nil && k.At.Before(*from) {
            continue
        }
        if to != nil && k.At.After(*to) {
            continue
        }
        if t, ok := s.txs[k.ID]; ok {
            out = append(out, t)
        }
    }
    return out, nil
}

// MealsByPerson returns a person's meal records within [from,to], sorted asc by date.
func (s *Store) MealsByPerson(_ context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.MealRecord, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]canteen.MealRecord, 0)
    for day, rec := range s.meals[personID] {
        if from != nil && day.Before(canteen.Day(*from)) {
            continue
        }
        if to != nil && day.After(canteen.Day(*to)) {
            continue
        }
        out = append(out, rec)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
    return out, nil
}

// --- Bills ---

// CreateBill assigns the next bill number and persists the bill. The sequence
// is monotonic and collision-free under concurrent calls because the write
// lock spans assignment and insert.
func (s *Store) CreateBill(_ context.Context, b canteen.Bill) (canteen.Bill, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return canteen.Bill{}, errs.ErrStoreUnavailable
    }
    s.billSeq++
    b.No = s.billSeq
    s.bills[b.No] = b
    return b, nil
}

// DeleteBill removes a bill row. Billing uses it to back out a bill whose
// charge failed.
func (s *Store) DeleteBill(_ context.Context, no int64) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    if s.unavailableLocked() {
        return errs.ErrStoreUnavailable
    }
    if _, ok := s.bills[no]; !ok {
        return errs.ErrNotFound
    }
    delete(s.bills, no)
    return nil
}

// GetBill returns a bill by number.
func (s *Store) GetBill(_ context.Context, no int64) (canteen.Bill, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    b, ok := s.bills[no]
    if !ok {
        return canteen.Bill{}, errs.ErrNotFound
    }
    return b, nil
}

// BillsInRange returns bills issued within [from,to], sorted asc by number.
func (s *Store) BillsInRange(_ context.Context, from, to *time.Time) ([]canteen.Bill, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    out := make([]canteen.Bill, 0)
    for _, b := range s.bills {
        if from != nil && b.At.Before(*from) {
            continue
        }
        if to != nil && b.At.After(*to) {
            continue
        }
        out = append(out, b)
    }
    sort.Slice(out, func(i, j int) bool { return out[i].No < out[j].No })
    return out, nil
}

// --- internals ---

func bumpCounter(p *canteen.Person, m canteen.MealType, delta int) {
    switch m {
    case canteen.MealBreakfast:
        p.BreakfastCount += delta
    case canteen.MealLunch:
        p.LunchCount += delta
    case canteen.MealDinner:
        p.DinnerCount += delta
    }
}

func setFlag(r *canteen.MealRecord, m canteen.MealType, v bool) {
    switch m {
    case canteen.MealBreakfast:
        r.Breakfast = v
    case canteen.MealLunch:
        r.Lunch = v
    case canteen.MealDinner:
        r.Dinner = v
    }
}

// clearMealLocked clears one flag and drops the record when empty. Caller must hold s.mu.
func (s *Store) clearMealLocked(personID uuid.UUID, day time.Time, meal canteen.MealType) {
    byDay := s.meals[personID]
    if byDay == nil {
        return
    }
    rec, ok := byDay[day]
    if !ok {
        return
    }
    setFlag(&rec, meal, false)
    if rec.Empty() {
        delete(byDay, day)
        return
    }
    byDay[day] = rec
}

// insertTxIndexLocked inserts k into the per-person sorted index, keeping
// order asc by (At, ID). Caller must hold s.mu (write lock).
func (s *Store) insertTxIndexLocked(personID uuid.UUID, k txKey) {
    keys := s.txKeysByPerson[personID]
    i := sort.Search(len(keys), func(i int) bool {
        if keys[i].At.After(k.At) {
            return true
        }
        if keys[i].At.Equal(k.At) {
            return keys[i].ID.String() > k.ID.String()
        }
        return false
    })
    if i == len(keys) {
        s.txKeysByPerson[personID] = append(keys, k)
        return
    }
    keys = append(keys, txKey{})
    copy(keys[i+1:], keys[i:])
    keys[i] = k
    s.txKeysByPerson[personID] = keys
}

// dropTxIndexLocked removes id from the per-person index. Caller must hold s.mu.
func (s *Store) dropTxIndexLocked(personID uuid.UUID, id uuid.UUID) {
    keys := s.txKeysByPerson[personID]
    for i, k := range keys {
        if k.ID == id {
            s.txKeysByPerson[personID] = append(keys[:i], keys[i+1:]...)
            return
        }
    }
}
