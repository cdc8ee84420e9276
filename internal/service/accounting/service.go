package accounting

// Package accounting is the balance engine. Every balance mutation in the
// system funnels through it: charges, payments, reversals and resets. It
// serializes mutations per person so concurrent counters can never interleave
// a read-modify-write, and retries transient store failures a bounded number
// of times.

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
)

// Store defines the storage operations the engine requires. The composite
// writes (ApplyCharge, ApplyPayment, RemoveTransaction, ResetPerson) must be
// atomic: either every row they touch moves or none does.
type Store interface {
    GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error)
    GetTransaction(ctx context.Context, id uuid.UUID) (canteen.Transaction, error)
    TransactionsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.Transaction, error)
    ApplyCharge(ctx context.Context, t canteen.Transaction) (canteen.Person, error)
    ApplyPayment(ctx context.Context, t canteen.Transaction) (canteen.Person, error)
    RemoveTransaction(ctx context.Context, t canteen.Transaction, clearMeal bool) error
    ClearMealFlag(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) error
    ResetPerson(ctx context.Context, personID uuid.UUID) error
}

// ChargeRequest describes one meal charge against a registered person.
type ChargeRequest struct {
    PersonID uuid.UUID
    Meal     canteen.MealType
    // AmountMinor must be positive; callers price the meal before charging.
    AmountMinor int64
    // At defaults to now. The meal flag is recorded against Day(At).
    At      time.Time
    Mode    canteen.PaymentMode
    BillNo  *int64
    Remarks string
}

// PaymentRequest describes money received against a person's balance.
type PaymentRequest struct {
    PersonID    uuid.UUID
    AmountMinor int64
    Mode        canteen.PaymentMode
    Remarks     string
}

// Service exposes the balance mutations. Reads go through the reporting
// service instead.
type Service interface {
    Charge(ctx context.Context, req ChargeRequest) (canteen.Person, canteen.Transaction, error)
    Pay(ctx context.Context, req PaymentRequest) (canteen.Person, canteen.Transaction, error)
    // ReverseTransaction undoes one ledger entry: balance effect, meal
    // counter, and the day's meal flag when no other charge backs it.
    ReverseTransaction(ctx context.Context, txID uuid.UUID) (canteen.Transaction, error)
    // ReverseMeal reverses the most recent charge for (person, day, meal).
    // When only a stray flag exists it clears the flag without balance effect.
    ReverseMeal(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) (*canteen.Transaction, error)
    // ResetHistory wipes a person's transactions and meals and zeroes their
    // balances. Resetting an already-clean person is a no-op.
    ResetHistory(ctx context.Context, personID uuid.UUID) error
}

type service struct {
    store Store

    mu    sync.Mutex
    locks map[uuid.UUID]*personLock
}

type personLock struct {
    mu   sync.Mutex
    refs int
}

// New wires the engine to a store.
func New(store Store) Service {
    return &service{store: store, locks: make(map[uuid.UUID]*personLock)}
}

const (
    retryAttempts = 3
    retryBackoff  = 50 * time.Millisecond
)

// lock serializes all mutations for one person. Locks are reference counted
// so the map does not grow with the roster.
func (s *service) lock(id uuid.UUID) func() {
    s.mu.Lock()
    l := s.locks[id]
    if l == nil {
        l = &personLock{}
        s.locks[id] = l
    }
    l.refs++
    s.mu.Unlock()

    l.mu.Lock()
    return func() {
        l.mu.Unlock()
        s.mu.Lock()
        l.refs--
        if l.refs == 0 {
            delete(s.locks, id)
        }
        s.mu.Unlock()
    }
}

// withRetry reruns fn on ErrStoreUnavailable with linear backoff. Any other
// error, or exhaustion, surfaces to the caller.
func withRetry(ctx context.Context, fn func() error) error {
    var err error
    for attempt := 1; attempt <= retryAttempts; attempt++ {
        err = fn()
        if !errors.Is(err, errs.ErrStoreUnavailable) {
            return err
        }
        if attempt == retryAttempts {
            break
        }
        select {
        case <-ctx.Done():
            return ctx.Err()
        case <-time.After(retryBackoff * time.Duration(attempt)):
        }
    }
    return err
}

func (s *service) Charge(ctx context.Context, req ChargeRequest) (canteen.Person, canteen.Transaction, error) {
    if req.AmountMinor <= 0 {
        return canteen.Person{}, canteen.Transaction{}, errs.ErrInvalidAmount
    }
    if !req.Meal.Valid() {
        return canteen.Person{}, canteen.Transaction{}, errs.ErrInvalid
    }
    at := req.At
    if at.IsZero() {
        at = time.Now().UTC()
    }
    mode := req.Mode
    if mode == "" {
        mode = canteen.ModeAccount
    }
    t := canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    req.PersonID,
        Type:        canteen.TxFood,
        AmountMinor: req.AmountMinor,
        At:          at,
        Mode:        mode,
        Meal:        req.Meal,
        BillNo:      req.BillNo,
        Remarks:     req.Remarks,
    }

    unlock := s.lock(req.PersonID)
    defer unlock()

    var p canteen.Person
    err := withRetry(ctx, func() error {
        var err error
        p, err = s.store.ApplyCharge(ctx, t)
        return err
    })
    if err != nil {
        return canteen.Person{}, canteen.Transaction{}, err
    }
    return p, t, nil
}

func (s *service) Pay(ctx context.Context, req PaymentRequest) (canteen.Person, canteen.Transaction, error) {
    if req.AmountMinor <= 0 {
        return canteen.Person{}, canteen.Transaction{}, errs.ErrInvalidAmount
    }
    mode := req.Mode
    if mode == "" {
        mode = canteen.ModeCash
    }
    if !mode.Valid() {
        return canteen.Person{}, canteen.Transaction{}, errs.ErrInvalid
    }
    t := canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    req.PersonID,
        Type:        canteen.TxPayment,
        AmountMinor: req.AmountMinor,
        At:          time.Now().UTC(),
        Mode:        mode,
        Remarks:     req.Remarks,
    }

    unlock := s.lock(req.PersonID)
    defer unlock()

    var p canteen.Person
    err := withRetry(ctx, func() error {
        var err error
        p, err = s.store.ApplyPayment(ctx, t)
        return err
    })
    if err != nil {
        return canteen.Person{}, canteen.Transaction{}, err
    }
    return p, t, nil
}

func (s *service) ReverseTransaction(ctx context.Context, txID uuid.UUID) (canteen.Transaction, error) {
    t, err := s.store.GetTransaction(ctx, txID)
    if err != nil {
        return canteen.Transaction{}, err
    }

    unlock := s.lock(t.PersonID)
    defer unlock()

    // Re-read under the lock; a concurrent reversal may have removed it.
    t, err = s.store.GetTransaction(ctx, txID)
    if err != nil {
        return canteen.Transaction{}, err
    }

    clearMeal := false
    if t.Type == canteen.TxFood {
        clearMeal, err = s.flagOrphanedAfter(ctx, t)
        if err != nil {
            return canteen.Transaction{}, err
        }
    }
    err = withRetry(ctx, func() error {
        return s.store.RemoveTransaction(ctx, t, clearMeal)
    })
    if err != nil {
        return canteen.Transaction{}, err
    }
    return t, nil
}

func (s *service) ReverseMeal(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) (*canteen.Transaction, error) {
    if !meal.Valid() {
        return nil, errs.ErrInvalid
    }
    unlock := s.lock(personID)
    defer unlock()

    t, ok, err := s.latestChargeFor(ctx, personID, date, meal)
    if err != nil {
        return nil, err
    }
    if !ok {
        // Flag with no backing transaction: clear the flag alone so the day
        // stops reporting a meal that has no ledger entry.
        err := withRetry(ctx, func() error {
            return s.store.ClearMealFlag(ctx, personID, date, meal)
        })
        return nil, err
    }

    clearMeal, err := s.flagOrphanedAfter(ctx, t)
    if err != nil {
        return nil, err
    }
    err = withRetry(ctx, func() error {
        return s.store.RemoveTransaction(ctx, t, clearMeal)
    })
    if err != nil {
        return nil, err
    }
    return &t, nil
}

func (s *service) ResetHistory(ctx context.Context, personID uuid.UUID) error {
    unlock := s.lock(personID)
    defer unlock()
    return withRetry(ctx, func() error {
        return s.store.ResetPerson(ctx, personID)
    })
}

// flagOrphanedAfter reports whether removing t leaves the day's meal flag
// without any backing charge. Caller must hold the person lock.
func (s *service) flagOrphanedAfter(ctx context.Context, t canteen.Transaction) (bool, error) {
    day := canteen.Day(t.At)
    next := day.Add(24 * time.Hour)
    txs, err := s.store.TransactionsByPerson(ctx, t.PersonID, &day, &next)
    if err != nil {
        return false, err
    }
    for _, other := range txs {
        if other.ID == t.ID || other.Type != canteen.TxFood {
            continue
        }
        if other.Meal == t.Meal && canteen.Day(other.At).Equal(day) {
            return false, nil
        }
    }
    return true, nil
}

// latestChargeFor finds the most recent food transaction for the slot.
// Caller must hold the person lock.
func (s *service) latestChargeFor(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) (canteen.Transaction, bool, error) {
    day := canteen.Day(date)
    next := day.Add(24 * time.Hour)
    txs, err := s.store.TransactionsByPerson(ctx, personID, &day, &next)
    if err != nil {
        return canteen.Transaction{}, false, err
    }
    // Transactions come back ordered asc; walk backwards for the newest.
    for i := len(txs) - 1; i >= 0; i-- {
        t := txs[i]
        if t.Type == canteen.TxFood && t.Meal == meal && canteen.Day(t.At).Equal(day) {
            return t, true, nil
        }
    }
    return canteen.Transaction{}, false, nil
}
