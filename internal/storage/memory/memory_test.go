package memory

import (
    "context"
    "errors"
    "sync"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
)

func seedStudent(s *Store) canteen.Person {
    p := canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Test", RefCode: "S-1"}
    s.SeedPerson(p)
    return p
}

func TestDeletePersonCascades(t *testing.T) {
    s := New()
    ctx := context.Background()
    p := seedStudent(s)

    tx := canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    p.ID,
        Type:        canteen.TxFood,
        Meal:        canteen.MealLunch,
        AmountMinor: canteen.PriceLunchMinor,
        At:          time.Now().UTC(),
    }
    if _, err := s.ApplyCharge(ctx, tx); err != nil {
        t.Fatalf("charge: %v", err)
    }
    if err := s.DeletePerson(ctx, p.ID); err != nil {
        t.Fatalf("delete: %v", err)
    }
    if _, err := s.GetTransaction(ctx, tx.ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("transaction survived cascade: %v", err)
    }
    meals, err := s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 0 {
        t.Fatalf("meals survived cascade: %v %v", meals, err)
    }
    if err := s.DeletePerson(ctx, p.ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("second delete: %v", err)
    }
}

func TestBillNumbersMonotonicUnderConcurrency(t *testing.T) {
    s := New()
    ctx := context.Background()

    const n = 100
    var wg sync.WaitGroup
    nos := make(chan int64, n)
    for i := 0; i < n; i++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            b, err := s.CreateBill(ctx, canteen.Bill{
                CustomerKind: canteen.CustomerGuest,
                GuestName:    "Walk-in",
                Meal:         canteen.MealDinner,
                AmountMinor:  canteen.PriceDinnerMinor,
                At:           time.Now().UTC(),
            })
            if err != nil {
                t.Errorf("create bill: %v", err)
                return
            }
            nos <- b.No
        }()
    }
    wg.Wait()
    close(nos)

    seen := make(map[int64]bool, n)
    for no := range nos {
        if seen[no] {
            t.Fatalf("duplicate bill number %d", no)
        }
        seen[no] = true
    }
    for i := int64(1); i <= n; i++ {
        if !seen[i] {
            t.Fatalf("bill number %d missing from sequence", i)
        }
    }
}

func TestTransactionsSortedAndRangeFiltered(t *testing.T) {
    s := New()
    ctx := context.Background()
    p := seedStudent(s)

    base := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
    // Insert out of order; reads must come back sorted by time.
    for _, offset := range []time.Duration{48 * time.Hour, 0, 24 * time.Hour} {
        tx := canteen.Transaction{
            ID:          uuid.New(),
            PersonID:    p.ID,
            Type:        canteen.TxFood,
            Meal:        canteen.MealBreakfast,
            AmountMinor: canteen.PriceBreakfastMinor,
            At:          base.Add(offset),
        }
        if _, err := s.ApplyCharge(ctx, tx); err != nil {
            t.Fatalf("charge: %v", err)
        }
    }

    all, err := s.TransactionsByPerson(ctx, p.ID, nil, nil)
    if err != nil {
        t.Fatalf("list: %v", err)
    }
    if len(all) != 3 {
        t.Fatalf("got %d transactions", len(all))
    }
    for i := 1; i < len(all); i++ {
        if all[i].At.Before(all[i-1].At) {
            t.Fatalf("transactions out of order at %d", i)
        }
    }

    from := base.Add(12 * time.Hour)
    to := base.Add(36 * time.Hour)
    window, err := s.TransactionsByPerson(ctx, p.ID, &from, &to)
    if err != nil {
        t.Fatalf("ranged list: %v", err)
    }
    if len(window) != 1 || !window[0].At.Equal(base.Add(24*time.Hour)) {
        t.Fatalf("range filter wrong: %+v", window)
    }
}

func TestRemoveTransactionClearsFlagWhenAsked(t *testing.T) {
    s := New()
    ctx := context.Background()
    p := seedStudent(s)

    at := time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)
    tx := canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    p.ID,
        Type:        canteen.TxFood,
        Meal:        canteen.MealLunch,
        AmountMinor: canteen.PriceLunchMinor,
        At:          at,
    }
    if _, err := s.ApplyCharge(ctx, tx); err != nil {
        t.Fatalf("charge: %v", err)
    }
    if err := s.RemoveTransaction(ctx, tx, true); err != nil {
        t.Fatalf("remove: %v", err)
    }

    got, err := s.GetPerson(ctx, p.ID)
    if err != nil {
        t.Fatalf("get person: %v", err)
    }
    if got.RemainingMinor != 0 || got.LunchCount != 0 {
        t.Fatalf("balance not reversed: %+v", got)
    }
    meals, err := s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 0 {
        t.Fatalf("flag should be gone: %v %v", meals, err)
    }
}

func TestFailNextSurfacesUnavailable(t *testing.T) {
    s := New()
    ctx := context.Background()
    p := seedStudent(s)

    s.FailNext(1)
    _, err := s.ApplyPayment(ctx, canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    p.ID,
        Type:        canteen.TxPayment,
        AmountMinor: 2000,
        At:          time.Now().UTC(),
    })
    if !errors.Is(err, errs.ErrStoreUnavailable) {
        t.Fatalf("got %v, want ErrStoreUnavailable", err)
    }
    if _, err := s.ApplyPayment(ctx, canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    p.ID,
        Type:        canteen.TxPayment,
        AmountMinor: 2000,
        At:          time.Now().UTC(),
    }); err != nil {
        t.Fatalf("second attempt should succeed: %v", err)
    }
}
