package postgres

import (
    "context"
    "errors"
    "os"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
)

func getTestDSN(t *testing.T) string {
    t.Helper()
    dsn := os.Getenv("TEST_DATABASE_URL")
    if dsn == "" {
        t.Skip("TEST_DATABASE_URL not set; skipping Postgres store tests")
    }
    return dsn
}

func mustOpen(t *testing.T, dsn string) *Store {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    s, err := Open(ctx, dsn)
    if err != nil {
        t.Fatalf("open: %v", err)
    }
    return s
}

func truncateAll(t *testing.T, s *Store) {
    t.Helper()
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()
    _, _ = s.pool.Exec(ctx, `truncate table bills, transactions, meal_records, operators, persons cascade`)
}

func TestStore_PersonsAndLedger(t *testing.T) {
    dsn := getTestDSN(t)
    s := mustOpen(t, dsn)
    defer s.Close()
    truncateAll(t, s)
    ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()

    if err := s.Ready(ctx); err != nil {
        t.Fatalf("ready: %v", err)
    }

    p, err := s.CreatePerson(ctx, canteen.Person{
        ID:      uuid.New(),
        Kind:    canteen.KindStudent,
        Name:    "Ravi",
        RefCode: "S-501",
        Dept:    "chemistry",
    })
    if err != nil {
        t.Fatalf("create person: %v", err)
    }
    if _, err := s.CreatePerson(ctx, canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Dup", RefCode: "s-501"}); !errors.Is(err, errs.ErrDuplicateKey) {
        t.Fatalf("duplicate ref code: got %v", err)
    }
    if _, err := s.GetPersonByRefCode(ctx, "S-501"); err != nil {
        t.Fatalf("get by ref code: %v", err)
    }

    // Charge, then pay it back
    at := time.Now().UTC().Truncate(time.Second)
    charge := canteen.Transaction{
        ID: uuid.New(), PersonID: p.ID, Type: canteen.TxFood,
        AmountMinor: canteen.PriceLunchMinor, At: at,
        Mode: canteen.ModeAccount, Meal: canteen.MealLunch,
    }
    after, err := s.ApplyCharge(ctx, charge)
    if err != nil {
        t.Fatalf("charge: %v", err)
    }
    if after.RemainingMinor != canteen.PriceLunchMinor || after.LunchCount != 1 {
        t.Fatalf("charge not applied: %+v", after)
    }
    meals, err := s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 1 || !meals[0].Lunch {
        t.Fatalf("meal flag: %v %v", meals, err)
    }

    after, err = s.ApplyPayment(ctx, canteen.Transaction{
        ID: uuid.New(), PersonID: p.ID, Type: canteen.TxPayment,
        AmountMinor: canteen.PriceLunchMinor, At: at.Add(time.Minute),
        Mode: canteen.ModeCash,
    })
    if err != nil {
        t.Fatalf("payment: %v", err)
    }
    if after.RemainingMinor != 0 || after.AmountPaidMinor != canteen.PriceLunchMinor {
        t.Fatalf("payment not applied: %+v", after)
    }

    txs, err := s.TransactionsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(txs) != 2 {
        t.Fatalf("transactions: %v %v", txs, err)
    }

    // Reverse the charge and clear the flag
    if err := s.RemoveTransaction(ctx, charge, true); err != nil {
        t.Fatalf("remove: %v", err)
    }
    after, err = s.GetPerson(ctx, p.ID)
    if err != nil || after.LunchCount != 0 {
        t.Fatalf("remove did not reverse: %+v %v", after, err)
    }
    meals, err = s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 0 {
        t.Fatalf("flag should be cleared: %v %v", meals, err)
    }

    // Bills get sequence-assigned increasing numbers
    b1, err := s.CreateBill(ctx, canteen.Bill{
        At: at, CustomerKind: canteen.CustomerRegistered, PersonID: &p.ID,
        Meal: canteen.MealLunch, AmountMinor: canteen.PriceLunchMinor, Mode: canteen.ModeAccount,
    })
    if err != nil {
        t.Fatalf("bill 1: %v", err)
    }
    b2, err := s.CreateBill(ctx, canteen.Bill{
        At: at, CustomerKind: canteen.CustomerGuest, GuestName: "Walk-in",
        Meal: canteen.MealDinner, AmountMinor: canteen.PriceDinnerMinor, Mode: canteen.ModeCash,
    })
    if err != nil {
        t.Fatalf("bill 2: %v", err)
    }
    if b2.No <= b1.No {
        t.Fatalf("bill numbers must increase: %d then %d", b1.No, b2.No)
    }
    got, err := s.GetBill(ctx, b2.No)
    if err != nil || got.GuestName != "Walk-in" {
        t.Fatalf("get bill: %+v %v", got, err)
    }

    // Reset wipes history and zeroes balances
    if err := s.ResetPerson(ctx, p.ID); err != nil {
        t.Fatalf("reset: %v", err)
    }
    after, err = s.GetPerson(ctx, p.ID)
    if err != nil || after.RemainingMinor != 0 || after.AmountPaidMinor != 0 {
        t.Fatalf("reset: %+v %v", after, err)
    }
    txs, err = s.TransactionsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(txs) != 0 {
        t.Fatalf("history should be gone: %v %v", txs, err)
    }
}

func TestStore_Operators(t *testing.T) {
    dsn := getTestDSN(t)
    s := mustOpen(t, dsn)
    defer s.Close()
    truncateAll(t, s)
    ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
    defer cancel()

    o, err := s.CreateOperator(ctx, canteen.Operator{
        ID: uuid.New(), Username: "counter1", PasswordHash: "x", CreatedAt: time.Now().UTC(),
    })
    if err != nil {
        t.Fatalf("create: %v", err)
    }
    if _, err := s.CreateOperator(ctx, canteen.Operator{
        ID: uuid.New(), Username: "Counter1", PasswordHash: "y", CreatedAt: time.Now().UTC(),
    }); !errors.Is(err, errs.ErrDuplicateKey) {
        t.Fatalf("duplicate username: got %v", err)
    }
    got, err := s.GetOperatorByUsername(ctx, "COUNTER1")
    if err != nil || got.ID != o.ID {
        t.Fatalf("lookup should be case-insensitive: %v %v", got.ID, err)
    }
    if err := s.DeleteOperator(ctx, o.ID); err != nil {
        t.Fatalf("delete: %v", err)
    }
    if _, err := s.GetOperator(ctx, o.ID); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("deleted operator: %v", err)
    }
}
