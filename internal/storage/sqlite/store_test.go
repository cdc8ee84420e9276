package sqlite

import (
    "context"
    "errors"
    "path/filepath"
    "testing"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/meta"
)

func newTestStore(t *testing.T) *Store {
    t.Helper()
    s, err := New(filepath.Join(t.TempDir(), "canteen.db"))
    if err != nil {
        t.Fatalf("open store: %v", err)
    }
    t.Cleanup(func() { s.Close() })
    return s
}

func createStudent(t *testing.T, s *Store, refCode string) canteen.Person {
    t.Helper()
    p, err := s.CreatePerson(context.Background(), canteen.Person{
        ID:      uuid.New(),
        Kind:    canteen.KindStudent,
        Name:    "Test Student",
        RefCode: refCode,
        Dept:    "mechanical",
    })
    if err != nil {
        t.Fatalf("create person: %v", err)
    }
    return p
}

func TestPersonRoundTrip(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()

    in := canteen.Person{
        ID:       uuid.New(),
        Kind:     canteen.KindStaff,
        Name:     "Asha",
        RefCode:  "E-77",
        Dept:     "physics",
        Phone:    "9000000001",
        Metadata: meta.Metadata{"room": "B-12"},
    }
    if _, err := s.CreatePerson(ctx, in); err != nil {
        t.Fatalf("create: %v", err)
    }

    got, err := s.GetPerson(ctx, in.ID)
    if err != nil {
        t.Fatalf("get: %v", err)
    }
    if got.Name != in.Name || got.RefCode != in.RefCode || got.Dept != in.Dept || got.Phone != in.Phone {
        t.Fatalf("round trip mismatch: %+v", got)
    }
    if got.Metadata["room"] != "B-12" {
        t.Fatalf("metadata lost: %v", got.Metadata)
    }

    byCode, err := s.GetPersonByRefCode(ctx, "e-77")
    if err != nil || byCode.ID != in.ID {
        t.Fatalf("ref code lookup should be case-insensitive: %v %v", byCode.ID, err)
    }

    if _, err := s.CreatePerson(ctx, canteen.Person{ID: uuid.New(), Kind: canteen.KindStaff, Name: "Dup", RefCode: "E-77"}); !errors.Is(err, errs.ErrDuplicateKey) {
        t.Fatalf("duplicate ref code: got %v", err)
    }
}

func TestChargeAndRemoveTransaction(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()
    p := createStudent(t, s, "S-1")

    at := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
    no := int64(41)
    tx := canteen.Transaction{
        ID:          uuid.New(),
        PersonID:    p.ID,
        Type:        canteen.TxFood,
        AmountMinor: canteen.PriceBreakfastMinor,
        At:          at,
        Mode:        canteen.ModeAccount,
        Meal:        canteen.MealBreakfast,
        BillNo:      &no,
    }
    after, err := s.ApplyCharge(ctx, tx)
    if err != nil {
        t.Fatalf("charge: %v", err)
    }
    if after.RemainingMinor != canteen.PriceBreakfastMinor || after.BreakfastCount != 1 {
        t.Fatalf("charge not applied: %+v", after)
    }

    meals, err := s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 1 || !meals[0].Breakfast {
        t.Fatalf("meal flag not set: %v %v", meals, err)
    }
    if !meals[0].Date.Equal(canteen.Day(at)) {
        t.Fatalf("meal date = %v, want %v", meals[0].Date, canteen.Day(at))
    }

    got, err := s.GetTransaction(ctx, tx.ID)
    if err != nil {
        t.Fatalf("get tx: %v", err)
    }
    if got.BillNo == nil || *got.BillNo != no {
        t.Fatalf("bill link lost: %v", got.BillNo)
    }
    if !got.At.Equal(at) {
        t.Fatalf("at = %v, want %v", got.At, at)
    }

    if err := s.RemoveTransaction(ctx, got, true); err != nil {
        t.Fatalf("remove: %v", err)
    }
    after, err = s.GetPerson(ctx, p.ID)
    if err != nil {
        t.Fatalf("get person: %v", err)
    }
    if after.RemainingMinor != 0 || after.BreakfastCount != 0 {
        t.Fatalf("remove did not reverse: %+v", after)
    }
    meals, err = s.MealsByPerson(ctx, p.ID, nil, nil)
    if err != nil || len(meals) != 0 {
        t.Fatalf("empty meal record should be dropped: %v %v", meals, err)
    }
    if err := s.RemoveTransaction(ctx, got, true); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("second remove: %v", err)
    }
}

func TestPaymentMovesBalanceFields(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()
    p := createStudent(t, s, "S-2")

    if _, err := s.ApplyCharge(ctx, canteen.Transaction{
        ID: uuid.New(), PersonID: p.ID, Type: canteen.TxFood,
        AmountMinor: canteen.PriceLunchMinor, At: time.Now().UTC(),
        Mode: canteen.ModeAccount, Meal: canteen.MealLunch,
    }); err != nil {
        t.Fatalf("charge: %v", err)
    }
    after, err := s.ApplyPayment(ctx, canteen.Transaction{
        ID: uuid.New(), PersonID: p.ID, Type: canteen.TxPayment,
        AmountMinor: canteen.PriceLunchMinor, At: time.Now().UTC(),
        Mode: canteen.ModeCash,
    })
    if err != nil {
        t.Fatalf("payment: %v", err)
    }
    if after.RemainingMinor != 0 || after.AmountPaidMinor != canteen.PriceLunchMinor {
        t.Fatalf("payment not applied: %+v", after)
    }
    if after.PaymentStatus() != canteen.StatusPaid {
        t.Fatalf("status = %s", after.PaymentStatus())
    }
}

func TestBillNumbersIncrement(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()
    p := createStudent(t, s, "S-3")

    first, err := s.CreateBill(ctx, canteen.Bill{
        At:           time.Now().UTC(),
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meal:         canteen.MealBreakfast,
        AmountMinor:  canteen.PriceBreakfastMinor,
        Mode:         canteen.ModeAccount,
    })
    if err != nil {
        t.Fatalf("first bill: %v", err)
    }
    second, err := s.CreateBill(ctx, canteen.Bill{
        At:           time.Now().UTC(),
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk-in",
        Meal:         canteen.MealDinner,
        AmountMinor:  canteen.PriceDinnerMinor,
        Mode:         canteen.ModeCash,
    })
    if err != nil {
        t.Fatalf("second bill: %v", err)
    }
    if second.No <= first.No {
        t.Fatalf("bill numbers must increase: %d then %d", first.No, second.No)
    }

    got, err := s.GetBill(ctx, second.No)
    if err != nil {
        t.Fatalf("get bill: %v", err)
    }
    if got.CustomerKind != canteen.CustomerGuest || got.GuestName != "Walk-in" || got.PersonID != nil {
        t.Fatalf("guest bill round trip: %+v", got)
    }

    all, err := s.BillsInRange(ctx, nil, nil)
    if err != nil || len(all) != 2 {
        t.Fatalf("bills in range: %v %v", all, err)
    }

    if err := s.DeleteBill(ctx, second.No); err != nil {
        t.Fatalf("delete bill: %v", err)
    }
    if _, err := s.GetBill(ctx, second.No); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("deleted bill still readable: %v", err)
    }
    if err := s.DeleteBill(ctx, second.No); !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("second delete: got %v, want ErrNotFound", err)
    }
}

func TestDeletePersonCascades(t *testing.T) {
    s := newTestStore(t)
    ctx := context.Background()
    p := createStudent(t, s, "S-4")

    tx := canteen.Transaction{
        ID: uuid.New(), PersonID: p.ID, Type: canteen.TxFood,
        AmountMinor: canteen.PriceDinnerMinor, At: time.Now().UTC(),
        Mode: canteen.ModeAccount, Meal: canteen.MealDinner,
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
}
