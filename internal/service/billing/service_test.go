package billing

import (
    "context"
    "errors"
    "testing"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/service/accounting"
    "github.com/gatepos/canteen/internal/storage/memory"
)

type failingNotifier struct{ calls int }

func (n *failingNotifier) BillIssued(_ context.Context, _ canteen.Bill, _ string) error {
    n.calls++
    return errors.New("printer offline")
}

func setup(t *testing.T) (*memory.Store, Service, canteen.Person) {
    t.Helper()
    store := memory.New()
    p := canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Ravi", RefCode: "S-7"}
    store.SeedPerson(p)
    svc := New(store, store, accounting.New(store), nil)
    return store, svc, p
}

func TestRegisteredMultiMealDecomposes(t *testing.T) {
    store, svc, p := setup(t)
    ctx := context.Background()

    res, err := svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meals:        []canteen.MealType{canteen.MealBreakfast, canteen.MealLunch},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if len(res.Lines) != 2 {
        t.Fatalf("lines = %d, want 2", len(res.Lines))
    }
    for _, line := range res.Lines {
        if line.Err != nil {
            t.Fatalf("line %s failed: %v", line.Meal, line.Err)
        }
    }
    if res.Lines[0].Bill.No == res.Lines[1].Bill.No {
        t.Fatalf("bill numbers must differ, both %d", res.Lines[0].Bill.No)
    }
    if res.Lines[1].Bill.No <= res.Lines[0].Bill.No {
        t.Fatalf("bill numbers must increase: %d then %d", res.Lines[0].Bill.No, res.Lines[1].Bill.No)
    }
    if res.Lines[0].Bill.AmountMinor != canteen.PriceBreakfastMinor {
        t.Fatalf("breakfast billed %d", res.Lines[0].Bill.AmountMinor)
    }
    if res.Lines[1].Bill.AmountMinor != canteen.PriceLunchMinor {
        t.Fatalf("lunch billed %d", res.Lines[1].Bill.AmountMinor)
    }
    want := canteen.PriceBreakfastMinor + canteen.PriceLunchMinor
    if res.Person == nil || res.Person.RemainingMinor != want {
        t.Fatalf("person snapshot remaining = %v, want %d", res.Person, want)
    }

    txs, _ := store.TransactionsByPerson(ctx, p.ID, nil, nil)
    if len(txs) != 2 {
        t.Fatalf("transactions = %d, want 2", len(txs))
    }
    for _, tx := range txs {
        if tx.BillNo == nil {
            t.Fatalf("transaction %s missing bill link", tx.ID)
        }
    }
}

func TestGuestBillHasNoBalanceEffect(t *testing.T) {
    store, svc, p := setup(t)
    ctx := context.Background()

    res, err := svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk In",
        Mode:         canteen.ModeCash,
        Meals:        []canteen.MealType{canteen.MealDinner},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if res.Person != nil {
        t.Fatal("guest result must not carry a person snapshot")
    }
    b := res.Lines[0].Bill
    if b.CustomerKind != canteen.CustomerGuest || b.GuestName != "Walk In" {
        t.Fatalf("unexpected bill: %+v", b)
    }

    // No transaction and no balance movement anywhere.
    txs, _ := store.TransactionsByPerson(ctx, p.ID, nil, nil)
    if len(txs) != 0 {
        t.Fatalf("guest bill created transactions: %d", len(txs))
    }
}

func TestManualAmountOverridesPrice(t *testing.T) {
    store, svc, p := setup(t)
    ctx := context.Background()

    // Walk-in sale at a counter-entered amount, not the published price.
    res, err := svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk In",
        Mode:         canteen.ModeCash,
        Meals:        []canteen.MealType{canteen.MealDinner},
        AmountMinor:  5000,
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if got := res.Lines[0].Bill.AmountMinor; got != 5000 {
        t.Fatalf("guest billed %d, want 5000", got)
    }

    // Registered sales charge the entered amount against the account.
    res, err = svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meals:        []canteen.MealType{canteen.MealLunch},
        AmountMinor:  3500,
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if got := res.Lines[0].Bill.AmountMinor; got != 3500 {
        t.Fatalf("registered billed %d, want 3500", got)
    }
    if res.Person == nil || res.Person.RemainingMinor != 3500 {
        t.Fatalf("remaining = %+v, want 3500", res.Person)
    }
    txs, _ := store.TransactionsByPerson(ctx, p.ID, nil, nil)
    if len(txs) != 1 || txs[0].AmountMinor != 3500 {
        t.Fatalf("charge transactions: %+v", txs)
    }

    // Zero means the price table; negative is rejected up front.
    res, err = svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk In",
        Meals:        []canteen.MealType{canteen.MealBreakfast},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if got := res.Lines[0].Bill.AmountMinor; got != canteen.PriceBreakfastMinor {
        t.Fatalf("defaulted amount = %d, want %d", got, canteen.PriceBreakfastMinor)
    }
    _, err = svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk In",
        Meals:        []canteen.MealType{canteen.MealBreakfast},
        AmountMinor:  -100,
    })
    if !errors.Is(err, errs.ErrInvalidAmount) {
        t.Fatalf("negative amount: got %v, want ErrInvalidAmount", err)
    }
}

func TestGuestOnAccountRejected(t *testing.T) {
    _, svc, _ := setup(t)
    _, err := svc.IssueBills(context.Background(), IssueRequest{
        CustomerKind: canteen.CustomerGuest,
        GuestName:    "Walk In",
        Mode:         canteen.ModeAccount,
        Meals:        []canteen.MealType{canteen.MealLunch},
    })
    if !errors.Is(err, errs.ErrGuestNoBalance) {
        t.Fatalf("got %v, want ErrGuestNoBalance", err)
    }
}

func TestValidationRejectsBadRequests(t *testing.T) {
    _, svc, p := setup(t)
    ctx := context.Background()

    cases := []IssueRequest{
        {CustomerKind: canteen.CustomerRegistered, PersonID: &p.ID},                                                        // no meals
        {CustomerKind: canteen.CustomerRegistered, Meals: []canteen.MealType{canteen.MealLunch}},                           // no person
        {CustomerKind: canteen.CustomerGuest, Meals: []canteen.MealType{canteen.MealLunch}},                                // no guest name
        {CustomerKind: "walkup", GuestName: "x", Meals: []canteen.MealType{canteen.MealLunch}},                             // bad kind
        {CustomerKind: canteen.CustomerRegistered, PersonID: &p.ID, Meals: []canteen.MealType{"brunch"}},                   // bad meal
    }
    for i, req := range cases {
        if _, err := svc.IssueBills(ctx, req); !errors.Is(err, errs.ErrInvalid) {
            t.Fatalf("case %d: got %v, want ErrInvalid", i, err)
        }
    }

    ghost := uuid.New()
    _, err := svc.IssueBills(ctx, IssueRequest{CustomerKind: canteen.CustomerRegistered, PersonID: &ghost, Meals: []canteen.MealType{canteen.MealLunch}})
    if !errors.Is(err, errs.ErrNotFound) {
        t.Fatalf("ghost person: got %v, want ErrNotFound", err)
    }
}

// flakyWriter fails CreateBill from the given call onwards.
type flakyWriter struct {
    Writer
    calls    int
    failFrom int
}

func (w *flakyWriter) CreateBill(ctx context.Context, b canteen.Bill) (canteen.Bill, error) {
    w.calls++
    if w.calls >= w.failFrom {
        return canteen.Bill{}, errs.ErrStoreUnavailable
    }
    return w.Writer.CreateBill(ctx, b)
}

func TestBatchPartialFailureKeepsCommittedLines(t *testing.T) {
    store := memory.New()
    p := canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Ravi", RefCode: "S-8"}
    store.SeedPerson(p)
    writer := &flakyWriter{Writer: store, failFrom: 2}
    svc := New(store, writer, accounting.New(store), nil)
    ctx := context.Background()

    res, err := svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meals:        []canteen.MealType{canteen.MealBreakfast, canteen.MealLunch},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if res.Lines[0].Err != nil {
        t.Fatalf("first line should commit: %v", res.Lines[0].Err)
    }
    if !errors.Is(res.Lines[1].Err, errs.ErrStoreUnavailable) {
        t.Fatalf("second line: got %v, want ErrStoreUnavailable", res.Lines[1].Err)
    }

    // The committed line's bill and charge stay in place.
    if _, err := store.GetBill(ctx, res.Lines[0].Bill.No); err != nil {
        t.Fatalf("committed bill lost: %v", err)
    }
    txs, _ := store.TransactionsByPerson(ctx, p.ID, nil, nil)
    if len(txs) != 1 {
        t.Fatalf("transactions = %d, want 1", len(txs))
    }
    got, _ := store.GetPerson(ctx, p.ID)
    if got.RemainingMinor != canteen.PriceBreakfastMinor {
        t.Fatalf("remaining = %d, want %d", got.RemainingMinor, canteen.PriceBreakfastMinor)
    }
}

// chargelessStore refuses every charge while passing other operations through.
type chargelessStore struct {
    *memory.Store
}

func (s *chargelessStore) ApplyCharge(_ context.Context, _ canteen.Transaction) (canteen.Person, error) {
    return canteen.Person{}, errs.ErrStoreUnavailable
}

func TestChargeFailureBacksOutBill(t *testing.T) {
    store := memory.New()
    p := canteen.Person{ID: uuid.New(), Kind: canteen.KindStudent, Name: "Ravi", RefCode: "S-9"}
    store.SeedPerson(p)
    svc := New(store, store, accounting.New(&chargelessStore{store}), nil)
    ctx := context.Background()

    res, err := svc.IssueBills(ctx, IssueRequest{
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meals:        []canteen.MealType{canteen.MealDinner},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    if !errors.Is(res.Lines[0].Err, errs.ErrStoreUnavailable) {
        t.Fatalf("line error = %v, want ErrStoreUnavailable", res.Lines[0].Err)
    }

    // No bill survives a failed charge, and the ledger is untouched.
    bills, _ := store.BillsInRange(ctx, nil, nil)
    if len(bills) != 0 {
        t.Fatalf("orphaned bills: %+v", bills)
    }
    txs, _ := store.TransactionsByPerson(ctx, p.ID, nil, nil)
    if len(txs) != 0 {
        t.Fatalf("transactions = %d, want 0", len(txs))
    }
    got, _ := store.GetPerson(ctx, p.ID)
    if got.RemainingMinor != 0 || got.DinnerCount != 0 {
        t.Fatalf("balance moved: %+v", got)
    }
}

func TestPrinterFailureIsAWarning(t *testing.T) {
    store := memory.New()
    p := canteen.Person{ID: uuid.New(), Kind: canteen.KindStaff, Name: "Meera", RefCode: "E-3"}
    store.SeedPerson(p)
    notifier := &failingNotifier{}
    svc := New(store, store, accounting.New(store), notifier)

    res, err := svc.IssueBills(context.Background(), IssueRequest{
        CustomerKind: canteen.CustomerRegistered,
        PersonID:     &p.ID,
        Meals:        []canteen.MealType{canteen.MealLunch},
    })
    if err != nil {
        t.Fatalf("issue: %v", err)
    }
    line := res.Lines[0]
    if line.Err != nil {
        t.Fatalf("printer failure must not fail the line: %v", line.Err)
    }
    if line.Warning == "" {
        t.Fatal("expected a warning on the line")
    }
    if notifier.calls != 1 {
        t.Fatalf("notifier calls = %d, want 1", notifier.calls)
    }
    // The bill and the charge are both committed.
    if _, err := store.GetBill(context.Background(), line.Bill.No); err != nil {
        t.Fatalf("bill not committed: %v", err)
    }
}
