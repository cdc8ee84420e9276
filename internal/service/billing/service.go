package billing

// Package billing turns counter sales into bills. A registered sale issues a
// bill and charges the person's account through the accounting engine; a
// guest sale issues a bill only. Multi-meal requests decompose into one bill
// per meal so each receipt keeps its own number.

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
    "github.com/gatepos/canteen/internal/service/accounting"
)

// Repo defines the reads the billing service needs.
type Repo interface {
    GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error)
    GetOperator(ctx context.Context, id uuid.UUID) (canteen.Operator, error)
    GetBill(ctx context.Context, no int64) (canteen.Bill, error)
}

// Writer defines the writes the billing service needs. DeleteBill backs out
// a bill whose charge could not be committed.
type Writer interface {
    CreateBill(ctx context.Context, b canteen.Bill) (canteen.Bill, error)
    DeleteBill(ctx context.Context, no int64) error
}

// Notifier is told about every issued bill after it is committed. Failures
// must not undo the bill; they surface as a warning on the line result.
type Notifier interface {
    BillIssued(ctx context.Context, b canteen.Bill, customer string) error
}

// IssueRequest is one sale at the counter: a customer plus one or more meals.
type IssueRequest struct {
    CustomerKind canteen.CustomerKind
    // PersonID is required for registered sales.
    PersonID *uuid.UUID
    // GuestName is required for guest sales.
    GuestName  string
    OperatorID *uuid.UUID
    // Mode applies to guest sales (cash or upi). Registered sales always
    // charge the account.
    Mode  canteen.PaymentMode
    Meals []canteen.MealType
    // AmountMinor is the counter-entered price per line. Zero bills every
    // line at the published price table.
    AmountMinor int64
    // At defaults to now.
    At time.Time
}

// LineResult reports the outcome of one meal line. Exactly one of Bill or
// Err is meaningful; Warning carries non-fatal printer trouble.
type LineResult struct {
    Meal    canteen.MealType
    Bill    canteen.Bill
    Warning string
    Err     error
}

// IssueResult is the whole sale's outcome. Person is the post-charge balance
// snapshot for registered sales, nil for guests.
type IssueResult struct {
    Lines  []LineResult
    Person *canteen.Person
}

// Service issues bills.
type Service interface {
    // IssueBills processes each meal line independently: a failed line does
    // not undo lines already committed.
    IssueBills(ctx context.Context, req IssueRequest) (IssueResult, error)
    // IssueBill is the single-line convenience wrapper.
    IssueBill(ctx context.Context, req IssueRequest, meal canteen.MealType) (LineResult, *canteen.Person, error)
    // Lookup resolves a bill and its display name for receipt rendering.
    Lookup(ctx context.Context, no int64) (canteen.Bill, string, error)
}

type service struct {
    repo     Repo
    writer   Writer
    engine   accounting.Service
    notifier Notifier
}

// New wires the billing service. notifier may be nil.
func New(repo Repo, writer Writer, engine accounting.Service, notifier Notifier) Service {
    return &service{repo: repo, writer: writer, engine: engine, notifier: notifier}
}

// validate checks the request shape before any line is committed.
func (s *service) validate(ctx context.Context, req IssueRequest) (canteen.Person, error) {
    if len(req.Meals) == 0 {
        return canteen.Person{}, errs.ErrInvalid
    }
    for _, m := range req.Meals {
        if !m.Valid() {
            return canteen.Person{}, errs.ErrInvalid
        }
    }
    if req.AmountMinor < 0 {
        return canteen.Person{}, errs.ErrInvalidAmount
    }
    switch req.CustomerKind {
    case canteen.CustomerRegistered:
        if req.PersonID == nil {
            return canteen.Person{}, errs.ErrInvalid
        }
        return s.repo.GetPerson(ctx, *req.PersonID)
    case canteen.CustomerGuest:
        if req.GuestName == "" {
            return canteen.Person{}, errs.ErrInvalid
        }
        // Guests settle immediately; there is no account to charge.
        if req.Mode == canteen.ModeAccount {
            return canteen.Person{}, errs.ErrGuestNoBalance
        }
        if req.Mode != "" && !req.Mode.Valid() {
            return canteen.Person{}, errs.ErrInvalid
        }
        return canteen.Person{}, nil
    default:
        return canteen.Person{}, errs.ErrInvalid
    }
}

func (s *service) IssueBills(ctx context.Context, req IssueRequest) (IssueResult, error) {
    person, err := s.validate(ctx, req)
    if err != nil {
        return IssueResult{}, err
    }
    if req.OperatorID != nil {
        if _, err := s.repo.GetOperator(ctx, *req.OperatorID); err != nil {
            return IssueResult{}, err
        }
    }
    at := req.At
    if at.IsZero() {
        at = time.Now().UTC()
    }

    res := IssueResult{Lines: make([]LineResult, 0, len(req.Meals))}
    for _, meal := range req.Meals {
        line := s.issueLine(ctx, req, meal, at, &person)
        res.Lines = append(res.Lines, line)
    }
    if req.CustomerKind == canteen.CustomerRegistered {
        res.Person = &person
    }
    return res, nil
}

func (s *service) IssueBill(ctx context.Context, req IssueRequest, meal canteen.MealType) (LineResult, *canteen.Person, error) {
    req.Meals = []canteen.MealType{meal}
    res, err := s.IssueBills(ctx, req)
    if err != nil {
        return LineResult{}, nil, err
    }
    return res.Lines[0], res.Person, nil
}

// issueLine commits one bill and, for registered sales, the matching charge.
// person is updated in place with the post-charge snapshot.
func (s *service) issueLine(ctx context.Context, req IssueRequest, meal canteen.MealType, at time.Time, person *canteen.Person) LineResult {
    amount := req.AmountMinor
    if amount == 0 {
        amount = canteen.PriceMinor(meal)
    }
    mode := req.Mode
    customer := req.GuestName
    if req.CustomerKind == canteen.CustomerRegistered {
        mode = canteen.ModeAccount
        customer = person.Name
    } else if mode == "" {
        mode = canteen.ModeCash
    }

    bill := canteen.Bill{
        At:           at,
        CustomerKind: req.CustomerKind,
        PersonID:     req.PersonID,
        GuestName:    req.GuestName,
        OperatorID:   req.OperatorID,
        Meal:         meal,
        AmountMinor:  amount,
        Mode:         mode,
    }
    bill, err := s.writer.CreateBill(ctx, bill)
    if err != nil {
        return LineResult{Meal: meal, Err: err}
    }

    if req.CustomerKind == canteen.CustomerRegistered {
        p, _, err := s.engine.Charge(ctx, accounting.ChargeRequest{
            PersonID:    *req.PersonID,
            Meal:        meal,
            AmountMinor: amount,
            At:          at,
            BillNo:      &bill.No,
        })
        if err != nil {
            // The bill must not outlive its charge; reports aggregate bills,
            // so an uncharged bill would count revenue never collected.
            _ = s.writer.DeleteBill(ctx, bill.No)
            return LineResult{Meal: meal, Err: err}
        }
        *person = p
    }

    line := LineResult{Meal: meal, Bill: bill}
    if s.notifier != nil {
        if err := s.notifier.BillIssued(ctx, bill, customer); err != nil {
            line.Warning = "receipt not printed: " + err.Error()
        }
    }
    return line
}

func (s *service) Lookup(ctx context.Context, no int64) (canteen.Bill, string, error) {
    b, err := s.repo.GetBill(ctx, no)
    if err != nil {
        return canteen.Bill{}, "", err
    }
    name := b.GuestName
    if b.PersonID != nil {
        if p, err := s.repo.GetPerson(ctx, *b.PersonID); err == nil {
            name = p.Name
        }
    }
    return b, name, nil
}
