package reporting

// Package reporting answers the read-side questions: statements per person,
// meal totals for the counter dashboard, and the monthly roll-up. All reads
// go straight to the store; nothing here mutates state.

import (
    "context"
    "sort"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/errs"
)

// Repo defines the reads the reporting service needs.
type Repo interface {
    GetPerson(ctx context.Context, id uuid.UUID) (canteen.Person, error)
    ListPersons(ctx context.Context, kind *canteen.PersonKind) ([]canteen.Person, error)
    TransactionsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.Transaction, error)
    MealsByPerson(ctx context.Context, personID uuid.UUID, from, to *time.Time) ([]canteen.MealRecord, error)
    BillsInRange(ctx context.Context, from, to *time.Time) ([]canteen.Bill, error)
}

// Filter selects a reporting period. An explicit Start/End range takes
// precedence over Month/Year; with neither set the filter is open.
type Filter struct {
    Month int
    Year  int
    Start *time.Time
    End   *time.Time
}

// Resolve turns the filter into inclusive [from,to] bounds. Start after End
// or a month outside 1..12 is ErrInvalidRange.
func (f Filter) Resolve(now time.Time) (from, to *time.Time, err error) {
    if f.Start != nil || f.End != nil {
        if f.Start != nil && f.End != nil && f.Start.After(*f.End) {
            return nil, nil, errs.ErrInvalidRange
        }
        return f.Start, f.End, nil
    }
    if f.Month != 0 {
        if f.Month < 1 || f.Month > 12 {
            return nil, nil, errs.ErrInvalidRange
        }
        year := f.Year
        if year == 0 {
            year = now.UTC().Year()
        }
        start := time.Date(year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
        end := start.AddDate(0, 1, 0).Add(-time.Nanosecond)
        return &start, &end, nil
    }
    if f.Year != 0 {
        start := time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
        end := start.AddDate(1, 0, 0).Add(-time.Nanosecond)
        return &start, &end, nil
    }
    return nil, nil, nil
}

// StatementSummary counts the period's meals from the day flags and prices
// them at the published table. EstimatedMinor can differ from FoodMinor when
// lines were billed at manually entered amounts.
type StatementSummary struct {
    Breakfast      int
    Lunch          int
    Dinner         int
    EstimatedMinor int64
}

// Statement is one person's activity over a period, alongside their current
// balance snapshot.
type Statement struct {
    Person       canteen.Person
    From, To     *time.Time
    Meals        []canteen.MealRecord
    Transactions []canteen.Transaction
    Summary      StatementSummary
    // FoodMinor and PaidMinor total the period's transactions by type.
    FoodMinor int64
    PaidMinor int64
}

// MealCounts totals served meals and takings over a period. The zero filter
// means today, which is what the counter dashboard shows.
type MealCounts struct {
    From, To     time.Time
    Breakfast    int
    Lunch        int
    Dinner       int
    Bills        int
    RevenueMinor int64
}

// MonthlyRow is one person's line in the roll-up.
type MonthlyRow struct {
    Person    canteen.Person
    MealsHad  int
    FoodMinor int64
    PaidMinor int64
}

// MonthlyReport is the per-person roll-up plus grand totals.
type MonthlyReport struct {
    From, To       *time.Time
    Rows           []MonthlyRow
    TotalFoodMinor int64
    TotalPaidMinor int64
}

// Service exposes the report reads.
type Service interface {
    // StudentStatement builds a statement for a student; a staff id is NotFound.
    StudentStatement(ctx context.Context, id uuid.UUID, f Filter) (Statement, error)
    // StaffStatement is the staff counterpart.
    StaffStatement(ctx context.Context, id uuid.UUID, f Filter) (Statement, error)
    // Meals totals served meals from issued bills, guests included.
    Meals(ctx context.Context, f Filter) (MealCounts, error)
    // Monthly rolls up every person's activity for the period, sorted by name.
    Monthly(ctx context.Context, kind *canteen.PersonKind, f Filter) (MonthlyReport, error)
}

type service struct {
    repo Repo
    now  func() time.Time
}

// New builds the reporting service.
func New(repo Repo) Service { return &service{repo: repo, now: time.Now} }

func (s *service) statement(ctx context.Context, id uuid.UUID, kind canteen.PersonKind, f Filter) (Statement, error) {
    from, to, err := f.Resolve(s.now())
    if err != nil {
        return Statement{}, err
    }
    p, err := s.repo.GetPerson(ctx, id)
    if err != nil {
        return Statement{}, err
    }
    if p.Kind != kind {
        return Statement{}, errs.ErrNotFound
    }
    txs, err := s.repo.TransactionsByPerson(ctx, id, from, to)
    if err != nil {
        return Statement{}, err
    }
    meals, err := s.repo.MealsByPerson(ctx, id, from, to)
    if err != nil {
        return Statement{}, err
    }
    st := Statement{Person: p, From: from, To: to, Meals: meals, Transactions: txs}
    for _, t := range txs {
        switch t.Type {
        case canteen.TxFood:
            st.FoodMinor += t.AmountMinor
        case canteen.TxPayment:
            st.PaidMinor += t.AmountMinor
        }
    }
    for _, m := range meals {
        if m.Breakfast {
            st.Summary.Breakfast++
        }
        if m.Lunch {
            st.Summary.Lunch++
        }
        if m.Dinner {
            st.Summary.Dinner++
        }
    }
    st.Summary.EstimatedMinor = int64(st.Summary.Breakfast)*canteen.PriceMinor(canteen.MealBreakfast) +
        int64(st.Summary.Lunch)*canteen.PriceMinor(canteen.MealLunch) +
        int64(st.Summary.Dinner)*canteen.PriceMinor(canteen.MealDinner)
    return st, nil
}

func (s *service) StudentStatement(ctx context.Context, id uuid.UUID, f Filter) (Statement, error) {
    return s.statement(ctx, id, canteen.KindStudent, f)
}

func (s *service) StaffStatement(ctx context.Context, id uuid.UUID, f Filter) (Statement, error) {
    return s.statement(ctx, id, canteen.KindStaff, f)
}

func (s *service) Meals(ctx context.Context, f Filter) (MealCounts, error) {
    from, to, err := f.Resolve(s.now())
    if err != nil {
        return MealCounts{}, err
    }
    if from == nil && to == nil {
        day := canteen.Day(s.now())
        end := day.Add(24*time.Hour - time.Nanosecond)
        from, to = &day, &end
    }
    bills, err := s.repo.BillsInRange(ctx, from, to)
    if err != nil {
        return MealCounts{}, err
    }
    mc := MealCounts{Bills: len(bills)}
    if from != nil {
        mc.From = *from
    }
    if to != nil {
        mc.To = *to
    }
    for _, b := range bills {
        switch b.Meal {
        case canteen.MealBreakfast:
            mc.Breakfast++
        case canteen.MealLunch:
            mc.Lunch++
        case canteen.MealDinner:
            mc.Dinner++
        }
        mc.RevenueMinor += b.AmountMinor
    }
    return mc, nil
}

func (s *service) Monthly(ctx context.Context, kind *canteen.PersonKind, f Filter) (MonthlyReport, error) {
    from, to, err := f.Resolve(s.now())
    if err != nil {
        return MonthlyReport{}, err
    }
    persons, err := s.repo.ListPersons(ctx, kind)
    if err != nil {
        return MonthlyReport{}, err
    }
    rep := MonthlyReport{From: from, To: to, Rows: make([]MonthlyRow, 0, len(persons))}
    for _, p := range persons {
        txs, err := s.repo.TransactionsByPerson(ctx, p.ID, from, to)
        if err != nil {
            return MonthlyReport{}, err
        }
        row := MonthlyRow{Person: p}
        for _, t := range txs {
            switch t.Type {
            case canteen.TxFood:
                row.FoodMinor += t.AmountMinor
                row.MealsHad++
            case canteen.TxPayment:
                row.PaidMinor += t.AmountMinor
            }
        }
        rep.Rows = append(rep.Rows, row)
        rep.TotalFoodMinor += row.FoodMinor
        rep.TotalPaidMinor += row.PaidMinor
    }
    sort.Slice(rep.Rows, func(i, j int) bool {
        if rep.Rows[i].Person.Name == rep.Rows[j].Person.Name {
            return rep.Rows[i].Person.ID.String() < rep.Rows[j].Person.ID.String()
        }
        return rep.Rows[i].Person.Name < rep.Rows[j].Person.Name
    })
    return rep, nil
}
