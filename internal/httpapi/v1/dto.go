package v1

import (
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
)

// Persons

type postPersonRequest struct {
    Kind     canteen.PersonKind `json:"kind"`
    Name     string             `json:"name"`
    RefCode  string             `json:"ref_code,omitempty"`
    Dept     string             `json:"dept,omitempty"`
    Phone    string             `json:"phone,omitempty"`
    Metadata map[string]string  `json:"metadata,omitempty"`
}

type patchPersonRequest struct {
    Name     *string           `json:"name"`
    RefCode  *string           `json:"ref_code"`
    Dept     *string           `json:"dept"`
    Phone    *string           `json:"phone"`
    Metadata map[string]string `json:"metadata"`
}

type personResponse struct {
    ID              uuid.UUID             `json:"id"`
    Kind            canteen.PersonKind    `json:"kind"`
    Name            string                `json:"name"`
    RefCode         string                `json:"ref_code"`
    Dept            string                `json:"dept,omitempty"`
    Phone           string                `json:"phone,omitempty"`
    AmountPaidMinor int64                 `json:"amount_paid_minor"`
    AmountPaid      string                `json:"amount_paid"`
    RemainingMinor  int64                 `json:"remaining_minor"`
    Remaining       string                `json:"remaining"`
    PaymentStatus   canteen.PaymentStatus `json:"payment_status"`
    BreakfastCount  int                   `json:"breakfast_count"`
    LunchCount      int                   `json:"lunch_count"`
    DinnerCount     int                   `json:"dinner_count"`
    Metadata        map[string]string     `json:"metadata,omitempty"`
}

func toPersonResponse(p canteen.Person) personResponse {
    return personResponse{
        ID:              p.ID,
        Kind:            p.Kind,
        Name:            p.Name,
        RefCode:         p.RefCode,
        Dept:            p.Dept,
        Phone:           p.Phone,
        AmountPaidMinor: p.AmountPaidMinor,
        AmountPaid:      canteen.FormatAmount(p.AmountPaidMinor),
        RemainingMinor:  p.RemainingMinor,
        Remaining:       canteen.FormatAmount(p.RemainingMinor),
        PaymentStatus:   p.PaymentStatus(),
        BreakfastCount:  p.BreakfastCount,
        LunchCount:      p.LunchCount,
        DinnerCount:     p.DinnerCount,
        Metadata:        p.Metadata,
    }
}

type payRequest struct {
    AmountMinor int64               `json:"amount_minor"`
    Mode        canteen.PaymentMode `json:"mode,omitempty"`
    Remarks     string              `json:"remarks,omitempty"`
}

// Operators

type postOperatorRequest struct {
    Username string `json:"username"`
    Password string `json:"password"`
}

type operatorResponse struct {
    ID        uuid.UUID `json:"id"`
    Username  string    `json:"username"`
    CreatedAt time.Time `json:"created_at"`
}

func toOperatorResponse(o canteen.Operator) operatorResponse {
    return operatorResponse{ID: o.ID, Username: o.Username, CreatedAt: o.CreatedAt}
}

// Bills

type postBillsRequest struct {
    CustomerKind canteen.CustomerKind `json:"customer_kind"`
    PersonID     *uuid.UUID           `json:"person_id,omitempty"`
    GuestName    string               `json:"guest_name,omitempty"`
    OperatorID   *uuid.UUID           `json:"operator_id,omitempty"`
    Mode         canteen.PaymentMode  `json:"mode,omitempty"`
    Meals        []canteen.MealType   `json:"meals"`
    // AmountMinor overrides the published price per line when set.
    AmountMinor int64 `json:"amount_minor,omitempty"`
}

type billResponse struct {
    No           int64                `json:"no"`
    At           time.Time            `json:"at"`
    CustomerKind canteen.CustomerKind `json:"customer_kind"`
    PersonID     *uuid.UUID           `json:"person_id,omitempty"`
    Customer     string               `json:"customer,omitempty"`
    OperatorID   *uuid.UUID           `json:"operator_id,omitempty"`
    Meal         canteen.MealType     `json:"meal"`
    AmountMinor  int64                `json:"amount_minor"`
    Amount       string               `json:"amount"`
    Mode         canteen.PaymentMode  `json:"mode"`
}

func toBillResponse(b canteen.Bill, customer string) billResponse {
    return billResponse{
        No:           b.No,
        At:           b.At,
        CustomerKind: b.CustomerKind,
        PersonID:     b.PersonID,
        Customer:     customer,
        OperatorID:   b.OperatorID,
        Meal:         b.Meal,
        AmountMinor:  b.AmountMinor,
        Amount:       canteen.FormatAmount(b.AmountMinor),
        Mode:         b.Mode,
    }
}

type billLineResponse struct {
    Meal    canteen.MealType `json:"meal"`
    BillNo  int64            `json:"bill_no,omitempty"`
    Amount  string           `json:"amount,omitempty"`
    Warning string           `json:"warning,omitempty"`
    Error   string           `json:"error,omitempty"`
    Code    string           `json:"code,omitempty"`
}

type postBillsResponse struct {
    Lines  []billLineResponse `json:"lines"`
    Person *personResponse    `json:"person,omitempty"`
}

// Transactions and meals

type transactionResponse struct {
    ID          uuid.UUID           `json:"id"`
    PersonID    uuid.UUID           `json:"person_id"`
    Type        canteen.TxType      `json:"type"`
    AmountMinor int64               `json:"amount_minor"`
    Amount      string              `json:"amount"`
    At          time.Time           `json:"at"`
    Mode        canteen.PaymentMode `json:"mode,omitempty"`
    Meal        canteen.MealType    `json:"meal,omitempty"`
    BillNo      *int64              `json:"bill_no,omitempty"`
    Remarks     string              `json:"remarks,omitempty"`
}

func toTransactionResponse(t canteen.Transaction) transactionResponse {
    return transactionResponse{
        ID:          t.ID,
        PersonID:    t.PersonID,
        Type:        t.Type,
        AmountMinor: t.AmountMinor,
        Amount:      canteen.FormatAmount(t.AmountMinor),
        At:          t.At,
        Mode:        t.Mode,
        Meal:        t.Meal,
        BillNo:      t.BillNo,
        Remarks:     t.Remarks,
    }
}

type mealRecordResponse struct {
    Date      string `json:"date"`
    Breakfast bool   `json:"breakfast"`
    Lunch     bool   `json:"lunch"`
    Dinner    bool   `json:"dinner"`
}

func toMealRecordResponse(r canteen.MealRecord) mealRecordResponse {
    return mealRecordResponse{
        Date:      r.Date.Format("2006-01-02"),
        Breakfast: r.Breakfast,
        Lunch:     r.Lunch,
        Dinner:    r.Dinner,
    }
}

// Reports

type statementSummaryResponse struct {
    Breakfast      int    `json:"breakfast"`
    Lunch          int    `json:"lunch"`
    Dinner         int    `json:"dinner"`
    EstimatedMinor int64  `json:"estimated_cost_minor"`
    Estimated      string `json:"estimated_cost"`
}

type statementResponse struct {
    Person       personResponse           `json:"person"`
    From         *time.Time               `json:"from,omitempty"`
    To           *time.Time               `json:"to,omitempty"`
    Meals        []mealRecordResponse     `json:"meals"`
    Transactions []transactionResponse    `json:"transactions"`
    Summary      statementSummaryResponse `json:"summary"`
    FoodMinor    int64                    `json:"food_minor"`
    Food         string                   `json:"food"`
    PaidMinor    int64                    `json:"paid_minor"`
    Paid         string                   `json:"paid"`
}

type mealCountsResponse struct {
    From         time.Time `json:"from"`
    To           time.Time `json:"to"`
    Breakfast    int       `json:"breakfast"`
    Lunch        int       `json:"lunch"`
    Dinner       int       `json:"dinner"`
    Bills        int       `json:"bills"`
    RevenueMinor int64     `json:"revenue_minor"`
    Revenue      string    `json:"revenue"`
}

type monthlyRowResponse struct {
    Person    personResponse `json:"person"`
    MealsHad  int            `json:"meals_had"`
    FoodMinor int64          `json:"food_minor"`
    Food      string         `json:"food"`
    PaidMinor int64          `json:"paid_minor"`
    Paid      string         `json:"paid"`
}

type monthlyReportResponse struct {
    From           *time.Time           `json:"from,omitempty"`
    To             *time.Time           `json:"to,omitempty"`
    Rows           []monthlyRowResponse `json:"rows"`
    TotalFoodMinor int64                `json:"total_food_minor"`
    TotalFood      string               `json:"total_food"`
    TotalPaidMinor int64                `json:"total_paid_minor"`
    TotalPaid      string               `json:"total_paid"`
}
