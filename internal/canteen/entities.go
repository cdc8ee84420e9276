package canteen

import (
    "time"

    "github.com/google/uuid"
    "github.com/govalues/money"

    "github.com/gatepos/canteen/internal/meta"
)

// Currency is the only currency the canteen bills in. Amounts are carried as
// int64 minor units (paise) and converted through govalues/money at the edges.
const Currency = "INR"

// PersonKind distinguishes the two billable entity variants.
type PersonKind string

const (
    // KindStudent is a hostel student with a running mess balance.
    KindStudent PersonKind = "student"
    // KindStaff is a staff member billed against the same balance mechanics.
    KindStaff PersonKind = "staff"
)

// MealType enumerates the meals a bill line can charge for.
type MealType string

const (
    MealBreakfast MealType = "breakfast"
    MealLunch     MealType = "lunch"
    MealDinner    MealType = "dinner"
)

// Meals lists the valid meal types in serving order.
var Meals = []MealType{MealBreakfast, MealLunch, MealDinner}

// Valid reports whether m is a known meal type.
func (m MealType) Valid() bool {
    switch m {
    case MealBreakfast, MealLunch, MealDinner:
        return true
    }
    return false
}

// PaymentMode identifies how money moved.
type PaymentMode string

const (
    ModeCash    PaymentMode = "cash"
    ModeUPI     PaymentMode = "upi"
    ModeAccount PaymentMode = "account"
)

// Valid reports whether p is a known payment mode.
func (p PaymentMode) Valid() bool {
    switch p {
    case ModeCash, ModeUPI, ModeAccount:
        return true
    }
    return false
}

// TxType classifies a transaction as a charge or a payment.
type TxType string

const (
    // TxFood increases the owner's remaining balance.
    TxFood TxType = "food"
    // TxPayment decreases the owner's remaining balance and grows amount paid.
    TxPayment TxType = "payment"
)

// PaymentStatus is derived from the balance fields, never stored.
type PaymentStatus string

const (
    StatusUnpaid  PaymentStatus = "Unpaid"
    StatusPartial PaymentStatus = "Partial"
    StatusPaid    PaymentStatus = "Paid"
)

// Person is a billable entity: a student or a staff member.
type Person struct {
    ID   uuid.UUID
    Kind PersonKind
    Name string
    // RefCode is the external reference (registration/roll number), unique per person.
    RefCode string
    // Dept is a normalized department slug.
    Dept  string
    Phone string
    // AmountPaidMinor is the cumulative total ever paid, in minor units.
    AmountPaidMinor int64
    // RemainingMinor is the signed balance owed; positive means the person owes money.
    RemainingMinor int64
    BreakfastCount int
    LunchCount     int
    DinnerCount    int
    // Metadata holds additional key-value attributes (guardian phone, room, ...).
    Metadata meta.Metadata `json:"metadata,omitempty"`
}

// PaymentStatus derives the display status from the balance fields.
func (p Person) PaymentStatus() PaymentStatus {
    switch {
    case p.RemainingMinor <= 0 && p.AmountPaidMinor > 0:
        return StatusPaid
    case p.RemainingMinor > 0 && p.AmountPaidMinor > 0:
        return StatusPartial
    default:
        return StatusUnpaid
    }
}

// MealCount returns the cumulative counter for the given meal type.
func (p Person) MealCount(m MealType) int {
    switch m {
    case MealBreakfast:
        return p.BreakfastCount
    case MealLunch:
        return p.LunchCount
    default:
        return p.DinnerCount
    }
}

// MealRecord tracks which meals were served to a person on one calendar day.
// (PersonID, Date) is the natural key; Date is truncated to midnight UTC.
type MealRecord struct {
    PersonID  uuid.UUID
    Date      time.Time
    Breakfast bool
    Lunch     bool
    Dinner    bool
}

// Has reports whether the flag for meal type m is set.
func (r MealRecord) Has(m MealType) bool {
    switch m {
    case MealBreakfast:
        return r.Breakfast
    case MealLunch:
        return r.Lunch
    default:
        return r.Dinner
    }
}

// Empty reports whether no meal flag remains set.
func (r MealRecord) Empty() bool { return !r.Breakfast && !r.Lunch && !r.Dinner }

// Transaction is a ledger entry representing money movement for a person.
// Deleting one must reverse its balance effect first; a silent delete breaks
// the reconciliation between balances and history.
type Transaction struct {
    ID       uuid.UUID
    PersonID uuid.UUID
    Type     TxType
    // AmountMinor is always positive; Type carries the direction.
    AmountMinor int64
    At          time.Time
    Mode        PaymentMode
    // Meal is set on food transactions only.
    Meal MealType
    // BillNo links a food transaction to its receipt, when one was issued.
    BillNo  *int64
    Remarks string
}

// CustomerKind tags who a bill was issued to.
type CustomerKind string

const (
    // CustomerRegistered bills a tracked person and affects their balance.
    CustomerRegistered CustomerKind = "registered"
    // CustomerGuest bills a walk-in by name only; no balance is tracked.
    CustomerGuest CustomerKind = "guest"
)

// Bill is one issued receipt for a single meal type. Multi-meal requests
// decompose into one bill per meal type, each independently numbered.
type Bill struct {
    // No is assigned by the store from a monotonic sequence.
    No           int64
    At           time.Time
    CustomerKind CustomerKind
    PersonID     *uuid.UUID
    GuestName    string
    OperatorID   *uuid.UUID
    Meal         MealType
    AmountMinor  int64
    Mode         PaymentMode
    Metadata     meta.Metadata `json:"metadata,omitempty"`
}

// Operator is a credential-bearing actor who issues bills. Operators are
// referenced by id on bills for audit and are never cascade-deleted into them.
type Operator struct {
    ID           uuid.UUID
    Username     string
    PasswordHash string
    CreatedAt    time.Time
}

// Day truncates t to its calendar day in UTC, the granularity of meal records.
func Day(t time.Time) time.Time {
    t = t.UTC()
    return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatAmount renders a minor-unit amount as a display string in the canteen currency.
func FormatAmount(minor int64) string {
    amt, err := money.NewAmountFromMinorUnits(Currency, minor)
    if err != nil {
        return ""
    }
    return amt.String()
}
