package reversal

// Package reversal corrects billing mistakes. It deletes ledger entries by id
// or by (person, day, meal) slot and leans on the accounting engine so the
// balance effect, the meal counter and the day's flag are all undone together.

import (
    "context"
    "time"

    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/service/accounting"
)

// Service removes bookings. Both operations report what was removed so the
// API layer can echo it back to the caller.
type Service interface {
    // DeleteTransaction removes one ledger entry and undoes its effect.
    DeleteTransaction(ctx context.Context, txID uuid.UUID) (canteen.Transaction, error)
    // DeleteMeal removes the most recent charge for the slot. When only a
    // stray flag exists it clears the flag; the returned transaction is nil
    // in that case.
    DeleteMeal(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) (*canteen.Transaction, error)
}

type service struct {
    engine accounting.Service
}

// New wires the reversal operations to the accounting engine.
func New(engine accounting.Service) Service { return &service{engine: engine} }

func (s *service) DeleteTransaction(ctx context.Context, txID uuid.UUID) (canteen.Transaction, error) {
    return s.engine.ReverseTransaction(ctx, txID)
}

func (s *service) DeleteMeal(ctx context.Context, personID uuid.UUID, date time.Time, meal canteen.MealType) (*canteen.Transaction, error) {
    return s.engine.ReverseMeal(ctx, personID, date, meal)
}
