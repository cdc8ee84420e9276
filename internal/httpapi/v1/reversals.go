package v1

import (
    "net/http"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
)

// deleteTransaction handles DELETE /v1/transactions/{id}. The response
// echoes the removed entry so the operator sees what was undone.
func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid transaction id")
        return
    }
    t, err := s.reversal.DeleteTransaction(r.Context(), id)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, map[string]any{"removed": toTransactionResponse(t)})
}

// deleteMeal handles DELETE /v1/meals?person_id=&date=&meal=.
// It removes the most recent charge for the slot, or just the flag when no
// charge backs it.
func (s *Server) deleteMeal(w http.ResponseWriter, r *http.Request) {
    q := r.URL.Query()
    personID, err := uuid.Parse(q.Get("person_id"))
    if err != nil {
        badRequest(w, "invalid person_id")
        return
    }
    date, err := time.Parse("2006-01-02", q.Get("date"))
    if err != nil {
        badRequest(w, "invalid date, want YYYY-MM-DD")
        return
    }
    meal := canteen.MealType(q.Get("meal"))
    if !meal.Valid() {
        badRequest(w, "invalid meal")
        return
    }
    t, err := s.reversal.DeleteMeal(r.Context(), personID, date, meal)
    if err != nil {
        respondErr(w, err)
        return
    }
    resp := map[string]any{"cleared": true}
    if t != nil {
        resp["removed"] = toTransactionResponse(*t)
    }
    toJSON(w, http.StatusOK, resp)
}
