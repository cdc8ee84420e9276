package v1

import (
    "net/http"
    "strconv"

    chi "github.com/go-chi/chi/v5"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/service/billing"
)

// postBills handles POST /v1/bills. Each meal becomes its own bill; the
// response reports every line's outcome and 207 signals a partial failure.
func (s *Server) postBills(w http.ResponseWriter, r *http.Request) {
    req, _ := r.Context().Value(ctxKeyPostBills).(postBillsRequest)
    res, err := s.billing.IssueBills(r.Context(), billing.IssueRequest{
        CustomerKind: req.CustomerKind,
        PersonID:     req.PersonID,
        GuestName:    req.GuestName,
        OperatorID:   req.OperatorID,
        Mode:         req.Mode,
        Meals:        req.Meals,
        AmountMinor:  req.AmountMinor,
    })
    if err != nil {
        respondErr(w, err)
        return
    }

    resp := postBillsResponse{Lines: make([]billLineResponse, 0, len(res.Lines))}
    failed := 0
    for _, line := range res.Lines {
        lr := billLineResponse{Meal: line.Meal, Warning: line.Warning}
        if line.Err != nil {
            failed++
            lr.Error = line.Err.Error()
            lr.Code = errCode(line.Err)
        } else {
            lr.BillNo = line.Bill.No
            lr.Amount = canteen.FormatAmount(line.Bill.AmountMinor)
            billsIssuedTotal.WithLabelValues(string(line.Bill.Meal), string(line.Bill.CustomerKind)).Inc()
            revenueMinorTotal.Add(float64(line.Bill.AmountMinor))
        }
        resp.Lines = append(resp.Lines, lr)
    }
    if res.Person != nil {
        pr := toPersonResponse(*res.Person)
        resp.Person = &pr
    }

    status := http.StatusCreated
    switch {
    case failed == len(res.Lines):
        status = http.StatusUnprocessableEntity
    case failed > 0:
        status = http.StatusMultiStatus
    }
    toJSON(w, status, resp)
}

// getBill handles GET /v1/bills/{no} for receipt rendering.
func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
    no, err := strconv.ParseInt(chi.URLParam(r, "no"), 10, 64)
    if err != nil || no <= 0 {
        badRequest(w, "invalid bill number")
        return
    }
    b, customer, err := s.billing.Lookup(r.Context(), no)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toBillResponse(b, customer))
}
