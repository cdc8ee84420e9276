package v1

import (
    "net/http"
    "strconv"
    "time"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/service/reporting"
)

// parseFilter reads month/year/start/end query params. Dates accept
// RFC3339 or plain YYYY-MM-DD.
func parseFilter(r *http.Request) (reporting.Filter, bool, string) {
    q := r.URL.Query()
    var f reporting.Filter
    if raw := q.Get("month"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil {
            return f, false, "invalid month"
        }
        f.Month = n
    }
    if raw := q.Get("year"); raw != "" {
        n, err := strconv.Atoi(raw)
        if err != nil {
            return f, false, "invalid year"
        }
        f.Year = n
    }
    parse := func(raw string) (time.Time, error) {
        if t, err := time.Parse(time.RFC3339, raw); err == nil {
            return t.UTC(), nil
        }
        return time.Parse("2006-01-02", raw)
    }
    if raw := q.Get("start"); raw != "" {
        t, err := parse(raw)
        if err != nil {
            return f, false, "invalid start"
        }
        f.Start = &t
    }
    if raw := q.Get("end"); raw != "" {
        t, err := parse(raw)
        if err != nil {
            return f, false, "invalid end"
        }
        // A bare date means the whole day.
        if len(raw) == len("2006-01-02") {
            t = t.Add(24*time.Hour - time.Nanosecond)
        }
        f.End = &t
    }
    return f, true, ""
}

func toStatementResponse(st reporting.Statement) statementResponse {
    resp := statementResponse{
        Person:       toPersonResponse(st.Person),
        From:         st.From,
        To:           st.To,
        Meals:        make([]mealRecordResponse, 0, len(st.Meals)),
        Transactions: make([]transactionResponse, 0, len(st.Transactions)),
        Summary: statementSummaryResponse{
            Breakfast:      st.Summary.Breakfast,
            Lunch:          st.Summary.Lunch,
            Dinner:         st.Summary.Dinner,
            EstimatedMinor: st.Summary.EstimatedMinor,
            Estimated:      canteen.FormatAmount(st.Summary.EstimatedMinor),
        },
        FoodMinor:    st.FoodMinor,
        Food:         canteen.FormatAmount(st.FoodMinor),
        PaidMinor:    st.PaidMinor,
        Paid:         canteen.FormatAmount(st.PaidMinor),
    }
    for _, m := range st.Meals {
        resp.Meals = append(resp.Meals, toMealRecordResponse(m))
    }
    for _, t := range st.Transactions {
        resp.Transactions = append(resp.Transactions, toTransactionResponse(t))
    }
    return resp
}

func (s *Server) statementHandler(w http.ResponseWriter, r *http.Request, staff bool) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    f, ok, msg := parseFilter(r)
    if !ok {
        badRequest(w, msg)
        return
    }
    var st reporting.Statement
    if staff {
        st, err = s.reporting.StaffStatement(r.Context(), id, f)
    } else {
        st, err = s.reporting.StudentStatement(r.Context(), id, f)
    }
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toStatementResponse(st))
}

// studentStatement handles GET /v1/reports/students/{id}.
func (s *Server) studentStatement(w http.ResponseWriter, r *http.Request) {
    s.statementHandler(w, r, false)
}

// staffStatement handles GET /v1/reports/staff/{id}.
func (s *Server) staffStatement(w http.ResponseWriter, r *http.Request) {
    s.statementHandler(w, r, true)
}

// mealCounts handles GET /v1/reports/meals; no filter means today.
func (s *Server) mealCounts(w http.ResponseWriter, r *http.Request) {
    f, ok, msg := parseFilter(r)
    if !ok {
        badRequest(w, msg)
        return
    }
    mc, err := s.reporting.Meals(r.Context(), f)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, mealCountsResponse{
        From:         mc.From,
        To:           mc.To,
        Breakfast:    mc.Breakfast,
        Lunch:        mc.Lunch,
        Dinner:       mc.Dinner,
        Bills:        mc.Bills,
        RevenueMinor: mc.RevenueMinor,
        Revenue:      canteen.FormatAmount(mc.RevenueMinor),
    })
}

// monthlyReport handles GET /v1/reports/monthly with an optional kind filter.
func (s *Server) monthlyReport(w http.ResponseWriter, r *http.Request) {
    f, ok, msg := parseFilter(r)
    if !ok {
        badRequest(w, msg)
        return
    }
    var kind *canteen.PersonKind
    if raw := r.URL.Query().Get("kind"); raw != "" {
        k := canteen.PersonKind(raw)
        if k != canteen.KindStudent && k != canteen.KindStaff {
            badRequest(w, "invalid kind")
            return
        }
        kind = &k
    }
    rep, err := s.reporting.Monthly(r.Context(), kind, f)
    if err != nil {
        respondErr(w, err)
        return
    }
    resp := monthlyReportResponse{
        From:           rep.From,
        To:             rep.To,
        Rows:           make([]monthlyRowResponse, 0, len(rep.Rows)),
        TotalFoodMinor: rep.TotalFoodMinor,
        TotalFood:      canteen.FormatAmount(rep.TotalFoodMinor),
        TotalPaidMinor: rep.TotalPaidMinor,
        TotalPaid:      canteen.FormatAmount(rep.TotalPaidMinor),
    }
    for _, row := range rep.Rows {
        resp.Rows = append(resp.Rows, monthlyRowResponse{
            Person:    toPersonResponse(row.Person),
            MealsHad:  row.MealsHad,
            FoodMinor: row.FoodMinor,
            Food:      canteen.FormatAmount(row.FoodMinor),
            PaidMinor: row.PaidMinor,
            Paid:      canteen.FormatAmount(row.PaidMinor),
        })
    }
    toJSON(w, http.StatusOK, resp)
}
