package v1

import (
    "context"
    "encoding/json"
    "net/http"

    "github.com/gatepos/canteen/internal/canteen"
)

type ctxKey string

const ctxKeyPay ctxKey = "validatedPay"
const ctxKeyPostBills ctxKey = "validatedPostBills"

// validatePay parses and validates the POST /persons/{id}/pay body and
// stores the request struct in the context for the handler to use.
func (s *Server) validatePay() func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            if !requireJSON(w, r) {
                return
            }
            var req payRequest
            dec := json.NewDecoder(r.Body)
            dec.DisallowUnknownFields()
            if err := dec.Decode(&req); err != nil {
                badRequest(w, "invalid JSON: "+err.Error())
                return
            }
            if req.AmountMinor <= 0 {
                unprocessable(w, "amount_minor must be > 0", "invalid_amount")
                return
            }
            if req.Mode != "" && !req.Mode.Valid() {
                badRequest(w, "invalid mode")
                return
            }
            ctx := context.WithValue(r.Context(), ctxKeyPay, req)
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}

// validatePostBills parses the POST /bills body and rejects malformed lines
// before any bill is committed.
func (s *Server) validatePostBills() func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            if !requireJSON(w, r) {
                return
            }
            var req postBillsRequest
            dec := json.NewDecoder(r.Body)
            dec.DisallowUnknownFields()
            if err := dec.Decode(&req); err != nil {
                badRequest(w, "invalid JSON: "+err.Error())
                return
            }
            if len(req.Meals) == 0 {
                badRequest(w, "meals is required")
                return
            }
            for _, m := range req.Meals {
                if !m.Valid() {
                    badRequest(w, "invalid meal: "+string(m))
                    return
                }
            }
            if req.AmountMinor < 0 {
                unprocessable(w, "amount_minor must be >= 0", "invalid_amount")
                return
            }
            switch req.CustomerKind {
            case canteen.CustomerRegistered:
                if req.PersonID == nil {
                    badRequest(w, "person_id is required for registered bills")
                    return
                }
            case canteen.CustomerGuest:
                if req.GuestName == "" {
                    badRequest(w, "guest_name is required for guest bills")
                    return
                }
            default:
                badRequest(w, "customer_kind must be registered or guest")
                return
            }
            ctx := context.WithValue(r.Context(), ctxKeyPostBills, req)
            next.ServeHTTP(w, r.WithContext(ctx))
        })
    }
}
