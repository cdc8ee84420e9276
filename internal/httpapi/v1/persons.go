package v1

import (
    "encoding/json"
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/meta"
    "github.com/gatepos/canteen/internal/service/accounting"
    "github.com/gatepos/canteen/internal/service/roster"
)

// postPerson handles POST /v1/persons.
func (s *Server) postPerson(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) {
        return
    }
    var req postPersonRequest
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    p, err := s.roster.CreatePerson(r.Context(), roster.CreatePersonRequest{
        Kind:     req.Kind,
        Name:     req.Name,
        RefCode:  req.RefCode,
        Dept:     req.Dept,
        Phone:    req.Phone,
        Metadata: meta.New(req.Metadata),
    })
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusCreated, toPersonResponse(p))
}

// listPersons handles GET /v1/persons with an optional kind filter.
func (s *Server) listPersons(w http.ResponseWriter, r *http.Request) {
    var kind *canteen.PersonKind
    if raw := r.URL.Query().Get("kind"); raw != "" {
        k := canteen.PersonKind(raw)
        if k != canteen.KindStudent && k != canteen.KindStaff {
            badRequest(w, "invalid kind")
            return
        }
        kind = &k
    }
    persons, err := s.roster.ListPersons(r.Context(), kind)
    if err != nil {
        respondErr(w, err)
        return
    }
    items := make([]personResponse, 0, len(persons))
    for _, p := range persons {
        items = append(items, toPersonResponse(p))
    }
    toJSON(w, http.StatusOK, map[string]any{"items": items})
}

// getPerson handles GET /v1/persons/{id}.
func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    p, err := s.roster.GetPerson(r.Context(), id)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toPersonResponse(p))
}

// patchPerson handles PATCH /v1/persons/{id}; only descriptive fields move here.
func (s *Server) patchPerson(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) {
        return
    }
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    var req patchPersonRequest
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    patch := roster.UpdatePersonRequest{
        Name:    req.Name,
        RefCode: req.RefCode,
        Dept:    req.Dept,
        Phone:   req.Phone,
    }
    if req.Metadata != nil {
        patch.Metadata = meta.New(req.Metadata)
    }
    p, err := s.roster.UpdatePerson(r.Context(), id, patch)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toPersonResponse(p))
}

// deletePerson handles DELETE /v1/persons/{id}; meals and transactions cascade.
func (s *Server) deletePerson(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    if err := s.roster.DeletePerson(r.Context(), id); err != nil {
        respondErr(w, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// postPay handles POST /v1/persons/{id}/pay.
func (s *Server) postPay(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    req, _ := r.Context().Value(ctxKeyPay).(payRequest)
    p, t, err := s.engine.Pay(r.Context(), accounting.PaymentRequest{
        PersonID:    id,
        AmountMinor: req.AmountMinor,
        Mode:        req.Mode,
        Remarks:     req.Remarks,
    })
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, map[string]any{
        "person":      toPersonResponse(p),
        "transaction": toTransactionResponse(t),
    })
}

// postReset handles POST /v1/persons/{id}/reset.
func (s *Server) postReset(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid person id")
        return
    }
    if err := s.engine.ResetHistory(r.Context(), id); err != nil {
        respondErr(w, err)
        return
    }
    p, err := s.roster.GetPerson(r.Context(), id)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusOK, toPersonResponse(p))
}
