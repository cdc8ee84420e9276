package v1

import (
    "encoding/json"
    "net/http"

    chi "github.com/go-chi/chi/v5"
    "github.com/google/uuid"
)

// postOperator handles POST /v1/operators.
func (s *Server) postOperator(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) {
        return
    }
    var req postOperatorRequest
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    o, err := s.roster.CreateOperator(r.Context(), req.Username, req.Password)
    if err != nil {
        respondErr(w, err)
        return
    }
    toJSON(w, http.StatusCreated, toOperatorResponse(o))
}

// listOperators handles GET /v1/operators. Password hashes never leave the store.
func (s *Server) listOperators(w http.ResponseWriter, r *http.Request) {
    ops, err := s.roster.ListOperators(r.Context())
    if err != nil {
        respondErr(w, err)
        return
    }
    items := make([]operatorResponse, 0, len(ops))
    for _, o := range ops {
        items = append(items, toOperatorResponse(o))
    }
    toJSON(w, http.StatusOK, map[string]any{"items": items})
}

// deleteOperator handles DELETE /v1/operators/{id}. Issued bills keep the id.
func (s *Server) deleteOperator(w http.ResponseWriter, r *http.Request) {
    id, err := uuid.Parse(chi.URLParam(r, "id"))
    if err != nil {
        badRequest(w, "invalid operator id")
        return
    }
    if err := s.roster.DeleteOperator(r.Context(), id); err != nil {
        respondErr(w, err)
        return
    }
    w.WriteHeader(http.StatusNoContent)
}

// verifyOperator handles POST /v1/operators/verify for the login layer.
func (s *Server) verifyOperator(w http.ResponseWriter, r *http.Request) {
    if !requireJSON(w, r) {
        return
    }
    var req postOperatorRequest
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(&req); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return
    }
    o, err := s.roster.Verify(r.Context(), req.Username, req.Password)
    if err != nil {
        // Unknown user and wrong password look the same on the wire.
        writeErr(w, http.StatusUnauthorized, "invalid_credentials", "invalid_credentials")
        return
    }
    toJSON(w, http.StatusOK, toOperatorResponse(o))
}
