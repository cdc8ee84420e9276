package v1

import (
    "net/http"

    "github.com/gatepos/canteen/internal/canteen"
    "github.com/gatepos/canteen/internal/dictionary"
)

// GET /v1/dictionary/departments?kind=
func (s *Server) dictDepartments(w http.ResponseWriter, r *http.Request) {
    var kind *canteen.PersonKind
    if raw := r.URL.Query().Get("kind"); raw != "" {
        k := canteen.PersonKind(raw)
        if k != canteen.KindStudent && k != canteen.KindStaff {
            badRequest(w, "invalid kind")
            return
        }
        kind = &k
    }
    type kindItem struct {
        Kind        canteen.PersonKind   `json:"kind"`
        Departments []dictionary.DeptDef `json:"departments"`
    }
    out := struct {
        Items []kindItem `json:"items"`
    }{Items: []kindItem{}}
    for _, k := range []canteen.PersonKind{canteen.KindStudent, canteen.KindStaff} {
        if kind != nil && *kind != k {
            continue
        }
        kk := k
        out.Items = append(out.Items, kindItem{Kind: k, Departments: dictionary.DepartmentsFor(&kk)})
    }
    toJSON(w, http.StatusOK, out)
}

// GET /v1/dictionary/prices
func (s *Server) dictPrices(w http.ResponseWriter, r *http.Request) {
    toJSON(w, http.StatusOK, map[string]any{"items": dictionary.Prices()})
}
