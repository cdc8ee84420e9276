package dictionary

import "github.com/gatepos/canteen/internal/canteen"

// DeptDef is a curated department the admin UI can offer when registering a person.
type DeptDef struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

var curated = map[canteen.PersonKind][]DeptDef{
	canteen.KindStudent: {
		{Code: "general", Label: "General"},
		{Code: "computer_science", Label: "Computer Science"},
		{Code: "electronics", Label: "Electronics"},
		{Code: "mechanical", Label: "Mechanical"},
		{Code: "civil", Label: "Civil"},
		{Code: "electrical", Label: "Electrical"},
		{Code: "chemistry", Label: "Chemistry"},
		{Code: "physics", Label: "Physics"},
		{Code: "mathematics", Label: "Mathematics"},
	},
	canteen.KindStaff: {
		{Code: "general", Label: "General"},
		{Code: "administration", Label: "Administration"},
		{Code: "teaching", Label: "Teaching"},
		{Code: "maintenance", Label: "Maintenance"},
		{Code: "security", Label: "Security"},
	},
}

// DepartmentsFor returns the curated departments for a kind, or all when kind is nil.
func DepartmentsFor(kind *canteen.PersonKind) []DeptDef {
	if kind == nil {
		out := make([]DeptDef, 0)
		for _, k := range []canteen.PersonKind{canteen.KindStudent, canteen.KindStaff} {
			out = append(out, curated[k]...)
		}
		return out
	}
	return curated[*kind]
}

// PriceDef pairs a meal type with its published price for the billing UI.
type PriceDef struct {
	Meal        canteen.MealType `json:"meal"`
	AmountMinor int64            `json:"amount_minor"`
	Amount      string           `json:"amount"`
}

// Prices returns the published price table in serving order.
func Prices() []PriceDef {
	out := make([]PriceDef, 0, len(canteen.Meals))
	for _, m := range canteen.Meals {
		minor := canteen.PriceMinor(m)
		out = append(out, PriceDef{Meal: m, AmountMinor: minor, Amount: canteen.FormatAmount(minor)})
	}
	return out
}
