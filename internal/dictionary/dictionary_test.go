package dictionary

import (
	"testing"

	"github.com/gatepos/canteen/internal/canteen"
)

func TestDepartmentsForNilKindIsStable(t *testing.T) {
	all := DepartmentsFor(nil)
	want := len(curated[canteen.KindStudent]) + len(curated[canteen.KindStaff])
	if len(all) != want {
		t.Fatalf("departments = %d, want %d", len(all), want)
	}
	// Student departments come first, then staff, in curated order.
	for i, d := range curated[canteen.KindStudent] {
		if all[i] != d {
			t.Fatalf("index %d = %+v, want %+v", i, all[i], d)
		}
	}
	offset := len(curated[canteen.KindStudent])
	for i, d := range curated[canteen.KindStaff] {
		if all[offset+i] != d {
			t.Fatalf("index %d = %+v, want %+v", offset+i, all[offset+i], d)
		}
	}
	for i, d := range DepartmentsFor(nil) {
		if all[i] != d {
			t.Fatalf("order changed between calls at %d", i)
		}
	}
}
