package meta

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSetGetDelMergeClone(t *testing.T) {
	m := New(nil)
	m.Set("room", "B-214")
	if v, ok := m.Get("room"); !ok || v != "B-214" {
		t.Fatalf("get failed")
	}
	m.Merge(New(map[string]string{"guardian_phone": "9876543210"}))
	if v, ok := m.Get("guardian_phone"); !ok || v != "9876543210" {
		t.Fatalf("merge failed")
	}
	cloned := m.Clone()
	if len(cloned) != 2 || cloned["room"] != "B-214" {
		t.Fatalf("clone failed: %+v", cloned)
	}
	m.Del("room")
	if _, ok := m.Get("room"); ok {
		t.Fatalf("del failed")
	}
}

func TestValidationLimits(t *testing.T) {
	// too many pairs
	pairs := make(map[string]string)
	for i := 0; i < MaxPairs+1; i++ {
		pairs["k"+strings.Repeat("x", i+1)] = "v"
	}
	if err := New(pairs).Validate(); err == nil {
		t.Fatalf("expected too many pairs")
	}
	// key too long
	if err := New(map[string]string{strings.Repeat("k", MaxKeyLen+1): "v"}).Validate(); err == nil {
		t.Fatalf("expected key too long")
	}
	// value too long
	if err := New(map[string]string{"k": strings.Repeat("v", MaxValLen+1)}).Validate(); err == nil {
		t.Fatalf("expected value too long")
	}
}

func TestStableJSON(t *testing.T) {
	m := New(map[string]string{"b": "2", "a": "1"})
	got, err := m.MarshalStableJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(got) != `{"a":"1","b":"2"}` {
		t.Fatalf("unexpected stable json: %s", got)
	}
	var back Metadata
	if err := json.Unmarshal(got, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back["a"] != "1" || back["b"] != "2" {
		t.Fatalf("roundtrip mismatch: %+v", back)
	}
}
