package cli

import "testing"

func TestJSONArgListSetAccumulatesDecodedValues(t *testing.T) {
	var l jsonArgList
	if err := l.Set("42"); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := l.Set(`"hello"`); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if len(l.values) != 2 || l.values[0] != float64(42) || l.values[1] != "hello" {
		t.Fatalf("unexpected values: %#v", l.values)
	}
}

func TestJSONArgListSetRejectsInvalidJSON(t *testing.T) {
	var l jsonArgList
	if err := l.Set("{not json"); err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
}

func TestJSONArgListType(t *testing.T) {
	var l jsonArgList
	if l.Type() != "json" {
		t.Fatalf("unexpected type: %s", l.Type())
	}
}
