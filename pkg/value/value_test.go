package value

import "testing"

func TestEqualMixedTagsNeverErrors(t *testing.T) {
	pairs := []struct{ a, b any }{
		{int64(1), "1"},
		{true, int64(1)},
		{3.0, int64(3)},
		{&List{Items: []any{int64(1)}}, &Map{Items: map[string]any{"a": int64(1)}}},
	}
	for _, p := range pairs {
		if Equal(p.a, p.b) {
			t.Errorf("Equal(%#v, %#v) = true, want false", p.a, p.b)
		}
		if v, err := ApplyBinary(Eq, p.a, p.b); err != nil || v != false {
			t.Errorf("ApplyBinary(Eq, %#v, %#v) = %v, %v; want false, nil", p.a, p.b, v, err)
		}
	}
}

func TestEqualStructural(t *testing.T) {
	a := &List{Items: []any{int64(1), int64(2)}}
	b := &List{Items: []any{int64(1), int64(2)}}
	if !Equal(a, b) {
		t.Fatal("expected structurally equal lists to be Equal")
	}
}

func TestArithmeticTypeMismatch(t *testing.T) {
	_, err := ApplyBinary(Add, int64(1), 2.0)
	var mismatch *TypeMismatch
	if err == nil {
		t.Fatal("expected TypeMismatch, got nil")
	}
	if !asTypeMismatch(err, &mismatch) {
		t.Fatalf("expected *TypeMismatch, got %T: %v", err, err)
	}
}

func asTypeMismatch(err error, out **TypeMismatch) bool {
	tm, ok := err.(*TypeMismatch)
	if ok {
		*out = tm
	}
	return ok
}

func TestIntegerDivisionTruncatesTowardZero(t *testing.T) {
	v, err := ApplyBinary(Div, int64(-7), int64(2))
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != -3 {
		t.Fatalf("got %v, want -3", v)
	}
}

func TestIntegerOverflowTraps(t *testing.T) {
	_, err := ApplyBinary(Add, int64(1<<62), int64(1<<62))
	if err == nil {
		t.Fatal("expected overflow error")
	}
}

func TestShiftModuloWidth(t *testing.T) {
	v, err := ApplyBinary(Shl, int64(1), int64(64))
	if err != nil {
		t.Fatal(err)
	}
	if v.(int64) != 1 {
		t.Fatalf("shift by 64 should behave as shift by 0, got %v", v)
	}
}

func TestCoerceTable(t *testing.T) {
	cases := []struct {
		in   any
		to   TypeTag
		want any
	}{
		{true, Int, int64(1)},
		{int64(0), Bool, false},
		{float64(3.9), Int, int64(3)},
		{"", Bool, false},
		{"x", Bool, true},
	}
	for _, c := range cases {
		got, err := Coerce(c.in, c.to)
		if err != nil {
			t.Fatalf("Coerce(%#v, %v): %v", c.in, c.to, err)
		}
		if got != c.want {
			t.Errorf("Coerce(%#v, %v) = %#v, want %#v", c.in, c.to, got, c.want)
		}
	}
}

func TestCoerceIllegalSource(t *testing.T) {
	if _, err := Coerce(&List{}, Str); err == nil {
		t.Fatal("expected TypeError coercing List to Str")
	}
}
