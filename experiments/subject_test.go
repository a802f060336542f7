package experiments

import "testing"

func TestSubjectCaseInsensitiveKeys(t *testing.T) {
	t.Parallel()
	s := NewSubject(map[string]interface{}{"User_ID": "t2_1"})
	if !s.Has("user_id") {
		t.Fatal("Has(\"user_id\") = false, want true")
	}
	v, ok := s.String("USER_ID")
	if !ok || v != "t2_1" {
		t.Fatalf("String(\"USER_ID\") = %q, %v; want \"t2_1\", true", v, ok)
	}
}

func TestSubjectStringRejectsEmptyAndNil(t *testing.T) {
	t.Parallel()
	s := NewSubject(map[string]interface{}{"a": "", "b": nil})
	if _, ok := s.String("a"); ok {
		t.Fatal("String(\"a\") should report false for an empty string")
	}
	if _, ok := s.String("b"); ok {
		t.Fatal("String(\"b\") should report false for a nil value")
	}
	if _, ok := s.String("missing"); ok {
		t.Fatal("String(\"missing\") should report false")
	}
}

func TestSubjectInt64Coercion(t *testing.T) {
	t.Parallel()
	s := NewSubject(map[string]interface{}{
		"a": int64(5), "b": 5, "c": float64(5), "d": "not a number",
	})
	for _, key := range []string{"a", "b", "c"} {
		got, ok := s.Int64(key)
		if !ok || got != 5 {
			t.Fatalf("Int64(%q) = %d, %v; want 5, true", key, got, ok)
		}
	}
	if _, ok := s.Int64("d"); ok {
		t.Fatal("Int64(\"d\") should report false for a non-numeric value")
	}
}

func TestSubjectValuesLiftsScalar(t *testing.T) {
	t.Parallel()
	s := NewSubject(map[string]interface{}{
		"single": "a",
		"multi":  []interface{}{"a", "b"},
	})

	single, ok := s.Values("single")
	if !ok || len(single) != 1 || single[0] != "a" {
		t.Fatalf("Values(\"single\") = %v, %v; want [a], true", single, ok)
	}

	multi, ok := s.Values("multi")
	if !ok || len(multi) != 2 {
		t.Fatalf("Values(\"multi\") = %v, %v; want 2 elements, true", multi, ok)
	}
}

func TestSubjectStringsSkipsNonStrings(t *testing.T) {
	t.Parallel()
	s := NewSubject(map[string]interface{}{
		"flags": []interface{}{"a", 1, "", "b"},
	})
	got, ok := s.Strings("flags")
	if !ok {
		t.Fatal("Strings(\"flags\") reported false")
	}
	want := []string{"a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Strings(\"flags\") = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Strings(\"flags\") = %v, want %v", got, want)
		}
	}
}

func TestScalarEqualFoldsStringCase(t *testing.T) {
	t.Parallel()
	if !scalarEqual("Subreddit", "subreddit") {
		t.Fatal("scalarEqual should fold string case")
	}
	if !scalarEqual(true, true) {
		t.Fatal("scalarEqual(true, true) should be true")
	}
	if scalarEqual("a", "b") {
		t.Fatal("scalarEqual(\"a\", \"b\") should be false")
	}
}
