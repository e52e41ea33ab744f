package helpers

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"10", 10, true},
		{"10.50", 10.5, true},
		{" 10.50 ", 10.5, true},
		{"$25", 25, true},
		{"3,14", 3.14, true},
		{"0", 0, false},
		{"-5", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"   ", 0, false},
		{"1e13", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.input)
		if ok != tc.ok {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", tc.input, ok, tc.ok)
			continue
		}
		if ok && got != tc.want {
			t.Errorf("ParseAmount(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
