package rules

import (
	"errors"
	"math/rand"
	"reflect"
	"testing"
)

func TestThresholdsMembershipNotRange(t *testing.T) {
	th := MustThresholds(6, 3, 3)
	for n, want := range map[int]bool{2: false, 3: true, 4: false, 5: false, 6: true, 7: false} {
		if got := th.Contains(n); got != want {
			t.Errorf("Contains(%d) = %v, want %v", n, got, want)
		}
	}
	if th.Len() != 2 {
		t.Errorf("Expected duplicates to collapse, got %v", th.Values())
	}
	if th.String() != "3,6" {
		t.Errorf("Expected \"3,6\", got %q", th.String())
	}
}

func TestNewThresholdsRejectsNegative(t *testing.T) {
	if _, err := NewThresholds(1, -2); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse, got %v", err)
	}
}

func TestParseThresholds(t *testing.T) {
	cases := []struct {
		in   string
		want []int
	}{
		{"3", []int{3}},
		{"3,6", []int{3, 6}},
		{" 2 , 3 ", []int{2, 3}},
		{"5-8", []int{5, 6, 7, 8}},
		{"1,5-7,10", []int{1, 5, 6, 7, 10}},
		{"", []int{}},
	}
	for _, tc := range cases {
		got, err := ParseThresholds(tc.in)
		if err != nil {
			t.Errorf("ParseThresholds(%q) failed: %v", tc.in, err)
			continue
		}
		if !reflect.DeepEqual(got.Values(), tc.want) {
			t.Errorf("ParseThresholds(%q) = %v, want %v", tc.in, got.Values(), tc.want)
		}
	}
}

func TestThresholdBounds(t *testing.T) {
	th, err := ParseThresholds("4294967295")
	if err != nil {
		t.Fatalf("MaxValue should parse: %v", err)
	}
	if uint64(th.Max()) != MaxValue {
		t.Errorf("Expected %d, got %d", uint64(MaxValue), th.Max())
	}

	full, err := ParseThresholds("1-4096")
	if err != nil {
		t.Fatalf("A range of MaxMembers values should parse: %v", err)
	}
	if full.Len() != MaxMembers {
		t.Errorf("Expected %d members, got %d", MaxMembers, full.Len())
	}

	for _, in := range []string{
		"4294967296",
		"0-20000000",
		"1-4096,5000",
		"0,1-4096",
		"9223372036854775806-9223372036854775807",
	} {
		if _, err := ParseThresholds(in); !errors.Is(err, ErrParse) {
			t.Errorf("ParseThresholds(%q): expected ErrParse, got %v", in, err)
		}
	}
}

func TestParseThresholdsMalformed(t *testing.T) {
	for _, in := range []string{"a", "3,,4", "3,", "-1", "8-5", "2-x", "1.5"} {
		if _, err := ParseThresholds(in); !errors.Is(err, ErrParse) {
			t.Errorf("ParseThresholds(%q): expected ErrParse, got %v", in, err)
		}
	}
}

func TestDrawStaysInSet(t *testing.T) {
	th := MustThresholds(4, 9, 20)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		if v := th.Draw(rng); !th.Contains(v) {
			t.Fatalf("Draw returned %d, not a member", v)
		}
	}
}

func TestRulesParseAndMissing(t *testing.T) {
	r, err := Parse("3", "2,3", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Missing(); !reflect.DeepEqual(got, []string{"dying"}) {
		t.Errorf("Expected dying to be missing, got %v", got)
	}

	if _, err := Parse("3", "x", "1"); !errors.Is(err, ErrParse) {
		t.Errorf("Expected ErrParse from survive, got %v", err)
	}

	r, _ = Parse("9,10", "5-8", "3")
	if r.String() != "R9,10/S5,6,7,8/D3" {
		t.Errorf("Unexpected rule string %q", r.String())
	}
}
