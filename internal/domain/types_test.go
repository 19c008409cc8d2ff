package domain

import "testing"

func intPtr(v int) *int { return &v }

func TestMoneyFromFloat(t *testing.T) {
	cases := []struct {
		in   float64
		want Money
	}{
		{20, 2000},
		{3.5, 350},
		{0.1 + 0.2, 30},
		{19.999, 2000},
		{-4, 0},
	}
	for _, tc := range cases {
		if got := MoneyFromFloat(tc.in); got != tc.want {
			t.Fatalf("MoneyFromFloat(%v) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestOptionGroupBounds(t *testing.T) {
	cases := []struct {
		name     string
		group    OptionGroup
		min, max int
	}{
		{"single required", OptionGroup{Mode: SelectionSingle, Required: true}, 1, 1},
		{"single optional", OptionGroup{Mode: SelectionSingle}, 0, 1},
		{"multi required default", OptionGroup{Mode: SelectionMulti, Required: true}, 1, Unbounded},
		{"multi optional default", OptionGroup{Mode: SelectionMulti}, 0, Unbounded},
		{"multi explicit", OptionGroup{Mode: SelectionMulti, Required: true, Min: intPtr(2), Max: intPtr(3)}, 2, 3},
		{"multi zero max unbounded", OptionGroup{Mode: SelectionMulti, Max: intPtr(0)}, 0, Unbounded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lower, upper := tc.group.Bounds()
			if lower != tc.min || upper != tc.max {
				t.Fatalf("expected [%d,%d], got [%d,%d]", tc.min, tc.max, lower, upper)
			}
		})
	}
}

func TestSelectedOptionsEqualIgnoresOrderAndEmptyGroups(t *testing.T) {
	a := SelectedOptions{"extras": {"bacon", "cheddar"}, "pao": {"brioche"}}
	b := SelectedOptions{"pao": {"brioche"}, "extras": {"cheddar", "bacon", "bacon"}, "molhos": {}}
	if !a.Equal(b) {
		t.Fatalf("expected selections to be equal")
	}
	c := SelectedOptions{"extras": {"bacon"}, "pao": {"brioche"}}
	if a.Equal(c) {
		t.Fatalf("expected selections to differ")
	}
	d := SelectedOptions{"adicionais": {"bacon", "cheddar"}, "pao": {"brioche"}}
	if a.Equal(d) {
		t.Fatalf("groups are keyed by identity")
	}
}

func TestCartItemCount(t *testing.T) {
	cart := Cart{Lines: []CartLine{{ProductID: "a", Quantity: 2}, {ProductID: "b", Quantity: 3}}}
	if got := cart.ItemCount(); got != 5 {
		t.Fatalf("expected 5 items, got %d", got)
	}
}
