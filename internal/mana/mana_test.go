package mana

import (
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		cost      string
		wantKinds []Kind
		wantValue float64
	}{
		{"empty", "", nil, 0},
		{"generic and colored", "{2}{W}{W}", []Kind{KindGeneric, KindColored, KindColored}, 4},
		{"double digit generic", "{15}", []Kind{KindGeneric}, 15},
		{"hybrid", "{W/U}{W/U}", []Kind{KindHybrid, KindHybrid}, 2},
		{"generic hybrid", "{2/W}", []Kind{KindGenericHybrid}, 2},
		{"phyrexian", "{1}{B/P}", []Kind{KindGeneric, KindPhyrexian}, 2},
		{"hybrid phyrexian", "{G/U/P}", []Kind{KindPhyrexian}, 1},
		{"variable", "{X}{X}{R}", []Kind{KindVariable, KindVariable, KindColored}, 1},
		{"colorless and snow", "{C}{S}", []Kind{KindColorless, KindSnow}, 2},
		{"split card", "{1}{R} // {2}{U}", []Kind{KindGeneric, KindColored, KindGeneric, KindColored}, 5},
		{"lower case", "{g}", []Kind{KindColored}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			symbols, err := Parse(tt.cost)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.cost, err)
			}
			if len(symbols) != len(tt.wantKinds) {
				t.Fatalf("Parse(%q) returned %d symbols, want %d", tt.cost, len(symbols), len(tt.wantKinds))
			}
			for i, s := range symbols {
				if s.Kind != tt.wantKinds[i] {
					t.Errorf("symbol %d kind = %s, want %s", i, s.Kind, tt.wantKinds[i])
				}
			}
			if got := Value(symbols); got != tt.wantValue {
				t.Errorf("Value(%q) = %v, want %v", tt.cost, got, tt.wantValue)
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, cost := range []string{"{2", "{Q}", "{}", "{W/Q}"} {
		if _, err := Parse(cost); err == nil {
			t.Errorf("Parse(%q) expected error", cost)
		}
	}
}

func TestParse_KeepsOrderAndRaw(t *testing.T) {
	symbols, err := Parse("{3}{U/B}{B}")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"{3}", "{U/B}", "{B}"}
	for i, s := range symbols {
		if s.Raw != want[i] {
			t.Errorf("symbol %d raw = %s, want %s", i, s.Raw, want[i])
		}
	}
	if !symbols[1].Colors.Contains(Blue) || !symbols[1].Colors.Contains(Black) {
		t.Errorf("hybrid colors = %v, want U and B", symbols[1].Colors)
	}
}

func TestColorsOf(t *testing.T) {
	symbols, _ := Parse("{G}{1}{W/U}")
	got := ColorsOf(symbols).String()
	if got != "WUG" {
		t.Errorf("ColorsOf = %s, want WUG", got)
	}
}

func TestColors_SubsetOf(t *testing.T) {
	ub := Colors{Blue, Black}
	tests := []struct {
		name string
		set  Colors
		want bool
	}{
		{"empty is subset", Colors{}, true},
		{"same set", Colors{Black, Blue}, true},
		{"strict subset", Colors{Blue}, true},
		{"extra color", Colors{Blue, Black, Red}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.set.SubsetOf(ub); got != tt.want {
				t.Errorf("%v.SubsetOf(UB) = %v, want %v", tt.set, got, tt.want)
			}
		})
	}

	outside := Colors{Red, Blue, Black}.Outside(ub)
	if outside.String() != "R" {
		t.Errorf("Outside = %s, want R", outside.String())
	}
}

func TestParseColors(t *testing.T) {
	got := ParseColors([]string{"u", "B", "B", "x", ""})
	if len(got) != 2 || got[0] != Blue || got[1] != Black {
		t.Errorf("ParseColors = %v, want [U B]", got)
	}
	if Colors(nil).String() != "C" {
		t.Errorf("empty colors should render as C")
	}
}
