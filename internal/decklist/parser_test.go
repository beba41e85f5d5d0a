package decklist

import (
	"reflect"
	"testing"
)

func TestParse_Lines(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Line
	}{
		{
			name: "set and collector number",
			line: "4x Lightning Bolt (2xm) 123",
			want: Line{Quantity: 4, Name: "Lightning Bolt", SetCode: "2xm", CollectorNumber: "123"},
		},
		{
			name: "tags",
			line: "1x Sol Ring [Ramp]",
			want: Line{Quantity: 1, Name: "Sol Ring", Tags: []string{"Ramp"}},
		},
		{
			name: "no x",
			line: "2 Counterspell",
			want: Line{Quantity: 2, Name: "Counterspell"},
		},
		{
			name: "foil with tags and options",
			line: "1x Swords to Plowshares (sta) 10 *F* [Removal, Instant] {noprice}",
			want: Line{Quantity: 1, Name: "Swords to Plowshares", SetCode: "sta", CollectorNumber: "10",
				Foil: true, Tags: []string{"Removal", "Instant"}, Options: []string{"noprice"}},
		},
		{
			name: "set upper case without number",
			line: "3 Opt (XLN)",
			want: Line{Quantity: 3, Name: "Opt", SetCode: "xln"},
		},
		{
			name: "collector number with letter",
			line: "1 Brazen Borrower (eld) 39p",
			want: Line{Quantity: 1, Name: "Brazen Borrower", SetCode: "eld", CollectorNumber: "39p"},
		},
		{
			name: "commander tag",
			line: "1x Atraxa, Praetors' Voice (cm2) 10 [Commander{top}]",
			want: Line{Quantity: 1, Name: "Atraxa, Praetors' Voice", SetCode: "cm2", CollectorNumber: "10",
				Tags: []string{"Commander{top}"}, Commander: true},
		},
		{
			name: "split card",
			line: "1 Fire // Ice",
			want: Line{Quantity: 1, Name: "Fire // Ice"},
		},
		{
			name: "simple fallback keeps odd names",
			line: "1 Who/What/When/Where/Why*",
			want: Line{Quantity: 1, Name: "Who/What/When/Where/Why*"},
		},
		{
			name: "trailing quantity",
			line: "Lightning Bolt x4",
			want: Line{Quantity: 4, Name: "Lightning Bolt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.line)
			if len(result.Requests) != 1 {
				t.Fatalf("Parse(%q) returned %d requests, want 1 (malformed: %v)", tt.line, len(result.Requests), result.Malformed)
			}
			got := result.Requests[0]
			tt.want.Number = 1
			tt.want.Raw = tt.line
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q)\n got  %+v\n want %+v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParse_ImportScenario(t *testing.T) {
	text := "4x Lightning Bolt (2xm) 123\n1x Sol Ring [Ramp]\n2 Some Card {Maybeboard}\n"
	result := Parse(text)

	if len(result.Requests) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(result.Requests))
	}
	if result.Requests[0].Name != "Lightning Bolt" || result.Requests[1].Name != "Sol Ring" {
		t.Errorf("requests out of order: %s, %s", result.Requests[0].Name, result.Requests[1].Name)
	}
	if len(result.Maybeboard) != 1 || result.Maybeboard[0].Name != "Some Card" {
		t.Errorf("expected Some Card in maybeboard, got %+v", result.Maybeboard)
	}
	if len(result.Malformed) != 0 {
		t.Errorf("expected no malformed lines, got %+v", result.Malformed)
	}
}

func TestParse_MaybeboardMarkers(t *testing.T) {
	lines := []string{
		"1 Card A [Maybeboard]",
		"1 Card B {nodeck}",
		"1 Card C [Ramp, Maybeboard{noDeck}]",
		"2 Foo [Maybeboard] junk",
		"1 Bar {noDeck} (abc) 12",
		"Baz [Maybeboard] x3",
	}
	for _, line := range lines {
		result := Parse(line)
		if len(result.Maybeboard) != 1 || len(result.Requests) != 0 {
			t.Errorf("Parse(%q): want maybeboard, got requests=%d maybeboard=%d", line, len(result.Requests), len(result.Maybeboard))
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	text := "Lightning Bolt\n0 Sol Ring\n\n// comment\n# another\n1 Opt\nfour Shock\n"
	result := Parse(text)

	if len(result.Requests) != 1 || result.Requests[0].Name != "Opt" {
		t.Fatalf("expected only Opt to parse, got %+v", result.Requests)
	}
	wantLines := []int{1, 2, 7}
	if len(result.Malformed) != len(wantLines) {
		t.Fatalf("expected %d malformed lines, got %+v", len(wantLines), result.Malformed)
	}
	for i, n := range wantLines {
		if result.Malformed[i].Number != n {
			t.Errorf("malformed[%d] line = %d, want %d", i, result.Malformed[i].Number, n)
		}
	}
	if result.Requests[0].Number != 6 {
		t.Errorf("Opt line number = %d, want 6", result.Requests[0].Number)
	}
}

func TestParse_Sections(t *testing.T) {
	text := `Commander
1 Kenrith, the Returned King

Deck
1 Sol Ring
1 Arcane Signet

Sideboard:
2 Duress

Mainboard (1)
1 Command Tower
`
	result := Parse(text)

	if len(result.Requests) != 4 {
		t.Fatalf("expected 4 requests, got %d: %+v", len(result.Requests), result.Requests)
	}
	if !result.Requests[0].Commander {
		t.Errorf("expected first request to be the commander")
	}
	for _, r := range result.Requests[1:] {
		if r.Commander {
			t.Errorf("%s should not be a commander", r.Name)
		}
	}
	if len(result.Maybeboard) != 1 || result.Maybeboard[0].Name != "Duress" {
		t.Errorf("expected Duress skipped as sideboard, got %+v", result.Maybeboard)
	}
	if result.Requests[3].Name != "Command Tower" {
		t.Errorf("expected Command Tower after mainboard header, got %s", result.Requests[3].Name)
	}
}

func TestFormat_RoundTrip(t *testing.T) {
	lines := []Line{
		{Quantity: 4, Name: "Lightning Bolt", SetCode: "2xm", CollectorNumber: "123"},
		{Quantity: 1, Name: "Atraxa, Praetors' Voice", SetCode: "cm2", CollectorNumber: "10", Commander: true},
		{Quantity: 1, Name: "Sol Ring", SetCode: "c21", CollectorNumber: "263", Foil: true},
		{Quantity: 12, Name: "Forest"},
	}

	text := Format(lines)
	result := Parse(text)

	if len(result.Requests) != len(lines) {
		t.Fatalf("round trip returned %d requests, want %d:\n%s", len(result.Requests), len(lines), text)
	}

	// commander is written first
	first := result.Requests[0]
	if !first.Commander || first.Name != "Atraxa, Praetors' Voice" {
		t.Errorf("first line = %+v, want the commander", first)
	}

	byName := make(map[string]Line)
	for _, r := range result.Requests {
		byName[r.Name] = r
	}
	for _, want := range lines {
		got, ok := byName[want.Name]
		if !ok {
			t.Errorf("%s missing after round trip", want.Name)
			continue
		}
		if got.Quantity != want.Quantity || got.SetCode != want.SetCode ||
			got.CollectorNumber != want.CollectorNumber || got.Foil != want.Foil || got.Commander != want.Commander {
			t.Errorf("%s round trip = %+v, want %+v", want.Name, got, want)
		}
	}
}
