package grid

import (
	"encoding/json"
	"testing"
)

func TestCoordJSONRoundTrip(t *testing.T) {
	c := Coord{X: 3, Y: 7}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != "[3,7]" {
		t.Errorf("Marshal = %s, want [3,7]", data)
	}

	var got Coord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got != c {
		t.Errorf("round trip = %v, want %v", got, c)
	}
}

func TestCoordUnmarshalRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"too short", "[1]"},
		{"too long", "[1,2,3]"},
		{"object", `{"x":1,"y":2}`},
		{"strings", `["1","2"]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Coord
			if err := json.Unmarshal([]byte(tt.in), &c); err == nil {
				t.Errorf("Unmarshal(%s) should fail", tt.in)
			}
		})
	}
}

func TestParseCoord(t *testing.T) {
	c, err := ParseCoord("4,5")
	if err != nil {
		t.Fatalf("ParseCoord: %v", err)
	}
	if c != (Coord{X: 4, Y: 5}) {
		t.Errorf("ParseCoord = %v, want (4,5)", c)
	}

	for _, in := range []string{"", "4", "4,", "a,b", "1,2,3"} {
		if _, err := ParseCoord(in); err == nil {
			t.Errorf("ParseCoord(%q) should fail", in)
		}
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	c := Coord{X: 6, Y: 0}
	got, err := ParseCoord(c.String())
	if err != nil {
		t.Fatalf("ParseCoord(String()): %v", err)
	}
	if got != c {
		t.Errorf("round trip = %v, want %v", got, c)
	}
}

func TestSortCoords(t *testing.T) {
	coords := []Coord{{X: 2, Y: 1}, {X: 0, Y: 3}, {X: 2, Y: 0}, {X: 0, Y: 0}}
	SortCoords(coords)

	want := []Coord{{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 2, Y: 1}, {X: 0, Y: 3}}
	for i := range want {
		if coords[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", coords, want)
		}
	}
}
