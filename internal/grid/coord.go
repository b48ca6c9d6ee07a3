// Package grid provides the 2-D grid coordinate type shared by scenes and
// sequences. A coordinate identifies one physical button on the controller
// surface and, through it, one scene or one sequence slot.
package grid

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Coord is a 2-D grid coordinate (column, row).
//
// Coordinates serialise as a two-element JSON array [x, y] to match the
// on-disk sequence format and the MQTT wire payloads.
type Coord struct {
	X int
	Y int
}

// String returns the coordinate as "x,y".
func (c Coord) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// MarshalJSON encodes the coordinate as [x, y].
func (c Coord) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{c.X, c.Y})
}

// UnmarshalJSON decodes a two-element array [x, y].
func (c *Coord) UnmarshalJSON(data []byte) error {
	var pair []int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("parsing coordinate: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("parsing coordinate: expected [x, y], got %d elements", len(pair))
	}
	c.X = pair[0]
	c.Y = pair[1]
	return nil
}

// ParseCoord parses the "x,y" form produced by String.
func ParseCoord(s string) (Coord, error) {
	parts := strings.SplitN(s, ",", 2)
	if len(parts) != 2 {
		return Coord{}, fmt.Errorf("parsing coordinate %q: expected \"x,y\"", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return Coord{}, fmt.Errorf("parsing coordinate %q: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return Coord{}, fmt.Errorf("parsing coordinate %q: %w", s, err)
	}
	return Coord{X: x, Y: y}, nil
}

// SortCoords orders coordinates by Y then X, in place.
// Used to make set snapshots deterministic for callers and tests.
func SortCoords(coords []Coord) {
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})
}
