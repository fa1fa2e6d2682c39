package session

import "github.com/park285/cheese-relay/internal/rules"

// RoleTable holds the two seats. Each slot is empty or holds one connection id.
type RoleTable struct {
	white string
	black string
}

// Assign seats id in the first free slot, white first. Spectators get NoColor.
// An id that already holds a seat keeps it.
func (t *RoleTable) Assign(id string) rules.Color {
	if c := t.Seat(id); c != rules.NoColor {
		return c
	}
	switch {
	case t.white == "":
		t.white = id
		return rules.White
	case t.black == "":
		t.black = id
		return rules.Black
	default:
		return rules.NoColor
	}
}

// Release frees the seat held by id and returns its color, or NoColor for spectators.
func (t *RoleTable) Release(id string) rules.Color {
	switch {
	case id == "":
		return rules.NoColor
	case t.white == id:
		t.white = ""
		return rules.White
	case t.black == id:
		t.black = ""
		return rules.Black
	default:
		return rules.NoColor
	}
}

// Seat returns the color held by id.
func (t *RoleTable) Seat(id string) rules.Color {
	switch {
	case id == "":
		return rules.NoColor
	case t.white == id:
		return rules.White
	case t.black == id:
		return rules.Black
	default:
		return rules.NoColor
	}
}

// Holder returns the connection id seated at c, or "".
func (t *RoleTable) Holder(c rules.Color) string {
	switch c {
	case rules.White:
		return t.white
	case rules.Black:
		return t.black
	default:
		return ""
	}
}

// Full reports whether both seats are taken.
func (t *RoleTable) Full() bool { return t.white != "" && t.black != "" }

// Seated returns the number of occupied seats.
func (t *RoleTable) Seated() int {
	n := 0
	if t.white != "" {
		n++
	}
	if t.black != "" {
		n++
	}
	return n
}
