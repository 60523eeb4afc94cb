package game

import "fmt"

// Direction is one of the four cardinal moves.
type Direction int

const (
	MoveUp Direction = iota
	MoveDown
	MoveLeft
	MoveRight
)

// Directions lists every move in evaluation order.
var Directions = [4]Direction{MoveUp, MoveDown, MoveLeft, MoveRight}

var directionNames = [4]string{"up", "down", "left", "right"}

// String returns the wire name of the direction.
func (d Direction) String() string {
	if d < MoveUp || d > MoveRight {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection converts a wire name back into a Direction.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("unknown direction %q", s)
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	switch d {
	case MoveUp:
		return MoveDown
	case MoveDown:
		return MoveUp
	case MoveLeft:
		return MoveRight
	default:
		return MoveLeft
	}
}

// Move returns the neighbouring position in direction d, wrapping around the
// board edges.
func (p Position) Move(d Direction, size Size) Position {
	switch d {
	case MoveUp:
		return Position{X: p.X, Y: (size.Height + p.Y - 1) % size.Height}
	case MoveDown:
		return Position{X: p.X, Y: (p.Y + 1) % size.Height}
	case MoveLeft:
		return Position{X: (size.Width + p.X - 1) % size.Width, Y: p.Y}
	default:
		return Position{X: (p.X + 1) % size.Width, Y: p.Y}
	}
}

// Neighbours returns the four positions adjacent to p.
func (p Position) Neighbours(size Size) [4]Position {
	var out [4]Position
	for i, d := range Directions {
		out[i] = p.Move(d, size)
	}
	return out
}
