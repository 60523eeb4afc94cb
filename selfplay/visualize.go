package selfplay

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/brensch/lightcycle/game"
)

// PrintBoard writes an ASCII rendering of board: '.' is free, trails use a
// lower-case letter per player and heads the upper-case one.
func PrintBoard(w io.Writer, tick int, board *game.State) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Tick %d (%d alive, %d free) ===\n", tick, len(board.Heads), board.FreeCells())
	for y := uint32(0); y < board.Size.Height; y++ {
		for x := uint32(0); x < board.Size.Width; x++ {
			p := game.Position{X: x, Y: y}
			owner, ok := board.Owner(p)
			if !ok {
				sb.WriteString(". ")
				continue
			}
			letter := rune('a' + (int(owner)-1+26)%26)
			if board.Heads[owner] == p {
				letter = unicode.ToUpper(letter)
			}
			sb.WriteRune(letter)
			sb.WriteByte(' ')
		}
		sb.WriteByte('\n')
	}
	io.WriteString(w, sb.String())
}
