package protocol

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"github.com/brensch/lightcycle/game"
)

func TestParseAnswer(t *testing.T) {
	cases := []struct {
		line string
		want Answer
	}{
		{"motd|hello there", Answer{Kind: KindMotd, Text: "hello there"}},
		{"error|you were kicked", Answer{Kind: KindError, Text: "you were kicked"}},
		{"pos|3|10|7", Answer{Kind: KindPos, Player: 3, Pos: game.Position{X: 10, Y: 7}}},
		{"win|4|2", Answer{Kind: KindWin, Wins: 4, Losses: 2}},
		{"lose|4|3", Answer{Kind: KindLose, Wins: 4, Losses: 3}},
		{"game|64|32|5", Answer{Kind: KindGame, Size: game.Size{Width: 64, Height: 32}, Player: 5}},
		{"tick", Answer{Kind: KindTick}},
		{"tick\r\n", Answer{Kind: KindTick}},
		{"die|1|2|9", Answer{Kind: KindDie, Dead: []game.PlayerID{1, 2, 9}}},
		{"die", Answer{Kind: KindDie, Dead: []game.PlayerID{}}},
		{"message|2|gl|hf", Answer{Kind: KindMessage, Player: 2, Text: "gl|hf"}},
		{"player|7|bob", Answer{Kind: KindPlayer, Player: 7, Text: "bob"}},
	}
	for _, tc := range cases {
		t.Run(strings.TrimSpace(tc.line), func(t *testing.T) {
			got, ok, err := ParseAnswer(tc.line)
			if err != nil || !ok {
				t.Fatalf("ParseAnswer(%q): ok=%v err=%v", tc.line, ok, err)
			}
			if got.Kind != tc.want.Kind || got.Player != tc.want.Player || got.Pos != tc.want.Pos ||
				got.Size != tc.want.Size || got.Text != tc.want.Text ||
				got.Wins != tc.want.Wins || got.Losses != tc.want.Losses ||
				!slices.Equal(got.Dead, tc.want.Dead) {
				t.Fatalf("got=%+v want=%+v", got, tc.want)
			}
		})
	}
}

func TestParseAnswer_Errors(t *testing.T) {
	if _, _, err := ParseAnswer(""); !errors.Is(err, ErrEmptyLine) {
		t.Fatalf("empty: err=%v", err)
	}
	if _, _, err := ParseAnswer("  \n"); !errors.Is(err, ErrEmptyLine) {
		t.Fatalf("blank: err=%v", err)
	}
	for _, line := range []string{
		"pos|1|2", "pos|a|2|3", "game|10|-1|2", "win|1", "die|1|x", "player",
		"game|4294967295|4294967295|1", "game|65537|1|1", "game|4097|1024|1",
	} {
		if _, _, err := ParseAnswer(line); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: err=%v want ErrMalformed", line, err)
		}
	}
}

func TestParseAnswer_LargestBoardAccepted(t *testing.T) {
	a, ok, err := ParseAnswer("game|4096|1024|1")
	if err != nil || !ok {
		t.Fatalf("ok=%v err=%v", ok, err)
	}
	if a.Size.Cells() != MaxCells {
		t.Fatalf("cells=%d want %d", a.Size.Cells(), MaxCells)
	}
}

func TestParseAnswer_UnknownTag(t *testing.T) {
	a, ok, err := ParseAnswer("powerup|1|2")
	if err != nil || ok {
		t.Fatalf("ok=%v err=%v a=%+v", ok, err, a)
	}
}

func TestDecoder_SkipsUnknownAndReportsEOF(t *testing.T) {
	in := "motd|hi\nbogus|1\ngame|3|3|1\npos|1|1|1\ntick"
	d := NewDecoder(strings.NewReader(in), slog.New(slog.NewTextHandler(io.Discard, nil)))

	var kinds []Kind
	for {
		a, err := d.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		kinds = append(kinds, a.Kind)
	}
	want := []Kind{KindMotd, KindGame, KindPos, KindTick}
	if !slices.Equal(kinds, want) {
		t.Fatalf("kinds=%v want=%v", kinds, want)
	}
}

func TestDecoder_EmptyLineIsFatal(t *testing.T) {
	d := NewDecoder(strings.NewReader("tick\n\ntick\n"), nil)
	if _, err := d.Next(); err != nil {
		t.Fatalf("first: %v", err)
	}
	if _, err := d.Next(); !errors.Is(err, ErrEmptyLine) {
		t.Fatalf("second: err=%v want ErrEmptyLine", err)
	}
}

func TestEncoder(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf, nil)
	for _, c := range []Command{
		Join("alice", "s3cret"),
		Move(game.MoveLeft),
		Move(game.MoveUp),
		Chat("hello\nworld"),
	} {
		if err := e.Send(c); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	want := "join|alice|s3cret\nmove|left\nmove|up\nchat|hello world\n"
	if buf.String() != want {
		t.Fatalf("got=%q want=%q", buf.String(), want)
	}
}

func TestKindString(t *testing.T) {
	if KindDie.String() != "die" || Kind(99).String() != "Kind(99)" {
		t.Fatalf("unexpected kind names")
	}
}
