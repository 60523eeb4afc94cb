// Package protocol encodes and decodes the line protocol spoken with the game
// server. Every message is one newline-terminated line of '|'-separated fields,
// the first of which is the message tag.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/brensch/lightcycle/game"
)

var (
	// ErrEmptyLine is returned for a blank line. The server never sends one
	// on a healthy connection.
	ErrEmptyLine = errors.New("protocol: empty line")
	// ErrMalformed is returned when a known tag carries missing or
	// non-numeric fields, or announces a board larger than MaxCells.
	ErrMalformed = errors.New("protocol: malformed message")
)

// Limits on the board announced by a game line. Larger boards are rejected
// as malformed instead of being allocated.
const (
	MaxSide  = 1 << 16
	MaxCells = 1 << 22
)

// Kind identifies a server message.
type Kind int

const (
	KindMotd Kind = iota
	KindError
	KindPos
	KindWin
	KindLose
	KindGame
	KindTick
	KindDie
	KindMessage
	KindPlayer
)

var kindTags = map[Kind]string{
	KindMotd:    "motd",
	KindError:   "error",
	KindPos:     "pos",
	KindWin:     "win",
	KindLose:    "lose",
	KindGame:    "game",
	KindTick:    "tick",
	KindDie:     "die",
	KindMessage: "message",
	KindPlayer:  "player",
}

var tagKinds = func() map[string]Kind {
	m := make(map[string]Kind, len(kindTags))
	for k, tag := range kindTags {
		m[tag] = k
	}
	return m
}()

func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Answer is one decoded server message. Only the fields relevant to Kind are
// set.
type Answer struct {
	Kind Kind
	// Player is set for pos, game (our own id), message and player.
	Player game.PlayerID
	// Pos is set for pos.
	Pos game.Position
	// Size is set for game.
	Size game.Size
	// Text is set for motd, error, message and player (the name).
	Text string
	// Wins and Losses are set for win and lose.
	Wins   uint32
	Losses uint32
	// Dead is set for die.
	Dead []game.PlayerID
}

// ParseAnswer decodes one line. Trailing whitespace is ignored. For an
// unknown tag it returns ok=false and no error.
func ParseAnswer(line string) (a Answer, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Answer{}, false, ErrEmptyLine
	}
	fields := strings.Split(line, "|")
	kind, known := tagKinds[fields[0]]
	if !known {
		return Answer{}, false, nil
	}
	args := fields[1:]
	a.Kind = kind

	switch kind {
	case KindMotd, KindError:
		a.Text = strings.Join(args, "|")
	case KindPos:
		var nums []uint32
		if nums, err = parseUints(line, args, 3); err != nil {
			return Answer{}, false, err
		}
		a.Player = game.PlayerID(nums[0])
		a.Pos = game.Position{X: nums[1], Y: nums[2]}
	case KindWin, KindLose:
		var nums []uint32
		if nums, err = parseUints(line, args, 2); err != nil {
			return Answer{}, false, err
		}
		a.Wins, a.Losses = nums[0], nums[1]
	case KindGame:
		var nums []uint32
		if nums, err = parseUints(line, args, 3); err != nil {
			return Answer{}, false, err
		}
		if nums[0] > MaxSide || nums[1] > MaxSide || uint64(nums[0])*uint64(nums[1]) > MaxCells {
			return Answer{}, false, fmt.Errorf("%w: %q: board %dx%d too large", ErrMalformed, line, nums[0], nums[1])
		}
		a.Size = game.Size{Width: nums[0], Height: nums[1]}
		a.Player = game.PlayerID(nums[2])
	case KindTick:
	case KindDie:
		ids := args[:0:0]
		for _, f := range args {
			if f != "" {
				ids = append(ids, f)
			}
		}
		var nums []uint32
		if nums, err = parseUints(line, ids, len(ids)); err != nil {
			return Answer{}, false, err
		}
		a.Dead = make([]game.PlayerID, len(nums))
		for i, n := range nums {
			a.Dead[i] = game.PlayerID(n)
		}
	case KindMessage, KindPlayer:
		if len(args) < 1 {
			return Answer{}, false, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		var nums []uint32
		if nums, err = parseUints(line, args[:1], 1); err != nil {
			return Answer{}, false, err
		}
		a.Player = game.PlayerID(nums[0])
		a.Text = strings.Join(args[1:], "|")
	}
	return a, true, nil
}

// parseUints parses the first n fields, which must all be present.
func parseUints(line string, args []string, n int) ([]uint32, error) {
	if len(args) < n {
		return nil, fmt.Errorf("%w: %q: want %d fields, got %d", ErrMalformed, line, n, len(args))
	}
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		v, err := strconv.ParseUint(args[i], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: field %d: %v", ErrMalformed, line, i+1, err)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// Decoder reads answers from a stream, skipping unknown tags.
type Decoder struct {
	r      *bufio.Reader
	logger *slog.Logger
}

func NewDecoder(r io.Reader, logger *slog.Logger) *Decoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Decoder{r: bufio.NewReader(r), logger: logger}
}

// Next returns the next known answer. A closed stream yields io.EOF; a line
// cut short by the end of the stream is still decoded.
func (d *Decoder) Next() (Answer, error) {
	for {
		line, err := d.r.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return Answer{}, err
		}
		d.logger.Debug("Received", "line", strings.TrimSpace(line))

		a, ok, perr := ParseAnswer(line)
		if perr != nil {
			return Answer{}, perr
		}
		if ok {
			return a, nil
		}
		tag, _, _ := strings.Cut(strings.TrimSpace(line), "|")
		d.logger.Warn("Unknown message from server", "tag", tag)
		if err != nil {
			return Answer{}, err
		}
	}
}

// Command is one client message.
type Command struct {
	tag    string
	fields []string
}

// Join asks the server to join with the given credentials.
func Join(user, password string) Command {
	return Command{tag: "join", fields: []string{user, password}}
}

// Move sends the direction for the current tick.
func Move(d game.Direction) Command {
	return Command{tag: "move", fields: []string{d.String()}}
}

// Chat sends a chat line. Newlines are replaced so the text stays one
// message.
func Chat(text string) Command {
	text = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(text)
	return Command{tag: "chat", fields: []string{text}}
}

// String returns the wire form without the newline.
func (c Command) String() string {
	return strings.Join(append([]string{c.tag}, c.fields...), "|")
}

// Encoder writes commands, one flushed line each.
type Encoder struct {
	w      *bufio.Writer
	logger *slog.Logger
}

func NewEncoder(w io.Writer, logger *slog.Logger) *Encoder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Encoder{w: bufio.NewWriter(w), logger: logger}
}

func (e *Encoder) Send(c Command) error {
	line := c.String()
	e.logger.Debug("Sending", "line", line)
	if _, err := e.w.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("send %s: %w", c.tag, err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("send %s: %w", c.tag, err)
	}
	return nil
}
