package motion

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Protocol is the wire vocabulary of a controller firmware. Frames are sent
// without terminator; the transport appends it.
type Protocol struct {
	// Wake is sent once on connect; the controller answers with a banner.
	Wake    string
	Banners []string

	// AxisSelect holds one select frame per axis index.
	AxisSelect []string

	// MoveForward and MoveBackward prefix the step magnitude of a relative move.
	MoveForward  string
	MoveBackward string

	// MovingQuery returns a number, non-zero while the selected axis moves.
	MovingQuery string
	// LimitQuery returns the limit switch status word of the selected axis.
	LimitQuery string
	SoftStop   string

	// AbsentCode is the limit status reported for an unpopulated axis.
	AbsentCode int
	// HomeMarker appears in the limit status once the home switch is reached.
	HomeMarker string

	// ReadSize is the number of bytes requested per reply.
	ReadSize int
}

// DefaultProtocol returns the vocabulary of the reference four-axis controller
func DefaultProtocol() Protocol {
	return Protocol{
		Wake:         " ",
		Banners:      []string{"v2.55\r\n#\r\n", " v2.55\r\n"},
		AxisSelect:   []string{"A8", "A24", "A40", "A56"},
		MoveForward:  "+",
		MoveBackward: "-",
		MovingQuery:  "^",
		LimitQuery:   "]",
		SoftStop:     "@",
		AbsentCode:   34,
		HomeMarker:   "32",
		ReadSize:     64,
	}
}

func (p Protocol) validate(axes int) error {
	switch {
	case len(p.AxisSelect) < axes:
		return fmt.Errorf("protocol defines %d axis selects, %d axes configured", len(p.AxisSelect), axes)
	case p.MovingQuery == "" || p.LimitQuery == "" || p.SoftStop == "":
		return fmt.Errorf("protocol query and stop frames must be set")
	case p.MoveForward == p.MoveBackward:
		return fmt.Errorf("protocol move prefixes must differ")
	case p.ReadSize <= 0:
		return fmt.Errorf("protocol read size must be positive")
	}
	return nil
}

// moveFrame encodes a relative move. The sign is carried by the prefix and
// zero steps encode to no frame at all.
func (p Protocol) moveFrame(steps int64) string {
	switch {
	case steps > 0:
		return p.MoveForward + strconv.FormatInt(steps, 10)
	case steps < 0:
		return p.MoveBackward + strconv.FormatUint(uint64(-steps), 10)
	default:
		return ""
	}
}

// matchBanner accepts a known banner exactly or once surrounding whitespace
// is trimmed, since some firmware revisions pad the greeting differently
func (p Protocol) matchBanner(reply []byte) bool {
	trimmed := strings.TrimSpace(string(reply))
	for _, b := range p.Banners {
		if string(reply) == b || trimmed == strings.TrimSpace(b) {
			return true
		}
	}
	return false
}

func (p Protocol) isHome(limit []byte) bool {
	return bytes.Contains(limit, []byte(p.HomeMarker))
}

var statusNumber = regexp.MustCompile(`-?\d+`)

// parseStatus extracts the first integer of a status reply. An empty reply
// is ErrProtocolTimeout; a reply without digits is ErrProtocolMismatch.
func parseStatus(reply []byte) (int, error) {
	if len(bytes.TrimSpace(reply)) == 0 {
		return 0, ErrProtocolTimeout
	}

	m := statusNumber.Find(reply)
	if m == nil {
		return 0, fmt.Errorf("%w: unexpected status %q", ErrProtocolMismatch, reply)
	}

	v, err := strconv.Atoi(string(m))
	if err != nil {
		return 0, fmt.Errorf("%w: status %q: %v", ErrProtocolMismatch, reply, err)
	}
	return v, nil
}
