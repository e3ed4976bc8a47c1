// Package gesture holds the gesture alphabet, the bounded trail buffer and
// the geometric classifier that maps a recorded trail to a label.
package gesture

import (
	"encoding/json"
	"fmt"
)

// Label identifies one gesture from the fixed nine-label alphabet.
type Label int

const (
	Up Label = iota
	Down
	Left
	Right
	CircleCW
	CircleCCW
	RotateCW
	RotateCCW
	Unknown
)

var labelStrings = [...]string{
	"UP",
	"DOWN",
	"LEFT",
	"RIGHT",
	"CIRCLE_CW",
	"CIRCLE_CCW",
	"ROTATE_CW",
	"ROTATE_CCW",
	"UNKNOWN",
}

func (l Label) String() string {
	if l < 0 || int(l) >= len(labelStrings) {
		return "UNKNOWN"
	}
	return labelStrings[l]
}

// ParseLabel maps the string form produced by String back to its label.
func ParseLabel(s string) (Label, bool) {
	for i, name := range labelStrings {
		if name == s {
			return Label(i), true
		}
	}
	return Unknown, false
}

// MarshalJSON renders the label as its string form.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, ok := ParseLabel(s)
	if !ok {
		return fmt.Errorf("gesture: unknown label %q", s)
	}
	*l = v
	return nil
}
