package widget

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultAspectRatio applies when a bundle declares nothing.
	DefaultAspectRatio = 2.0
	// MalformedAspectRatio applies when a W:H declaration is present but
	// cannot be turned into a positive ratio. It intentionally differs from
	// DefaultAspectRatio.
	MalformedAspectRatio = 1.0

	flexToken = "flex"
)

// AspectRatio is a width:height ratio, or the flex sentinel meaning the
// presentation layer decides the width.
type AspectRatio struct {
	value float64
	flex  bool
}

var Flex = AspectRatio{flex: true}

func Ratio(v float64) AspectRatio {
	return AspectRatio{value: v}
}

func (a AspectRatio) IsFlex() bool {
	return a.flex
}

func (a AspectRatio) Value() float64 {
	return a.value
}

// WidthFor derives a width from height. It reports false for flex.
func (a AspectRatio) WidthFor(height int) (int, bool) {
	if a.flex {
		return 0, false
	}
	return int(math.Round(float64(height) * a.value)), true
}

func (a AspectRatio) String() string {
	if a.flex {
		return flexToken
	}
	return strconv.FormatFloat(a.value, 'g', -1, 64)
}

func (a AspectRatio) MarshalJSON() ([]byte, error) {
	if a.flex {
		return json.Marshal(flexToken)
	}
	return json.Marshal(a.value)
}

func (a *AspectRatio) UnmarshalJSON(data []byte) error {
	var token string
	if err := json.Unmarshal(data, &token); err == nil {
		if token != flexToken {
			return fmt.Errorf("aspect ratio: unknown token %q", token)
		}
		*a = Flex
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("aspect ratio: %w", err)
	}
	*a = Ratio(v)
	return nil
}

// ParseOutcome records which branch of the aspect-ratio grammar applied.
type ParseOutcome int

const (
	OutcomeAbsent ParseOutcome = iota
	OutcomeFlex
	OutcomeRatio
	OutcomeMalformed
)

func (o ParseOutcome) String() string {
	switch o {
	case OutcomeFlex:
		return "flex"
	case OutcomeRatio:
		return "ratio"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "absent"
	}
}

var aspectDeclaration = regexp.MustCompile(`<!--\s*aspect-ratio:\s*([\w:]+)\s*-->`)

// ParseAspectRatio scans widget markup for a declaration such as
// <!-- aspect-ratio: 16:9 --> or <!-- aspect-ratio: flex -->.
//
//	no declaration            -> 2.0 (absent)
//	flex                      -> Flex
//	W:H                       -> W/H
//	W:H with H=0 or bad W/H   -> 1.0 (malformed)
//	token without one colon   -> 2.0 (absent)
func ParseAspectRatio(markup string) (AspectRatio, ParseOutcome) {
	m := aspectDeclaration.FindStringSubmatch(markup)
	if m == nil {
		return Ratio(DefaultAspectRatio), OutcomeAbsent
	}

	token := m[1]
	if token == flexToken {
		return Flex, OutcomeFlex
	}

	parts := strings.Split(token, ":")
	if len(parts) != 2 {
		return Ratio(DefaultAspectRatio), OutcomeAbsent
	}

	w, errW := strconv.ParseFloat(parts[0], 64)
	h, errH := strconv.ParseFloat(parts[1], 64)
	if errW != nil || errH != nil || h == 0 {
		return Ratio(MalformedAspectRatio), OutcomeMalformed
	}

	ratio := w / h
	if ratio <= 0 || math.IsInf(ratio, 0) || math.IsNaN(ratio) {
		return Ratio(MalformedAspectRatio), OutcomeMalformed
	}

	return Ratio(ratio), OutcomeRatio
}
