package event

import (
	"errors"

	"github.com/tidwall/gjson"

	"github.com/dshills/selact/internal/rule"
)

// ErrBadPoint is returned when a spotlight payload is neither a [x,y]
// tuple nor a {x,y} object.
var ErrBadPoint = errors.New("malformed point payload")

// SelectionPayload is the trigger.selection message body: everything the
// overlay needs to start a session. The overlay never reaches back into
// controller state.
type SelectionPayload struct {
	Actions      []rule.Rule        `json:"actions"`
	CapturedText string             `json:"captured_text"`
	AIResult     *rule.ActionResult `json:"ai_result"`
}

// Point is a screen coordinate in logical pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DecodePoint parses a trigger.spotlight payload. Gesture sources encode
// the coordinate either as a two-element array [x, y] or as an object
// {"x": ..., "y": ...}; both are accepted.
func DecodePoint(raw []byte) (Point, error) {
	doc := gjson.ParseBytes(raw)
	switch {
	case doc.IsArray():
		arr := doc.Array()
		if len(arr) != 2 {
			return Point{}, ErrBadPoint
		}
		return Point{X: arr[0].Float(), Y: arr[1].Float()}, nil
	case doc.IsObject():
		x := doc.Get("x")
		y := doc.Get("y")
		if !x.Exists() || !y.Exists() {
			return Point{}, ErrBadPoint
		}
		return Point{X: x.Float(), Y: y.Float()}, nil
	default:
		return Point{}, ErrBadPoint
	}
}
