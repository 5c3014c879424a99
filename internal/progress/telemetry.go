package progress

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bag holds the interaction telemetry for a record. Keys are merged shallowly:
// new keys are added, existing keys are overwritten, nothing else is touched.
type Bag map[string]json.RawMessage

// Merge folds src into b, returning the merged bag. b may be nil.
func (b Bag) Merge(src Bag) Bag {
	if b == nil {
		b = Bag{}
	}
	for k, v := range src {
		b[k] = v
	}
	return b
}

// Clone returns a copy so store snapshots do not alias caller maps.
func (b Bag) Clone() Bag {
	if b == nil {
		return nil
	}
	out := make(Bag, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Interaction is one telemetry event. Known kinds get typed constructors; the
// generic fallback accepts any key set the clients invent.
type Interaction interface {
	bag() (Bag, error)
}

// VideoPosition records the furthest playback offset seen.
type VideoPosition struct {
	PositionSec int64 `json:"position_sec"`
}

func (v VideoPosition) bag() (Bag, error) { return oneKey("last_video_position", v) }

// QuizDraft stores in-flight answers so a reload does not lose them.
type QuizDraft struct {
	Answers []json.RawMessage `json:"answers"`
}

func (q QuizDraft) bag() (Bag, error) { return oneKey("quiz_answer_draft", q) }

// PageView marks a content page as opened.
type PageView struct {
	Page int `json:"page"`
}

func (p PageView) bag() (Bag, error) { return oneKey("last_page_view", p) }

// Action is a named event marker (quiz_submitted, assignment_submitted, ...).
type Action struct {
	Name string `json:"action"`
}

func (a Action) bag() (Bag, error) {
	if strings.TrimSpace(a.Name) == "" {
		return nil, fmt.Errorf("action name required")
	}
	return oneKey("last_action", a)
}

// Custom carries arbitrary client telemetry keys unchanged.
type Custom map[string]any

func (c Custom) bag() (Bag, error) {
	out := make(Bag, len(c))
	for k, v := range c {
		if strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("empty telemetry key")
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("telemetry key %q: %w", k, err)
		}
		out[k] = raw
	}
	return out, nil
}

func oneKey(key string, v any) (Bag, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return Bag{key: raw}, nil
}

// EncodeInteractions flattens events into one mergeable bag. Later events win
// on key collisions, matching the shallow-merge contract.
func EncodeInteractions(events ...Interaction) (Bag, error) {
	out := Bag{}
	for _, ev := range events {
		b, err := ev.bag()
		if err != nil {
			return nil, err
		}
		out = out.Merge(b)
	}
	return out, nil
}
