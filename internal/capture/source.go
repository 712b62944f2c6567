package capture

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// UnknownSpeaker is used when the caption source cannot attribute text.
const UnknownSpeaker = "Unknown Speaker"

// Observation is one caption node as seen by the browser automation layer.
// Roles and Labels are the ARIA roles and aria-labels of the node's ancestors.
type Observation struct {
	Speaker    string    `json:"speaker"`
	Text       string    `json:"text"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
	Roles      []string  `json:"roles,omitempty"`
	Labels     []string  `json:"labels,omitempty"`
}

// Source produces observations until ctx is cancelled or the input ends.
// Implementations send on out and must not close it.
type Source interface {
	Name() string
	Run(ctx context.Context, out chan<- Observation) error
}

var menuRoles = map[string]bool{
	"menu":     true,
	"listbox":  true,
	"combobox": true,
	"dialog":   true,
}

var menuLabelWords = []string{"caption", "language", "font", "settings"}

// InMenu reports whether the observed node sits inside a menu or settings
// region of the caption UI.
func InMenu(o Observation) bool {
	for _, r := range o.Roles {
		if menuRoles[strings.ToLower(strings.TrimSpace(r))] {
			return true
		}
	}
	for _, l := range o.Labels {
		l = strings.ToLower(l)
		for _, w := range menuLabelWords {
			if strings.Contains(l, w) {
				return true
			}
		}
	}
	return false
}

// DropReason says why an observation was not fed to the reconciler.
type DropReason string

const (
	DropNone    DropReason = ""
	DropMenu    DropReason = "menu"
	DropGarbage DropReason = "garbage"
)

// Accept applies the menu predicate and the garbage filter, and fills in
// the fallback speaker.
func Accept(o Observation) (speaker, text string, reason DropReason) {
	if InMenu(o) {
		return "", "", DropMenu
	}
	text = strings.TrimSpace(o.Text)
	if IsGarbage(text) {
		return "", "", DropGarbage
	}
	speaker = strings.TrimSpace(o.Speaker)
	if speaker == "" {
		speaker = UnknownSpeaker
	}
	return speaker, text, DropNone
}

func decodeObservation(line []byte) (Observation, error) {
	var o Observation
	err := json.Unmarshal(line, &o)
	return o, err
}

func send(ctx context.Context, out chan<- Observation, o Observation) bool {
	select {
	case out <- o:
		return true
	case <-ctx.Done():
		return false
	}
}
