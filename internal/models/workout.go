package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for scheduled and completion dates.
const DateLayout = "2006-01-02"

// Workout is one scheduled interval session as produced by the plan generator.
type Workout struct {
	ID                 string     `json:"id"`
	Date               string     `json:"date"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Rounds             int        `json:"rounds"`
	DefaultRestSeconds int        `json:"default_rest_seconds"`
	Exercises          []Exercise `json:"exercises"`
}

// Exercise is a single movement within a workout. Duration fields are pointers
// so an explicit zero can be told apart from an absent value.
type Exercise struct {
	Name            string       `json:"name"`
	WorkSeconds     *int         `json:"work_seconds,omitempty"`
	DurationSeconds *int         `json:"duration_seconds,omitempty"`
	RestSeconds     *int         `json:"rest_seconds,omitempty"`
	Reps            Reps         `json:"reps,omitempty"`
	Instructions    Instructions `json:"instructions,omitzero"`
}

// UnmarshalJSON accepts rounds and default_rest_seconds as numbers or numeric
// strings, as hand-edited and generated plans carry both.
func (w *Workout) UnmarshalJSON(data []byte) error {
	type plain Workout
	aux := struct {
		*plain
		Rounds             looseInt `json:"rounds"`
		DefaultRestSeconds looseInt `json:"default_rest_seconds"`
	}{plain: (*plain)(w)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	w.Rounds = aux.Rounds.value
	w.DefaultRestSeconds = aux.DefaultRestSeconds.value
	return nil
}

// UnmarshalJSON accepts the duration fields as numbers or numeric strings. A
// value that is not numeric counts as absent, so the workout default applies.
func (ex *Exercise) UnmarshalJSON(data []byte) error {
	type plain Exercise
	aux := struct {
		*plain
		WorkSeconds     looseInt `json:"work_seconds"`
		DurationSeconds looseInt `json:"duration_seconds"`
		RestSeconds     looseInt `json:"rest_seconds"`
	}{plain: (*plain)(ex)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	ex.WorkSeconds = aux.WorkSeconds.ptr()
	ex.DurationSeconds = aux.DurationSeconds.ptr()
	ex.RestSeconds = aux.RestSeconds.ptr()
	return nil
}

// looseInt decodes a JSON number or a numeric string, truncating fractions.
type looseInt struct {
	value int
	set   bool
}

func (n *looseInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*n = looseInt{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		*n = looseInt{value: int(f), set: true}
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("expected number, got %s", data)
	}
	*n = looseInt{value: int(f), set: true}
	return nil
}

func (n looseInt) ptr() *int {
	if !n.set {
		return nil
	}
	return IntPtr(n.value)
}

// RoundCount returns the configured rounds, never less than one.
func (w Workout) RoundCount() int {
	if w.Rounds < 1 {
		return 1
	}
	return w.Rounds
}

// Key identifies a workout across reloads.
func (w Workout) Key() string {
	return w.ID + "|" + w.Date
}

// ParseDate parses the scheduled date.
func (w Workout) ParseDate() (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(w.Date))
}

// ValidateWorkout reports why a workout cannot be scheduled, or nil.
func ValidateWorkout(w Workout) error {
	if strings.TrimSpace(w.Title) == "" {
		return fmt.Errorf("workout %q: title is required", w.ID)
	}
	if strings.TrimSpace(w.Date) == "" {
		return fmt.Errorf("workout %q: date is required", w.ID)
	}
	if _, err := w.ParseDate(); err != nil {
		return fmt.Errorf("workout %q: invalid date %q, use YYYY-MM-DD", w.ID, w.Date)
	}
	if len(w.Exercises) == 0 {
		return fmt.Errorf("workout %q: at least one exercise is required", w.ID)
	}
	return nil
}

// Reps holds a repetition target. Generators emit it either as a string
// ("8-10", "AMRAP") or a number.
type Reps string

func (r *Reps) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Reps(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("reps: expected string or number, got %s", data)
	}
	*r = Reps(n.String())
	return nil
}

// Instructions is either free text or an ordered list of cues. The original
// form is kept so documents round-trip unchanged.
type Instructions struct {
	Text   string
	Items  []string
	IsList bool
}

// TextInstructions builds free-text instructions.
func TextInstructions(s string) Instructions { return Instructions{Text: s} }

// ListInstructions builds bullet-list instructions.
func ListInstructions(items ...string) Instructions {
	return Instructions{Items: items, IsList: true}
}

// IsZero reports whether no instructions were given.
func (in Instructions) IsZero() bool {
	return !in.IsList && in.Text == ""
}

func (in Instructions) MarshalJSON() ([]byte, error) {
	if in.IsList {
		items := in.Items
		if items == nil {
			items = []string{}
		}
		return json.Marshal(items)
	}
	return json.Marshal(in.Text)
}

func (in *Instructions) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*in = Instructions{}
	case len(data) > 0 && data[0] == '[':
		var raw []any
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		items := make([]string, 0, len(raw))
		for _, v := range raw {
			switch t := v.(type) {
			case string:
				items = append(items, t)
			case nil:
			default:
				items = append(items, fmt.Sprint(t))
			}
		}
		*in = Instructions{Items: items, IsList: true}
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = Instructions{Text: s}
	default:
		// numbers and booleans show up in hand-edited plans; keep them as text
		*in = Instructions{Text: strings.Trim(string(data), `"`)}
	}
	return nil
}

// IntPtr is a helper for building exercises in code and tests.
func IntPtr(v int) *int { return &v }
