package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Well-known payload field names.
const (
	FieldElementID     = "element-id"
	FieldDates         = "dates"
	FieldTotals        = "totals"
	FieldContributions = "contributions"
	FieldExpenditures  = "expenditures"
	FieldBankBalances  = "bank_balances"
)

// RawPayload is the server-supplied record a chart is built from: a target
// element id, a date sequence and any number of parallel numeric sequences.
type RawPayload struct {
	ElementID string
	Dates     []string
	Sequences map[string][]float64

	// invalid records array fields that could not be read as numbers; they
	// only fail a build when the chart kind asks for them.
	invalid map[string]string
}

// NewPayload returns an empty payload for the given element and dates.
func NewPayload(elementID string, dates []string) RawPayload {
	return RawPayload{
		ElementID: elementID,
		Dates:     dates,
		Sequences: make(map[string][]float64),
	}
}

// With adds a numeric sequence and returns the payload for chaining.
func (p RawPayload) With(field string, values []float64) RawPayload {
	if p.Sequences == nil {
		p.Sequences = make(map[string][]float64)
	}
	p.Sequences[field] = values
	return p
}

// DecodePayload parses the JSON body returned by a payload endpoint.
func DecodePayload(data []byte) (RawPayload, error) {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return RawPayload{}, &PayloadError{Err: ErrMalformedPayload, Detail: "invalid JSON: " + err.Error()}
	}
	if m == nil {
		return RawPayload{}, &PayloadError{Err: ErrMalformedPayload, Detail: "payload must be a JSON object"}
	}
	return PayloadFromMap(m)
}

// PayloadFromMap converts an untyped JSON object into a RawPayload.
func PayloadFromMap(m map[string]any) (RawPayload, error) {
	p := RawPayload{Sequences: make(map[string][]float64)}

	id, ok := m[FieldElementID].(string)
	if !ok || id == "" {
		return RawPayload{}, malformed(FieldElementID, "missing or not a string")
	}
	p.ElementID = id

	rawDates, ok := m[FieldDates].([]any)
	if !ok {
		return RawPayload{}, malformed(FieldDates, "missing or not an array")
	}
	p.Dates = make([]string, len(rawDates))
	for i, v := range rawDates {
		switch d := v.(type) {
		case string:
			p.Dates[i] = d
		case float64:
			// bare years such as 2024
			p.Dates[i] = strconv.FormatFloat(d, 'f', -1, 64)
		default:
			return RawPayload{}, malformed(FieldDates, "element %d is %T, want string", i, v)
		}
	}

	for field, v := range m {
		if field == FieldElementID || field == FieldDates {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			// scalar metadata such as a title; not a sequence
			continue
		}
		values, err := toFloats(arr)
		if err != nil {
			if p.invalid == nil {
				p.invalid = make(map[string]string)
			}
			p.invalid[field] = err.Error()
			continue
		}
		p.Sequences[field] = values
	}
	return p, nil
}

func toFloats(arr []any) ([]float64, error) {
	out := make([]float64, len(arr))
	for i, v := range arr {
		switch n := v.(type) {
		case float64:
			out[i] = n
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = f
		case nil:
			return nil, fmt.Errorf("element %d is null", i)
		default:
			return nil, fmt.Errorf("element %d is %T, want number", i, v)
		}
	}
	return out, nil
}

// Validate checks the payload-wide invariants: an element id, at least one
// date and every supplied sequence aligned with the dates.
func (p RawPayload) Validate() error {
	if p.ElementID == "" {
		return malformed(FieldElementID, "empty")
	}
	if len(p.Dates) == 0 {
		return malformed(FieldDates, "empty")
	}
	for _, field := range p.Fields() {
		values, ok := p.Sequences[field]
		if !ok {
			continue
		}
		if len(values) != len(p.Dates) {
			return lengthMismatch(field, len(values), len(p.Dates))
		}
		if err := checkFinite(field, values); err != nil {
			return err
		}
	}
	return nil
}

// Sequence returns a required numeric sequence.
func (p RawPayload) Sequence(field string) ([]float64, error) {
	if reason, bad := p.invalid[field]; bad {
		return nil, malformed(field, "%s", reason)
	}
	values, ok := p.Sequences[field]
	if !ok {
		return nil, malformed(field, "required sequence is missing")
	}
	if len(values) != len(p.Dates) {
		return nil, lengthMismatch(field, len(values), len(p.Dates))
	}
	if err := checkFinite(field, values); err != nil {
		return nil, err
	}
	return values, nil
}

// checkFinite rejects NaN and infinities, which have no JSON form and no
// place on a linear axis.
func checkFinite(field string, values []float64) error {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return malformed(field, "element %d is %v, want a finite number", i, v)
		}
	}
	return nil
}

// Fields returns the names of all numeric sequences in sorted order,
// including those that failed to parse.
func (p RawPayload) Fields() []string {
	fields := make([]string, 0, len(p.Sequences)+len(p.invalid))
	for f := range p.Sequences {
		fields = append(fields, f)
	}
	for f := range p.invalid {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Len is the number of time points.
func (p RawPayload) Len() int {
	return len(p.Dates)
}

// MarshalJSON writes the flat wire shape: element-id, dates and one array per sequence.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(p.Sequences)+2)
	m[FieldElementID] = p.ElementID
	dates := p.Dates
	if dates == nil {
		dates = []string{}
	}
	m[FieldDates] = dates
	for field, values := range p.Sequences {
		m[field] = values
	}
	return json.Marshal(m)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (p *RawPayload) UnmarshalJSON(data []byte) error {
	decoded, err := DecodePayload(data)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func lengthMismatch(field string, got, want int) error {
	return &PayloadError{
		Err:    ErrLengthMismatch,
		Field:  field,
		Detail: fmt.Sprintf("%d values for %d dates", got, want),
	}
}
