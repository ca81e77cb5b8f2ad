package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodePayload(t *testing.T) {
	body := []byte(`{"dates":["2024-01-01","2024-02-01"],"totals":[500,1500],"element-id":"c1","title":"ignored"}`)
	p, err := DecodePayload(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ElementID != "c1" || p.Len() != 2 {
		t.Fatalf("unexpected payload %+v", p)
	}
	totals, err := p.Sequence(FieldTotals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if totals[0] != 500 || totals[1] != 1500 {
		t.Fatalf("unexpected totals %v", totals)
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}
}

func TestDecodePayloadErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want error
	}{
		{"invalid json", `{`, ErrMalformedPayload},
		{"not an object", `null`, ErrMalformedPayload},
		{"missing element id", `{"dates":[]}`, ErrMalformedPayload},
		{"missing dates", `{"element-id":"c1"}`, ErrMalformedPayload},
		{"dates not array", `{"element-id":"c1","dates":"2024-01-01"}`, ErrMalformedPayload},
		{"date of wrong type", `{"element-id":"c1","dates":[true]}`, ErrMalformedPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPayloadSequence(t *testing.T) {
	p, err := DecodePayload([]byte(`{
		"element-id":"c1",
		"dates":["2024-01-01","2024-02-01"],
		"totals":[1,2],
		"short":[1],
		"broken":[1,null],
		"words":["a","b"]
	}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := p.Sequence("missing"); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("missing: expected ErrMalformedPayload, got %v", err)
	}
	if _, err := p.Sequence("short"); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("short: expected ErrLengthMismatch, got %v", err)
	}
	if _, err := p.Sequence("broken"); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("broken: expected ErrMalformedPayload, got %v", err)
	}
	if _, err := p.Sequence("words"); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("words: expected ErrMalformedPayload, got %v", err)
	}
	if err := p.Validate(); !errors.Is(err, ErrLengthMismatch) {
		t.Errorf("validate: expected ErrLengthMismatch, got %v", err)
	}

	fields := p.Fields()
	want := []string{"broken", "short", "totals", "words"}
	if len(fields) != len(want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Fatalf("fields = %v, want %v", fields, want)
		}
	}
}

func TestPayloadNumericYears(t *testing.T) {
	p, err := DecodePayload([]byte(`{"element-id":"c","dates":[2024,2025],"contributions":[1,2]}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Dates[0] != "2024" || p.Dates[1] != "2025" {
		t.Fatalf("unexpected dates %v", p.Dates)
	}
}

func TestPayloadJSONShape(t *testing.T) {
	p := NewPayload("bank-chart", []string{"2024-01-01"}).With(FieldTotals, []float64{42})
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["element-id"] != "bank-chart" {
		t.Errorf("element-id = %v", m["element-id"])
	}
	if _, ok := m["totals"].([]any); !ok {
		t.Errorf("totals should be a flat array, got %T", m["totals"])
	}

	var back RawPayload
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode back: %v", err)
	}
	if back.ElementID != p.ElementID || back.Sequences[FieldTotals][0] != 42 {
		t.Fatalf("unexpected round trip %+v", back)
	}
}

func TestPayloadValidateEmpty(t *testing.T) {
	if err := NewPayload("", []string{"2024-01-01"}).Validate(); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected malformed for empty element id, got %v", err)
	}
	if err := NewPayload("c1", nil).Validate(); !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected malformed for empty dates, got %v", err)
	}
}
