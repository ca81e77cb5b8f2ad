package google

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"rfcharts/internal/forecast"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sheet-id", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestSheetNamePattern(t *testing.T) {
	tests := []struct {
		pattern string
		plan    string
		want    string
	}{
		{"", "tower-a", "tower-a"},
		{"Forecast %s", "tower-a", "Forecast tower-a"},
		{"Forecast", "tower-a", "Forecast tower-a"},
	}
	for _, tt := range tests {
		c := New(nil, "id", tt.pattern)
		if got := c.sheetName(tt.plan); got != tt.want {
			t.Errorf("pattern %q: sheetName = %q, want %q", tt.pattern, got, tt.want)
		}
		back, ok := c.planFromSheet(tt.want)
		if !ok || back != tt.plan {
			t.Errorf("pattern %q: planFromSheet(%q) = %q, %v", tt.pattern, tt.want, back, ok)
		}
	}

	c := New(nil, "id", "Forecast %s")
	if _, ok := c.planFromSheet("Summary"); ok {
		t.Error("unrelated tab treated as a plan")
	}
}

func TestReadForecast(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/v4/spreadsheets/sheet-id/values/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"range": "'tower-a'!A1:H3",
			"values": [][]any{
				{"Month", "Bank Balance", "Term 1", "Contributions", "Expenditures", "Closing Balance"},
				{"2024-02-01", 1100, 50, 100, 20, 1230},
				{"2024-01-01", 1000, 50, 100, 0, 1150},
			},
		})
	})

	f, err := c.ReadForecast(context.Background(), "tower-a")
	if err != nil {
		t.Fatalf("ReadForecast: %v", err)
	}
	if f.PlanID != "tower-a" || len(f.Months) != 2 {
		t.Fatalf("forecast = %+v", f)
	}
	if f.Months[0].BankBalance != 1000 || f.Months[1].Terms[0] != 50 {
		t.Errorf("months = %+v", f.Months)
	}
}

func TestReadForecast_MissingTab(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    400,
				"message": "Unable to parse range: 'nope'!A:Z",
			},
		})
	})

	_, err := c.ReadForecast(context.Background(), "nope")
	if !errors.Is(err, forecast.ErrPlanNotFound) {
		t.Fatalf("expected ErrPlanNotFound, got %v", err)
	}
}

func TestListPlans(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"sheets": []map[string]any{
				{"properties": map[string]any{"title": "tower-b"}},
				{"properties": map[string]any{"title": "tower-a"}},
				{"properties": map[string]any{"title": "Read me"}},
			},
		})
	})

	ids, err := c.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("ListPlans: %v", err)
	}
	if strings.Join(ids, ",") != "tower-a,tower-b" {
		t.Errorf("ids = %v", ids)
	}
}

func TestParseForecast_Empty(t *testing.T) {
	if _, err := parseForecast(nil, "p"); !errors.Is(err, forecast.ErrEmptyForecast) {
		t.Fatalf("expected ErrEmptyForecast, got %v", err)
	}
}

func TestToValues_Header(t *testing.T) {
	f, err := parseForecast([][]interface{}{
		{"month", "bank_balance", "contributions", "expenditures", "closing_balance"},
		{"2024-01-01", 1.5, 0, 0, 2},
	}, "p")
	if err != nil {
		t.Fatalf("parseForecast: %v", err)
	}
	values := toValues(f)
	if len(values) != 2 || values[0][0] != "month" || values[1][1] != "1.5" {
		t.Errorf("values = %v", values)
	}
}

func TestLoadCredentials(t *testing.T) {
	ctx := context.Background()
	file := t.TempDir() + "/sa.json"
	if err := os.WriteFile(file, []byte(`{"from":"file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	if got, err := LoadCredentials(ctx, `{"from":"inline"}`, file); err != nil || !strings.Contains(string(got), "inline") {
		t.Errorf("inline should win: %s, %v", got, err)
	}
	if got, err := LoadCredentials(ctx, "", file); err != nil || !strings.Contains(string(got), "file") {
		t.Errorf("file: %s, %v", got, err)
	}
	if _, err := LoadCredentials(ctx, "", ""); err == nil {
		t.Error("expected error without credentials")
	}
}

func TestNewWithCredentials_RejectsBadJSON(t *testing.T) {
	if _, err := NewWithCredentials(context.Background(), "sheet-id", "", []byte("not json")); err == nil {
		t.Error("expected error for malformed service account")
	}
	if _, err := NewWithCredentials(context.Background(), " ", "", []byte("{}")); err == nil {
		t.Error("expected error for empty spreadsheet id")
	}
}
