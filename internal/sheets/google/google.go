package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"rfcharts/internal/forecast"
	ports "rfcharts/internal/sheets"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetPattern names a plan's forecast tab after the plan id.
const DefaultSheetPattern = "%s"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// sheetPattern is a fmt pattern with one %s for the plan id.
	sheetPattern string
}

// Ensure interface conformance
var (
	_ ports.ForecastReader = (*Client)(nil)
	_ ports.ForecastWriter = (*Client)(nil)
	_ ports.PlanLister     = (*Client)(nil)
)

// NewWithCredentials creates a Sheets client from service account JSON.
func NewWithCredentials(ctx context.Context, spreadsheetID, sheetPattern string, credentialsJSON []byte) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, credentialsJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, sheetPattern), nil
}

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetPattern string) *Client {
	sheetPattern = strings.TrimSpace(sheetPattern)
	if sheetPattern == "" {
		sheetPattern = DefaultSheetPattern
	}
	if !strings.Contains(sheetPattern, "%s") {
		sheetPattern += " %s"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetPattern: sheetPattern}
}

// LoadCredentials returns inline service account JSON when set, otherwise
// the contents of file.
func LoadCredentials(ctx context.Context, inline, file string) ([]byte, error) {
	inline, file = strings.TrimSpace(inline), strings.TrimSpace(file)
	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newSheetsService initializes a Sheets Service authorised as the service
// account, over the pooled HTTP client.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	jwtCfg, err := googleoauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}

	httpClient := newHTTPClientWithPooling()
	// token refreshes outlive the startup context
	tokenCtx := context.WithValue(context.WithoutCancel(ctx), oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient.Transport = &oauth2.Transport{
		Source: jwtCfg.TokenSource(tokenCtx),
		Base:   httpClient.Transport,
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) sheetName(planID string) string {
	return fmt.Sprintf(c.sheetPattern, planID)
}

// planFromSheet is the inverse of sheetName; ok is false for tabs that do
// not follow the pattern.
func (c *Client) planFromSheet(title string) (string, bool) {
	i := strings.Index(c.sheetPattern, "%s")
	prefix, suffix := c.sheetPattern[:i], c.sheetPattern[i+2:]
	if !strings.HasPrefix(title, prefix) || !strings.HasSuffix(title, suffix) || len(title) < len(prefix)+len(suffix) {
		return "", false
	}
	id := title[len(prefix) : len(title)-len(suffix)]
	if forecast.ValidatePlanID(id) != nil {
		return "", false
	}
	return id, true
}

// ReadForecast reads the plan's tab: a header row followed by one row per month.
func (c *Client) ReadForecast(ctx context.Context, planID string) (forecast.Forecast, error) {
	if c.svc == nil {
		return forecast.Forecast{}, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("'%s'!A:Z", c.sheetName(planID))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return forecast.Forecast{}, fmt.Errorf("%w: %s", forecast.ErrPlanNotFound, planID)
		}
		return forecast.Forecast{}, fmt.Errorf("read range %s: %w", rng, err)
	}

	f, err := parseForecast(resp.Values, planID)
	if err != nil {
		return forecast.Forecast{}, fmt.Errorf("sheet %q: %w", c.sheetName(planID), err)
	}
	slog.DebugContext(ctx, "Read forecast from sheets", "plan", planID, "months", len(f.Months))
	return f, nil
}

// SaveForecast overwrites the plan's tab, which must already exist.
func (c *Client) SaveForecast(ctx context.Context, f forecast.Forecast) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if err := forecast.ValidatePlanID(f.PlanID); err != nil {
		return err
	}
	sheet := c.sheetName(f.PlanID)

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, fmt.Sprintf("'%s'!A:Z", sheet), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear sheet %q: %w", sheet, err)
	}

	vr := &gsheet.ValueRange{Values: toValues(f)}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("'%s'!A1", sheet), vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write sheet %q: %w", sheet, err)
	}
	slog.InfoContext(ctx, "Wrote forecast to sheets", "plan", f.PlanID, "months", len(f.Months))
	return nil
}

// ListPlans returns the plan ids of all tabs matching the sheet pattern.
func (c *Client) ListPlans(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("get spreadsheet: %w", err)
	}
	var ids []string
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		if id, ok := c.planFromSheet(sh.Properties.Title); ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
