package google

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"rfcharts/internal/forecast"

	"google.golang.org/api/googleapi"
)

// parseForecast converts a values matrix (as returned by Sheets API) into a
// forecast. The first row is the header.
func parseForecast(values [][]interface{}, planID string) (forecast.Forecast, error) {
	if len(values) == 0 {
		return forecast.Forecast{}, forecast.ErrEmptyForecast
	}
	header := toStrings(values[0])
	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, toStrings(v))
	}
	return forecast.FromRows(planID, header, rows)
}

func toValues(f forecast.Forecast) [][]interface{} {
	rows := f.Rows()
	out := make([][]interface{}, 0, len(rows)+1)
	out = append(out, toInterfaces(f.Header()))
	for _, r := range rows {
		out = append(out, toInterfaces(r))
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case string:
			out[i] = strings.TrimSpace(x)
		case float64:
			out[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case nil:
			out[i] = ""
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func toInterfaces(in []string) []interface{} {
	out := make([]interface{}, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

// isNotFound reports whether the API rejected a range because the tab is missing.
func isNotFound(err error) bool {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return false
	}
	if gerr.Code == http.StatusNotFound {
		return true
	}
	return gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range")
}
