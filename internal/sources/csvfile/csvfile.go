// Package csvfile reads daily bars from CSV exports such as the ones Yahoo
// and most brokers offer for download.
package csvfile

import (
	"bytes"
	"context"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
	"stock-analyst/internal/sources"
)

// barRow is one CSV line. Fields are read as text so that a single bad cell
// invalidates only its row.
type barRow struct {
	Date   string `csv:"date"`
	Open   string `csv:"open"`
	High   string `csv:"high"`
	Low    string `csv:"low"`
	Close  string `csv:"close"`
	Volume string `csv:"volume"`
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/02/2006",
	"2006/01/02",
}

// Source reads bars from a CSV file. Header names are matched case
// insensitively; "Adj Close" and other extra columns are ignored.
type Source struct {
	path string
	loc  *time.Location
}

// New creates a CSV source. Dates without a zone are read in loc, or UTC
// when loc is nil.
func New(path string, loc *time.Location) *Source {
	if loc == nil {
		loc = time.UTC
	}
	return &Source{path: path, loc: loc}
}

func (s *Source) Name() string { return sources.NameCSV }

// FetchBars ignores symbol; the file holds a single instrument.
func (s *Source) FetchBars(_ context.Context, symbol string) ([]models.PricePoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameCSV, symbol, "failed to read file", err)
	}
	points, err := Parse(data, s.loc)
	if err != nil {
		return nil, apperrors.NewDataError(sources.NameCSV, symbol, "failed to parse file", err)
	}
	return points, nil
}

// Parse decodes CSV bytes. Rows with unparseable numbers keep NaN prices
// so that normalization drops and counts them.
func Parse(data []byte, loc *time.Location) ([]models.PricePoint, error) {
	if loc == nil {
		loc = time.UTC
	}
	var rows []*barRow
	if err := gocsv.UnmarshalBytes(lowerHeader(data), &rows); err != nil {
		return nil, err
	}

	points := make([]models.PricePoint, 0, len(rows))
	for _, r := range rows {
		ts, ok := parseDate(r.Date, loc)
		if !ok {
			continue
		}
		points = append(points, models.PricePoint{
			Timestamp: ts,
			Open:      parseNumber(r.Open),
			High:      parseNumber(r.High),
			Low:       parseNumber(r.Low),
			Close:     parseNumber(r.Close),
			Volume:    parseVolume(r.Volume),
		})
	}
	return points, nil
}

func lowerHeader(data []byte) []byte {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	end := bytes.IndexByte(data, '\n')
	if end < 0 {
		end = len(data)
	}
	header := strings.Split(strings.TrimRight(string(data[:end]), "\r"), ",")
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
	}
	out := []byte(strings.Join(header, ","))
	return append(out, data[end:]...)
}

func parseDate(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).In(loc), true
	}
	return time.Time{}, false
}

func parseNumber(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseVolume treats a missing volume as zero, since some exports omit it
// for indices.
func parseVolume(s string) float64 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	return parseNumber(s)
}
