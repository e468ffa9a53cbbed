package csvfile

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-analyst/internal/analysis/series"
	apperrors "stock-analyst/internal/errors"
)

const yahooExport = "Date,Open,High,Low,Close,Adj Close,Volume\r\n" +
	"2024-01-02,187.15,188.44,183.89,185.64,184.94,82488700\r\n" +
	"2024-01-03,184.22,185.88,183.43,184.25,183.55,58414500\r\n" +
	"2024-01-04,182.15,183.09,180.88,null,180.96,71983600\r\n" +
	"not-a-date,1,1,1,1,1,1\r\n" +
	"2024-01-05,181.99,182.76,180.17,181.18,180.49,62303300\r\n"

func TestParseYahooExport(t *testing.T) {
	points, err := Parse([]byte(yahooExport), nil)
	require.NoError(t, err)
	require.Len(t, points, 4, "rows with bad dates are skipped")

	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), points[0].Timestamp)
	assert.Equal(t, 185.64, points[0].Close)
	assert.Equal(t, 82488700.0, points[0].Volume)
	assert.True(t, math.IsNaN(points[2].Close))

	s, err := series.Normalize("AAPL", points)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Dropped)
}

func TestParseLowercaseWithoutVolume(t *testing.T) {
	data := "date,open,high,low,close\n1704153600,10,11,9,10.5\n1704240000,10.5,12,10,11\n"
	points, err := Parse([]byte(data), time.UTC)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0.0, points[1].Volume)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), points[1].Timestamp)
}

func TestSourceFetchBars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aapl.csv")
	require.NoError(t, os.WriteFile(path, []byte(yahooExport), 0o644))

	src := New(path, nil)
	assert.Equal(t, "csv", src.Name())
	points, err := src.FetchBars(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, points, 4)

	_, err = New(filepath.Join(t.TempDir(), "missing.csv"), nil).FetchBars(context.Background(), "AAPL")
	var de *apperrors.DataError
	assert.True(t, errors.As(err, &de))
}
