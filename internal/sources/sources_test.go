package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

type failingFundamentals struct{ err error }

func (f failingFundamentals) FetchFundamentals(context.Context, string) (*models.FundamentalSeed, error) {
	return nil, f.err
}

func TestStaticNormalizesSymbols(t *testing.T) {
	s := NewStatic()
	s.SetBars("aapl", []models.PricePoint{{Close: 1}})
	s.SetFundamentals("0700.hk", &models.FundamentalSeed{PE: models.Float(18)})

	bars, err := s.FetchBars(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, bars, 1)

	seed, err := s.FetchFundamentals(context.Background(), "700.HK")
	require.NoError(t, err)
	require.NotNil(t, seed)
	assert.Equal(t, 18.0, *seed.PE)

	_, err = s.FetchBars(context.Background(), "MSFT")
	assert.True(t, errors.Is(err, apperrors.ErrSymbolNotFound))
	assert.Equal(t, []string{"AAPL"}, s.Symbols())
}

func TestFundamentalsMergesInOrder(t *testing.T) {
	first := NewStatic()
	first.SetFundamentals("BABA", &models.FundamentalSeed{PE: models.Float(12)})
	second := NewStatic()
	second.SetFundamentals("BABA", &models.FundamentalSeed{PE: models.Float(30), EPS: models.Float(7.5)})

	fs := Fundamentals{first, failingFundamentals{errors.New("down")}, second}
	seed, err := fs.FetchFundamentals(context.Background(), "BABA")
	require.NoError(t, err)
	assert.Equal(t, 12.0, *seed.PE)
	assert.Equal(t, 7.5, *seed.EPS)
}

func TestFundamentalsAllFailing(t *testing.T) {
	fs := Fundamentals{failingFundamentals{apperrors.ErrTimeout}, failingFundamentals{apperrors.ErrRateLimited}}
	_, err := fs.FetchFundamentals(context.Background(), "BABA")
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
	assert.True(t, errors.Is(err, apperrors.ErrRateLimited))
}

func TestSnippetFile(t *testing.T) {
	dir := t.TempDir()

	list := filepath.Join(dir, "list.json")
	require.NoError(t, os.WriteFile(list, []byte(`[{"text":"strong cloud growth","tag":"bullish"}]`), 0o644))
	got, err := NewSnippetFile(list).FetchSnippets(context.Background(), "BABA")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "strong cloud growth", got[0].Text)

	keyed := filepath.Join(dir, "keyed.json")
	require.NoError(t, os.WriteFile(keyed, []byte(`{"baba":[{"text":"a"},{"text":"b"}],"AAPL":[]}`), 0o644))
	got, err = NewSnippetFile(keyed).FetchSnippets(context.Background(), "BABA")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`"nope"`), 0o644))
	_, err = NewSnippetFile(bad).FetchSnippets(context.Background(), "BABA")
	var de *apperrors.DataError
	assert.True(t, errors.As(err, &de))
}
