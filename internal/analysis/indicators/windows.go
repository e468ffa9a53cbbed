package indicators

import (
	"fmt"

	apperrors "stock-analyst/internal/errors"
)

// Windows holds the lookback lengths of every indicator family.
type Windows struct {
	MAShort    int     `mapstructure:"ma_short" json:"ma_short"`
	MALong     int     `mapstructure:"ma_long" json:"ma_long"`
	ExtraMA    []int   `mapstructure:"extra_ma" json:"extra_ma,omitempty"`
	RSI        int     `mapstructure:"rsi" json:"rsi"`
	Bollinger  int     `mapstructure:"bollinger" json:"bollinger"`
	BollingerK float64 `mapstructure:"bollinger_k" json:"bollinger_k"`
	MACDFast   int     `mapstructure:"macd_fast" json:"macd_fast"`
	MACDSlow   int     `mapstructure:"macd_slow" json:"macd_slow"`
	MACDSignal int     `mapstructure:"macd_signal" json:"macd_signal"`
	Levels     int     `mapstructure:"levels" json:"levels"`
	Range52W   int     `mapstructure:"range_52w" json:"range_52w"`
	Volume     int     `mapstructure:"volume" json:"volume"`
}

// DefaultWindows returns the standard lookbacks.
func DefaultWindows() Windows {
	return Windows{
		MAShort:    5,
		MALong:     20,
		ExtraMA:    []int{10, 60},
		RSI:        14,
		Bollinger:  20,
		BollingerK: 2,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		Levels:     20,
		Range52W:   TradingDaysPerYear,
		Volume:     15,
	}
}

// Validate rejects non-positive or inconsistent windows.
func (w Windows) Validate() error {
	positive := []struct {
		field string
		value int
	}{
		{"windows.ma_short", w.MAShort},
		{"windows.ma_long", w.MALong},
		{"windows.rsi", w.RSI},
		{"windows.bollinger", w.Bollinger},
		{"windows.macd_fast", w.MACDFast},
		{"windows.macd_slow", w.MACDSlow},
		{"windows.macd_signal", w.MACDSignal},
		{"windows.levels", w.Levels},
		{"windows.range_52w", w.Range52W},
		{"windows.volume", w.Volume},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return apperrors.NewConfigurationError(p.field, p.value, "must be positive")
		}
	}
	for i, n := range w.ExtraMA {
		if n <= 0 {
			return apperrors.NewConfigurationError(fmt.Sprintf("windows.extra_ma[%d]", i), n, "must be positive")
		}
	}
	if w.MAShort >= w.MALong {
		return apperrors.NewConfigurationError("windows.ma_short", w.MAShort, "must be shorter than ma_long")
	}
	if w.MACDFast >= w.MACDSlow {
		return apperrors.NewConfigurationError("windows.macd_fast", w.MACDFast, "must be shorter than macd_slow")
	}
	if w.BollingerK <= 0 {
		return apperrors.NewConfigurationError("windows.bollinger_k", w.BollingerK, "must be positive")
	}
	if w.Levels < 3 {
		return apperrors.NewConfigurationError("windows.levels", w.Levels, "must be at least 3")
	}
	return nil
}

// MAKey returns the set key of an n-period moving average.
func MAKey(n int) string { return fmt.Sprintf("MA%d", n) }

// EMAKey returns the set key of an n-period exponential moving average.
func EMAKey(n int) string { return fmt.Sprintf("EMA%d", n) }

// RSIKey returns the set key of an n-period RSI.
func RSIKey(n int) string { return fmt.Sprintf("RSI%d", n) }

// VolumeAvgKey returns the set key of the n-period average volume.
func VolumeAvgKey(n int) string { return fmt.Sprintf("VOLUME_AVG%d", n) }

// Fixed set keys.
const (
	KeyMACD        = "MACD"
	KeyMACDSignal  = "MACD_SIGNAL"
	KeyMACDHist    = "MACD_HIST"
	KeyBBUpper     = "BB_UPPER"
	KeyBBMiddle    = "BB_MIDDLE"
	KeyBBLower     = "BB_LOWER"
	KeyVolatility  = "VOLATILITY"
	KeyMaxDrawdown = "MAX_DRAWDOWN"
	KeySharpe      = "SHARPE"
	KeySupport1    = "SUPPORT_1"
	KeySupport2    = "SUPPORT_2"
	KeyResistance1 = "RESISTANCE_1"
	KeyResistance2 = "RESISTANCE_2"
	KeyPosition52W = "POSITION_52W"
	KeyHigh52W     = "HIGH_52W"
	KeyLow52W      = "LOW_52W"
	KeyVolumeRatio = "VOLUME_RATIO"
)
