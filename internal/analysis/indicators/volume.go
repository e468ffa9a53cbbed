package indicators

import (
	"stock-analyst/internal/models"
)

// VolumeTrend classifies the last bar's volume against its recent average.
type VolumeTrend string

const (
	VolumeExpanding   VolumeTrend = "expanding"
	VolumeNormal      VolumeTrend = "normal"
	VolumeContracting VolumeTrend = "contracting"
	VolumeUnknown     VolumeTrend = "unknown"
)

// ClassifyVolume maps a last/average volume ratio onto a trend.
func ClassifyVolume(ratio float64, ok bool) VolumeTrend {
	switch {
	case !ok:
		return VolumeUnknown
	case ratio > 1.2:
		return VolumeExpanding
	case ratio < 0.8:
		return VolumeContracting
	default:
		return VolumeNormal
	}
}

// AverageVolume reports the mean volume over the last period bars and the
// ratio of the last bar to that mean. With fewer bars the mean covers what
// exists and is flagged as reduced coverage.
type AverageVolume struct {
	period int
}

// NewAverageVolume creates a new average volume calculator.
func NewAverageVolume(period int) *AverageVolume {
	return &AverageVolume{period: period}
}

func (a *AverageVolume) Name() string {
	return VolumeAvgKey(a.period)
}

func (a *AverageVolume) Period() int {
	return 2
}

func (a *AverageVolume) Keys() []string {
	return []string{a.Name(), KeyVolumeRatio}
}

func (a *AverageVolume) Compute(points []models.PricePoint) Set {
	if a.period <= 0 {
		return Set{a.Name(): Unavailable(ErrInvalidPeriod.Error()), KeyVolumeRatio: Unavailable(ErrInvalidPeriod.Error())}
	}

	var flags []string
	if len(points) < a.period {
		flags = []string{FlagReducedCoverage}
	}

	vols := tail(volumes(points), a.period)
	avg := mean(vols)
	out := Set{a.Name(): OK(avg, flags...)}
	if avg <= 0 {
		out[KeyVolumeRatio] = Unavailable("no volume reported")
		return out
	}
	out[KeyVolumeRatio] = OK(vols[len(vols)-1]/avg, flags...)
	return out
}
