package entities

// FitMetrics are scalar goodness-of-fit diagnostics.
type FitMetrics struct {
	Chi2 float64 `json:"chi2" yaml:"chi2"`
	FOM  float64 `json:"fom" yaml:"fom"` // percentage, 100 is a perfect match
	MAE  float64 `json:"mae" yaml:"mae"`
}
