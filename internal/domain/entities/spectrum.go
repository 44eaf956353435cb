package entities

// FourierSpectrum is an amplitude spectrum over a thickness axis in ångström.
type FourierSpectrum struct {
	Freq []float64 `json:"freq" yaml:"freq"`
	Amp  []float64 `json:"amp" yaml:"amp"`
}

// Peak returns the thickness with the largest amplitude at or above minThickness.
// ok is false if no sample qualifies.
func (s *FourierSpectrum) Peak(minThickness float64) (thickness, amplitude float64, ok bool) {
	for i := range s.Freq {
		if s.Freq[i] < minThickness {
			continue
		}
		if !ok || s.Amp[i] > amplitude {
			thickness, amplitude, ok = s.Freq[i], s.Amp[i], true
		}
	}
	return thickness, amplitude, ok
}
