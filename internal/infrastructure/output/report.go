package output

import (
	"fmt"
	"strings"

	"github.com/reglet-dev/xrrlab/internal/domain/entities"
	"github.com/reglet-dev/xrrlab/internal/domain/execution"
	domainsvc "github.com/reglet-dev/xrrlab/internal/domain/services"
)

// Methodology describes how a result was obtained, in prose suitable for a report.
// It returns "" when the result has no fitted stack.
func Methodology(result *execution.AnalysisResult) string {
	layers := result.FittedStack
	if len(layers) == 0 {
		return ""
	}
	substrate := layers[len(layers)-1]
	return fmt.Sprintf(
		"The X-ray reflectivity data were analysed with Parratt's recursive formalism. "+
			"A Fourier-guided search over the layer thicknesses produced a starting model, "+
			"which was refined with a Nelder-Mead simplex minimising the logarithmic misfit. "+
			"The structural model consists of a %s substrate with %s. "+
			"Interface roughness was described by a Névot-Croce factor and an error-function density gradient.",
		substrate.Material, pluralLayers(len(layers)-1))
}

// Results summarises the fit quality and the top layer in prose.
// It returns "" unless the result succeeded.
func Results(result *execution.AnalysisResult) string {
	if result.Metrics == nil || len(result.FittedStack) == 0 {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "The best-fit model yielded a chi-square value of %.2e and a figure of merit of %.2f%%.",
		result.Metrics.Chi2, result.Metrics.FOM)
	if len(result.FittedStack) > 1 {
		top := result.FittedStack[0]
		fmt.Fprintf(&b, " The topmost %s layer thickness was determined to be %.2f Å.", top.Material, top.Thickness)
	}
	substrate := result.FittedStack[len(result.FittedStack)-1]
	if qc := domainsvc.NewParrattModel().CriticalQ(substrate.Density); qc > 0 {
		fmt.Fprintf(&b, " The critical edge of the %s substrate lies at q_c = %.4f Å⁻¹.", substrate.Material, qc)
	}
	if result.FourierThickness > 0 {
		fmt.Fprintf(&b, " The dominant Fourier component corresponds to %.1f Å.", result.FourierThickness)
	}
	return b.String()
}

func pluralLayers(n int) string {
	switch n {
	case 0:
		return "no overlayers"
	case 1:
		return "one overlayer"
	default:
		return fmt.Sprintf("%d overlayers", n)
	}
}

// thicknessCell renders a layer thickness, or "∞" for the substrate.
func thicknessCell(layers []entities.MaterialLayer, i int, infinity string) string {
	if i == len(layers)-1 {
		return infinity
	}
	return fmt.Sprintf("%.2f", layers[i].Thickness)
}
