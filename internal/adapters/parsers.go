package adapters

import (
	"regexp"
	"strconv"
)

// Number pattern shared by all log extractors. Loose on purpose: the solver
// logs emit scientific notation and the scrape contract is stable.
const numberPattern = `([0-9eE+\-.]+)`

var (
	cfdResidualRe = regexp.MustCompile(`Final residual\s*=\s*` + numberPattern)
	cfdTimeRe     = regexp.MustCompile(`Time\s*=\s*` + numberPattern)
	cfdClRe       = regexp.MustCompile(`\bCl\b\s*=\s*` + numberPattern)
	cfdCdRe       = regexp.MustCompile(`\bCd\b\s*=\s*` + numberPattern)

	mdPotEngRe = regexp.MustCompile(`\bPotEng\b\s*=\s*` + numberPattern)
	mdTempRe   = regexp.MustCompile(`\bTemp\b\s*=\s*` + numberPattern)
	mdPressRe  = regexp.MustCompile(`\bPress\b\s*=\s*` + numberPattern)
)

func allFloats(re *regexp.Regexp, text string) []float64 {
	matches := re.FindAllStringSubmatch(text, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values
}

// ParseCFDMetrics extracts solver metrics from CFD driver output.
// Typical line: "smoothSolver:  Solving for Ux, Initial residual = ..., Final residual = 1.2e-06"
func ParseCFDMetrics(text string) map[string]float64 {
	metrics := make(map[string]float64)

	if residuals := allFloats(cfdResidualRe, text); len(residuals) > 0 {
		sum := 0.0
		for _, v := range residuals {
			sum += v
		}
		metrics["residual_final_last"] = residuals[len(residuals)-1]
		metrics["residual_final_mean"] = sum / float64(len(residuals))
	}

	if times := allFloats(cfdTimeRe, text); len(times) > 0 {
		metrics["time_last"] = times[len(times)-1]
	}

	// Aerodynamic coefficients when the case reports them
	if cl := allFloats(cfdClRe, text); len(cl) > 0 {
		metrics["Cl_last"] = cl[len(cl)-1]
	}
	if cd := allFloats(cfdCdRe, text); len(cd) > 0 {
		metrics["Cd_last"] = cd[len(cd)-1]
	}

	return metrics
}

// ParseMDMetrics extracts thermo values from MD driver output.
func ParseMDMetrics(text string) map[string]float64 {
	metrics := make(map[string]float64)

	if pe := allFloats(mdPotEngRe, text); len(pe) > 0 {
		metrics["PotEng_last"] = pe[len(pe)-1]
	}
	if temp := allFloats(mdTempRe, text); len(temp) > 0 {
		metrics["Temp_last"] = temp[len(temp)-1]
	}
	if press := allFloats(mdPressRe, text); len(press) > 0 {
		metrics["Press_last"] = press[len(press)-1]
	}

	return metrics
}
