package strategy

import (
	"nba-props-engine/internal/calibration"
	"nba-props-engine/internal/mathutil"
)

// AnnotateWithCalibrationMap rewrites each candidate's conservative and
// calibrated probabilities from a settled-outcome calibration map, then
// regrades the confidence tier. A nil map leaves the report untouched, so
// the first runs of a new strategy still produce a board.
//
// Every candidate collection in the report shares the same pointers as
// Candidates, so annotating that one slice covers ranked plays, the
// watchlist, and the sweeps too.
func AnnotateWithCalibrationMap(report *Report, m *calibration.Map) {
	if report == nil || m == nil {
		return
	}
	bins := m.BinsFor(report.StrategyID, report.ModeledDay)
	for _, cand := range report.Candidates {
		annotateCandidate(cand, bins)
	}
	report.Audit.CalibrationMapMode = m.Mode
	report.Audit.CalibrationMapModeledDay = report.ModeledDay
}

// annotateCandidate resolves the conservative probability (the uncertainty
// low when present, the raw model probability otherwise), looks up its
// calibration bucket, and falls back to the conservative value when the
// map has no bucket for it.
func annotateCandidate(cand *Candidate, bins []calibration.Bin) {
	conservative := cand.PHitLow
	if conservative == nil {
		conservative = cand.ModelPHit
	}
	if conservative != nil && (*conservative < 0 || *conservative > 1) {
		conservative = nil
	}

	cand.PConservative = nil
	cand.PCalibrated = nil
	cand.CalibrationBin = nil
	if conservative == nil {
		cand.ConfidenceTier = calibration.ConfidenceTier(nil, &cand.QualityScore, &cand.UncertaintyBand)
		return
	}

	pc := round6(*conservative)
	cand.PConservative = &pc

	calibrated := *conservative
	if hitRate, bin := calibration.CalibratedProbability(bins, *conservative); bin != nil {
		calibrated = hitRate
		cand.CalibrationBin = bin
	}
	calibrated = round6(mathutil.Clamp(calibrated, 0.0, 1.0))
	cand.PCalibrated = &calibrated
	cand.CalibrationSource = "calibration_map"
	cand.ConfidenceTier = calibration.ConfidenceTier(&calibrated, &cand.QualityScore, &cand.UncertaintyBand)
}
