package engine

import "math"

// statEpsilon guards every division by a standard deviation so a
// near-zero variance never produces a divide-by-zero or an
// unreasonably huge Z-score.
const statEpsilon = 1e-6

// chunkModel is the per-chunk running statistics: one lives at each
// grid position for the lifetime of the pipeline, and positions never
// share a model.
type chunkModel struct {
	count int

	meanL, varL float64
	meanS, varS float64

	// meanCos/meanSin are the EWMA of the hue unit vector; meanH is
	// derived from them on demand. varH is the EWMA of the squared
	// circular distance between each observation and the *prior* mean,
	// mirroring the luminance/saturation update exactly.
	meanCos, meanSin, varH float64
}

func (m *chunkModel) meanHueDegrees() float64 {
	h := math.Atan2(m.meanSin, m.meanCos) * 180 / math.Pi
	if h < 0 {
		h += 360
	}
	return h
}

// circularDistanceDegrees returns the unsigned angular distance between
// two hues expressed in degrees, in [0, 180].
func circularDistanceDegrees(a, b float64) float64 {
	d := math.Mod(a-b+540, 360) - 180
	return math.Abs(d)
}

// observe feeds one frame's chunk aggregate through the model and
// returns this chunk's status for the frame. alpha is the EWMA decay
// constant (PipelineConfig.DecayAlpha) and calibrationFrames/threshold
// come straight from the config.
func (m *chunkModel) observe(agg ChunkAggregate, alpha float64, calibrationFrames int, threshold float64) ChunkStatus {
	calibrating := m.count < calibrationFrames

	if !calibrating {
		score := m.score(agg)
		if score >= threshold {
			// Anomalous: freeze statistics so the model never drifts
			// toward an intruding object.
			return ChunkStatus{Kind: Anomalous, Score: score}
		}
	}

	m.update(agg, alpha)
	if calibrating {
		m.count++
		return ChunkStatus{Kind: Calibrating}
	}
	return ChunkStatus{Kind: Stable}
}

// score computes max(z_L, z_S, z_H) against the current model without
// mutating it.
func (m *chunkModel) score(agg ChunkAggregate) float64 {
	if m.count == 0 {
		return 0
	}
	zL := math.Abs(agg.MeanLuminance-m.meanL) / math.Max(math.Sqrt(m.varL), statEpsilon)
	zS := math.Abs(agg.MeanSaturation-m.meanS) / math.Max(math.Sqrt(m.varS), statEpsilon)
	dh := circularDistanceDegrees(agg.MeanHue, m.meanHueDegrees())
	zH := dh / math.Max(math.Sqrt(m.varH), statEpsilon)
	return math.Max(zL, math.Max(zS, zH))
}

// update applies the decay-weighted EWMA update. The very first
// observation seeds the means directly rather than decaying from a zero
// baseline, which would otherwise bias the first ~1/alpha frames toward
// zero (an explicit, documented choice: DESIGN.md).
func (m *chunkModel) update(agg ChunkAggregate, alpha float64) {
	hueRad := agg.MeanHue * math.Pi / 180

	if m.count == 0 {
		m.meanL = agg.MeanLuminance
		m.meanS = agg.MeanSaturation
		m.meanCos = math.Cos(hueRad)
		m.meanSin = math.Sin(hueRad)
		m.varL, m.varS, m.varH = 0, 0, 0
		return
	}

	prevMeanL, prevMeanS, prevMeanH := m.meanL, m.meanS, m.meanHueDegrees()

	m.meanL = (1-alpha)*m.meanL + alpha*agg.MeanLuminance
	m.varL = (1-alpha)*m.varL + alpha*(agg.MeanLuminance-prevMeanL)*(agg.MeanLuminance-prevMeanL)

	m.meanS = (1-alpha)*m.meanS + alpha*agg.MeanSaturation
	m.varS = (1-alpha)*m.varS + alpha*(agg.MeanSaturation-prevMeanS)*(agg.MeanSaturation-prevMeanS)

	dh := circularDistanceDegrees(agg.MeanHue, prevMeanH)
	m.varH = (1-alpha)*m.varH + alpha*dh*dh
	m.meanCos = (1-alpha)*m.meanCos + alpha*math.Cos(hueRad)
	m.meanSin = (1-alpha)*m.meanSin + alpha*math.Sin(hueRad)
}

// temporalModel owns one chunkModel per grid position and produces the
// per-frame status map.
type temporalModel struct {
	gridWidth, gridHeight int
	models                []chunkModel
	statusMap             []ChunkStatus // reused buffer
}

func newTemporalModel(gridWidth, gridHeight int) *temporalModel {
	return &temporalModel{
		gridWidth:  gridWidth,
		gridHeight: gridHeight,
		models:     make([]chunkModel, gridWidth*gridHeight),
		statusMap:  make([]ChunkStatus, gridWidth*gridHeight),
	}
}

func (t *temporalModel) observeFrame(aggregates []ChunkAggregate, alpha float64, calibrationFrames int, threshold float64) []ChunkStatus {
	for i, agg := range aggregates {
		t.statusMap[i] = t.models[i].observe(agg, alpha, calibrationFrames, threshold)
	}
	return t.statusMap
}

// allCalibrated reports whether every chunk has left Calibrating.
func (t *temporalModel) allCalibrated(calibrationFrames int) bool {
	for i := range t.models {
		if t.models[i].count < calibrationFrames {
			return false
		}
	}
	return true
}
