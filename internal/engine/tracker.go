package engine

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// tracker implements the data-association and state-machine layer, plus
// Moment bookkeeping. A Moment is created in lockstep with its
// TrackedBlob and lives exactly as long as it: a Moment exists if and
// only if exactly one TrackedBlob created it.
type tracker struct {
	blobs   []TrackedBlob
	moments map[int]*Moment
	nextID  int
}

func newTracker() *tracker {
	return &tracker{moments: make(map[int]*Moment)}
}

// updateResult is everything the pipeline facade needs out of one
// frame's tracker update.
type updateResult struct {
	trackedBlobs        []TrackedBlob
	newlyTracked        []Moment // tracks that transitioned New -> Tracked this frame
	completedSignificant []Moment
}

func (t *tracker) update(blobs []SmartBlob, frame uint64, cfg PipelineConfig) updateResult {
	matches, _, matchedBlob := associate(t.blobs, blobs, cfg.MaxAssociationDistance)

	var result updateResult
	next := make([]TrackedBlob, 0, len(t.blobs)+len(blobs))

	for trackIdx := range t.blobs {
		track := t.blobs[trackIdx]

		if blobIdx, ok := matches[trackIdx]; ok {
			becameTracked := t.applyMatch(&track, blobs[blobIdx], frame, cfg)
			next = append(next, track)
			if becameTracked {
				if m, ok := t.moments[track.ID]; ok {
					result.newlyTracked = append(result.newlyTracked, m.clone())
				}
			}
			continue
		}

		// Unmatched this frame.
		alive, sealed := t.applyMiss(&track, frame, cfg)
		if !alive {
			if sealed != nil {
				result.completedSignificant = append(result.completedSignificant, *sealed)
			}
			delete(t.moments, track.ID)
			continue
		}
		next = append(next, track)
	}

	for blobIdx := range blobs {
		if matchedBlob[blobIdx] {
			continue
		}
		track := t.newTrack(blobs[blobIdx], frame)
		next = append(next, track)
	}

	t.blobs = next

	result.trackedBlobs = make([]TrackedBlob, len(t.blobs))
	copy(result.trackedBlobs, t.blobs)
	return result
}

func (t *tracker) newTrack(blob SmartBlob, frame uint64) TrackedBlob {
	id := t.nextID
	t.nextID++

	track := TrackedBlob{
		ID:     id,
		State:  TrackNew,
		Latest: blob,
		AgeFrames: 1,
	}
	t.moments[id] = &Moment{
		ID:          id,
		StartFrame:  frame,
		EndFrame:    frame,
		Path:        []Point2D{blob.Centroid},
		BlobHistory: []SmartBlob{blob},
	}
	return track
}

// applyMatch folds a newly associated blob into an existing track,
// advances the §4.5 state machine, and appends this frame to its
// Moment. It reports whether the track just transitioned New -> Tracked.
func (t *tracker) applyMatch(track *TrackedBlob, blob SmartBlob, frame uint64, cfg PipelineConfig) bool {
	prevLatest := track.Latest

	track.AgeFrames++
	track.FramesSinceLastSeen = 0

	becameTracked := false
	switch track.State {
	case TrackNew:
		if track.AgeFrames >= cfg.NewAgeThreshold {
			track.State = TrackTracked
			track.everTracked = true
			becameTracked = true
		}
	case TrackLost:
		track.State = track.prevState
		fallthrough
	case TrackTracked, TrackAnomalous:
		track.WasBehaviorallyAnomalous = isBehaviorallyAnomalous(track, blob, cfg)
		if track.State == TrackTracked {
			if track.WasBehaviorallyAnomalous {
				track.State = TrackAnomalous
				track.anomalyCooldown = 0
			}
		} else { // TrackAnomalous
			if track.WasBehaviorallyAnomalous {
				track.anomalyCooldown = 0
			} else {
				track.anomalyCooldown++
				if track.anomalyCooldown >= cfg.AnomalyCooldownFrames {
					track.State = TrackTracked
				}
			}
		}
	}

	track.History = pushBounded(track.History, prevLatest, cfg.BehavioralHistoryWindow)
	track.Latest = blob

	if m, ok := t.moments[track.ID]; ok {
		m.EndFrame = frame
		m.Path = append(m.Path, blob.Centroid)
		m.BlobHistory = append(m.BlobHistory, blob)
		if blob.MeanScore > m.MaxAnomalyScore {
			m.MaxAnomalyScore = blob.MeanScore
		}
		if track.WasBehaviorallyAnomalous {
			m.WasBehaviorallyAnomalous = true
		}
	}

	return becameTracked
}

// applyMiss advances a track that had no matching blob this frame. It
// returns alive=false once the track should be destroyed, along with
// the sealed Moment if it qualifies as significant.
func (t *tracker) applyMiss(track *TrackedBlob, frame uint64, cfg PipelineConfig) (alive bool, sealed *Moment) {
	track.FramesSinceLastSeen++

	switch track.State {
	case TrackNew:
		if track.FramesSinceLastSeen > cfg.NewGraceFrames {
			return false, nil // destroyed, no moment: New-only tracks are discarded.
		}
	case TrackTracked, TrackAnomalous:
		track.prevState = track.State
		track.State = TrackLost
	case TrackLost:
		if track.FramesSinceLastSeen > cfg.LostGraceFrames {
			m := t.moments[track.ID]
			if m != nil && track.everTracked && track.AgeFrames >= cfg.NewAgeThreshold {
				sealed := m.clone()
				return false, &sealed
			}
			return false, nil
		}
	}

	// Still alive: record this frame against the last known centroid
	// and signature.
	if m, ok := t.moments[track.ID]; ok {
		m.EndFrame = frame
		m.Path = append(m.Path, track.Latest.Centroid)
		m.BlobHistory = append(m.BlobHistory, track.Latest)
	}
	return true, nil
}

func pushBounded(history []SmartBlob, value SmartBlob, window int) []SmartBlob {
	history = append(history, value)
	if len(history) > window {
		history = history[len(history)-window:]
	}
	return history
}

// associate implements a greedy nearest-neighbor matcher: enumerate
// every finite (track, blob) pair sorted by ascending centroid
// distance, then accept pairs in order as long as both sides remain
// unmatched.
func associate(tracks []TrackedBlob, blobs []SmartBlob, maxDistance float64) (matches map[int]int, matchedTrack, matchedBlob []bool) {
	type pair struct {
		trackIdx, blobIdx int
		cost              float64
	}

	var pairs []pair
	for i, tr := range tracks {
		for j, bl := range blobs {
			d := centroidDistance(tr.Latest.Centroid, bl.Centroid)
			if d <= maxDistance {
				pairs = append(pairs, pair{i, j, d})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].cost != pairs[j].cost {
			return pairs[i].cost < pairs[j].cost
		}
		if pairs[i].trackIdx != pairs[j].trackIdx {
			return pairs[i].trackIdx < pairs[j].trackIdx
		}
		return pairs[i].blobIdx < pairs[j].blobIdx
	})

	matches = make(map[int]int)
	matchedTrack = make([]bool, len(tracks))
	matchedBlob = make([]bool, len(blobs))

	for _, p := range pairs {
		if matchedTrack[p.trackIdx] || matchedBlob[p.blobIdx] {
			continue
		}
		matches[p.trackIdx] = p.blobIdx
		matchedTrack[p.trackIdx] = true
		matchedBlob[p.blobIdx] = true
	}
	return matches, matchedTrack, matchedBlob
}

func centroidDistance(a, b Point2D) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Hypot(dx, dy)
}

// isBehaviorallyAnomalous Z-scores the current signature's size,
// mean-anomaly and hue channels against a track's own history, once
// that history is long enough, and flags anomalous if any channel's Z
// reaches or exceeds the threshold.
func isBehaviorallyAnomalous(track *TrackedBlob, current SmartBlob, cfg PipelineConfig) bool {
	if len(track.History) < cfg.NewAgeThreshold {
		return false
	}

	sizes := make([]float64, len(track.History))
	scores := make([]float64, len(track.History))
	huesRad := make([]float64, len(track.History))
	for i, s := range track.History {
		sizes[i] = float64(s.ChunkCount)
		scores[i] = s.MeanScore
		huesRad[i] = s.MeanHue * degToRad
	}

	if zScoreOf(float64(current.ChunkCount), sizes) >= cfg.BehavioralAnomalyThreshold {
		return true
	}
	if zScoreOf(current.MeanScore, scores) >= cfg.BehavioralAnomalyThreshold {
		return true
	}
	return circularZScore(current.MeanHue, huesRad) >= cfg.BehavioralAnomalyThreshold
}

func zScoreOf(value float64, history []float64) float64 {
	mean := stat.Mean(history, nil)
	std := stdDevSafe(history)
	return math.Abs(value-mean) / math.Max(std, statEpsilon)
}

func stdDevSafe(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

// circularZScore mirrors zScoreOf for the hue channel, using circular
// mean/distance instead of arithmetic mean/difference.
func circularZScore(hueDegrees float64, historyRad []float64) float64 {
	meanRad := stat.CircularMean(historyRad, nil)
	meanDeg := meanRad * radToDeg
	if meanDeg < 0 {
		meanDeg += 360
	}

	if len(historyRad) < 2 {
		d := circularDistanceDegrees(hueDegrees, meanDeg)
		return d / statEpsilon
	}

	var sumSq float64
	for _, hr := range historyRad {
		d := circularDistanceDegrees(hr*radToDeg, meanDeg)
		sumSq += d * d
	}
	std := math.Sqrt(sumSq / float64(len(historyRad)))

	d := circularDistanceDegrees(hueDegrees, meanDeg)
	return d / math.Max(std, statEpsilon)
}
