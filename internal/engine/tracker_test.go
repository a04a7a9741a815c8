package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func smartBlobAt(id int, cx, cy float64) SmartBlob {
	return SmartBlob{
		ID:         id,
		ChunkCount: 1,
		MeanScore:  1.0,
		MeanHue:    0,
		Centroid:   Point2D{X: cx, Y: cy},
	}
}

// TestTrackerCreatesNewTrackForUnmatchedBlob verifies a blob with no
// nearby track produces a fresh TrackNew track and a Moment.
func TestTrackerCreatesNewTrackForUnmatchedBlob(t *testing.T) {
	tr := newTracker()
	cfg := DefaultPipelineConfig(320, 240, 16, 16)

	result := tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, 1, cfg)
	if len(result.trackedBlobs) != 1 {
		t.Fatalf("expected 1 tracked blob, got %d", len(result.trackedBlobs))
	}
	if result.trackedBlobs[0].State != TrackNew {
		t.Errorf("expected new track to start in TrackNew, got %v", result.trackedBlobs[0].State)
	}
	if _, ok := tr.moments[result.trackedBlobs[0].ID]; !ok {
		t.Error("expected a Moment to be created alongside the new track")
	}
}

// TestTrackerPromotesNewToTrackedAtAgeThreshold verifies a
// continuously matched track becomes Tracked exactly at
// NewAgeThreshold and is reported via newlyTracked that frame.
func TestTrackerPromotesNewToTrackedAtAgeThreshold(t *testing.T) {
	tr := newTracker()
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewAgeThreshold = 3

	var frame uint64
	for i := 0; i < 2; i++ {
		frame++
		result := tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, frame, cfg)
		if result.trackedBlobs[0].State != TrackNew {
			t.Fatalf("frame %d: expected TrackNew, got %v", frame, result.trackedBlobs[0].State)
		}
		if len(result.newlyTracked) != 0 {
			t.Fatalf("frame %d: expected no promotion yet", frame)
		}
	}

	frame++
	result := tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, frame, cfg)
	if result.trackedBlobs[0].State != TrackTracked {
		t.Fatalf("expected TrackTracked at age threshold, got %v", result.trackedBlobs[0].State)
	}
	if len(result.newlyTracked) != 1 {
		t.Fatalf("expected exactly one newly-tracked moment, got %d", len(result.newlyTracked))
	}
}

// TestTrackerDiscardsExpiredNewTrackWithoutMoment verifies a New track
// that never gets re-matched is destroyed, without appearing in
// completedSignificant, once its grace period elapses.
func TestTrackerDiscardsExpiredNewTrackWithoutMoment(t *testing.T) {
	tr := newTracker()
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewGraceFrames = 2

	tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, 1, cfg)

	var result updateResult
	for frame := uint64(2); frame <= 5; frame++ {
		result = tr.update(nil, frame, cfg)
	}

	if len(result.trackedBlobs) != 0 {
		t.Errorf("expected the expired New track to be gone, got %d tracks", len(result.trackedBlobs))
	}
	if len(result.completedSignificant) != 0 {
		t.Errorf("expected no completed moment for a track that never became significant, got %d", len(result.completedSignificant))
	}
}

// TestTrackerSealsMomentOnceTrackedTrackExpires verifies a track that
// reached Tracked and is then lost long enough produces a completed,
// significant moment.
func TestTrackerSealsMomentOnceTrackedTrackExpires(t *testing.T) {
	tr := newTracker()
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewAgeThreshold = 2
	cfg.LostGraceFrames = 2

	var frame uint64
	for i := 0; i < 3; i++ {
		frame++
		tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, frame, cfg)
	}

	var completed []Moment
	for i := 0; i < 4; i++ {
		frame++
		result := tr.update(nil, frame, cfg)
		completed = append(completed, result.completedSignificant...)
	}

	if len(completed) != 1 {
		t.Fatalf("expected exactly 1 completed moment across the miss window, got %d", len(completed))
	}
}

// TestTrackerRestoresPriorStateAfterReMatch verifies a Lost track that
// gets re-matched resumes its pre-loss state rather than starting over.
func TestTrackerRestoresPriorStateAfterReMatch(t *testing.T) {
	tr := newTracker()
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewAgeThreshold = 2
	cfg.LostGraceFrames = 5

	var frame uint64
	for i := 0; i < 3; i++ {
		frame++
		tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, frame, cfg)
	}

	frame++
	missed := tr.update(nil, frame, cfg)
	if missed.trackedBlobs[0].State != TrackLost {
		t.Fatalf("expected TrackLost after a miss, got %v", missed.trackedBlobs[0].State)
	}

	frame++
	rematched := tr.update([]SmartBlob{smartBlobAt(0, 1, 1)}, frame, cfg)
	if rematched.trackedBlobs[0].State != TrackTracked {
		t.Errorf("expected re-matched track to resume TrackTracked, got %v", rematched.trackedBlobs[0].State)
	}
}

// TestAssociateGreedyNearestNeighbor verifies the cost-matrix matcher
// prefers the closest pairing and respects the max-distance gate.
func TestAssociateGreedyNearestNeighbor(t *testing.T) {
	tracks := []TrackedBlob{
		{ID: 0, Latest: smartBlobAt(0, 0, 0)},
		{ID: 1, Latest: smartBlobAt(1, 10, 10)},
	}
	blobs := []SmartBlob{
		smartBlobAt(0, 0.5, 0.5), // close to track 0
		smartBlobAt(1, 50, 50),   // far from everything
	}

	matches, matchedTrack, matchedBlob := associate(tracks, blobs, 3.0)
	if matches[0] != 0 {
		t.Errorf("expected track 0 to match blob 0, got %v", matches)
	}
	if matchedTrack[1] {
		t.Error("expected track 1 to remain unmatched (too far from any blob)")
	}
	if matchedBlob[1] {
		t.Error("expected blob 1 to remain unmatched (too far from any track)")
	}
}

// TestMomentCloneIsDeepAndIndependent verifies clone() produces a
// value equal to the original but backed by independent slices, using
// go-cmp for the deep comparison (a plain == would not reach into Path
// or BlobHistory).
func TestMomentCloneIsDeepAndIndependent(t *testing.T) {
	original := &Moment{
		ID:         1,
		StartFrame: 5,
		Path:       []Point2D{{X: 1, Y: 2}},
		BlobHistory: []SmartBlob{{ID: 0, ChunkCount: 1}},
	}

	cloned := original.clone()
	if diff := cmp.Diff(*original, cloned); diff != "" {
		t.Fatalf("clone() differs from original (-want +got):\n%s", diff)
	}

	cloned.Path[0].X = 999
	if original.Path[0].X == 999 {
		t.Error("expected clone()'s Path to be backed by an independent slice")
	}
}

// TestIsBehaviorallyAnomalousRequiresHistory verifies a track with
// insufficient history is never flagged, regardless of signature.
func TestIsBehaviorallyAnomalousRequiresHistory(t *testing.T) {
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewAgeThreshold = 5

	track := &TrackedBlob{History: make([]SmartBlob, 2)}
	current := SmartBlob{ChunkCount: 1000, MeanScore: 100, MeanHue: 0}

	if isBehaviorallyAnomalous(track, current, cfg) {
		t.Error("expected no anomaly flag without enough history, regardless of signature")
	}
}

// TestIsBehaviorallyAnomalousDetectsSizeOutlier verifies a sudden,
// large size change against a stable history is flagged.
func TestIsBehaviorallyAnomalousDetectsSizeOutlier(t *testing.T) {
	cfg := DefaultPipelineConfig(320, 240, 16, 16)
	cfg.NewAgeThreshold = 3
	cfg.BehavioralAnomalyThreshold = 3.0

	history := make([]SmartBlob, 10)
	for i := range history {
		history[i] = SmartBlob{ChunkCount: 4, MeanScore: 1.0, MeanHue: 0}
	}
	track := &TrackedBlob{History: history}
	current := SmartBlob{ChunkCount: 400, MeanScore: 1.0, MeanHue: 0}

	if !isBehaviorallyAnomalous(track, current, cfg) {
		t.Error("expected a 100x size outlier against a stable history to be flagged anomalous")
	}
}
