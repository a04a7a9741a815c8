package engine

import (
	"log/slog"

	"github.com/google/uuid"
)

// Pipeline is the concrete, single-threaded facade over the engine. It
// owns every piece of mutable state and is not safe for concurrent use:
// ProcessFrame must be called from one goroutine at a time, in frame
// order.
type Pipeline struct {
	cfg PipelineConfig

	grid     *gridManager
	temporal *temporalModel
	blobs    *blobDetector
	tracker  *tracker
	scene    *sceneFSM

	gridWidth, gridHeight int
	frame                 uint64
	significantEvents     uint64

	log *slog.Logger
}

// New constructs a Pipeline, validating geometry and thresholds up
// front so configuration mistakes fail at construction.
func New(cfg PipelineConfig) (*Pipeline, error) {
	if err := validateGeometry(cfg); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	gw := cfg.ImageWidth / cfg.ChunkWidth
	gh := cfg.ImageHeight / cfg.ChunkHeight

	return &Pipeline{
		cfg:        cfg,
		grid:       newGridManager(cfg),
		temporal:   newTemporalModel(gw, gh),
		blobs:      newBlobDetector(gw, gh),
		tracker:    newTracker(),
		scene:      newSceneFSM(),
		gridWidth:  gw,
		gridHeight: gh,
		log:        cfg.logger(),
	}, nil
}

// ProcessFrame advances the pipeline by exactly one frame. On error
// (buffer-length mismatch), pipeline state is left completely
// unchanged: each frame is processed transactionally.
func (p *Pipeline) ProcessFrame(rgba []byte) (FrameAnalysis, error) {
	aggregates, err := p.grid.partition(rgba)
	if err != nil {
		return FrameAnalysis{}, err
	}

	p.frame++
	traceID := uuid.New().String()

	statusMap := p.temporal.observeFrame(aggregates, p.cfg.DecayAlpha, p.cfg.CalibrationFrames, p.cfg.BehavioralAnomalyThreshold)

	smartBlobs := p.blobs.find(statusMap, aggregates, p.cfg)

	result := p.tracker.update(smartBlobs, p.frame, p.cfg)

	anomalousCount := 0
	for _, s := range statusMap {
		if s.Kind == Anomalous {
			anomalousCount++
		}
	}
	fraction := float64(anomalousCount) / float64(len(statusMap))
	allCalibrated := p.temporal.allCalibrated(p.cfg.CalibrationFrames)

	prevScene := p.scene.state
	scene := p.scene.advance(fraction, allCalibrated, p.cfg)
	if scene != prevScene {
		p.log.Info("scene state transition", "from", prevScene.String(), "to", scene.String(), "frame", p.frame, "anomalous_fraction", fraction)
	}

	isGlobalDisturbance := scene == SceneDisturbed

	newSignificant := result.newlyTracked
	if isGlobalDisturbance {
		// A Disturbed scene suppresses new-moment significance in the
		// report, but tracking and path accumulation continue unaffected.
		newSignificant = nil
	}
	for _, m := range result.newlyTracked {
		p.log.Debug("track became significant", "track_id", m.ID, "frame", p.frame)
	}
	for _, m := range result.completedSignificant {
		p.log.Debug("moment completed", "moment_id", m.ID, "start_frame", m.StartFrame, "end_frame", m.EndFrame)
	}

	report := Report{Kind: NoSignificantMention}
	if len(newSignificant) > 0 || len(result.completedSignificant) > 0 || isGlobalDisturbance {
		report = Report{
			Kind: SignificantMention,
			Mention: MentionData{
				NewSignificantMoments:       newSignificant,
				CompletedSignificantMoments: result.completedSignificant,
				IsGlobalDisturbance:         isGlobalDisturbance,
			},
		}
		p.significantEvents++
	}

	statusMapCopy := make([]ChunkStatus, len(statusMap))
	copy(statusMapCopy, statusMap)

	return FrameAnalysis{
		Report:                report,
		StatusMap:              statusMapCopy,
		TrackedBlobs:           result.trackedBlobs,
		SceneState:             scene,
		SignificantEventCount:  p.significantEvents,
		TraceID:                traceID,
	}, nil
}
