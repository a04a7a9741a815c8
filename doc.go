// Package waldovision is a real-time video pre-filter: given a stream
// of RGBA frames from a fixed camera, it decides whether each frame
// contains a statistically significant, persistent event worth
// forwarding to an expensive downstream analyzer.
//
// # Architecture
//
// Processing runs in four layers, each its own component of the
// internal engine:
//
//   - A temporal anomaly layer models "normal" per-region appearance and
//     scores each region against it.
//   - A spatial grouping layer clusters anomalous regions into coherent
//     blobs.
//   - A behavioral tracking layer associates blobs across frames into
//     persistent "moments", classifying their behavior and lifecycle.
//   - A scene-stability state machine gates reporting by distinguishing
//     isolated events from global scene disturbances (lighting changes,
//     camera shake).
//
// # Basic usage
//
//	pipeline, err := waldovision.New(waldovision.DefaultPipelineConfig(1920, 1080, 16, 16))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	analysis, err := pipeline.ProcessFrame(rgbaBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if analysis.Report.Kind == waldovision.SignificantMention {
//	    forwardToAnalyzer(analysis)
//	}
//
// # Concurrency
//
// A Pipeline is strictly single-threaded and frame-sequential.
// ProcessFrame is not reentrant: callers must serialize calls into it,
// in frame order. See the Pipeline interface for details.
//
// Out of scope: video decoding and RGBA conversion, the visualizer/web
// UI, the CLI launcher and health checks, and any downstream analyzer —
// these are external collaborators that only consume ProcessFrame's
// contract.
package waldovision
