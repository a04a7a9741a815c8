package engine

// sceneFSM classifies the global frame-stability state. Both the
// Stable/Volatile -> Disturbed and Disturbed -> Stable edges require a
// confirmed streak of DisturbanceConfirmationFrames rather than a
// single-frame reading; see DESIGN.md for the rationale.
type sceneFSM struct {
	state SceneState

	streakAboveEntry int
	streakBelowExit  int
}

func newSceneFSM() *sceneFSM {
	return &sceneFSM{state: SceneCalibrating}
}

// advance folds this frame's anomalous-chunk fraction into the FSM and
// returns the resulting state.
func (f *sceneFSM) advance(anomalousFraction float64, allCalibrated bool, cfg PipelineConfig) SceneState {
	if anomalousFraction >= cfg.DisturbanceEntryThreshold {
		f.streakAboveEntry++
	} else {
		f.streakAboveEntry = 0
	}
	if anomalousFraction < cfg.DisturbanceExitThreshold {
		f.streakBelowExit++
	} else {
		f.streakBelowExit = 0
	}

	switch f.state {
	case SceneCalibrating:
		if allCalibrated {
			f.state = SceneStable
		}
	case SceneStable:
		if f.streakAboveEntry >= cfg.DisturbanceConfirmationFrames {
			f.state = SceneDisturbed
		} else if anomalousFraction >= cfg.DisturbanceExitThreshold {
			f.state = SceneVolatile
		}
	case SceneVolatile:
		if f.streakAboveEntry >= cfg.DisturbanceConfirmationFrames {
			f.state = SceneDisturbed
		} else if f.streakBelowExit >= cfg.DisturbanceConfirmationFrames {
			f.state = SceneStable
		}
	case SceneDisturbed:
		if f.streakBelowExit >= cfg.DisturbanceConfirmationFrames {
			f.state = SceneStable
		}
	}
	return f.state
}
