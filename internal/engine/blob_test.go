package engine

import "testing"

func flatAggregates(gw, gh int) []ChunkAggregate {
	aggs := make([]ChunkAggregate, gw*gh)
	for cy := 0; cy < gh; cy++ {
		for cx := 0; cx < gw; cx++ {
			aggs[cy*gw+cx] = ChunkAggregate{CX: cx, CY: cy, MeanLuminance: 0.3, MeanSaturation: 0.1, MeanHue: 40}
		}
	}
	return aggs
}

// TestBlobDetectorFindsSingleIsolatedPeak verifies one anomalous chunk
// surrounded by stable chunks produces exactly one single-chunk blob.
func TestBlobDetectorFindsSingleIsolatedPeak(t *testing.T) {
	gw, gh := 5, 5
	statusMap := make([]ChunkStatus, gw*gh)
	for i := range statusMap {
		statusMap[i] = ChunkStatus{Kind: Stable}
	}
	statusMap[2*gw+2] = ChunkStatus{Kind: Anomalous, Score: 5.0}

	bd := newBlobDetector(gw, gh)
	cfg := DefaultPipelineConfig(gw*16, gh*16, 16, 16)
	blobs := bd.find(statusMap, flatAggregates(gw, gh), cfg)

	if len(blobs) != 1 {
		t.Fatalf("expected 1 blob, got %d", len(blobs))
	}
	if blobs[0].ChunkCount != 1 {
		t.Errorf("expected a single-chunk blob, got %d chunks", blobs[0].ChunkCount)
	}
	if blobs[0].MinCX != 2 || blobs[0].MinCY != 2 {
		t.Errorf("expected blob at (2,2), got (%d,%d)", blobs[0].MinCX, blobs[0].MinCY)
	}
}

// TestBlobDetectorGrowsConnectedRegion verifies a 2x2 block of
// anomalous chunks grows into one blob rather than four.
func TestBlobDetectorGrowsConnectedRegion(t *testing.T) {
	gw, gh := 6, 6
	statusMap := make([]ChunkStatus, gw*gh)
	for i := range statusMap {
		statusMap[i] = ChunkStatus{Kind: Stable}
	}
	for _, p := range []GridPoint{{CX: 2, CY: 2}, {CX: 3, CY: 2}, {CX: 2, CY: 3}, {CX: 3, CY: 3}} {
		statusMap[p.CY*gw+p.CX] = ChunkStatus{Kind: Anomalous, Score: 4.0}
	}

	bd := newBlobDetector(gw, gh)
	cfg := DefaultPipelineConfig(gw*16, gh*16, 16, 16)
	blobs := bd.find(statusMap, flatAggregates(gw, gh), cfg)

	if len(blobs) != 1 {
		t.Fatalf("expected 1 merged blob, got %d", len(blobs))
	}
	if blobs[0].ChunkCount != 4 {
		t.Errorf("expected 4 chunks in the merged blob, got %d", blobs[0].ChunkCount)
	}
}

// TestBlobDetectorNoAnomaliesYieldsNoBlobs verifies an all-stable
// status map produces zero blobs.
func TestBlobDetectorNoAnomaliesYieldsNoBlobs(t *testing.T) {
	gw, gh := 4, 4
	statusMap := make([]ChunkStatus, gw*gh)
	for i := range statusMap {
		statusMap[i] = ChunkStatus{Kind: Stable}
	}

	bd := newBlobDetector(gw, gh)
	cfg := DefaultPipelineConfig(gw*16, gh*16, 16, 16)
	blobs := bd.find(statusMap, flatAggregates(gw, gh), cfg)

	if len(blobs) != 0 {
		t.Errorf("expected no blobs, got %d", len(blobs))
	}
}

// TestFilterBlobsAppliesAbsoluteFloorFirst verifies blobs under the
// absolute minimum are dropped even when they would survive the
// statistical cut.
func TestFilterBlobsAppliesAbsoluteFloorFirst(t *testing.T) {
	blobs := []SmartBlob{
		{ID: 0, ChunkCount: 1},
		{ID: 1, ChunkCount: 10},
		{ID: 2, ChunkCount: 10},
	}
	kept := filterBlobs(blobs, 2, 3.0)
	for _, b := range kept {
		if b.ChunkCount < 2 {
			t.Errorf("expected absolute floor to drop blob %d (size %d)", b.ID, b.ChunkCount)
		}
	}
}

// TestFilterBlobsSkipsStdDevForSingleBlob verifies the statistical cut
// is skipped (not NaN-propagated) when fewer than two blobs survive the
// absolute floor.
func TestFilterBlobsSkipsStdDevForSingleBlob(t *testing.T) {
	blobs := []SmartBlob{{ID: 0, ChunkCount: 5}}
	kept := filterBlobs(blobs, 1, 1.0)
	if len(kept) != 1 {
		t.Fatalf("expected the single blob to survive filtering untouched, got %d", len(kept))
	}
}

// TestMergeFragmentedBlobsIsNoOp verifies the reserved extension point
// returns its input unchanged.
func TestMergeFragmentedBlobsIsNoOp(t *testing.T) {
	blobs := []SmartBlob{{ID: 1}, {ID: 2}}
	merged := mergeFragmentedBlobs(blobs)
	if len(merged) != len(blobs) {
		t.Fatalf("expected mergeFragmentedBlobs to be a no-op, got %d blobs from %d", len(merged), len(blobs))
	}
}
