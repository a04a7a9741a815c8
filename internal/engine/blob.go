package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// blobDetector implements heatmap peak-finding plus region-growing. It
// is a stateless analyzer: find takes one frame's status map and chunk
// aggregates and returns that frame's blobs, with no memory of previous
// frames. Its scratch buffers are owned by the struct and reused across
// calls.
type blobDetector struct {
	gridWidth, gridHeight int

	heatmap []float64
	visited []bool

	// queue is the flood-fill scratch list, reused and reset each call.
	queue []GridPoint
}

func newBlobDetector(gridWidth, gridHeight int) *blobDetector {
	return &blobDetector{
		gridWidth:  gridWidth,
		gridHeight: gridHeight,
		heatmap:    make([]float64, gridWidth*gridHeight),
		visited:    make([]bool, gridWidth*gridHeight),
	}
}

func (b *blobDetector) index(cx, cy int) int { return cy*b.gridWidth + cx }

// find runs peak-finding and region growing over statusMap, enriches
// each resulting blob with its raw appearance signature from
// aggregates, filters by size, and returns the final blob list. The
// fragment-merge extension point is applied but is currently a
// documented no-op.
func (b *blobDetector) find(statusMap []ChunkStatus, aggregates []ChunkAggregate, cfg PipelineConfig) []SmartBlob {
	b.buildHeatmap(statusMap)
	peaks := b.findPeaks(cfg.RegionGrowThreshold)

	for i := range b.visited {
		b.visited[i] = false
	}

	var blobs []SmartBlob
	nextID := 0
	for _, p := range peaks {
		if b.visited[b.index(p.CX, p.CY)] {
			continue
		}
		chunks := b.grow(p, cfg.RegionGrowThreshold)
		blobs = append(blobs, b.buildBlob(nextID, chunks, statusMap, aggregates))
		nextID++
	}

	blobs = mergeFragmentedBlobs(blobs)
	return filterBlobs(blobs, cfg.AbsoluteMinBlobSize, cfg.BlobSizeStdDevFilter)
}

func (b *blobDetector) buildHeatmap(statusMap []ChunkStatus) {
	for i, s := range statusMap {
		if s.Kind == Anomalous {
			b.heatmap[i] = s.Score
		} else {
			b.heatmap[i] = 0
		}
	}
}

// findPeaks scans for chunks whose score is a strict local maximum
// among their 8-neighbors and exceeds regionGrowThreshold, sorted by
// score descending with a row-major tiebreak for determinism.
func (b *blobDetector) findPeaks(regionGrowThreshold float64) []GridPoint {
	var peaks []GridPoint
	for cy := 0; cy < b.gridHeight; cy++ {
		for cx := 0; cx < b.gridWidth; cx++ {
			heat := b.heatmap[b.index(cx, cy)]
			if heat <= regionGrowThreshold {
				continue
			}
			if b.isLocalMax(cx, cy, heat) {
				peaks = append(peaks, GridPoint{CX: cx, CY: cy})
			}
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		si := b.heatmap[b.index(peaks[i].CX, peaks[i].CY)]
		sj := b.heatmap[b.index(peaks[j].CX, peaks[j].CY)]
		if si != sj {
			return si > sj
		}
		// Row-major tiebreak.
		if peaks[i].CY != peaks[j].CY {
			return peaks[i].CY < peaks[j].CY
		}
		return peaks[i].CX < peaks[j].CX
	})
	return peaks
}

func (b *blobDetector) isLocalMax(cx, cy int, heat float64) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := cx+dx, cy+dy
			if nx < 0 || nx >= b.gridWidth || ny < 0 || ny >= b.gridHeight {
				continue
			}
			if b.heatmap[b.index(nx, ny)] > heat {
				return false
			}
		}
	}
	return true
}

// neighborOrder is the fixed N, E, S, W exploration order required for
// deterministic region growth.
var neighborOrder = [4][2]int{
	{0, -1}, // N
	{1, 0},  // E
	{0, 1},  // S
	{-1, 0}, // W
}

func (b *blobDetector) grow(seed GridPoint, regionGrowThreshold float64) []GridPoint {
	b.queue = b.queue[:0]
	b.queue = append(b.queue, seed)
	b.visited[b.index(seed.CX, seed.CY)] = true

	var members []GridPoint
	for len(b.queue) > 0 {
		cur := b.queue[0]
		b.queue = b.queue[1:]
		members = append(members, cur)

		for _, d := range neighborOrder {
			nx, ny := cur.CX+d[0], cur.CY+d[1]
			if nx < 0 || nx >= b.gridWidth || ny < 0 || ny >= b.gridHeight {
				continue
			}
			idx := b.index(nx, ny)
			if b.visited[idx] || b.heatmap[idx] <= regionGrowThreshold {
				continue
			}
			b.visited[idx] = true
			b.queue = append(b.queue, GridPoint{CX: nx, CY: ny})
		}
	}
	return members
}

func (b *blobDetector) buildBlob(id int, members []GridPoint, statusMap []ChunkStatus, aggregates []ChunkAggregate) SmartBlob {
	minCX, minCY := members[0].CX, members[0].CY
	maxCX, maxCY := members[0].CX, members[0].CY

	var sumScore, sumLum, sumSat float64
	hueRadians := make([]float64, 0, len(members))

	for _, p := range members {
		if p.CX < minCX {
			minCX = p.CX
		}
		if p.CX > maxCX {
			maxCX = p.CX
		}
		if p.CY < minCY {
			minCY = p.CY
		}
		if p.CY > maxCY {
			maxCY = p.CY
		}

		idx := b.index(p.CX, p.CY)
		sumScore += statusMap[idx].Score
		sumLum += aggregates[idx].MeanLuminance
		sumSat += aggregates[idx].MeanSaturation
		hueRadians = append(hueRadians, aggregates[idx].MeanHue*degToRad)
	}

	n := float64(len(members))
	meanHue := stat.CircularMean(hueRadians, nil) * radToDeg
	if meanHue < 0 {
		meanHue += 360
	}

	width := float64(maxCX - minCX + 1)
	height := float64(maxCY - minCY + 1)

	return SmartBlob{
		ID:             id,
		MinCX:          minCX,
		MinCY:          minCY,
		MaxCX:          maxCX,
		MaxCY:          maxCY,
		Chunks:         members,
		MeanScore:      sumScore / n,
		MeanHue:        meanHue,
		MeanSaturation: sumSat / n,
		MeanLuminance:  sumLum / n,
		ChunkCount:     len(members),
		AspectRatio:    width / height,
		Centroid:       Point2D{X: (float64(minCX) + float64(maxCX)) / 2, Y: (float64(minCY) + float64(maxCY)) / 2},
	}
}

const degToRad = 3.14159265358979323846 / 180
const radToDeg = 180 / 3.14159265358979323846

// mergeFragmentedBlobs is a reserved extension point: a single physical
// object can fragment into multiple blobs. No merge semantics are
// defined yet, so this stays a documented no-op (see DESIGN.md).
func mergeFragmentedBlobs(blobs []SmartBlob) []SmartBlob {
	return blobs
}

// filterBlobs drops undersized blobs in two passes: first an absolute
// floor, then a mean-minus-k-stddev statistical cut over whatever
// survives the floor.
func filterBlobs(blobs []SmartBlob, absoluteMin int, stdDevFilter float64) []SmartBlob {
	kept := make([]SmartBlob, 0, len(blobs))
	for _, bl := range blobs {
		if bl.ChunkCount >= absoluteMin {
			kept = append(kept, bl)
		}
	}
	if len(kept) < 2 {
		// stat.StdDev is undefined (NaN) for a single sample; with fewer
		// than two blobs there is nothing to filter against anyway.
		return kept
	}

	sizes := make([]float64, len(kept))
	for i, bl := range kept {
		sizes[i] = float64(bl.ChunkCount)
	}
	mean := stat.Mean(sizes, nil)
	stdDev := stat.StdDev(sizes, nil)
	cutoff := mean - stdDevFilter*stdDev

	final := make([]SmartBlob, 0, len(kept))
	for _, bl := range kept {
		if float64(bl.ChunkCount) >= cutoff {
			final = append(final, bl)
		}
	}
	return final
}
