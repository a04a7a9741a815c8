package engine

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// gridManager partitions a raw RGBA frame buffer into a row-major grid
// of ChunkAggregate signatures.
type gridManager struct {
	imageWidth, imageHeight int
	chunkWidth, chunkHeight int
	gridWidth, gridHeight   int

	// aggregates is reused across frames to avoid per-frame allocation.
	aggregates []ChunkAggregate

	// hueScratch is a reused scratch slice for the per-chunk circular
	// mean; sized to the largest possible chunk pixel count.
	hueScratch []float64
}

func newGridManager(cfg PipelineConfig) *gridManager {
	gw := cfg.ImageWidth / cfg.ChunkWidth
	gh := cfg.ImageHeight / cfg.ChunkHeight
	return &gridManager{
		imageWidth:  cfg.ImageWidth,
		imageHeight: cfg.ImageHeight,
		chunkWidth:  cfg.ChunkWidth,
		chunkHeight: cfg.ChunkHeight,
		gridWidth:   gw,
		gridHeight:  gh,
		aggregates:  make([]ChunkAggregate, gw*gh),
		hueScratch:  make([]float64, 0, cfg.ChunkWidth*cfg.ChunkHeight),
	}
}

// partition validates the frame buffer and fills g.aggregates in place,
// returning the same backing slice the caller must treat as read-only
// until the next call to partition.
func (g *gridManager) partition(frame []byte) ([]ChunkAggregate, error) {
	want := g.imageWidth * g.imageHeight * 4
	if len(frame) != want {
		return nil, fmt.Errorf("%w: expected %d bytes for %dx%d RGBA, got %d",
			ErrInvalidBuffer, want, g.imageWidth, g.imageHeight, len(frame))
	}

	for cy := 0; cy < g.gridHeight; cy++ {
		for cx := 0; cx < g.gridWidth; cx++ {
			g.aggregates[cy*g.gridWidth+cx] = g.aggregateChunk(frame, cx, cy)
		}
	}
	return g.aggregates, nil
}

func (g *gridManager) aggregateChunk(frame []byte, cx, cy int) ChunkAggregate {
	g.hueScratch = g.hueScratch[:0]

	var sumL, sumS float64
	originX := cx * g.chunkWidth
	originY := cy * g.chunkHeight

	for dy := 0; dy < g.chunkHeight; dy++ {
		row := (originY + dy) * g.imageWidth
		for dx := 0; dx < g.chunkWidth; dx++ {
			idx := (row + originX + dx) * 4
			px := pixelFromRGBA(frame[idx], frame[idx+1], frame[idx+2], frame[idx+3])
			sumL += px.L
			sumS += px.S
			if px.S >= saturationEpsilon {
				g.hueScratch = append(g.hueScratch, px.H*math.Pi/180)
			}
		}
	}

	n := float64(g.chunkWidth * g.chunkHeight)
	meanHue := 0.0
	if len(g.hueScratch) > 0 {
		meanHue = stat.CircularMean(g.hueScratch, nil) * 180 / math.Pi
		if meanHue < 0 {
			meanHue += 360
		}
	}

	return ChunkAggregate{
		CX:             cx,
		CY:             cy,
		MeanLuminance:  sumL / n,
		MeanSaturation: sumS / n,
		MeanHue:        meanHue,
	}
}
