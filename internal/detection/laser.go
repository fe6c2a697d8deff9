package detection

import (
	"fmt"
	"image"
	"math"

	"github.com/ironsheep/level-check-mcp/internal/failure"
	"github.com/ironsheep/level-check-mcp/internal/imaging"
)

// Bounds represents a rectangular bounding box in pixel coordinates.
//
// (X1, Y1) is the top-left pixel and (X2, Y2) the bottom-right pixel, both
// inclusive.
type Bounds struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Width returns the inclusive pixel width.
func (b Bounds) Width() int { return b.X2 - b.X1 + 1 }

// Height returns the inclusive pixel height.
func (b Bounds) Height() int { return b.Y2 - b.Y1 + 1 }

// Point represents a 2D coordinate in pixel space.
type Point struct {
	X int `json:"x"` // Horizontal position (0 = leftmost)
	Y int `json:"y"` // Vertical position (0 = topmost)
}

// Default LaserOptions values.
const (
	DefaultMinPixels  = 12
	DefaultThreshold  = 0.3
	DefaultBlurRadius = 1.0
)

// LaserOptions tunes FindLaserDot. Zero fields take the defaults above.
type LaserOptions struct {
	Color imaging.LaserColor

	// MinPixels is the smallest blob accepted as the dot.
	MinPixels int

	// Threshold is the minimum imaging.LaserScore for a pixel to join a blob.
	Threshold float64

	// BlurRadius is the Gaussian radius applied before masking. Negative
	// disables the blur.
	BlurRadius float64
}

func (o LaserOptions) withDefaults() LaserOptions {
	if o.Color == "" {
		o.Color = imaging.LaserRed
	}
	if o.MinPixels <= 0 {
		o.MinPixels = DefaultMinPixels
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.BlurRadius == 0 {
		o.BlurRadius = DefaultBlurRadius
	}
	return o
}

// LaserDot is a located laser dot.
type LaserDot struct {
	// CenterX and CenterY are the score-weighted centroid, in image
	// coordinates, with sub-pixel precision.
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`

	Bounds    Bounds  `json:"bounds"`
	Area      int     `json:"area"`
	MeanScore float64 `json:"mean_score"`

	// Confidence combines how round and how saturated the blob is, 0.0 to 1.0.
	Confidence float64 `json:"confidence"`

	// Candidates is the number of blobs that passed MinPixels.
	Candidates int `json:"candidates"`
}

// FindLaserDot locates the laser dot in a photo.
//
// The photo is lightly blurred, every pixel is scored with
// imaging.LaserScore, and pixels at or above the threshold are grouped into
// 8-connected blobs. The largest blob with at least MinPixels pixels is the
// dot. When no blob qualifies the error is a *failure.DetectionError of kind
// failure.LaserDetectionFailed.
func FindLaserDot(img image.Image, opts LaserOptions) (*LaserDot, error) {
	opts = opts.withDefaults()

	if img.Bounds().Empty() {
		return nil, failure.Detection(failure.ImageProcessingFailed, "empty image", nil)
	}

	// Denoise returns a copy even without blurring; the copy may be rebased
	// to a zero origin, so positions are shifted back by offset below.
	src := imaging.Denoise(img, math.Max(opts.BlurRadius, 0))
	offset := img.Bounds().Min.Sub(src.Bounds().Min)

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	scores := laserScores(src, opts.Color)
	mask := make([][]bool, height)
	for y := 0; y < height; y++ {
		mask[y] = make([]bool, width)
		for x := 0; x < width; x++ {
			mask[y][x] = scores[y][x] >= opts.Threshold
		}
	}

	blobs := findBlobs(mask, width, height, opts.MinPixels)
	if len(blobs) == 0 {
		return nil, failure.Detection(failure.LaserDetectionFailed,
			fmt.Sprintf("no %s blob of at least %d pixels", opts.Color, opts.MinPixels), nil)
	}

	best := blobs[0]
	for _, b := range blobs[1:] {
		if len(b) > len(best) {
			best = b
		}
	}

	dot := measureBlob(best, scores)
	origin := bounds.Min.Add(offset)
	dot.CenterX += float64(origin.X)
	dot.CenterY += float64(origin.Y)
	dot.Bounds.X1 += origin.X
	dot.Bounds.X2 += origin.X
	dot.Bounds.Y1 += origin.Y
	dot.Bounds.Y2 += origin.Y
	dot.Candidates = len(blobs)
	return dot, nil
}

// laserScores scores every pixel. Rows are indexed from the top of bounds.
func laserScores(img image.Image, c imaging.LaserColor) [][]float64 {
	bounds := img.Bounds()
	scores := make([][]float64, bounds.Dy())
	for y := 0; y < bounds.Dy(); y++ {
		scores[y] = make([]float64, bounds.Dx())
		for x := 0; x < bounds.Dx(); x++ {
			scores[y][x] = imaging.LaserScore(img.At(bounds.Min.X+x, bounds.Min.Y+y), c)
		}
	}
	return scores
}

// findBlobs groups set mask pixels into 8-connected components and drops
// those smaller than minPixels.
func findBlobs(mask [][]bool, width, height, minPixels int) [][]Point {
	visited := make([][]bool, height)
	for y := 0; y < height; y++ {
		visited[y] = make([]bool, width)
	}

	var blobs [][]Point
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask[y][x] && !visited[y][x] {
				var blob []Point
				floodFill(mask, visited, x, y, width, height, &blob)
				if len(blob) >= minPixels {
					blobs = append(blobs, blob)
				}
			}
		}
	}
	return blobs
}

// floodFill performs an iterative 8-connected flood fill from (startX,
// startY), marking visited pixels and appending them to blob.
func floodFill(mask, visited [][]bool, startX, startY, width, height int, blob *[]Point) {
	stack := []Point{{X: startX, Y: startY}}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if p.X < 0 || p.X >= width || p.Y < 0 || p.Y >= height {
			continue
		}
		if visited[p.Y][p.X] || !mask[p.Y][p.X] {
			continue
		}

		visited[p.Y][p.X] = true
		*blob = append(*blob, p)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				stack = append(stack, Point{X: p.X + dx, Y: p.Y + dy})
			}
		}
	}
}

// measureBlob computes the weighted centroid, bounds and confidence of a
// blob in mask coordinates.
func measureBlob(blob []Point, scores [][]float64) *LaserDot {
	b := Bounds{X1: blob[0].X, Y1: blob[0].Y, X2: blob[0].X, Y2: blob[0].Y}
	var sumW, sumX, sumY float64
	for _, p := range blob {
		w := scores[p.Y][p.X]
		sumW += w
		sumX += w * float64(p.X)
		sumY += w * float64(p.Y)
		b.X1 = min(b.X1, p.X)
		b.Y1 = min(b.Y1, p.Y)
		b.X2 = max(b.X2, p.X)
		b.Y2 = max(b.Y2, p.Y)
	}

	mean := sumW / float64(len(blob))
	return &LaserDot{
		CenterX:    sumX / sumW,
		CenterY:    sumY / sumW,
		Bounds:     b,
		Area:       len(blob),
		MeanScore:  mean,
		Confidence: math.Min(1, circularity(len(blob), b)*(0.5+0.5*mean)),
	}
}

// circularity compares a blob with the disc inscribed in its bounding box:
// 1.0 for a round dot, lower for streaks and partial blobs.
func circularity(area int, b Bounds) float64 {
	w, h := float64(b.Width()), float64(b.Height())
	aspect := math.Min(w, h) / math.Max(w, h)
	disc := math.Pi * w * h / 4
	fill := float64(area) / disc
	if fill > 1 {
		fill = 1 / fill
	}
	return aspect * fill
}
