// Package detection locates the laser dot in a capture photo.
//
// # Algorithm
//
// FindLaserDot follows a short pipeline:
//
//  1. Denoise: a light Gaussian blur merges laser speckle into one blob
//  2. Mask: each pixel is scored for red or green laser light in HSV space
//  3. Blobs: masked pixels are grouped with an 8-connected flood fill
//  4. Select: the largest blob above the minimum size is the dot
//
// The dot position is the score-weighted centroid of its blob, so it carries
// sub-pixel precision.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Confidence Scores
//
// Confidence ranges from 0.0 to 1.0. It is the blob's circularity (aspect
// ratio times how well it fills its inscribed disc) weighted by the mean
// laser score of its pixels. Streaks from a moving laser and blobs clipped by
// the ruler edge score low.
//
// # Limitations
//
// Strongly overexposed dots read as white at their core and only their halo
// is masked. The centroid of the halo is still the dot center when the halo
// is complete.
package detection
