// Package imaging provides the photo handling that sits in front of laser and
// ruler detection.
//
// It covers three concerns:
//
//   - ImageCache decodes capture photos once and keeps the most recent few
//     in memory.
//   - LaserScore classifies a pixel as red or green laser light in HSV space.
//   - PrepareRulerStrip and Denoise condition an image for OCR and for blob
//     detection.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with the origin at the top-left corner:
// X increases rightward and Y increases downward. For regions, Min is
// inclusive and Max is exclusive, matching image.Rectangle.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and return new images; they never modify their input.
package imaging
