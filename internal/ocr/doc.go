// Package ocr reads the numbers printed on a ruler using Tesseract.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). An Engine
// recognizes words in a ruler strip with a digit whitelist, and
// ParseRulerMarkings turns the numeric words into positioned ruler markings
// that the measure package can calibrate from.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// The language data directory can be overridden with Config.TessdataPrefix.
//
// # Coordinates
//
// OCR runs on a cropped, upscaled strip. Word bounds are in strip
// coordinates; a Strip value records the crop origin and scale so
// ParseRulerMarkings can map box centers back to the photo, where the laser
// dot was located.
//
// # Error Handling
//
// RecognizeWords returns wrapped gosseract errors. Callers decide which
// detection failure they represent; an empty word list is not an error.
package ocr
