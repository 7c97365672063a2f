// Package ocr provides the recognition engines that turn a preprocessed
// title image into raw text.
//
// The pipeline consumes recognition through the Engine interface and never
// depends on a concrete backend. Two backends are provided:
//
//   - Tesseract: local recognition via gosseract/v2 and libtesseract (cgo)
//   - Rekognition: the AWS Rekognition DetectText API
//
// # Build Tags
//
// The Tesseract backend needs libtesseract headers at build time, so it is
// compiled only with the ocr build tag:
//
//	go build -tags ocr ./...
//
// Without the tag a pure-Go stub takes its place; the stub reports
// unavailable and the pipeline answers every scan with an explicit
// "recognition engine unavailable" result instead of failing the build.
//
// # Prerequisites
//
// For the Tesseract backend, the engine and language data must be installed
// on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// For the Rekognition backend, AWS credentials and a region must resolve
// through the SDK's default chain (environment, shared config, or instance
// role).
//
// # Availability
//
// Each backend probes its dependencies exactly once, at construction, and
// carries the outcome for its lifetime. Per-call failures (timeouts,
// throttling, recognition errors) are returned as errors and treated by the
// caller as "no candidate from this configuration"; they never flip the
// availability flag.
//
// # Configurations
//
// A Config names a line mode (single line, block, raw line), an engine mode
// (default or LSTM-only), and an optional character whitelist. Presets
// returns the fixed ladder of configurations the candidate selector
// iterates; its order is part of the selection contract. For Tesseract the
// line modes map to page segmentation modes 7, 6, and 13. Rekognition has
// no equivalent knobs and treats them as advisory.
package ocr
