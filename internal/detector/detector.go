package detector

import "gocv.io/x/gocv"

// Detector defines the interface for landmark tracking implementations.
type Detector interface {
	// Detect analyzes a video frame and returns the pose and hands found in it.
	// An observation with no pose and no hands is not an error.
	Detect(frame *gocv.Mat) (Observation, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for landmark tracking.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// WithPose enables body pose tracking alongside hands.
	WithPose bool

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		WithPose:        true,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
	}
}
