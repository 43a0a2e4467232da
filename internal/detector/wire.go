package detector

import (
	"encoding/json"
	"fmt"
	"time"
)

// WireObservation is the JSON form of an Observation as sent by trackers
// (the MediaPipe service and browser clients on /api/frames).
type WireObservation struct {
	Pose      []Point3D  `json:"pose,omitempty"`
	Hands     []WireHand `json:"hands"`
	Timestamp int64      `json:"timestamp,omitempty"` // unix milliseconds
}

// WireHand is the JSON form of one detected hand.
type WireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// Observation converts the wire form, rejecting any landmark set with the wrong arity.
// A hand or pose without points is absent, not malformed.
func (w WireObservation) Observation() (Observation, error) {
	obs := Observation{
		Hands: make([]HandLandmarks, 0, len(w.Hands)),
	}

	if w.Timestamp > 0 {
		obs.Timestamp = time.UnixMilli(w.Timestamp)
	} else {
		obs.Timestamp = time.Now()
	}

	if len(w.Pose) > 0 {
		pose, err := NewPoseLandmarks(w.Pose)
		if err != nil {
			return Observation{}, err
		}
		obs.Pose = pose
	}

	for i, h := range w.Hands {
		if len(h.Points) == 0 {
			continue
		}
		hand, err := NewHandLandmarks(h.Points, ParseHandedness(h.Handedness), h.Score)
		if err != nil {
			return Observation{}, fmt.Errorf("hand %d: %w", i, err)
		}
		obs.Hands = append(obs.Hands, hand)
	}

	return obs, nil
}

// DecodeObservation parses one JSON observation.
func DecodeObservation(data []byte) (Observation, error) {
	var w WireObservation
	if err := json.Unmarshal(data, &w); err != nil {
		return Observation{}, fmt.Errorf("parse observation: %w", err)
	}
	return w.Observation()
}

// ToWire converts an Observation back to its JSON form.
func ToWire(obs Observation) WireObservation {
	w := WireObservation{
		Hands:     make([]WireHand, 0, len(obs.Hands)),
		Timestamp: obs.Timestamp.UnixMilli(),
	}
	if obs.Pose != nil {
		w.Pose = append([]Point3D(nil), obs.Pose.Points[:]...)
	}
	for _, h := range obs.Hands {
		w.Hands = append(w.Hands, WireHand{
			Points:     append([]Point3D(nil), h.Points[:]...),
			Handedness: string(h.Handedness),
			Score:      h.Score,
		})
	}
	return w
}
