// Package trialio reads and writes the JSON trial exchange format: per
// marker slot, one 3D point per frame, with null marking missing samples.
// Conversion from capture-system containers (C3D and friends) happens
// upstream; this package only moves the shared interchange shape.
package trialio

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gaitworks/markerlab/internal/marker"
)

// Trial is one motion capture trial: slot-major, frame-minor point data
// plus the capture rate. Slot names may be generic placeholders for
// unlabeled captures; only the alignment landmarks need real names.
type Trial struct {
	Name       string
	SampleRate float64
	Names      []string // one per slot
	Slots      [][]marker.Point3
}

// Frames returns the trial length in frames.
func (t *Trial) Frames() int {
	if len(t.Slots) == 0 {
		return 0
	}
	return len(t.Slots[0])
}

// jsonTrial is the wire shape. Points serialize as [x,y,z] triples with
// null for missing samples, which round-trips NaN through JSON.
type jsonTrial struct {
	Name       string        `json:"name"`
	SampleRate float64       `json:"sample_rate_hz"`
	Markers    []jsonMarker  `json:"markers"`
}

type jsonMarker struct {
	Name   string       `json:"name"`
	Points [][]*float64 `json:"points"`
}

// Load reads a trial from a JSON file.
func Load(path string) (*Trial, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trial: %w", err)
	}
	var jt jsonTrial
	if err := json.Unmarshal(data, &jt); err != nil {
		return nil, fmt.Errorf("parse trial: %w", err)
	}
	return fromJSON(&jt)
}

func fromJSON(jt *jsonTrial) (*Trial, error) {
	if len(jt.Markers) == 0 {
		return nil, marker.ErrEmptyTrial
	}
	t := &Trial{
		Name:       jt.Name,
		SampleRate: jt.SampleRate,
		Names:      make([]string, len(jt.Markers)),
		Slots:      make([][]marker.Point3, len(jt.Markers)),
	}
	nFrames := len(jt.Markers[0].Points)
	for i, m := range jt.Markers {
		if len(m.Points) != nFrames {
			return nil, fmt.Errorf("marker %q has %d frames, expected %d", m.Name, len(m.Points), nFrames)
		}
		t.Names[i] = m.Name
		pts := make([]marker.Point3, nFrames)
		for f, triple := range m.Points {
			pts[f] = decodePoint(triple)
		}
		t.Slots[i] = pts
	}
	if nFrames == 0 {
		return nil, marker.ErrEmptyTrial
	}
	return t, nil
}

func decodePoint(triple []*float64) marker.Point3 {
	if len(triple) != 3 || triple[0] == nil || triple[1] == nil || triple[2] == nil {
		return marker.MissingPoint
	}
	return marker.Point3{X: *triple[0], Y: *triple[1], Z: *triple[2]}
}

// LabeledOutput is the labeled counterpart of a trial: one entry per
// emitted segment with its resolved label (empty string means unlabeled on
// the wire becomes "unlabeled"), plus the run's structured warnings.
type LabeledOutput struct {
	Trial    string           `json:"trial"`
	RunID    string           `json:"run_id"`
	Segments []LabeledSegment `json:"segments"`
	Warnings []OutputWarning  `json:"warnings"`
}

// LabeledSegment is one output entry. Segments produced by splitting
// appear as distinct entries with their own frame ranges.
type LabeledSegment struct {
	SegID      int     `json:"seg_id"`
	Slot       int     `json:"slot"`
	StartFrame int     `json:"start_frame"`
	EndFrame   int     `json:"end_frame"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// OutputWarning is the serializable form of a pipeline warning.
type OutputWarning struct {
	Kind   string `json:"kind"`
	SegID  int    `json:"seg_id"`
	Label  string `json:"label,omitempty"`
	Frame  int    `json:"frame"`
	Detail string `json:"detail"`
}

// BuildOutput converts pipeline results to the output shape.
func BuildOutput(trialName, runID string, assignments []marker.LabelAssignment, warnings []marker.Warning) *LabeledOutput {
	out := &LabeledOutput{
		Trial:    trialName,
		RunID:    runID,
		Segments: make([]LabeledSegment, 0, len(assignments)),
		Warnings: make([]OutputWarning, 0, len(warnings)),
	}
	for _, a := range assignments {
		label := a.Label
		if label == "" {
			label = "unlabeled"
		}
		out.Segments = append(out.Segments, LabeledSegment{
			SegID:      a.SegID,
			Slot:       a.Slot,
			StartFrame: a.StartFrame,
			EndFrame:   a.EndFrame,
			Label:      label,
			Confidence: a.Confidence,
		})
	}
	for _, w := range warnings {
		out.Warnings = append(out.Warnings, OutputWarning{
			Kind:   string(w.Kind),
			SegID:  w.SegID,
			Label:  w.Label,
			Frame:  w.Frame,
			Detail: w.Detail,
		})
	}
	return out
}

// Save writes the labeled output as indented JSON.
func (o *LabeledOutput) Save(path string) error {
	data, err := json.MarshalIndent(o, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
