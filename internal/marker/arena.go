package marker

// Arena is an append-only store of trajectory segments addressed by stable
// integer identifiers. Splits create child records and never mutate frame
// data in place, so concurrent readers can hold SegIDs across a whole
// labeling run without coordination.
type Arena struct {
	segs []*Segment
}

// NewArena creates an empty segment arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewSegment appends a root segment for the given slot and returns it.
// The arena takes ownership of pts.
func (a *Arena) NewSegment(slot, startFrame int, pts []Point3) *Segment {
	s := &Segment{
		SegID:      len(a.segs),
		Slot:       slot,
		StartFrame: startFrame,
		Points:     pts,
		State:      SegActive,
		ParentID:   -1,
	}
	a.segs = append(a.segs, s)
	return s
}

// Get returns the segment with the given ID, or nil if out of range.
func (a *Arena) Get(id int) *Segment {
	if id < 0 || id >= len(a.segs) {
		return nil
	}
	return a.segs[id]
}

// Len returns the total number of segments ever created.
func (a *Arena) Len() int {
	return len(a.segs)
}

// Split partitions segment id at global frame f: the left child covers
// [StartFrame, f-1] and the right child [f, EndFrame]. The parent moves to
// SegSplit and both children start SegActive. The children's frame ranges
// are disjoint and together cover exactly the parent's range.
//
// Returns nil, nil when f is not an interior frame boundary of the segment.
func (a *Arena) Split(id, f int) (left, right *Segment) {
	parent := a.Get(id)
	if parent == nil || parent.State == SegSplit {
		return nil, nil
	}
	cut := f - parent.StartFrame
	if cut <= 0 || cut >= len(parent.Points) {
		return nil, nil
	}

	left = &Segment{
		SegID:      len(a.segs),
		Slot:       parent.Slot,
		StartFrame: parent.StartFrame,
		Points:     parent.Points[:cut:cut],
		State:      SegActive,
		ParentID:   parent.SegID,
	}
	a.segs = append(a.segs, left)

	right = &Segment{
		SegID:      len(a.segs),
		Slot:       parent.Slot,
		StartFrame: f,
		Points:     parent.Points[cut:],
		State:      SegActive,
		ParentID:   parent.SegID,
	}
	a.segs = append(a.segs, right)

	parent.State = SegSplit
	parent.ChildIDs = []int{left.SegID, right.SegID}
	return left, right
}

// Terminate moves segment id to SegTerminated at trial end.
func (a *Arena) Terminate(id int) {
	if s := a.Get(id); s != nil && s.State == SegActive {
		s.State = SegTerminated
	}
}

// TerminateAll marks every active segment terminated.
func (a *Arena) TerminateAll() {
	for _, s := range a.segs {
		if s.State == SegActive || s.State == SegGapPending {
			s.State = SegTerminated
		}
	}
}

// Leaves returns all segments that were never split, in SegID order.
// These are the units that receive final labels.
func (a *Arena) Leaves() []*Segment {
	out := make([]*Segment, 0, len(a.segs))
	for _, s := range a.segs {
		if s.State != SegSplit {
			out = append(out, s)
		}
	}
	return out
}

// LiveAt returns the leaf segments whose frame range contains frame f.
func (a *Arena) LiveAt(f int) []*Segment {
	var out []*Segment
	for _, s := range a.segs {
		if s.State != SegSplit && s.StartFrame <= f && f <= s.EndFrame() {
			out = append(out, s)
		}
	}
	return out
}
