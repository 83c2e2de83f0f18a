package listview

// OverlayState tracks the limit upsell overlay.
//
//	Hidden            -> AutoShown  over-limit detected after loading
//	Hidden, Dismissed -> Shown      create blocked by the limit
//	AutoShown, Shown  -> Dismissed  closed by the user
//
// Automatic opening only happens from Hidden, so a dismissed overlay stays
// closed for the rest of the mount unless the user runs into the limit again.
type OverlayState int

const (
	OverlayHidden OverlayState = iota
	OverlayAutoShown
	OverlayShown
	OverlayDismissed
)

func (s OverlayState) Visible() bool {
	return s == OverlayAutoShown || s == OverlayShown
}

func (s OverlayState) auto() OverlayState {
	if s == OverlayHidden {
		return OverlayAutoShown
	}
	return s
}

func (s OverlayState) open() OverlayState {
	if s == OverlayHidden || s == OverlayDismissed {
		return OverlayShown
	}
	return s
}

func (s OverlayState) dismiss() OverlayState {
	if s.Visible() {
		return OverlayDismissed
	}
	return s
}

func (s OverlayState) String() string {
	switch s {
	case OverlayHidden:
		return "hidden"
	case OverlayAutoShown:
		return "auto-shown"
	case OverlayShown:
		return "shown"
	case OverlayDismissed:
		return "dismissed"
	}
	return "unknown"
}
