package transcript

import "log/slog"

// ScrollRegion abstracts the scrollable view the transcript renders into.
// In the TUI this is a viewport measured in lines; any region with a content
// extent and a scroll offset fits.
type ScrollRegion interface {
	// ContentHeight returns the total content extent of the region.
	ContentHeight() int
	// Offset returns the current scroll offset from the top.
	Offset() int
	// SetOffset moves the scroll offset.
	SetOffset(int)
	// GotoBottom scrolls so the most recent content is visible.
	GotoBottom()
}

// AnchorToken records the pre-insertion content extent of a scroll region.
// It lives for exactly one history-insertion round trip.
type AnchorToken struct {
	extent int
}

// AnchorCoordinator keeps the viewport visually stable while an asynchronous
// history prefix is inserted above the content the user is looking at.
type AnchorCoordinator struct {
	logger *slog.Logger
}

// NewAnchorCoordinator creates an anchor coordinator.
func NewAnchorCoordinator(logger *slog.Logger) *AnchorCoordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnchorCoordinator{logger: logger}
}

// Begin captures the region's content extent. It must run before the history
// fetch is dispatched, while the extent still reflects the pre-insertion
// content.
func (a *AnchorCoordinator) Begin(region ScrollRegion) AnchorToken {
	return AnchorToken{extent: region.ContentHeight()}
}

// Restore shifts the scroll offset by the growth in content extent, keeping
// the previously visible content anchored under the viewport. It must run
// after the region reflects the inserted messages; called earlier the delta
// is wrong and the view jumps.
func (a *AnchorCoordinator) Restore(token AnchorToken, region ScrollRegion) {
	delta := region.ContentHeight() - token.extent
	if delta <= 0 {
		return
	}
	a.logger.Debug("restoring scroll anchor", "delta", delta, "offset", region.Offset())
	region.SetOffset(region.Offset() + delta)
}

// RestoreInitial handles the very first page load, where there is no anchor
// to restore: the region scrolls to the bottom so the most recent message is
// visible.
func (a *AnchorCoordinator) RestoreInitial(region ScrollRegion) {
	region.GotoBottom()
}
