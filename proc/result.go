package proc

// LoadResult is the single outcome an Engine reports for a query.
// Exactly one of TrackLoaded, PlaylistLoaded, NoMatches or LoadFailed.
type LoadResult interface {
	isLoadResult()
}

type TrackLoaded struct {
	Track *Track
}

type PlaylistLoaded struct {
	Playlist *Playlist
}

type NoMatches struct{}

type Severity int

const (
	// SeverityCommon failures carry a message fit for users.
	SeverityCommon Severity = iota
	SeveritySuspicious
	SeverityFault
)

func (s Severity) String() string {
	switch s {
	case SeverityCommon:
		return "common"
	case SeveritySuspicious:
		return "suspicious"
	default:
		return "fault"
	}
}

type LoadFailed struct {
	Severity Severity
	Message  string
	Err      error
}

func (TrackLoaded) isLoadResult()    {}
func (PlaylistLoaded) isLoadResult() {}
func (NoMatches) isLoadResult()      {}
func (LoadFailed) isLoadResult()     {}
