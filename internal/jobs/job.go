package jobs

// Kind distinguishes what a generation task will produce. The upstream
// status response does not echo it back, so it is recorded at submission
// time and read once the task finishes.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// DefaultKind is assumed whenever no metadata record can be found for a
// task. Missing metadata must never fail a status request.
const DefaultKind = KindVideo

// URLField names the response payload field that carries the result URL
// for this kind of task.
func (k Kind) URLField() string {
	if k == KindImage {
		return "imageUrl"
	}
	return "videoUrl"
}

// Record is the per-task metadata persisted between submission and the
// first terminal poll.
type Record struct {
	Kind Kind `json:"kind"`
}
