package domain

import "github.com/google/uuid"

// TranscriptSegment is one caption fragment of a source item.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	Text  string  `json:"text"`
}

// VideoData carries the display metadata and transcript of one source item.
type VideoData struct {
	VideoID  string              `json:"videoId"`
	Title    string              `json:"title"`
	VideoURL string              `json:"videoUrl"`
	Segments []TranscriptSegment `json:"segments"`
}

// IngestEvent announces one processed source item belonging to a topic.
// CurrentCount is informational only; completion is decided by the store.
type IngestEvent struct {
	TopicID      uuid.UUID  `json:"topicId"`
	VideoData    *VideoData `json:"videoData"`
	CurrentCount int        `json:"currentCount"`
	TotalVideos  int        `json:"totalVideos"`
}

// Status enumerates pipeline milestones reported per topic.
type Status string

const (
	StatusAnalyzing Status = "ANALYZING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// StatusUpdate is the progress message published while a topic is processed.
type StatusUpdate struct {
	TopicID uuid.UUID `json:"topicId"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
}
