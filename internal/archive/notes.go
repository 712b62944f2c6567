package archive

import (
	"bytes"
	"fmt"
	"time"

	"github.com/snarg/notetaker/internal/database"
)

// RenderNotes renders a meeting's notes as markdown: header, latest
// summary, then the transcript in timestamp order. meeting and summary may
// be nil.
func RenderNotes(meetingID string, meeting *database.Meeting, transcripts []database.Transcript, summary *database.Summary) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Meeting %s\n\n", meetingID)
	if meeting != nil {
		if meeting.MeetURL != "" {
			fmt.Fprintf(&b, "- URL: %s\n", meeting.MeetURL)
		}
		fmt.Fprintf(&b, "- Started: %s\n", meeting.StartedAt.UTC().Format(time.RFC3339))
		b.WriteString("\n")
	}

	b.WriteString("## Summary\n\n")
	if summary != nil {
		fmt.Fprintf(&b, "_Generated %s_\n\n", summary.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString(summary.Content)
		b.WriteString("\n\n")
	} else {
		b.WriteString("_No summary yet._\n\n")
	}

	b.WriteString("## Transcript\n\n")
	if len(transcripts) == 0 {
		b.WriteString("_No transcripts._\n")
	}
	for _, t := range transcripts {
		fmt.Fprintf(&b, "- `%s` **%s:** %s\n", t.Timestamp.UTC().Format("15:04:05"), t.Speaker, t.Text)
	}
	return b.Bytes()
}
