package files

import (
	"fmt"
	"time"

	"github.com/convohub/convohub-api/internal/models"
)

// StoragePath derives the object key for an attachment:
//
//	{user}/conversations/{conversation}/{yyyy}/{mm}/{dd}/{uid}_{filename}
//
// The uid prefix is the first 8 hex chars of the content hash so that
// re-uploads of identical content land on the same key. Rows that only
// carry the pending placeholder get a time-derived prefix instead.
func StoragePath(userID, conversationID, filename, contentHash string, now time.Time) string {
	now = now.UTC()

	uid := ""
	if contentHash != "" && contentHash != models.PendingContentHash && len(contentHash) >= 8 {
		uid = contentHash[:8]
	} else {
		uid = fmt.Sprintf("%02d%02d%02d%06d", now.Hour(), now.Minute(), now.Second(), now.Nanosecond()/1000)
	}

	return fmt.Sprintf("%s/conversations/%s/%04d/%02d/%02d/%s_%s",
		userID, conversationID, now.Year(), int(now.Month()), now.Day(), uid, SanitizeFilename(filename))
}
