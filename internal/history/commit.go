package history

import (
	"strconv"
	"time"
)

const shortCommitIdentifierLengthConstant = 7

// CommitRecord identifies a commit and its authorship timestamp.
type CommitRecord struct {
	ID               string `json:"id"`
	TimestampSeconds int64  `json:"timestamp_seconds"`
}

// Time returns the authorship instant in UTC.
func (record CommitRecord) Time() time.Time {
	return time.Unix(record.TimestampSeconds, 0).UTC()
}

// TimestampLabel renders the authorship timestamp as decimal seconds.
func (record CommitRecord) TimestampLabel() string {
	return strconv.FormatInt(record.TimestampSeconds, 10)
}

// ShortID returns the abbreviated commit identifier.
func (record CommitRecord) ShortID() string {
	if len(record.ID) <= shortCommitIdentifierLengthConstant {
		return record.ID
	}
	return record.ID[:shortCommitIdentifierLengthConstant]
}
