package project

// Bucket is one of the four fixed kanban columns.
type Bucket string

const (
	BucketPending     Bucket = "pending"
	BucketOnTrack     Bucket = "ontrack"
	BucketRiskBlocked Bucket = "risk"
	BucketDone        Bucket = "done"
)

// Buckets lists the kanban columns in display order.
var Buckets = []Bucket{BucketPending, BucketOnTrack, BucketRiskBlocked, BucketDone}

// ParseBucket validates a bucket name.
func ParseBucket(name string) (Bucket, error) {
	b := Bucket(name)
	switch b {
	case BucketPending, BucketOnTrack, BucketRiskBlocked, BucketDone:
		return b, nil
	}
	return "", ErrUnknownBucket
}

// BucketFor returns the column an activity status belongs to. Unknown
// statuses land in pending.
func BucketFor(s ActivityStatus) Bucket {
	switch s {
	case ActivityOnTrack:
		return BucketOnTrack
	case ActivityRisk, ActivityBlocked:
		return BucketRiskBlocked
	case ActivityDone:
		return BucketDone
	default:
		return BucketPending
	}
}

// DropStatus returns the status an activity takes when dropped on b.
// A blocked activity dropped on the risk column stays blocked.
func DropStatus(b Bucket, current ActivityStatus) ActivityStatus {
	switch b {
	case BucketOnTrack:
		return ActivityOnTrack
	case BucketRiskBlocked:
		if current == ActivityBlocked {
			return ActivityBlocked
		}
		return ActivityRisk
	case BucketDone:
		return ActivityDone
	default:
		return ActivityPending
	}
}
