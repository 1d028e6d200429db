package flow

import "time"

// Status is what the dispatcher did with one event.
type Status int

const (
	Ignored   Status = iota // Ignored means the event carries nothing the bot acts on, e.g. a text without a link.
	Duplicate               // A re-delivered update that was already handled.
	Admitted
	RejectedQuota
	RejectedReciprocity
	Recorded // An interaction was written to the ledger.
)

var StatusTextMap = map[Status]string{
	Ignored:             "ignored",
	Duplicate:           "duplicate",
	Admitted:            "admitted",
	RejectedQuota:       "rejected_quota",
	RejectedReciprocity: "rejected_reciprocity",
	Recorded:            "recorded",
}

func (s Status) String() string {
	return StatusTextMap[s]
}

var timeNow = time.Now

func SetTimeNowFn(f func() time.Time) {
	timeNow = f
}

func RestoreTimeNow() {
	timeNow = time.Now
}
