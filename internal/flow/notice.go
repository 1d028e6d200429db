package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// noticeVars are the values substituted into the configured notice texts.
type noticeVars struct {
	limit  int
	count  int
	reset  time.Time
	window time.Duration
	user   string
}

func (v noticeVars) render(tmpl string) string {
	return strings.NewReplacer(
		"{limit}", strconv.Itoa(v.limit),
		"{count}", strconv.Itoa(v.count),
		"{reset}", v.reset.UTC().Format("15:04 MST"),
		"{window}", HumanWindow(v.window),
		"{user}", v.user,
	).Replace(tmpl)
}

// HumanWindow prints a window as "12 hours", "90 minutes" or "1 hour".
func HumanWindow(d time.Duration) string {
	unit := func(n int64, name string) string {
		if n == 1 {
			return "1 " + name
		}
		return fmt.Sprintf("%d %ss", n, name)
	}
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return unit(int64(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return unit(int64(d/time.Minute), "minute")
	default:
		return unit(int64(d/time.Second), "second")
	}
}

// displayName falls back to the user id when the transport gave no name.
func displayName(name, userID string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return "user " + userID
}
