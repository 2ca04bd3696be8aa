package recur

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// RuleString renders the structured recurrence fields as a compact RRULE
// string (FREQ=...;INTERVAL=n[;UNTIL=...]). This is a derived,
// informational representation; the expander never consumes it. Returns
// false for non-recurring tasks.
func RuleString(recurrenceType string, interval int, until *time.Time) (string, bool) {
	freq, ok := freqFor(recurrenceType)
	if !ok {
		return "", false
	}
	if interval < 1 {
		interval = 1
	}
	opt := rrule.ROption{Freq: freq, Interval: interval}
	if until != nil {
		opt.Until = until.UTC()
	}
	return opt.RRuleString(), true
}

// ParseRule maps an RRULE string back onto the structured fields. Only the
// FREQ/INTERVAL/UNTIL subset this system persists is honored; anything
// else the rule carries is ignored.
func ParseRule(rule string) (recurrenceType string, interval int, until *time.Time, err error) {
	opt, err := rrule.StrToROption(rule)
	if err != nil {
		return "", 0, nil, fmt.Errorf("parse rrule: %w", err)
	}
	switch opt.Freq {
	case rrule.DAILY:
		recurrenceType = "daily"
	case rrule.WEEKLY:
		recurrenceType = "weekly"
	case rrule.MONTHLY:
		recurrenceType = "monthly"
	default:
		return "", 0, nil, fmt.Errorf("unsupported rrule frequency %v", opt.Freq)
	}
	interval = opt.Interval
	if interval < 1 {
		interval = 1
	}
	if !opt.Until.IsZero() {
		u := opt.Until
		until = &u
	}
	return recurrenceType, interval, until, nil
}

func freqFor(recurrenceType string) (rrule.Frequency, bool) {
	switch recurrenceType {
	case "daily":
		return rrule.DAILY, true
	case "weekly":
		return rrule.WEEKLY, true
	case "monthly":
		return rrule.MONTHLY, true
	default:
		return 0, false
	}
}
