package ntpclient

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/davidroman0O/ntpconf/errors"
)

// SyncCommand is what the manual synchronization cron job runs
const SyncCommand = "/usr/sbin/chronyd -q &>/dev/null"

// MaxSyncInterval is the largest interval expressible as a minute step
const MaxSyncInterval = 59

var minuteParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Schedule is the periodic one-shot synchronization written to cron.d
type Schedule struct {
	IntervalMinutes int
}

// Validate checks the interval range
func (s Schedule) Validate() error {
	if s.IntervalMinutes < 1 || s.IntervalMinutes > MaxSyncInterval {
		return errors.WithContext(
			errors.Newf(errors.ErrValidation, "sync interval must be between 1 and %d minutes", MaxSyncInterval),
			map[string]interface{}{"interval": s.IntervalMinutes},
		)
	}
	return nil
}

func (s Schedule) expression() string {
	return fmt.Sprintf("*/%d * * * *", s.IntervalMinutes)
}

// Line renders the cron.d entry. The leading dash keeps cron from logging
// every run.
func (s Schedule) Line() string {
	return "-" + s.expression() + " root " + SyncCommand
}

// Next returns the first run after now
func (s Schedule) Next(now time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	sched, err := minuteParser.Parse(s.expression())
	if err != nil {
		return time.Time{}, errors.Wrap(err, errors.ErrValidation, "invalid sync schedule")
	}
	return sched.Next(now), nil
}

// ParseSchedule reads the interval back from a cron.d file. Only entries
// written by Line are understood.
func ParseSchedule(content string) (Schedule, error) {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(strings.TrimPrefix(line, "-"))
		if len(fields) < 7 {
			break
		}
		expr := strings.Join(fields[:5], " ")
		if _, err := minuteParser.Parse(expr); err != nil {
			return Schedule{}, errors.Wrap(err, errors.ErrParse, "invalid cron expression")
		}
		step, ok := strings.CutPrefix(fields[0], "*/")
		if !ok || strings.Join(fields[1:5], " ") != "* * * *" {
			break
		}
		n, err := strconv.Atoi(step)
		if err != nil {
			break
		}
		s := Schedule{IntervalMinutes: n}
		return s, s.Validate()
	}
	return Schedule{}, errors.New(errors.ErrParse, "no synchronization entry found")
}
