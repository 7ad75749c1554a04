package crontab

import "strings"

// scheduleFields is the number of leading tokens that form the cron expression.
const scheduleFields = 5

// Parse turns raw file content into entries.
//
// Lines are split on "\n" (a trailing "\r" is stripped), and blank or
// whitespace-only lines are dropped. Each remaining line is split on single
// spaces: the first five tokens become the schedule, the rest the command.
// Runs of spaces therefore produce empty tokens, which keeps the command's
// own spacing intact when it is joined back.
//
// Lines with fewer than five tokens are kept with a short schedule; the
// scheduler rejects those when it tries to register them.
func Parse(raw string) Config {
	lines := strings.Split(raw, "\n")
	out := make(Config, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, parseLine(line))
	}
	return out
}

func parseLine(line string) Entry {
	parts := strings.Split(line, " ")
	n := min(scheduleFields, len(parts))
	return Entry{
		Schedule: strings.Join(parts[:n], " "),
		Command:  strings.Join(parts[n:], " "),
	}
}
