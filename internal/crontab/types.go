package crontab

// Entry is one parsed crontab line.
type Entry struct {
	// Schedule is the first five tokens of the line, joined by single spaces.
	Schedule string `json:"schedule"`
	// Command is everything after the schedule; it may be empty.
	Command string `json:"command"`
}

// Config is the ordered list of entries parsed from one read of the file.
// Duplicates are kept; each one becomes an independent job.
type Config []Entry

// Len returns the number of entries.
func (c Config) Len() int { return len(c) }

// Equal reports whether both configs hold the same entries in the same order.
func (c Config) Equal(o Config) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if c[i] != o[i] {
			return false
		}
	}
	return true
}
