package models

// Progress is where a user stands across the whole catalog
type Progress struct {
	ByStatus    map[Status]int
	DueTomorrow int
}

// Active returns how many cards can still come up in a session
func (p Progress) Active() int {
	n := 0
	for status, count := range p.ByStatus {
		if status.IsActive() {
			n += count
		}
	}
	return n
}
