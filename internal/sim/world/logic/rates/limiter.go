package rates

// Limiter allows at most Max events per fixed window of Window ticks.
// A zero Window or non-positive Max allows everything.
type Limiter struct {
	Window uint64
	Max    int

	start uint64
	count int
}

// Allow records an event at nowTick. When refused, retry is the number of
// ticks until the current window ends.
func (l *Limiter) Allow(nowTick uint64) (ok bool, retry uint64) {
	if l.Window == 0 || l.Max <= 0 {
		return true, 0
	}
	if l.count == 0 || nowTick < l.start || nowTick-l.start >= l.Window {
		l.start = nowTick
		l.count = 0
	}
	if l.count >= l.Max {
		return false, l.start + l.Window - nowTick
	}
	l.count++
	return true, 0
}
