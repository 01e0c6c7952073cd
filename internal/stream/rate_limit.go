package stream

import "sync"

// globalWatcherCap bounds live SSE watchers across all sessions. A field
// server feeds a handful of tablets, not a crowd; past this point new
// watchers are refused rather than degrading every stream's tick latency.
const globalWatcherCap = 256

// watcherLimiter admits or refuses SSE watchers, counting them per client
// IP and in total.
type watcherLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	live     int
	perIPCap int
}

func newWatcherLimiter(perIPCap int) *watcherLimiter {
	return &watcherLimiter{
		perIP:    make(map[string]int),
		perIPCap: perIPCap,
	}
}

// admit reserves a watcher slot for ip. It refuses when either the per-IP
// or the global cap is already spent.
func (l *watcherLimiter) admit(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.live >= globalWatcherCap || l.perIP[ip] >= l.perIPCap {
		return false
	}
	l.perIP[ip]++
	l.live++
	return true
}

// leave returns a watcher slot, dropping the IP's entry once idle.
func (l *watcherLimiter) leave(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.perIP[ip]--
	l.live--
	if l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// active reports how many watchers ip currently holds.
func (l *watcherLimiter) active(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
