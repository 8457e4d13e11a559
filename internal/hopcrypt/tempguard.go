package hopcrypt

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// tempGuard is the scoped owner of every intermediate file an engine
// invocation creates. Encrypt and Decrypt each create one and defer
// Close in the same function, so no tracked path survives the
// call unless Release was used to hand it off (only the final output is
// ever released this way).
type tempGuard struct {
	mu     sync.Mutex
	paths  []string
	log    *logrus.Entry
	closed bool
}

func newTempGuard(log *logrus.Entry) *tempGuard {
	return &tempGuard{log: log}
}

// Track registers path for removal on Close unless Released first.
func (g *tempGuard) Track(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.paths = append(g.paths, path)
}

// RemoveNow deletes path immediately and stops tracking it.
func (g *tempGuard) RemoveNow(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeTracked(path)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		g.log.WithError(err).WithField("path", path).Debug("removing staging file")
	}
}

// Release stops tracking path without deleting it, used when ownership
// passes to the final output file.
func (g *tempGuard) Release(path string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeTracked(path)
}

func (g *tempGuard) removeTracked(path string) {
	for i, p := range g.paths {
		if p == path {
			g.paths = append(g.paths[:i], g.paths[i+1:]...)
			return
		}
	}
}

// Finish deletes all still-tracked paths and disarms further automatic
// cleanup. Deletion errors are swallowed (the caller is already on an
// error path or has succeeded) but logged at debug level so an operator
// chasing leaked temp files has a trail.
func (g *tempGuard) Finish() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drain()
	g.closed = true
}

// Close implements the automatic-scope-exit path; deferred in Encrypt
// and Decrypt. A no-op if Finish already ran.
func (g *tempGuard) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return
	}
	g.drain()
	g.closed = true
}

func (g *tempGuard) drain() {
	for _, p := range g.paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			g.log.WithError(err).WithField("path", p).Debug("cleaning up staging file")
		}
	}
	g.paths = nil
}
