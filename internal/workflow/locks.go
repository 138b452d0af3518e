package workflow

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"docintake/internal/services"
	"docintake/internal/textutil"
)

// runLocks enforces one active run per document.
type runLocks struct {
	dir string

	mu      sync.Mutex
	running map[string]struct{}
}

func newRunLocks(dir string) *runLocks {
	return &runLocks{dir: strings.TrimSpace(dir), running: make(map[string]struct{})}
}

// acquire claims documentID and returns the release function.
func (l *runLocks) acquire(documentID string) (func(), error) {
	l.mu.Lock()
	if _, busy := l.running[documentID]; busy {
		l.mu.Unlock()
		return nil, services.Wrap(services.ErrRunActive, "workflow", "start run",
			fmt.Sprintf("document %s already has an active run", documentID), nil)
	}
	l.running[documentID] = struct{}{}
	l.mu.Unlock()

	forget := func() {
		l.mu.Lock()
		delete(l.running, documentID)
		l.mu.Unlock()
	}
	if l.dir == "" {
		return forget, nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		forget()
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock document",
			"create lock directory", err)
	}
	lock := flock.New(filepath.Join(l.dir, textutil.SanitizeToken(documentID)+".lock"))
	ok, err := lock.TryLock()
	if err != nil {
		forget()
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "lock document",
			"acquire run lock", err)
	}
	if !ok {
		forget()
		return nil, services.Wrap(services.ErrRunActive, "workflow", "start run",
			fmt.Sprintf("document %s is being processed by another process", documentID), nil)
	}
	return func() {
		_ = lock.Unlock()
		forget()
	}, nil
}

func (l *runLocks) active(documentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.running[documentID]
	return ok
}
