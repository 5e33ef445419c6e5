// Package autosave persists editor changes after the user stops typing.
package autosave

import (
	"context"
	"errors"
	"sync"
	"time"

	"sitebuilder-backend/internal/debounce"
	"sitebuilder-backend/pkg/logger"
)

const (
	DefaultSaveDelay   = 500 * time.Millisecond
	DefaultSaveTimeout = 10 * time.Second
)

var ErrNothingToRetry = errors.New("no recorded content for file")

type State string

const (
	StateUnsaved State = "unsaved"
	StateSaving  State = "saving"
	StateSaved   State = "saved"
	StateError   State = "error"
)

// Saver writes one file of a project to durable storage.
type Saver interface {
	SaveFile(ctx context.Context, projectID, path, content string) error
}

// Notifier tells preview subscribers that a file changed.
type Notifier interface {
	Notify(projectID, path string)
}

type Key struct {
	ProjectID string
	Path      string
}

type fileState struct {
	state   State
	lastErr error
	content string
	gen     uint64
	ticket  *Ticket
}

type FileStatus struct {
	State State  `json:"state"`
	Error string `json:"error,omitempty"`
}

type Options struct {
	Delay       time.Duration
	SaveTimeout time.Duration
}

type Persister struct {
	saver    Saver
	notifier Notifier
	timeout  time.Duration
	deb      *debounce.Debouncer[Key]

	mu    sync.Mutex
	files map[Key]*fileState
}

func NewPersister(saver Saver, notifier Notifier, opts Options) *Persister {
	if opts.Delay <= 0 {
		opts.Delay = DefaultSaveDelay
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = DefaultSaveTimeout
	}
	return &Persister{
		saver:    saver,
		notifier: notifier,
		timeout:  opts.SaveTimeout,
		deb:      debounce.New[Key](opts.Delay),
		files:    make(map[Key]*fileState),
	}
}

// NotifyEdit records the latest content of a file and restarts its save timer.
func (p *Persister) NotifyEdit(projectID, path, content string) *Ticket {
	key := Key{ProjectID: projectID, Path: path}

	p.mu.Lock()
	defer p.mu.Unlock()

	fs, ok := p.files[key]
	if !ok {
		fs = &fileState{}
		p.files[key] = fs
	}
	fs.content = content
	fs.gen++
	fs.state = StateUnsaved
	fs.lastErr = nil
	if fs.ticket == nil {
		fs.ticket = newTicket()
	}

	p.deb.Trigger(key, func() { p.flush(key) })
	return fs.ticket
}

// Retry schedules another save of the last recorded content.
func (p *Persister) Retry(projectID, path string) (*Ticket, error) {
	p.mu.Lock()
	fs, ok := p.files[Key{ProjectID: projectID, Path: path}]
	var content string
	if ok {
		content = fs.content
	}
	p.mu.Unlock()

	if !ok {
		return nil, ErrNothingToRetry
	}
	return p.NotifyEdit(projectID, path, content), nil
}

func (p *Persister) flush(key Key) {
	p.mu.Lock()
	fs, ok := p.files[key]
	if !ok || fs.ticket == nil {
		p.mu.Unlock()
		return
	}
	ticket := fs.ticket
	fs.ticket = nil
	content := fs.content
	gen := fs.gen
	fs.state = StateSaving
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	err := p.saver.SaveFile(ctx, key.ProjectID, key.Path, content)
	cancel()

	p.mu.Lock()
	// a newer edit owns the state now
	if fs.gen == gen {
		if err != nil {
			fs.state = StateError
			fs.lastErr = err
		} else {
			fs.state = StateSaved
		}
	}
	p.mu.Unlock()

	if err != nil {
		logger.WithProject(key.ProjectID, key.Path).Warnf("auto-save failed: %v", err)
		ticket.resolve(Result{Outcome: OutcomeError, Err: err})
		return
	}

	logger.WithProject(key.ProjectID, key.Path).Debug("auto-saved")
	ticket.resolve(Result{Outcome: OutcomeSaved})
	if p.notifier != nil {
		p.notifier.Notify(key.ProjectID, key.Path)
	}
}

// CancelAll drops every pending save. Their tickets resolve as cancelled.
func (p *Persister) CancelAll() int {
	return p.cancel(func(Key) bool { return true })
}

// CancelProject drops pending saves of one project.
func (p *Persister) CancelProject(projectID string) int {
	return p.cancel(func(k Key) bool { return k.ProjectID == projectID })
}

func (p *Persister) cancel(pred func(Key) bool) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := p.deb.CancelFunc(pred)
	for _, key := range keys {
		fs, ok := p.files[key]
		if !ok {
			continue
		}
		if fs.ticket != nil {
			fs.ticket.resolve(Result{Outcome: OutcomeCancelled})
			fs.ticket = nil
		}
		delete(p.files, key)
	}
	return len(keys)
}

// State reports the save state of one file.
func (p *Persister) State(projectID, path string) (FileStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fs, ok := p.files[Key{ProjectID: projectID, Path: path}]
	if !ok {
		return FileStatus{}, false
	}
	return statusOf(fs), true
}

// States reports every tracked file of a project.
func (p *Persister) States(projectID string) map[string]FileStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]FileStatus)
	for key, fs := range p.files {
		if key.ProjectID == projectID {
			out[key.Path] = statusOf(fs)
		}
	}
	return out
}

func statusOf(fs *fileState) FileStatus {
	st := FileStatus{State: fs.state}
	if fs.lastErr != nil {
		st.Error = fs.lastErr.Error()
	}
	return st
}

func (p *Persister) Pending() int {
	return p.deb.Len()
}
