package lsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bluele/gcache"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrNoServer is returned by Attach when no server is configured for a filetype.
var ErrNoServer = errors.New("no language server configured")

// StartFunc launches a session for the named server.
type StartFunc func(ctx context.Context, name string, cfg ServerConfig, rootURI string) (Session, error)

// Manager keeps the running sessions and records which of them are attached
// to each buffer. Running sessions live in an LRU; evicting one shuts its
// server down, and it is started again the next time a buffer needs it.
// A server is started at most once at a time, and never under mu.
type Manager struct {
	servers map[string]ServerConfig
	start   StartFunc
	log     *logrus.Entry
	cache   gcache.Cache
	starts  singleflight.Group

	mu       sync.Mutex
	roots    map[string]string
	attached map[int][]string
}

// NewManager creates a manager holding at most size running sessions. A nil
// start launches real server processes.
func NewManager(servers map[string]ServerConfig, size int, start StartFunc, log *logrus.Entry) *Manager {
	if size < 1 {
		size = 1
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = logrus.NewEntry(l)
	}
	m := &Manager{
		servers:  servers,
		start:    start,
		log:      log,
		roots:    map[string]string{},
		attached: map[int][]string{},
	}
	if m.start == nil {
		m.start = func(ctx context.Context, name string, cfg ServerConfig, rootURI string) (Session, error) {
			return Start(ctx, name, cfg, rootURI, m.log)
		}
	}
	m.cache = gcache.New(size).LRU().
		EvictedFunc(m.evicted).
		PurgeVisitorFunc(m.purged).
		Build()

	return m
}

func (m *Manager) evicted(key, value interface{}) {
	s, ok := value.(Session)
	if !ok {
		return
	}
	m.log.WithField("session", key).Debug("evicting language server")
	go func() {
		if err := s.Close(); err != nil {
			m.log.WithField("session", key).WithError(err).Debug("close")
		}
	}()
}

func (m *Manager) purged(key, value interface{}) {
	s, ok := value.(Session)
	if !ok {
		return
	}
	if err := s.Close(); err != nil {
		m.log.WithField("session", key).WithError(err).Debug("close")
	}
}

// session returns the running session for name, starting it if necessary.
// A session whose server has gone away is dropped and started again. The
// start itself is shared by every caller asking for name and outlives ctx;
// each caller only waits as long as its own ctx allows.
func (m *Manager) session(ctx context.Context, name string) (Session, error) {
	if v, err := m.cache.GetIFPresent(name); err == nil {
		if s, ok := v.(Session); ok {
			if !s.Closed() {
				return s, nil
			}
			m.log.WithField("session", name).Info("language server exited, restarting")
			m.cache.Remove(name)
		}
	}
	cfg, ok := m.servers[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrNoServer)
	}
	m.mu.Lock()
	root := m.roots[name]
	m.mu.Unlock()

	sctx := context.WithoutCancel(ctx)
	ch := m.starts.DoChan(name, func() (interface{}, error) {
		s, err := m.start(sctx, name, cfg, root)
		if err != nil {
			return nil, err
		}
		if err := m.cache.Set(name, s); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(Session), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Attach starts the servers configured for filetype and attaches them to buf.
// Servers that fail to start are skipped and their errors returned joined.
func (m *Manager) Attach(ctx context.Context, buf int, filetype, rootURI string) error {
	names := ServersFor(m.servers, filetype)
	if len(names) == 0 {
		return fmt.Errorf("%s: %w", filetype, ErrNoServer)
	}

	m.mu.Lock()
	for _, name := range names {
		if _, ok := m.roots[name]; !ok {
			m.roots[name] = rootURI
		}
	}
	m.mu.Unlock()

	var errs []error
	for _, name := range names {
		if _, err := m.session(ctx, name); err != nil {
			m.log.WithFields(logrus.Fields{"bufnr": buf, "session": name}).WithError(err).Warn("start language server")
			errs = append(errs, err)
			continue
		}
		m.mu.Lock()
		if !contains(m.attached[buf], name) {
			m.attached[buf] = append(m.attached[buf], name)
		}
		m.mu.Unlock()
	}

	return errors.Join(errs...)
}

// Sessions returns the sessions attached to buf in attach order. Sessions
// evicted or exited since attaching are restarted; ones that cannot be, or
// that are not ready before ctx is done, are left out.
func (m *Manager) Sessions(ctx context.Context, buf int) []Session {
	m.mu.Lock()
	names := append([]string(nil), m.attached[buf]...)
	m.mu.Unlock()

	sessions := make([]Session, 0, len(names))
	for _, name := range names {
		s, err := m.session(ctx, name)
		if err != nil {
			m.log.WithFields(logrus.Fields{"bufnr": buf, "session": name}).WithError(err).Warn("restart language server")
			continue
		}
		sessions = append(sessions, s)
	}

	return sessions
}

// Detach closes uri on every session attached to buf and forgets the buffer.
func (m *Manager) Detach(ctx context.Context, buf int, uri string) {
	m.mu.Lock()
	names := m.attached[buf]
	delete(m.attached, buf)
	m.mu.Unlock()

	var sessions []Session
	for _, name := range names {
		if v, err := m.cache.GetIFPresent(name); err == nil {
			if s, ok := v.(Session); ok {
				sessions = append(sessions, s)
			}
		}
	}

	for _, s := range sessions {
		if err := s.CloseDocument(ctx, uri); err != nil {
			m.log.WithFields(logrus.Fields{"bufnr": buf, "session": s.Name()}).WithError(err).Debug("didClose")
		}
	}
}

// Shutdown stops every running server.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.attached = map[int][]string{}
	m.mu.Unlock()
	m.cache.Purge()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
