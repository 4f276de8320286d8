package transport

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
)

// fakeTerminator mimics the store: it ends the session only when the
// credential matches the one it holds.
type fakeTerminator struct {
	mu         sync.Mutex
	credential string
	calls      atomic.Int64
	reasons    []string
}

func newFakeTerminator(credential string) *fakeTerminator {
	return &fakeTerminator{credential: credential}
}

func (f *fakeTerminator) ForceLogout(_ context.Context, credential, reason string) (bool, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.credential == "" || f.credential != credential {
		return false, nil
	}
	f.credential = ""
	f.reasons = append(f.reasons, reason)
	return true, nil
}

func (f *fakeTerminator) Current() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.credential
}

type recordingPorts struct {
	mu       sync.Mutex
	paths    []string
	notices  []Notice
	terminal *fakeTerminator
	// stateAtNavigate is the terminator credential observed when Navigate ran.
	stateAtNavigate []string
}

func (r *recordingPorts) Navigate(_ context.Context, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	if r.terminal != nil {
		r.stateAtNavigate = append(r.stateAtNavigate, r.terminal.Current())
	}
}

func (r *recordingPorts) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingPorts) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingPorts) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}

type countingObserver struct {
	attached     atomic.Int64
	unattached   atomic.Int64
	invalid      atomic.Int64
	business     atomic.Int64
	deduplicated atomic.Int64
	hits         atomic.Int64
	misses       atomic.Int64
}

func (o *countingObserver) CredentialAttached(ok bool) {
	if ok {
		o.attached.Add(1)
		return
	}
	o.unattached.Add(1)
}

func (o *countingObserver) ResponseClassified(c Class) {
	switch c {
	case ClassSessionInvalid:
		o.invalid.Add(1)
	case ClassBusinessDenied:
		o.business.Add(1)
	}
}

func (o *countingObserver) TerminationDeduplicated() { o.deduplicated.Add(1) }

func (o *countingObserver) CacheLookup(hit bool) {
	if hit {
		o.hits.Add(1)
		return
	}
	o.misses.Add(1)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
