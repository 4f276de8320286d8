package goSession

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

func TestStoreStartsInitializing(t *testing.T) {
	s := newTestStore(t)
	if got := s.Snapshot().Status; got != StatusInitializing {
		t.Fatalf("expected initializing, got %v", got)
	}
}

func TestInitialize(t *testing.T) {
	ctx := context.Background()

	t.Run("empty storage", func(t *testing.T) {
		s := newTestStore(t)
		sess, err := s.Initialize(ctx)
		if err != nil || sess.Status != StatusUnauthenticated {
			t.Fatalf("expected unauthenticated, got %v %v", sess.Status, err)
		}
	})

	t.Run("valid credential", func(t *testing.T) {
		s := newTestStore(t)
		exp := time.Now().Add(time.Hour).Truncate(time.Second)
		_ = s.storage.Save(ctx, issue(t, "ana", "mentor", exp), exp)

		sess, err := s.Initialize(ctx)
		if err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		if !sess.Authenticated() || sess.User != (User{Username: "ana", Role: "mentor"}) || !sess.ExpiresAt.Equal(exp) {
			t.Fatalf("unexpected session: %+v", sess)
		}
		if len(s.timers.armed()) != 1 {
			t.Fatal("expected an armed expiry timer")
		}
	})

	t.Run("expired credential is cleared", func(t *testing.T) {
		s := newTestStore(t)
		_ = s.storage.Save(ctx, issue(t, "ana", "mentor", time.Now().Add(-time.Minute)), time.Time{})

		sess, err := s.Initialize(ctx)
		if err != nil || sess.Status != StatusUnauthenticated {
			t.Fatalf("expected unauthenticated, got %v %v", sess.Status, err)
		}
		if storedCredential(t, s.storage) != "" {
			t.Fatal("expired credential must be cleared")
		}
	})

	t.Run("malformed credential is cleared", func(t *testing.T) {
		s := newTestStore(t)
		_ = s.storage.Save(ctx, "not-a-token", time.Time{})

		sess, err := s.Initialize(ctx)
		if err != nil || sess.Status != StatusUnauthenticated {
			t.Fatalf("expected unauthenticated, got %v %v", sess.Status, err)
		}
		if storedCredential(t, s.storage) != "" {
			t.Fatal("malformed credential must be cleared")
		}
	})

	t.Run("unreadable storage degrades", func(t *testing.T) {
		s := newTestStoreWith(t, &faultyStorage{Memory: storage.NewMemory(), failLoad: true})
		sess, err := s.Initialize(ctx)
		if !errors.Is(err, ErrStorageUnavailable) {
			t.Fatalf("expected ErrStorageUnavailable, got %v", err)
		}
		if sess.Status != StatusUnauthenticated || s.Snapshot().Status != StatusUnauthenticated {
			t.Fatal("storage failure must degrade to unauthenticated")
		}
	})

	t.Run("re-initialize rereads storage", func(t *testing.T) {
		s := newTestStore(t)
		exp := time.Now().Add(time.Hour)
		if _, err := s.Login(ctx, issue(t, "ana", "student", exp)); err != nil {
			t.Fatalf("Login: %v", err)
		}
		_ = s.storage.Clear(ctx)

		sess, _ := s.Initialize(ctx)
		if sess.Status != StatusUnauthenticated {
			t.Fatalf("expected fresh read to win, got %v", sess.Status)
		}
		if len(s.timers.armed()) != 0 {
			t.Fatal("expiry timer must be disarmed")
		}
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Initialize(ctx)

	credential := issue(t, "ana", "admin", time.Now().Add(time.Hour))
	sess, err := s.Login(ctx, credential)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Status != StatusAuthenticated || sess.User.Username != "ana" || sess.User.Role != "admin" {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if got := storedCredential(t, s.storage); got != credential {
		t.Fatalf("storage must hold exactly the credential, got %q", got)
	}
	if s.Snapshot() != sess {
		t.Fatal("snapshot must match login result")
	}
}

func TestLoginRejects(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name       string
		credential string
		want       error
	}{
		{"malformed", "a.b", ErrMalformedCredential},
		{"garbage segments", "x.y.z", ErrMalformedCredential},
		{"expired", issue(t, "ana", "admin", time.Now().Add(-time.Second)), ErrExpiredCredential},
		{"far past exp", issue(t, "ana", "admin", time.Unix(-9223372036854776, 0)), ErrExpiredCredential},
		{"surrounding whitespace", " " + issue(t, "ana", "admin", time.Now().Add(time.Hour)) + "\n", ErrMalformedCredential},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t)
			inv := &countingInvalidator{}
			s.invalidators = []CacheInvalidator{inv}
			if _, err := s.Login(ctx, issue(t, "old", "student", time.Now().Add(time.Hour))); err != nil {
				t.Fatalf("Login: %v", err)
			}

			sess, err := s.Login(ctx, tc.credential)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if sess.Status != StatusUnauthenticated || s.Snapshot().Status != StatusUnauthenticated {
				t.Fatal("rejected login must leave the store unauthenticated")
			}
			if storedCredential(t, s.storage) != "" {
				t.Fatal("rejected credential must not be stored")
			}
			if inv.Count() != 1 {
				t.Fatalf("previous identity's cache must be dropped, got %d", inv.Count())
			}
		})
	}
}

func TestLoginStorageFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	st := &faultyStorage{Memory: storage.NewMemory(), failSave: true}
	s := newTestStoreWith(t, st)
	_, _ = s.Initialize(ctx)

	_, err := s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if s.Snapshot().Status != StatusUnauthenticated {
		t.Fatal("session must not authenticate without persisting")
	}
}

func TestLogoutIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	inv := &countingInvalidator{}
	s.invalidators = []CacheInvalidator{inv}
	_, _ = s.Initialize(ctx)
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))

	var transitions []Session
	cancel := s.Subscribe(func(sess Session) { transitions = append(transitions, sess) })
	defer cancel()

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	once := s.Snapshot()
	if err := s.Logout(ctx); err != nil {
		t.Fatalf("second Logout: %v", err)
	}

	if s.Snapshot() != once || once.Status != StatusUnauthenticated {
		t.Fatalf("second logout changed state: %+v", s.Snapshot())
	}
	if storedCredential(t, s.storage) != "" {
		t.Fatal("storage must be empty")
	}
	if len(transitions) != 1 {
		t.Fatalf("expected one transition, got %d", len(transitions))
	}
	if inv.Count() != 1 {
		t.Fatalf("expected one cache invalidation, got %d", inv.Count())
	}
	if len(s.timers.armed()) != 0 {
		t.Fatal("expiry timer must be disarmed on logout")
	}
}

func TestLogoutBeforeInitializeSettles(t *testing.T) {
	ctx := context.Background()
	st := storage.NewMemory()
	if err := st.Save(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)), time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	s := newTestStoreWith(t, st)

	var transitions []Session
	cancel := s.Subscribe(func(sess Session) { transitions = append(transitions, sess) })
	defer cancel()

	if err := s.Logout(ctx); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if got := s.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", got)
	}
	if storedCredential(t, st) != "" {
		t.Fatal("storage must be empty")
	}
	if len(transitions) != 1 || transitions[0].Status != StatusUnauthenticated {
		t.Fatalf("expected one unauthenticated transition, got %+v", transitions)
	}
}

func TestLogoutBeforeInitializeClearFailureSettles(t *testing.T) {
	ctx := context.Background()
	st := &faultyStorage{Memory: storage.NewMemory(), failClear: true}
	s := newTestStoreWith(t, st)

	if err := s.Logout(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if got := s.Snapshot().Status; got != StatusUnauthenticated {
		t.Fatalf("expected unauthenticated, got %v", got)
	}
}

func TestLogoutClearFailureStillEndsSession(t *testing.T) {
	ctx := context.Background()
	st := &faultyStorage{Memory: storage.NewMemory()}
	s := newTestStoreWith(t, st)
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))

	st.failClear = true
	if err := s.Logout(ctx); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
	if s.Snapshot().Status != StatusUnauthenticated {
		t.Fatal("logout must fail closed")
	}
}

func TestForceLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("current credential terminates", func(t *testing.T) {
		s := newTestStore(t)
		credential := issue(t, "ana", "admin", time.Now().Add(time.Hour))
		_, _ = s.Login(ctx, credential)

		done, err := s.ForceLogout(ctx, credential, "unauthorized")
		if err != nil || !done {
			t.Fatalf("expected termination, got %v %v", done, err)
		}
		again, _ := s.ForceLogout(ctx, credential, "unauthorized")
		if again {
			t.Fatal("second force logout must be a no-op")
		}
	})

	t.Run("replaced credential is ignored", func(t *testing.T) {
		s := newTestStore(t)
		old := issue(t, "ana", "admin", time.Now().Add(time.Hour))
		_, _ = s.Login(ctx, old)
		fresh := issue(t, "ana", "admin", time.Now().Add(2*time.Hour))
		_, _ = s.Login(ctx, fresh)

		done, _ := s.ForceLogout(ctx, old, "unauthorized")
		if done || s.Snapshot().Status != StatusAuthenticated || storedCredential(t, s.storage) != fresh {
			t.Fatal("a failure for an old credential must not end the new session")
		}
	})

	t.Run("no session", func(t *testing.T) {
		s := newTestStore(t)
		_, _ = s.Initialize(ctx)
		if done, _ := s.ForceLogout(ctx, "", "unauthorized"); done {
			t.Fatal("nothing to terminate")
		}
	})

	t.Run("before bootstrap", func(t *testing.T) {
		s := newTestStore(t)
		credential := issue(t, "ana", "admin", time.Now().Add(time.Hour))
		_ = s.storage.Save(ctx, credential, time.Time{})

		done, err := s.ForceLogout(ctx, credential, "unauthorized")
		if err != nil || !done {
			t.Fatalf("expected the stored credential to be terminated, got %v %v", done, err)
		}
		if storedCredential(t, s.storage) != "" || s.Snapshot().Status != StatusUnauthenticated {
			t.Fatal("storage and state must both be cleared")
		}
	})
}

func TestExpiryTimerEndsSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	inv := &countingInvalidator{}
	s.invalidators = []CacheInvalidator{inv}
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))

	armed := s.timers.armed()
	if len(armed) != 1 {
		t.Fatalf("expected one armed timer, got %d", len(armed))
	}
	if armed[0].d <= 59*time.Minute || armed[0].d > time.Hour {
		t.Fatalf("timer duration should track exp, got %v", armed[0].d)
	}
	armed[0].f()

	if s.Snapshot().Status != StatusUnauthenticated || storedCredential(t, s.storage) != "" {
		t.Fatal("expiry must clear storage and transition")
	}
	if inv.Count() != 1 {
		t.Fatal("expiry must drop caches")
	}
}

func TestStaleExpiryTimerIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))
	fresh := issue(t, "bea", "mentor", time.Now().Add(2*time.Hour))
	_, _ = s.Login(ctx, fresh)

	all := s.timers.all()
	if len(all) != 2 || !all[0].stopped {
		t.Fatal("the first timer should be stopped on re-login")
	}
	all[0].f()

	if s.Snapshot().User.Username != "bea" || storedCredential(t, s.storage) != fresh {
		t.Fatal("a timer from a replaced credential must not end the session")
	}
}

func TestSnapshotFailsClosedAfterExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	s := newTestStore(t)
	s.now = clock.Now

	exp := clock.Now().Add(10 * time.Second)
	if _, err := s.Login(ctx, issue(t, "ana", "admin", exp)); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !s.Snapshot().Authenticated() {
		t.Fatal("expected authenticated before exp")
	}

	clock.Advance(11 * time.Second)
	if s.Snapshot().Status != StatusUnauthenticated {
		t.Fatal("snapshot past exp must read as unauthenticated")
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var mu sync.Mutex
	var seen []Status
	cancel := s.Subscribe(func(sess Session) {
		mu.Lock()
		seen = append(seen, sess.Status)
		mu.Unlock()
	})

	_, _ = s.Initialize(ctx)
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))
	_ = s.Logout(ctx)
	cancel()
	cancel()
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))

	want := []Status{StatusUnauthenticated, StatusAuthenticated, StatusUnauthenticated}
	mu.Lock()
	defer mu.Unlock()
	if len(seen) != len(want) {
		t.Fatalf("expected %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, seen)
		}
	}
}

func TestSubscribeListenerMayCancelItself(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	calls := 0
	var cancel func()
	cancel = s.Subscribe(func(Session) {
		calls++
		cancel()
	})
	_, _ = s.Initialize(ctx)
	_, _ = s.Login(ctx, issue(t, "ana", "admin", time.Now().Add(time.Hour)))
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestSnapshotConsistentUnderConcurrentMutation(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.Initialize(ctx)
	credential := issue(t, "ana", "admin", time.Now().Add(time.Hour))

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				sess := s.Snapshot()
				if sess.Authenticated() && sess.User.Username != "ana" {
					t.Errorf("torn read: %+v", sess)
					return
				}
				if !sess.Authenticated() && sess.User != (User{}) {
					t.Errorf("unauthenticated snapshot carries a user: %+v", sess)
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		_, _ = s.Login(ctx, credential)
		_ = s.Logout(ctx)
	}
	close(stop)
	readers.Wait()
}
