package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/storage"
)

type failingSource struct{}

func (failingSource) Load(context.Context) (string, error) { return "", storage.ErrUnavailable }

func echoAuthServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Authorization", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAuthenticatorAttachesBearer(t *testing.T) {
	srv := echoAuthServer(t)
	store := storage.NewMemory()
	if err := store.Save(context.Background(), "abc.def.ghi", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	obs := &countingObserver{}
	client := &http.Client{Transport: NewAuthenticator(nil, store, obs, nil)}

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Seen-Authorization"); got != "Bearer abc.def.ghi" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatal("original request must not be mutated")
	}
	if obs.attached.Load() != 1 {
		t.Fatalf("expected one attach event, got %d", obs.attached.Load())
	}
}

func TestAuthenticatorWithoutCredential(t *testing.T) {
	srv := echoAuthServer(t)

	for name, source := range map[string]CredentialSource{
		"empty storage":       storage.NewMemory(),
		"unavailable storage": failingSource{},
		"nil source":          nil,
	} {
		t.Run(name, func(t *testing.T) {
			client := &http.Client{Transport: NewAuthenticator(nil, source, nil, nil)}
			resp, err := client.Get(srv.URL)
			if err != nil {
				t.Fatalf("request must still be sent: %v", err)
			}
			resp.Body.Close()
			if got := resp.Header.Get("X-Seen-Authorization"); got != "" {
				t.Fatalf("expected no header, got %q", got)
			}
		})
	}
}

func TestAuthenticatorKeepsExplicitHeader(t *testing.T) {
	srv := echoAuthServer(t)
	store := storage.NewMemory()
	_ = store.Save(context.Background(), "stored", time.Time{})
	client := &http.Client{Transport: NewAuthenticator(nil, store, nil, nil)}

	req, _ := http.NewRequest(http.MethodPost, srv.URL, nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Seen-Authorization"); got != "Basic dXNlcjpwYXNz" {
		t.Fatalf("explicit header replaced: %q", got)
	}
}

func TestAuthenticatorReadsStorageEveryRequest(t *testing.T) {
	srv := echoAuthServer(t)
	store := storage.NewMemory()
	client := &http.Client{Transport: NewAuthenticator(nil, store, nil, nil)}

	seen := func() string {
		resp, err := client.Get(srv.URL)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		resp.Body.Close()
		return resp.Header.Get("X-Seen-Authorization")
	}

	if got := seen(); got != "" {
		t.Fatalf("expected none, got %q", got)
	}
	_ = store.Save(context.Background(), "first", time.Time{})
	if got := seen(); got != "Bearer first" {
		t.Fatalf("expected first, got %q", got)
	}
	_ = store.Clear(context.Background())
	if got := seen(); got != "" {
		t.Fatalf("expected none after clear, got %q", got)
	}
}

func TestBearerCredential(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer   abc  ", "abc", true},
		{"Bearer ", "", false},
		{"Basic abc", "", false},
		{"", "", false},
		{"Bear", "", false},
	}
	for _, tc := range cases {
		got, ok := BearerCredential(tc.header)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("BearerCredential(%q) = %q,%v; want %q,%v", tc.header, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSessionInvalidatedErrorMatches(t *testing.T) {
	var err error = &SessionInvalidatedError{StatusCode: 401}
	if !errors.Is(err, ErrSessionInvalidated) {
		t.Fatal("expected errors.Is to match ErrSessionInvalidated")
	}
}
