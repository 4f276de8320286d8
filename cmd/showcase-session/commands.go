package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/transport"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
)

// session bundles the client with the streams commands write to.
type session struct {
	client *goSession.Client
	out    io.Writer
}

func withSession(ctx context.Context, cmd *cli.Command, fn func(*session) error) error {
	cfg := goSession.ConfigFromEnv()
	cfg.Storage.Backend = goSession.BackendFile
	if v := cmd.String("base-url"); v != "" {
		cfg.HTTP.BaseURL = v
	}
	if v := cmd.String("token-file"); v != "" {
		cfg.Storage.FilePath = v
	}
	if cmd.Bool("verbose") {
		cfg.Logging.Level = "debug"
	}
	// Every invocation is a fresh process; caching buys nothing.
	cfg.HTTP.CacheEnabled = false

	s, err := openSession(ctx, cfg, os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	defer s.client.Close()
	return fn(s)
}

func openSession(ctx context.Context, cfg goSession.Config, out, errOut io.Writer) (*session, error) {
	logger := goSession.NewLogger(errOut, cfg.Logging)
	client, err := goSession.New().
		WithConfig(cfg).
		WithLogger(logger).
		WithNotifier(transport.NotifierFunc(func(_ context.Context, n transport.Notice) {
			fmt.Fprintln(errOut, n.Message)
		})).
		WithNavigator(transport.NavigatorFunc(func(_ context.Context, path string) {
			fmt.Fprintf(errOut, "sign in again: showcase-session login (%s)\n", path)
		})).
		Build()
	if err != nil {
		return nil, err
	}
	if _, err := client.Bootstrap(ctx); err != nil {
		logger.Warn("bootstrap degraded", "error", err)
	}
	return &session{client: client, out: out}, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (s *session) login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(loginRequest{Username: username, Password: password})
	if err != nil {
		return err
	}
	req, err := s.client.NewRequest(ctx, http.MethodPost, "/api/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decode login response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if lr.Message == "" {
			lr.Message = resp.Status
		}
		return cli.Exit("login failed: "+lr.Message, 1)
	}

	sess, err := s.client.Store().Login(ctx, lr.Token)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "signed in as %s (%s) until %s\n",
		sess.User.Username, sess.User.Role, sess.ExpiresAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (s *session) logout(ctx context.Context) error {
	if err := s.client.Store().Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "signed out")
	return nil
}

type statusOutput struct {
	Status    string `json:"status"`
	Username  string `json:"username,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Entry     string `json:"entry,omitempty"`
}

func (s *session) status(format string) error {
	sess := s.client.Store().Snapshot()
	out := statusOutput{Status: sess.Status.String()}
	if sess.Authenticated() {
		out.Username = sess.User.Username
		out.Role = sess.User.Role
		out.ExpiresAt = sess.ExpiresAt.Format("2006-01-02T15:04:05Z07:00")
		if dest, ok := s.client.Config().Routes.Destination(sess.User.Role); ok {
			out.Entry = dest
		}
	}

	if format == "json" {
		enc := json.NewEncoder(s.out)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	if !sess.Authenticated() {
		fmt.Fprintln(s.out, out.Status)
		return nil
	}
	fmt.Fprintf(s.out, "%s as %s (%s), expires %s\n", out.Status, out.Username, out.Role, out.ExpiresAt)
	if out.Entry != "" {
		fmt.Fprintf(s.out, "entry: %s\n", out.Entry)
	}
	return nil
}

func (s *session) get(ctx context.Context, path string) error {
	req, err := s.client.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	resp, err := s.do(req)
	if err != nil {
		var invalid *transport.SessionInvalidatedError
		if errors.As(err, &invalid) {
			return cli.Exit(fmt.Sprintf("session ended (%d %s)", invalid.StatusCode, invalid.Reason), 3)
		}
		return err
	}
	defer resp.Body.Close()

	fmt.Fprintln(s.out, resp.Status)
	if _, err := io.Copy(s.out, resp.Body); err != nil {
		return err
	}
	fmt.Fprintln(s.out)
	return nil
}

// do tags req with a correlation id before sending it.
func (s *session) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-Request-ID", uuid.NewString())
	return s.client.Do(req)
}
