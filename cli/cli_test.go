//go:build unix

package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/zalando/go-keyring"

	"github.com/yllada/vpnonline/common"
	"github.com/yllada/vpnonline/config"
	"github.com/yllada/vpnonline/credentials"
	"github.com/yllada/vpnonline/vpn"
)

type countingFetcher struct {
	names []string
	calls int
}

func (f *countingFetcher) Fetch(ctx context.Context) ([]vpn.File, error) {
	f.calls++
	files := make([]vpn.File, len(f.names))
	for i, n := range f.names {
		files[i] = vpn.File{Name: n, Data: []byte("client\nremote example.net 1194\n")}
	}
	return files, nil
}

// failingPrompter fails the test when credentials are requested.
type failingPrompter struct {
	t *testing.T
}

func (p failingPrompter) Prompt(ctx context.Context) (credentials.Credentials, error) {
	p.t.Error("credentials should not be requested")
	return credentials.Credentials{}, errors.New("unexpected prompt")
}

type testEnv struct {
	cfg     *config.Config
	fetcher *countingFetcher
	out     *bytes.Buffer
	cli     *CLI
}

func newTestEnv(t *testing.T, names []string, prompter credentials.Prompter, configure func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig(filepath.Join(t.TempDir(), common.StateDirName))
	cfg.Color = common.ColorNever
	cfg.Client.Binary = writeScript(t, "exit 0")
	if configure != nil {
		configure(cfg)
	}

	fetcher := &countingFetcher{names: names}
	var out bytes.Buffer
	c, err := New(Options{
		Config:   cfg,
		Fetcher:  fetcher,
		Prompter: prompter,
		Stdin:    strings.NewReader(""),
		Stdout:   &out,
		Stderr:   &out,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &testEnv{cfg: cfg, fetcher: fetcher, out: &out, cli: c}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "openvpn")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

var alice = credentials.StaticPrompter{Credentials: credentials.Credentials{Username: "alice", Password: "secret"}}

func TestCLI_List(t *testing.T) {
	env := newTestEnv(t, []string{"b.ovpn", "a.ovpn", "c.ovpn"}, alice, nil)

	if err := env.cli.List(context.Background()); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := "1   a.ovpn\n2   b.ovpn\n3   c.ovpn\n"
	if diff := cmp.Diff(want, env.out.String()); diff != "" {
		t.Errorf("List() output mismatch (-want +got):\n%s", diff)
	}

	env.out.Reset()
	if err := env.cli.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if env.out.String() != want {
		t.Errorf("second List() output = %q", env.out.String())
	}
	if env.fetcher.calls != 1 {
		t.Errorf("fetch calls = %d, want 1", env.fetcher.calls)
	}
}

func TestCLI_Search(t *testing.T) {
	env := newTestEnv(t, []string{"[USA].3-Dallas-[HTTP]S.ovpn", "Canada.ovpn"}, alice, nil)

	if err := env.cli.Search(context.Background(), []string{"usa", "http"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	want := "2   [[USA]].3-Dallas-[[HTTP]]S.ovpn\n"
	if diff := cmp.Diff(want, env.out.String()); diff != "" {
		t.Errorf("Search() output mismatch (-want +got):\n%s", diff)
	}
}

func TestCLI_SearchNoMatches(t *testing.T) {
	env := newTestEnv(t, []string{"Canada.ovpn"}, alice, nil)

	if err := env.cli.Search(context.Background(), []string{"atlantis"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if env.out.Len() != 0 {
		t.Errorf("Search() output = %q, want none", env.out.String())
	}
}

func TestCLI_ConnectOutOfRange(t *testing.T) {
	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("def-%02d.ovpn", i)
	}
	env := newTestEnv(t, names, failingPrompter{t: t}, nil)

	code, err := env.cli.Connect(context.Background(), 999, vpn.Attached)
	if !errors.Is(err, common.ErrIndex) {
		t.Fatalf("Connect() error = %v, want ErrIndex", err)
	}
	if code == 0 || common.ExitCode(err) == 0 {
		t.Errorf("Connect() code = %d, ExitCode = %d, want non-zero", code, common.ExitCode(err))
	}
	if !strings.Contains(err.Error(), "999") {
		t.Errorf("error %q does not name the index", err)
	}
	if common.FileExists(env.cfg.CredentialsFile()) {
		t.Error("credentials file created for an invalid index")
	}
}

func TestCLI_ConnectAttached(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	env := newTestEnv(t, []string{"Canada.ovpn", "Poland.ovpn"}, alice, func(cfg *config.Config) {
		cfg.Client.Binary = writeScript(t, `printf '%s\n' "$@" > '`+argsFile+`'
exit 3`)
	})

	code, err := env.cli.Connect(context.Background(), 2, vpn.Attached)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if code != 3 {
		t.Errorf("Connect() code = %d, want the client's 3", code)
	}

	data, err := os.ReadFile(env.cfg.CredentialsFile())
	if err != nil {
		t.Fatalf("credentials file: %v", err)
	}
	if string(data) != "alice\nsecret\n" {
		t.Errorf("credentials file = %q", data)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"--config", filepath.Join(env.cfg.DefinitionsDir(), "Poland.ovpn"),
		"--auth-user-pass", env.cfg.CredentialsFile(),
	}, "\n") + "\n"
	if diff := cmp.Diff(want, string(args)); diff != "" {
		t.Errorf("client arguments mismatch (-want +got):\n%s", diff)
	}
}

func TestCLI_ConnectUsesStoredCredentials(t *testing.T) {
	env := newTestEnv(t, []string{"Canada.ovpn"}, failingPrompter{t: t}, nil)
	store := credentials.NewFileStore(env.cfg.CredentialsFile())
	if err := store.Save(credentials.Credentials{Username: "bob", Password: "hunter2"}); err != nil {
		t.Fatal(err)
	}

	if _, err := env.cli.Connect(context.Background(), 1, vpn.Attached); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
}

func TestCLI_ConnectDetached(t *testing.T) {
	env := newTestEnv(t, []string{"Canada.ovpn"}, alice, nil)

	code, err := env.cli.Connect(context.Background(), 1, vpn.Detached)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if code != 0 {
		t.Errorf("Connect() code = %d, want 0", code)
	}
	if !strings.Contains(env.out.String(), "to disconnect") {
		t.Errorf("output = %q, want the disconnect hint", env.out.String())
	}
}

func TestCLI_ConnectInterruptedAtPrompt(t *testing.T) {
	cfg := config.DefaultConfig(filepath.Join(t.TempDir(), common.StateDirName))
	cfg.Color = common.ColorNever
	cfg.Client.Binary = writeScript(t, "exit 0")

	// nothing is ever typed at the prompt
	stdin, w := io.Pipe()
	defer w.Close()
	var out bytes.Buffer
	c, err := New(Options{
		Config:  cfg,
		Fetcher: &countingFetcher{names: []string{"Canada.ovpn"}},
		Stdin:   stdin,
		Stdout:  &out,
		Stderr:  &out,
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	type connectResult struct {
		code int
		err  error
	}
	done := make(chan connectResult, 1)
	go func() {
		code, err := c.Connect(ctx, 1, vpn.Attached)
		done <- connectResult{code, err}
	}()

	select {
	case r := <-done:
		if !errors.Is(r.err, common.ErrInterrupted) {
			t.Fatalf("Connect() error = %v, want ErrInterrupted", r.err)
		}
		if common.ExitCode(r.err) != 130 {
			t.Errorf("ExitCode = %d, want 130", common.ExitCode(r.err))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Connect() still blocked at the credential prompt")
	}
	if common.FileExists(cfg.CredentialsFile()) {
		t.Error("credentials saved after the prompt was interrupted")
	}
}

func TestCLI_ConnectKeyring(t *testing.T) {
	keyring.MockInit()

	copyFile := filepath.Join(t.TempDir(), "auth-copy")
	env := newTestEnv(t, []string{"Canada.ovpn"}, alice, func(cfg *config.Config) {
		cfg.Credentials.Backend = common.CredentialBackendKeyring
		cfg.Client.Binary = writeScript(t, `cp "$4" '`+copyFile+`'`)
	})

	if _, ok := env.cli.store.(*credentials.KeyringStore); !ok {
		t.Fatalf("store = %T, want *credentials.KeyringStore", env.cli.store)
	}

	if _, err := env.cli.Connect(context.Background(), 1, vpn.Attached); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	data, err := os.ReadFile(copyFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "alice\nsecret\n" {
		t.Errorf("auth file = %q", data)
	}
	if common.FileExists(env.cfg.CredentialsFile()) {
		t.Error("keyring backend should not write credentials.txt")
	}
	leftovers, _ := filepath.Glob(filepath.Join(env.cfg.RunDir(), "*"))
	if len(leftovers) != 0 {
		t.Errorf("auth files left behind: %v", leftovers)
	}

	if err := env.cli.ResetCredentials(); err != nil {
		t.Fatal(err)
	}
	if _, err := env.cli.store.Load(); !errors.Is(err, credentials.ErrNotFound) {
		t.Errorf("Load() after reset error = %v, want ErrNotFound", err)
	}
}

func TestCLI_ResetAll(t *testing.T) {
	env := newTestEnv(t, []string{"Canada.ovpn"}, alice, nil)
	if _, err := env.cli.Connect(context.Background(), 1, vpn.Attached); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := env.cli.ResetAll(); err != nil {
			t.Fatalf("ResetAll() call %d error = %v", i+1, err)
		}
	}
	if common.FileExists(env.cfg.CredentialsFile()) || common.FileExists(env.cfg.DefinitionsDir()) {
		t.Error("credentials and definitions should be removed")
	}

	if err := env.cli.List(context.Background()); err != nil {
		t.Fatal(err)
	}
	if env.fetcher.calls != 2 {
		t.Errorf("fetch calls = %d, want a fetch after reset", env.fetcher.calls)
	}
}

func TestCLI_ResetDefinitionsKeepsCredentials(t *testing.T) {
	env := newTestEnv(t, []string{"Canada.ovpn"}, alice, nil)
	if _, err := env.cli.Connect(context.Background(), 1, vpn.Attached); err != nil {
		t.Fatal(err)
	}

	if err := env.cli.ResetDefinitions(); err != nil {
		t.Fatal(err)
	}
	if common.FileExists(env.cfg.DefinitionsDir()) {
		t.Error("definitions should be removed")
	}
	if !common.FileExists(env.cfg.CredentialsFile()) {
		t.Error("credentials should be kept")
	}
}

func TestCLI_SaveConfig(t *testing.T) {
	env := newTestEnv(t, nil, alice, nil)

	if err := env.cli.SaveConfig(); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}
	if !common.FileExists(env.cfg.Path()) {
		t.Fatal("configuration file not written")
	}

	loaded, err := config.Load(config.Options{File: env.cfg.Path()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Client.Binary != env.cfg.Client.Binary {
		t.Errorf("Client.Binary = %q, want %q", loaded.Client.Binary, env.cfg.Client.Binary)
	}
}

func TestNew_RequiresConfig(t *testing.T) {
	if _, err := New(Options{}); !errors.Is(err, common.ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}
}
