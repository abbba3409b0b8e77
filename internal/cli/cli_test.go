package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetCommands restores every flag to its default and gives every command
// ctx, so package-level state does not leak between runs.
func resetCommands(cmd *cobra.Command, ctx context.Context) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		resetCommands(c, ctx)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetCommands(rootCmd, ctx)
	userFlag = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("stride %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCLI_TaskLifecycle(t *testing.T) {
	t.Setenv("STRIDE_HOME", t.TempDir())

	out := mustRun(t, "user", "add", "alice", "--id", "u1")
	if !strings.Contains(out, "Created user alice (u1)") {
		t.Errorf("user add output = %q", out)
	}

	out = mustRun(t, "--user", "alice", "task", "add", "Ship it", "-p", "H", "--due", "2024-01-05")
	id := strings.TrimSpace(strings.TrimPrefix(out, "Added task "))
	if id == "" || strings.Contains(id, " ") {
		t.Fatalf("task add output = %q", out)
	}

	out = mustRun(t, "--user", "u1", "task", "done", id, "--date", "2024-01-03")
	if !strings.Contains(out, "+25 XP (total 25, streak 1)") {
		t.Errorf("task done output = %q", out)
	}

	if _, err := run(t, "--user", "u1", "task", "done", id); err == nil {
		t.Error("completing twice should fail")
	}

	out = mustRun(t, "--user", "u1", "task", "list")
	if !strings.Contains(out, "Ship it") || !strings.Contains(out, "yes") {
		t.Errorf("task list output = %q", out)
	}

	out = mustRun(t, "--user", "u1", "profile")
	for _, want := range []string{"Level:          1", "XP:             25", "Streak:         1", "2024-01-03"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_LevelUpMessage(t *testing.T) {
	t.Setenv("STRIDE_HOME", t.TempDir())
	mustRun(t, "user", "add", "bob", "--id", "b1")

	var last string
	for i := 0; i < 7; i++ {
		out := mustRun(t, "--user", "b1", "task", "add", "chore", "-p", "H")
		id := strings.TrimSpace(strings.TrimPrefix(out, "Added task "))
		last = mustRun(t, "--user", "b1", "task", "done", id, "--date", "2024-01-01")
	}
	// 7 x 15 XP = 105 >= 100
	if !strings.Contains(last, "Level up! You are now level 2") {
		t.Errorf("last completion output = %q", last)
	}
}

func TestCLI_Errors(t *testing.T) {
	t.Setenv("STRIDE_HOME", t.TempDir())

	if _, err := run(t, "task", "list"); err == nil || !strings.Contains(err.Error(), "no user") {
		t.Errorf("missing --user: err = %v", err)
	}
	if _, err := run(t, "--user", "ghost", "profile"); err == nil || !strings.Contains(err.Error(), "unknown user") {
		t.Errorf("unknown user: err = %v", err)
	}

	mustRun(t, "user", "add", "carol", "--id", "c1")
	if _, err := run(t, "--user", "c1", "task", "add", "x", "-p", "urgent"); err == nil {
		t.Error("bad priority should fail")
	}
	if _, err := run(t, "--user", "c1", "task", "add", "x", "--due", "tomorrow"); err == nil {
		t.Error("bad due date should fail")
	}
	if _, err := run(t, "--user", "c1", "task", "done", "missing"); err == nil {
		t.Error("unknown task should fail")
	}

	out := mustRun(t, "--user", "c1", "task", "list")
	if !strings.Contains(out, "No tasks") {
		t.Errorf("empty list output = %q", out)
	}
}

func TestCLI_ServeStopsWithCommandContext(t *testing.T) {
	home := t.TempDir()
	t.Setenv("STRIDE_HOME", home)
	// port 0 picks a free port
	cfg := "[api]\nport = 0\n\n[logging]\nlevel = \"error\"\n"
	if err := os.WriteFile(filepath.Join(home, "config.toml"), []byte(cfg), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := runContext(t, ctx, "serve")
		done <- err
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop when the command context was cancelled")
	}
}
