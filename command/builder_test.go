package command

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
)

func TestValidatePathspec(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple file", "CLAUDE.md", false},
		{"nested file", "app/src/main.go", false},
		{"file with spaces", "notes/meeting notes.md", false},
		{"empty", "", true},
		{"leading dash after --", "-notes.md", false},
		{"glob characters", "docs/[draft]*.md", false},
		{"absolute path", "/etc/passwd", true},
		{"parent escape", "../other/file.txt", true},
		{"bare parent", "..", true},
		{"nul byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePathspec(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validatePathspec(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "chore(session-logs): capture session abc (1 files)", false},
		{"multiline", "subject\n\nbody", false},
		{"empty", "", true},
		{"whitespace", "  \n", true},
		{"nul byte", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateCommitMessage(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateCommitMessage(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestSafeBuilder_Build(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	t.Run("valid command", func(t *testing.T) {
		cmd, err := sb.Build(ctx, "echo", "hello")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer cmd.Release()
		if cmd.name != "echo" {
			t.Errorf("expected command name 'echo', got %q", cmd.name)
		}
		if len(cmd.args) != 1 || cmd.args[0] != "hello" {
			t.Errorf("expected args ['hello'], got %v", cmd.args)
		}
		if cmd.timeout != DefaultTimeout {
			t.Errorf("expected default timeout %v, got %v", DefaultTimeout, cmd.timeout)
		}
	})

	t.Run("empty command name", func(t *testing.T) {
		_, err := sb.Build(ctx, "")
		if err == nil {
			t.Error("expected error for empty command name")
		}
	})
}

func TestSafeBuilder_WithDefaultTimeout(t *testing.T) {
	tests := []struct {
		name string
		in   time.Duration
		want time.Duration
	}{
		{"custom", 3 * time.Second, 3 * time.Second},
		{"zero keeps default", 0, DefaultTimeout},
		{"negative keeps default", -time.Second, DefaultTimeout},
		{"capped", time.Hour, MaxTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sb := NewSafeBuilder().WithDefaultTimeout(tt.in)
			if sb.DefaultTimeout() != tt.want {
				t.Errorf("DefaultTimeout() = %v, want %v", sb.DefaultTimeout(), tt.want)
			}
		})
	}
}

func TestSafeBuilder_Validate(t *testing.T) {
	sb := NewSafeBuilder()

	t.Run("valid pathspec", func(t *testing.T) {
		if err := sb.Validate("pathspec", "src/main.go"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid pathspec", func(t *testing.T) {
		if err := sb.Validate("pathspec", "../outside"); err == nil {
			t.Error("expected error for pathspec outside the work tree")
		}
	})

	t.Run("unknown validator type", func(t *testing.T) {
		if err := sb.Validate("unknownType", "value"); err == nil {
			t.Error("expected error for unknown validator type")
		}
	})
}

func TestCommand_WithTimeout(t *testing.T) {
	sb := NewSafeBuilder()
	ctx := context.Background()

	cmd, err := sb.Build(ctx, "sleep", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cmd.Release()

	t.Run("custom timeout", func(t *testing.T) {
		customTimeout := 1 * time.Second
		cmd = cmd.WithTimeout(customTimeout)
		if cmd.timeout != customTimeout {
			t.Errorf("expected timeout %v, got %v", customTimeout, cmd.timeout)
		}
	})

	t.Run("exceeds max timeout", func(t *testing.T) {
		cmd = cmd.WithTimeout(20 * time.Minute)
		if cmd.timeout != MaxTimeout {
			t.Errorf("expected timeout to be capped at %v, got %v", MaxTimeout, cmd.timeout)
		}
	})
}

func TestCommandTimeout(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	sb := NewSafeBuilder()

	cmd, err := sb.Build(context.Background(), "sleep", "10")
	if err != nil {
		t.Fatal(err)
	}
	cmd = cmd.WithTimeout(100 * time.Millisecond)

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err == nil {
		t.Fatal("expected timeout error")
	}
	var timeoutErr *TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Errorf("expected *TimeoutError, got %T: %v", err, err)
	}

	// Allow some margin for execution overhead
	if duration > 2*time.Second {
		t.Errorf("command took too long to timeout: %v", duration)
	}
}

func TestCommand_InDir(t *testing.T) {
	dir := t.TempDir()
	cmd, err := NewSafeBuilder().Build(context.Background(), "pwd")
	if err != nil {
		t.Fatal(err)
	}
	defer cmd.Release()

	execCmd := cmd.InDir(dir).Exec()
	if execCmd.Dir != dir {
		t.Errorf("expected Dir %q, got %q", dir, execCmd.Dir)
	}
}

func TestRealExecutor_Env(t *testing.T) {
	e := &RealExecutor{Env: NonInteractiveEnv}
	cmd := e.Command("git", "status")

	found := false
	for _, kv := range cmd.Env {
		if kv == "LC_ALL=C" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LC_ALL=C in command environment")
	}

	plain := (&RealExecutor{}).Command("git", "status")
	if plain.Env != nil {
		t.Errorf("expected inherited environment, got %v", plain.Env)
	}
}
