package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"

	"todo-engine/internal/config"
)

var (
	buildOnce   sync.Once
	todoctlPath string
	buildErr    error
)

// buildTodoctl builds the todoctl binary once and returns its path.
func buildTodoctl(t testing.TB) string {
	t.Helper()

	buildOnce.Do(func() {
		binDir, err := os.MkdirTemp("", "todoctl-bin-")
		if err != nil {
			buildErr = err
			return
		}
		todoctlPath = filepath.Join(binDir, "todoctl")
		cmd := exec.Command("go", "build", "-o", todoctlPath, ".")
		output, err := cmd.CombinedOutput()
		if err != nil {
			buildErr = fmt.Errorf("build todoctl: %w: %s", err, strings.TrimSpace(string(output)))
		}
	})

	if buildErr != nil {
		t.Fatalf("%v", buildErr)
	}
	return todoctlPath
}

const scriptConfig = `[storage]
backend = "file"
dir = "data"

[log]
dev = false
`

func setupScriptEnv(t testing.TB, env *testscript.Env) error {
	t.Helper()

	env.Setenv("TODOCTL", buildTodoctl(t))
	env.Setenv("HOME", filepath.Join(env.WorkDir, "home"))

	cfgPath := filepath.Join(env.WorkDir, "todo.toml")
	if _, err := os.Stat(cfgPath); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(cfgPath, []byte(scriptConfig), 0o644); err != nil {
			return err
		}
	}
	env.Setenv(config.EnvPath, cfgPath)
	return nil
}

// cmdTodoID finds a todo by title in `list --json` output and stores its
// id in an env var.
func cmdTodoID(ts *testscript.TestScript, neg bool, args []string) {
	if neg {
		ts.Fatalf("todoid does not support negation")
	}
	if len(args) != 3 {
		ts.Fatalf("usage: todoid FILE TITLE VAR")
	}

	var list struct {
		Todos []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"todos"`
	}
	if err := json.Unmarshal([]byte(ts.ReadFile(args[0])), &list); err != nil {
		ts.Fatalf("parse todo list: %v", err)
	}
	for _, item := range list.Todos {
		if item.Title == args[1] {
			ts.Setenv(args[2], item.ID)
			return
		}
	}
	ts.Fatalf("todo with title %q not found", args[1])
}

func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata",
		Setup: func(env *testscript.Env) error {
			return setupScriptEnv(t, env)
		},
		Cmds: map[string]func(ts *testscript.TestScript, neg bool, args []string){
			"todoid": cmdTodoID,
		},
	})
}
