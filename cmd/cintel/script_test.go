package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/tools/txtar"
	"rsc.io/script"
)

// TestScripts runs the CLI scripts under testdata/script. Each .txt file
// is a script whose cintel invocations run in-process against the
// memory ledger, so the suite needs no external services.
func TestScripts(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "script", "*.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no script files found under testdata/script")
	}

	engine := script.NewEngine()
	engine.Cmds["cintel"] = cintelScriptCmd()
	engine.Quiet = !testing.Verbose()

	for _, file := range files {
		file := file
		name := strings.TrimSuffix(filepath.Base(file), ".txt")
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			workdir := t.TempDir()
			state, err := script.NewState(ctx, workdir, nil)
			if err != nil {
				t.Fatal(err)
			}

			data, err := os.ReadFile(file)
			if err != nil {
				t.Fatal(err)
			}

			// Script files are txtar archives: the comment is the
			// script, the file sections seed the working directory.
			ar := txtar.Parse(data)
			if err := state.ExtractFiles(ar); err != nil {
				t.Fatal(err)
			}

			var log bytes.Buffer
			err = engine.Execute(state, file, bufio.NewReader(bytes.NewReader(ar.Comment)), &log)
			if testing.Verbose() || err != nil {
				t.Log(log.String())
			}
			if err != nil {
				t.Fatal(err)
			}
		})
	}
}

// cintelScriptCmd runs one CLI invocation in-process, with the script
// state's working directory and CINTEL_* environment applied.
func cintelScriptCmd() script.Cmd {
	return script.Command(
		script.CmdUsage{
			Summary: "run the cintel CLI in-process",
			Args:    "args...",
		},
		func(s *script.State, args ...string) (script.WaitFunc, error) {
			stdout, stderr, err := runCintel(s, args)
			wait := func(*script.State) (string, string, error) {
				return stdout, stderr, err
			}
			return wait, nil
		},
	)
}

// runCintel executes rootCmd with captured stdout/stderr. The process
// working directory and CINTEL_* environment are swapped to the script
// state's for the duration of the call; scripts run sequentially so the
// global mutation is safe.
func runCintel(s *script.State, args []string) (stdout, stderr string, err error) {
	origWd, wdErr := os.Getwd()
	if wdErr != nil {
		return "", "", wdErr
	}
	if err := os.Chdir(s.Getwd()); err != nil {
		return "", "", err
	}
	defer func() { _ = os.Chdir(origWd) }()

	restoreEnv := applyScriptEnv(s.Environ())
	defer restoreEnv()

	outR, outW, err := os.Pipe()
	if err != nil {
		return "", "", err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		return "", "", err
	}

	origStdout, origStderr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = outW, errW

	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	runErr := rootCmd.Execute()

	os.Stdout, os.Stderr = origStdout, origStderr
	_ = outW.Close()
	_ = errW.Close()

	outBytes, _ := io.ReadAll(outR)
	errBytes, _ := io.ReadAll(errR)
	_ = outR.Close()
	_ = errR.Close()

	stderr = string(errBytes)
	if runErr != nil {
		// main() prints the returned error to stderr; mirror that so
		// scripts can match it.
		stderr += "Error: " + runErr.Error() + "\n"
	}
	return string(outBytes), stderr, runErr
}

// resetFlags restores every flag to its default so values from one
// invocation cannot leak into the next.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// applyScriptEnv sets CINTEL_* and NO_COLOR variables from the script
// environment on the process and returns a restore func.
func applyScriptEnv(env []string) func() {
	type saved struct {
		key, value string
		present    bool
	}
	var old []saved

	for _, kv := range env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if !strings.HasPrefix(key, "CINTEL_") && key != "NO_COLOR" {
			continue
		}
		prev, present := os.LookupEnv(key)
		old = append(old, saved{key: key, value: prev, present: present})
		os.Setenv(key, value)
	}

	return func() {
		for _, entry := range old {
			if entry.present {
				os.Setenv(entry.key, entry.value)
			} else {
				os.Unsetenv(entry.key)
			}
		}
	}
}
