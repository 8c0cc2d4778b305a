package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tsukumogami/provision/internal/coordinator"
	"github.com/tsukumogami/provision/internal/fetch"
	"github.com/tsukumogami/provision/internal/installer"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{" yes \r\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
		{"sure\n", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			got, err := confirm(strings.NewReader(tt.input), &out, "Install Git?")
			if err != nil {
				t.Fatalf("confirm() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if out.String() != "Install Git? [y/N] " {
				t.Errorf("prompt = %q", out.String())
			}
		})
	}
}

func elevationFailure(name string) installer.Outcome {
	return installer.Failed(name, installer.ExitCodeNotRun, fmt.Errorf("%w: run elevated", installer.ErrElevationRequired))
}

func networkFailure(name string) installer.Outcome {
	return installer.Failed(name, installer.ExitCodeNotRun, &fetch.Error{Kind: fetch.ErrKindNetwork, Dependency: name, Err: errors.New("connection refused")})
}

func TestInstallExitCode(t *testing.T) {
	ok := installer.Outcome{DependencyName: "Git", Success: true}
	processFailure := installer.Failed("Node.js", 1603, &installer.ProcessError{Program: "msiexec", ExitCode: 1603})

	tests := []struct {
		name     string
		outcomes []installer.Outcome
		want     int
	}{
		{"empty", nil, ExitSuccess},
		{"all ok", []installer.Outcome{ok, ok}, ExitSuccess},
		{"not elevated", []installer.Outcome{elevationFailure("Git"), elevationFailure("Nmap")}, ExitNotElevated},
		{"network only", []installer.Outcome{ok, networkFailure("Nmap")}, ExitNetwork},
		{"process failure", []installer.Outcome{ok, processFailure}, ExitInstallFailed},
		{"mixed failures", []installer.Outcome{networkFailure("Git"), processFailure}, ExitInstallFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := coordinator.BatchInstallResult{AllSuccessful: true, Outcomes: tt.outcomes}
			for _, o := range tt.outcomes {
				res.AllSuccessful = res.AllSuccessful && o.Success
			}
			if got := installExitCode(res); got != tt.want {
				t.Errorf("installExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRenderInstall(t *testing.T) {
	descs := testCatalog()[1:]
	res := coordinator.BatchInstallResult{
		Outcomes: []installer.Outcome{
			{DependencyName: "Git", Success: true},
			installer.Failed("Android SDK Tools", installer.ExitCodeNotRun,
				&fetch.Error{Kind: fetch.ErrKindNotFound, Dependency: "Android SDK Tools", StatusCode: 404}),
			{DependencyName: "Nmap", Success: true, NeedsConfirmation: true},
		},
	}

	var buf bytes.Buffer
	renderInstall(&buf, descs, res)
	out := buf.String()

	for _, want := range []string{
		"Git ... ok",
		"Android SDK Tools ... FAILED",
		"    download Android SDK Tools: not found (HTTP 404)",
		"provision open android-sdk-tools",
		"Nmap ... launched",
		"Complete the Nmap installer window",
		"1 of 3 dependencies failed to install.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderInstall_AllSuccessful(t *testing.T) {
	var buf bytes.Buffer
	res := coordinator.BatchInstallResult{
		AllSuccessful: true,
		Outcomes:      []installer.Outcome{{DependencyName: "Git", Success: true}},
	}
	renderInstall(&buf, testCatalog()[1:2], res)
	if !strings.Contains(buf.String(), "All dependencies installed.") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}
}
