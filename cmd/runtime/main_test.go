package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestRunLoadsAndExecutesRequest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.js", `module.exports = { double: 2 };`)
	writeFile(t, dir, "entry.js", `
var util = require("./util");
module.exports = { seen: util.double };
`)

	cli := &CLI{Request: "./entry", CurrentDir: dir}
	if code := run(cli); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
}

func TestRunReportsUncaughtErrorAsExitOne(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "entry.js", `throw new Error("boom");`)

	cli := &CLI{Request: "./entry", CurrentDir: dir}
	if code := run(cli); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}

func TestRunMissingRequestFileIsUnresolvable(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{Request: "./does-not-exist", CurrentDir: dir}
	if code := run(cli); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}

func TestRunEvalExpression(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{Eval: "1 + 2", CurrentDir: dir}
	if code := run(cli); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
}

func TestRunVersionFlagPrintsAndExits(t *testing.T) {
	cli := &CLI{VersionFlag: true}
	if code := run(cli); code != 0 {
		t.Fatalf("run() = %d, want 0", code)
	}
}

func TestRunNoRequestOrEvalExitsOne(t *testing.T) {
	dir := t.TempDir()
	cli := &CLI{CurrentDir: dir}
	if code := run(cli); code != 1 {
		t.Fatalf("run() = %d, want 1", code)
	}
}
