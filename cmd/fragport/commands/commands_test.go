// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/fragport/cmd/fragport/cli"
	"github.com/bureau-foundation/fragport/lib/clock"
	"github.com/bureau-foundation/fragport/lib/config"
	"github.com/bureau-foundation/fragport/lib/coordroot"
	"github.com/bureau-foundation/fragport/lib/directstore"
	"github.com/bureau-foundation/fragport/lib/indirectstore"
	"github.com/bureau-foundation/fragport/lib/registry"
	"github.com/bureau-foundation/fragport/lib/testutil"
)

const shapesSource = `package shapes

// Widget is a control.
//
//fragport:export ui::controls::Widget
type Widget struct {
	Name string
}

//fragport:export
func Area(w, h float64) float64 { return w * h }
`

type harness struct {
	t      *testing.T
	env    *Env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	clock  *clock.FakeClock
}

// newHarness isolates the test from the caller's FRAGPORT_* settings.
func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, name := range []string{config.EnvConfig, config.EnvRoot, config.EnvGeneration, config.EnvIndirect} {
		t.Setenv(name, "")
	}
	t.Setenv("GOFILE", "")
	h := &harness{
		t:      t,
		stdout: new(bytes.Buffer),
		stderr: new(bytes.Buffer),
		clock:  clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.env = &Env{Stdout: h.stdout, Stderr: h.stderr, Clock: h.clock}
	return h
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	h.stdout.Reset()
	err := Root(h.env).Execute(args)
	return h.stdout.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	output, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("fragport %s: %v\nstderr:\n%s", strings.Join(args, " "), err, h.stderr.String())
	}
	return output
}

// producerFile writes a source file into the workspace's producer
// package and returns its path.
func producerFile(t *testing.T, workspace, name, content string) string {
	t.Helper()
	path := filepath.Join(workspace, "producer", "shapes", name)
	testutil.WriteFile(t, path, content)
	return path
}

func TestExportWritesGeneratedFile(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	source := producerFile(t, workspace, "shapes.go", shapesSource)

	h.mustRun("export", "--file", source)

	generated := filepath.Join(workspace, "producer", "shapes", "shapes_fragport.go")
	content, err := os.ReadFile(generated)
	if err != nil {
		t.Fatalf("generated file: %v", err)
	}
	for _, want := range []string{
		directstore.GeneratedHeader,
		"package shapes",
		"ExportedFragment__WIDGET",
		"ExportedFragment__AREA",
		`"ui::controls::Widget"`,
	} {
		if !bytes.Contains(content, []byte(want)) {
			t.Errorf("generated file missing %q:\n%s", want, content)
		}
	}

	// Direct-only export leaves the coordination root untouched.
	if _, err := os.Stat(filepath.Join(workspace, coordroot.DefaultSubdir)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("direct-only export created the coordination root (stat error %v)", err)
	}
}

func TestExportFromGOFILE(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	producerFile(t, workspace, "shapes.go", shapesSource)

	t.Chdir(filepath.Join(workspace, "producer", "shapes"))
	t.Setenv("GOFILE", "shapes.go")
	h.mustRun("export")

	if _, err := os.Stat(filepath.Join(workspace, "producer", "shapes", "shapes_fragport.go")); err != nil {
		t.Errorf("generated file missing: %v", err)
	}
}

func TestExportWithoutFiles(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("export"); err == nil || !strings.Contains(err.Error(), "no source files") {
		t.Errorf("export without files error = %v", err)
	}
}

func TestExportRemovesStaleGeneratedFile(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	source := producerFile(t, workspace, "shapes.go", shapesSource)
	h.mustRun("export", "-f", source)

	producerFile(t, workspace, "shapes.go", "package shapes\n\nfunc Area(w, h float64) float64 { return w * h }\n")
	output := h.mustRun("export", "-f", source, "--json")

	if _, err := os.Stat(directstore.FileName(source)); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("stale generated file survived (stat error %v)", err)
	}
	var reports []fileReport
	if err := json.Unmarshal([]byte(output), &reports); err != nil {
		t.Fatalf("decoding --json output: %v\n%s", err, output)
	}
	if len(reports) != 1 || !reports[0].Removed || len(reports[0].Plans) != 0 {
		t.Errorf("reports = %+v", reports)
	}
}

func TestExportRejectsSymbolSharedAcrossFiles(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	first := producerFile(t, workspace, "a.go", "package shapes\n\n//fragport:export left::Area\nfunc Area() {}\n")
	second := producerFile(t, workspace, "b.go", "package shapes\n\n//fragport:export right::Area\nconst Area = 1\n")

	_, err := h.run("export", "-f", first, "-f", second)
	if !errors.Is(err, registry.ErrPathCollision) {
		t.Fatalf("export error = %v, want ErrPathCollision", err)
	}
	for _, source := range []string{first, second} {
		if _, statErr := os.Stat(directstore.FileName(source)); !errors.Is(statErr, os.ErrNotExist) {
			t.Errorf("%s was generated despite the collision", directstore.FileName(source))
		}
	}
}

func TestExportRejectsGeneratedInput(t *testing.T) {
	h := newHarness(t)
	if _, err := h.run("export", "-f", "shapes_fragport.go"); err == nil {
		t.Error("exporting a generated file should fail")
	}
}

func TestExportIndirectWithoutRootStillWritesDirect(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	source := filepath.Join(dir, "shapes.go")
	testutil.WriteFile(t, source, shapesSource)
	configPath := filepath.Join(dir, "fragport.yaml")
	testutil.WriteFile(t, configPath, "root:\n  markers: [fragport-test-marker-that-does-not-exist]\n")

	_, err := h.run("export", "--config", configPath, "--indirect", "-f", source)
	if !errors.Is(err, registry.ErrNoCoordinationRoot) {
		t.Fatalf("export error = %v, want ErrNoCoordinationRoot", err)
	}
	if _, statErr := os.Stat(directstore.FileName(source)); statErr != nil {
		t.Errorf("direct records not written: %v", statErr)
	}
}

func TestExportIndirectAndResolve(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	source := producerFile(t, workspace, "shapes.go", shapesSource)
	consumer := filepath.Join(workspace, "consumer", "gen")

	h.mustRun("export", "--indirect", "--generation", "g1", "-f", source)

	output := h.mustRun("resolve", "--dir", consumer, "ui::controls::Widget")
	if !strings.Contains(output, "type Widget struct") {
		t.Errorf("resolve output = %q", output)
	}
	if strings.Contains(output, "\x1b[") {
		t.Errorf("output to a buffer was highlighted: %q", output)
	}

	output = h.mustRun("resolve", "--dir", consumer, "--generation", "g1", "--json", "Area")
	var resolved resolveOutput
	if err := json.Unmarshal([]byte(output), &resolved); err != nil {
		t.Fatalf("decoding --json output: %v\n%s", err, output)
	}
	if resolved.Mode != registry.ModeIndirect || resolved.Name != "Area" || resolved.Meta == nil {
		t.Errorf("resolved = %+v", resolved)
	}
	if resolved.Meta.Package != "example.com/producer/shapes" {
		t.Errorf("Meta.Package = %q, want example.com/producer/shapes", resolved.Meta.Package)
	}

	// A record from another generation is stale.
	_, err := h.run("resolve", "--dir", consumer, "--generation", "g2", "Area")
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) || exitError.Code != ExitNotFound {
		t.Errorf("stale resolve error = %v, want exit %d", err, ExitNotFound)
	}
}

func TestResolveNotFoundExitsTwo(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)

	_, err := h.run("resolve", "--dir", workspace, "never::Exported")
	var exitError *cli.ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("resolve error = %v, want *cli.ExitError", err)
	}
	if exitError.Code != ExitNotFound {
		t.Errorf("exit code = %d, want %d", exitError.Code, ExitNotFound)
	}
	if !errors.Is(err, registry.ErrFragmentNotFound) {
		t.Errorf("error %v does not carry ErrFragmentNotFound", err)
	}
}

func TestResolveDirectFromPackage(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	source := producerFile(t, workspace, "shapes.go", shapesSource)
	h.mustRun("export", "-f", source)

	packageDir := filepath.Dir(source)
	output := h.mustRun("resolve", "--from", packageDir, "Area")
	if !strings.Contains(output, "func Area(w, h float64) float64") {
		t.Errorf("resolve output = %q", output)
	}

	// The direct channel is keyed by the final segment: another
	// qualifier still names the same constant.
	if _, err := h.run("resolve", "--from", packageDir, "geometry::Area"); err != nil {
		t.Errorf("resolve geometry::Area: %v", err)
	}

	_, err := h.run("resolve", "--from", packageDir, "Missing")
	if !errors.Is(err, registry.ErrSymbolNotAccessible) {
		t.Errorf("resolve Missing error = %v, want ErrSymbolNotAccessible", err)
	}

	if _, err := h.run("resolve", "--mode", "direct", "Area"); err == nil {
		t.Error("direct resolution without --from should fail")
	}
	if _, err := h.run("resolve", "--mode", "sideways", "Area"); err == nil {
		t.Error("unknown mode should fail")
	}
	if _, err := h.run("resolve"); err == nil {
		t.Error("resolve without a path should fail")
	}
}

func TestResolveDirectSameNameFromTwoPackages(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	uiSource := filepath.Join(workspace, "producer", "ui", "config.go")
	testutil.WriteFile(t, uiSource, "package ui\n\n//fragport:export ui::Config\ntype Config struct{ Theme string }\n")
	dbSource := filepath.Join(workspace, "producer", "db", "config.go")
	testutil.WriteFile(t, dbSource, "package db\n\n//fragport:export db::Config\ntype Config struct{ DSN string }\n")
	h.mustRun("export", "-f", uiSource, "-f", dbSource)

	generated, err := os.ReadFile(directstore.FileName(dbSource))
	if err != nil {
		t.Fatalf("reading generated file: %v", err)
	}
	if !strings.Contains(string(generated), `directstore.Register("example.com/producer/db", "ExportedFragment__CONFIG", "db::Config"`) {
		t.Errorf("generated file does not register under its package:\n%s", generated)
	}

	from := []string{"resolve", "--from", filepath.Dir(uiSource), "--from", filepath.Dir(dbSource)}
	for path, want := range map[string]string{"ui::Config": "Theme string", "db::Config": "DSN string"} {
		output := h.mustRun(append(from, path)...)
		if !strings.Contains(output, want) {
			t.Errorf("resolve %s = %q, want %q", path, output, want)
		}
	}

	_, err = h.run(append(from, "Config")...)
	if !errors.Is(err, registry.ErrPathCollision) {
		t.Errorf("resolve Config error = %v, want ErrPathCollision", err)
	}
}

func TestLocate(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)

	fromProducer := strings.TrimSpace(h.mustRun("locate", "--dir", filepath.Join(workspace, "producer", "shapes")))
	fromConsumer := strings.TrimSpace(h.mustRun("locate", "--dir", filepath.Join(workspace, "consumer", "gen")))
	if fromProducer != fromConsumer {
		t.Errorf("packages disagree on the root: %q vs %q", fromProducer, fromConsumer)
	}
	if want := filepath.Join(workspace, coordroot.DefaultSubdir); fromProducer != want {
		t.Errorf("locate = %q, want %q", fromProducer, want)
	}

	override := filepath.Join(t.TempDir(), "explicit")
	if got := strings.TrimSpace(h.mustRun("locate", "--root", override)); got != override {
		t.Errorf("locate --root = %q, want %q", got, override)
	}
}

func TestListAndPrune(t *testing.T) {
	h := newHarness(t)
	workspace := testutil.Workspace(t)
	old := producerFile(t, workspace, "old.go", "package shapes\n\n//fragport:export legacy::Old\nfunc Old() {}\n")
	current := producerFile(t, workspace, "shapes.go", shapesSource)

	h.mustRun("export", "--indirect", "--generation", "g1", "-f", old)
	h.clock.Advance(2 * time.Hour)
	h.mustRun("export", "--indirect", "--generation", "g2", "-f", current)

	output := h.mustRun("list", "--dir", workspace)
	for _, want := range []string{"PATH", "legacy::Old", "ui::controls::Widget", "Area", "g1", "g2"} {
		if !strings.Contains(output, want) {
			t.Errorf("list output missing %q:\n%s", want, output)
		}
	}

	output = h.mustRun("list", "--dir", workspace, "--json")
	var entries []indirectstore.Entry
	if err := json.Unmarshal([]byte(output), &entries); err != nil {
		t.Fatalf("decoding list --json: %v\n%s", err, output)
	}
	if len(entries) != 3 {
		t.Fatalf("list --json returned %d entries, want 3", len(entries))
	}

	output = h.mustRun("list", "--dir", workspace, "--diagnose")
	if !strings.Contains(output, `"generation": "g2"`) {
		t.Errorf("--diagnose output lacks sidecar notation:\n%s", output)
	}

	output = h.mustRun("prune", "--dir", workspace, "--older-than", "1h", "--dry-run")
	if strings.Count(output, "\n") != 1 || !strings.HasPrefix(output, "old-") {
		t.Errorf("dry run output = %q, want the key of legacy::Old", output)
	}
	if got := len(mustList(t, h, workspace)); got != 3 {
		t.Fatalf("dry run removed records: %d left", got)
	}

	// A staging file abandoned by a crashed writer.
	abandoned := filepath.Join(workspace, coordroot.DefaultSubdir, "tmp", "Old.tmp-crashed")
	testutil.WriteFile(t, abandoned, "func Old(")
	stale := h.clock.Now().Add(-2 * indirectstore.StagingGrace)
	if err := os.Chtimes(abandoned, stale, stale); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	h.mustRun("prune", "--dir", workspace, "--generation", "g2")
	if _, err := os.Stat(abandoned); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("prune left the abandoned staging file: %v", err)
	}
	remaining := mustList(t, h, workspace)
	if len(remaining) != 2 {
		t.Fatalf("%d records after prune, want 2", len(remaining))
	}
	for _, entry := range remaining {
		if entry.Meta == nil || entry.Meta.Generation != "g2" {
			t.Errorf("record %s survived prune: %+v", entry.Key, entry.Meta)
		}
	}

	if _, err := h.run("prune", "--dir", workspace); err == nil {
		t.Error("prune without criteria should fail")
	}
}

func mustList(t *testing.T, h *harness, workspace string) []indirectstore.Entry {
	t.Helper()
	var entries []indirectstore.Entry
	if err := json.Unmarshal([]byte(h.mustRun("list", "--dir", workspace, "--json")), &entries); err != nil {
		t.Fatalf("decoding list --json: %v", err)
	}
	return entries
}

func TestVersion(t *testing.T) {
	h := newHarness(t)
	if output := h.mustRun("version"); !strings.HasPrefix(output, "fragport ") {
		t.Errorf("version output = %q", output)
	}
}

func TestPruneCriteria(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	withMeta := func(generation string, written time.Time) indirectstore.Entry {
		return indirectstore.Entry{ModTime: now, Meta: &indirectstore.Meta{Generation: generation, WrittenAt: written}}
	}

	tests := []struct {
		name     string
		criteria pruneCriteria
		entry    indirectstore.Entry
		want     bool
	}{
		{"matching generation", pruneCriteria{generation: "g2"}, withMeta("g2", now), true},
		{"other generation", pruneCriteria{generation: "g2"}, withMeta("g1", now), false},
		{"no sidecar with generation", pruneCriteria{generation: "g2"}, indirectstore.Entry{ModTime: now}, false},
		{"recent", pruneCriteria{cutoff: now.Add(-time.Hour)}, withMeta("", now), true},
		{"old", pruneCriteria{cutoff: now.Add(-time.Hour)}, withMeta("", now.Add(-2*time.Hour)), false},
		{"no sidecar uses mtime", pruneCriteria{cutoff: now.Add(-time.Hour)}, indirectstore.Entry{ModTime: now}, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.criteria.keep(test.entry); got != test.want {
				t.Errorf("keep = %v, want %v", got, test.want)
			}
		})
	}
}

func TestPackageIdentity(t *testing.T) {
	workspace := testutil.Workspace(t)
	dir := filepath.Join(workspace, "producer", "shapes")
	if got := packageIdentity(dir, "shapes"); got != "example.com/producer/shapes" {
		t.Errorf("packageIdentity = %q", got)
	}

	other := filepath.Join(workspace, "consumer", "gen")
	if got := packageIdentity(other, "generator"); got != "example.com/consumer/gen (generator)" {
		t.Errorf("packageIdentity with renamed package = %q", got)
	}
}
