package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ledaps/internal/logging"
	"ledaps/internal/services"
	"ledaps/internal/testsupport"
	"ledaps/internal/toolexec"
)

func writeStub(t *testing.T, dir, name, body string) {
	t.Helper()
	testsupport.WriteScript(t, dir, name, body)
}

func writeDescriptor(t *testing.T, dir, id string) string {
	t.Helper()
	path := filepath.Join(dir, id+".xml")
	if err := os.WriteFile(path, []byte("<espa_metadata/>"), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func mustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	return wd
}

func TestRunStopsAtFirstFailingStage(t *testing.T) {
	binDir := t.TempDir()
	sceneDir := t.TempDir()
	writeStub(t, binDir, StagePM, "echo \"pm $1\"\npwd > ran_lndpm\n")
	writeStub(t, binDir, StageCal, "echo \"cal $1\"\nexit 1\n")
	writeStub(t, binDir, StageSR, "touch ran_lndsr\n")
	writeStub(t, binDir, StageSRMask, "touch ran_lndsrbm\n")
	descriptor := writeDescriptor(t, sceneDir, "LT50290302005100")
	logPath := filepath.Join(t.TempDir(), "run.log")
	before := mustGetwd(t)

	exec := NewExecutor(logging.NewNop(), WithBinDir(binDir))
	err := exec.Run(context.Background(), Run{Descriptor: descriptor, ProcessSR: true, LogFile: logPath})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if stageErr.Stage != StageCal || stageErr.ExitCode != 1 {
		t.Fatalf("unexpected stage error %+v", stageErr)
	}
	if !errors.Is(err, ErrStageFailed) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected stage failure markers, got %v", err)
	}
	if after := mustGetwd(t); after != before {
		t.Fatalf("working directory not restored: %q != %q", after, before)
	}

	ranIn, readErr := os.ReadFile(filepath.Join(sceneDir, "ran_lndpm"))
	if readErr != nil {
		t.Fatalf("expected lndpm to run in the scene directory: %v", readErr)
	}
	resolvedScene, _ := filepath.EvalSymlinks(sceneDir)
	resolvedRan, _ := filepath.EvalSymlinks(strings.TrimSpace(string(ranIn)))
	if resolvedRan != resolvedScene {
		t.Fatalf("lndpm ran in %q, want %q", resolvedRan, resolvedScene)
	}
	for _, marker := range []string{"ran_lndsr", "ran_lndsrbm"} {
		if _, statErr := os.Stat(filepath.Join(sceneDir, marker)); !os.IsNotExist(statErr) {
			t.Fatalf("expected %s not to run", marker)
		}
	}

	logData, readErr := os.ReadFile(logPath)
	if readErr != nil {
		t.Fatalf("read log file: %v", readErr)
	}
	logText := string(logData)
	for _, want := range []string{"pm LT50290302005100.xml", "cal lndcal.LT50290302005100.txt", "error running lndcal"} {
		if !strings.Contains(logText, want) {
			t.Fatalf("log file missing %q:\n%s", want, logText)
		}
	}
}

type recordingExecutor struct {
	commands []string
}

func (r *recordingExecutor) Run(_ context.Context, binary string, args []string) (toolexec.Result, error) {
	r.commands = append(r.commands, strings.TrimSpace(binary+" "+strings.Join(args, " ")))
	return toolexec.Result{}, nil
}

func TestRunHonoursSurfaceReflectanceFlag(t *testing.T) {
	descriptor := writeDescriptor(t, t.TempDir(), "LE70290302003100")

	cases := []struct {
		name      string
		processSR bool
		want      []string
	}{
		{
			name:      "toa only",
			processSR: false,
			want: []string{
				"lndpm LE70290302003100.xml",
				"lndcal lndcal.LE70290302003100.txt",
			},
		},
		{
			name:      "with surface reflectance",
			processSR: true,
			want: []string{
				"lndpm LE70290302003100.xml",
				"lndcal lndcal.LE70290302003100.txt",
				"lndsr lndsr.LE70290302003100.txt",
				"lndsrbm.ksh lndsr.LE70290302003100.txt",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recordingExecutor{}
			err := NewExecutor(nil, WithExecutor(rec)).Run(context.Background(), Run{Descriptor: descriptor, ProcessSR: tc.processSR})
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, rec.commands); diff != "" {
				t.Fatalf("unexpected commands (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRunMissingDescriptor(t *testing.T) {
	rec := &recordingExecutor{}
	before := mustGetwd(t)
	err := NewExecutor(nil, WithExecutor(rec)).Run(context.Background(), Run{Descriptor: filepath.Join(t.TempDir(), "missing.xml")})
	if !errors.Is(err, ErrDescriptorMissing) {
		t.Fatalf("expected ErrDescriptorMissing, got %v", err)
	}
	if len(rec.commands) != 0 {
		t.Fatal("expected no stages to run")
	}
	if after := mustGetwd(t); after != before {
		t.Fatalf("working directory changed: %q != %q", after, before)
	}
}

func TestRunRequiresWritableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	descriptor := writeDescriptor(t, dir, "LT50290302005100")
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	rec := &recordingExecutor{}
	before := mustGetwd(t)
	err := NewExecutor(nil, WithExecutor(rec)).Run(context.Background(), Run{Descriptor: descriptor})
	if !errors.Is(err, ErrNotWritable) {
		t.Fatalf("expected ErrNotWritable, got %v", err)
	}
	if len(rec.commands) != 0 {
		t.Fatal("expected no stages to run")
	}
	if after := mustGetwd(t); after != before {
		t.Fatalf("working directory changed: %q != %q", after, before)
	}
}

func TestRunRestoresDirectoryWhenToolMissing(t *testing.T) {
	descriptor := writeDescriptor(t, t.TempDir(), "LT50290302005100")
	before := mustGetwd(t)

	err := NewExecutor(nil, WithBinDir(t.TempDir())).Run(context.Background(), Run{Descriptor: descriptor})
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StagePM {
		t.Fatalf("expected lndpm stage error, got %v", err)
	}
	if after := mustGetwd(t); after != before {
		t.Fatalf("working directory not restored: %q != %q", after, before)
	}
}

func TestBuildStagesWithBinDir(t *testing.T) {
	stages := BuildStages("scene", true, "/opt/ledaps/bin")
	var binaries []string
	for _, s := range stages {
		binaries = append(binaries, s.Binary)
	}
	want := []string{
		"/opt/ledaps/bin/lndpm",
		"/opt/ledaps/bin/lndcal",
		"/opt/ledaps/bin/lndsr",
		"/opt/ledaps/bin/lndsrbm.ksh",
	}
	if diff := cmp.Diff(want, binaries); diff != "" {
		t.Fatalf("unexpected binaries (-want +got):\n%s", diff)
	}
	if got := DescriptorID("/data/scene/LT50290302005100.xml"); got != "LT50290302005100" {
		t.Fatalf("DescriptorID = %q", got)
	}
}

func TestRunReportsStageKilledBySignal(t *testing.T) {
	binDir := t.TempDir()
	sceneDir := t.TempDir()
	writeStub(t, binDir, StagePM, "kill -9 $$\n")
	writeStub(t, binDir, StageCal, "touch ran_lndcal\n")
	descriptor := writeDescriptor(t, sceneDir, "LT50290302005100")
	before := mustGetwd(t)

	err := NewExecutor(logging.NewNop(), WithBinDir(binDir)).Run(context.Background(), Run{Descriptor: descriptor})

	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		t.Fatalf("expected *StageError, got %v", err)
	}
	if stageErr.Stage != StagePM || stageErr.Signal != "killed" || stageErr.Err != nil {
		t.Fatalf("unexpected stage error %+v", stageErr)
	}
	if !strings.Contains(err.Error(), "killed by signal") {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if after := mustGetwd(t); after != before {
		t.Fatalf("working directory not restored: %q != %q", after, before)
	}
	if _, statErr := os.Stat(filepath.Join(sceneDir, "ran_lndcal")); !os.IsNotExist(statErr) {
		t.Fatal("expected lndcal not to run")
	}
}
