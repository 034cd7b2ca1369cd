package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cerrors "github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/fileutil"
)

func TestRemoveNothingInstalled(t *testing.T) {
	target := tempTarget(t)
	runner := &FakeRunner{}
	rc := NewReconciler(runner)

	if err := rc.Remove(context.Background(), target, Record{}); err != nil {
		t.Fatalf("Remove() = %v, want nil", err)
	}
	if len(runner.Calls) != 0 {
		t.Errorf("Remove() ran commands for an absent install: %v", runner.Calls)
	}
}

func TestRemoveManualBinary(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.ManualBinary)
	rc := NewReconciler(&FakeRunner{})

	rec := Detect(target, &FakeRunner{})
	if err := rc.Remove(context.Background(), target, rec); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("manual binary survived removal")
	}
}

func TestRemovePluginBinary(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.PluginBinary)
	rc := NewReconciler(&FakeRunner{})

	rec := Detect(target, &FakeRunner{})
	if err := rc.Remove(context.Background(), target, rec); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if fileutil.IsFile(target.PluginBinary) {
		t.Error("plugin binary survived removal")
	}
}

func TestRemovePackagedViaPackageManager(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.PackagedBinary)

	runner := &FakeRunner{
		OnPath:  map[string]bool{"apt": true, "apt-get": true},
		Outputs: map[string]string{"dpkg-query -W demo-ce": "demo-ce\t1.0"},
	}
	// The fake cannot delete files, so mimic a real removal by hooking the
	// remove invocation through Failures being absent and deleting here.
	rc := NewReconciler(&removingRunner{FakeRunner: runner, deletes: target.PackagedBinary})

	rec := Detect(target, runner)
	if err := rc.Remove(context.Background(), target, rec); err != nil {
		t.Fatalf("Remove() = %v", err)
	}

	var sawRemove bool
	for _, call := range runner.Calls {
		if strings.HasPrefix(call, "apt-get remove -y") {
			sawRemove = true
		}
	}
	if !sawRemove {
		t.Errorf("package removal was never invoked: %v", runner.Calls)
	}
}

// removingRunner deletes a path when the package-manager removal runs, the
// way a real removal would.
type removingRunner struct {
	*FakeRunner
	deletes string
}

func (r *removingRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := r.FakeRunner.Run(ctx, name, args...)
	if err == nil && strings.Contains(name+" "+strings.Join(args, " "), "remove") {
		_ = os.Remove(r.deletes)
	}
	return out, err
}

func TestRemovePackagedNoOpIsAnError(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.PackagedBinary)

	// Package db claims ownership, removal "succeeds", binary stays put.
	runner := &FakeRunner{
		OnPath:  map[string]bool{"apt": true, "apt-get": true},
		Outputs: map[string]string{"dpkg-query -W demo-ce": "demo-ce\t1.0"},
	}
	rc := NewReconciler(runner)

	rec := Detect(target, runner)
	err := rc.Remove(context.Background(), target, rec)
	if !errors.Is(err, cerrors.ErrUnknownInstallMethod) {
		t.Fatalf("Remove() = %v, want ErrUnknownInstallMethod", err)
	}

	var merr *cerrors.MethodError
	if !errors.As(err, &merr) {
		t.Fatalf("Remove() error type = %T, want *MethodError", err)
	}
	if len(merr.Evidence) == 0 {
		t.Error("MethodError carries no evidence")
	}
}

func TestRemoveTarballMembersWhenUnowned(t *testing.T) {
	target := tempTarget(t)
	target.Kind = KindTarball
	target.BinDir = filepath.Dir(target.PackagedBinary)
	target.ServiceName = "demo"
	touch(t, target.PackagedBinary)
	for _, name := range engineTarballMembers {
		touch(t, filepath.Join(target.BinDir, name))
	}
	touch(t, target.UnitPath)

	// Package manager present but the packages are not in its database.
	failures := map[string]error{}
	for _, pkg := range target.Packages {
		failures["dpkg-query -W "+pkg] = fmt.Errorf("not installed")
	}
	runner := &FakeRunner{
		OnPath:   map[string]bool{"apt": true, "apt-get": true},
		Failures: failures,
	}
	rc := NewReconciler(runner)

	rec := Detect(target, runner)
	if err := rc.Remove(context.Background(), target, rec); err != nil {
		t.Fatalf("Remove() = %v", err)
	}

	for _, name := range engineTarballMembers {
		if fileutil.IsFile(filepath.Join(target.BinDir, name)) {
			t.Errorf("tarball member %s survived removal", name)
		}
	}
	if fileutil.IsFile(target.UnitPath) {
		t.Error("unit file survived removal")
	}
	var stopped bool
	for _, call := range runner.Calls {
		if call == "systemctl stop demo" {
			stopped = true
		}
	}
	if !stopped {
		t.Errorf("service was not stopped before removal: %v", runner.Calls)
	}
}

func TestRemoveSweepsManualLeftoverAfterPackaged(t *testing.T) {
	target := tempTarget(t)
	target.Kind = KindTarball
	target.BinDir = filepath.Dir(target.PackagedBinary)
	touch(t, target.PackagedBinary)
	touch(t, target.ManualBinary)

	failures := map[string]error{}
	for _, pkg := range target.Packages {
		failures["dpkg-query -W "+pkg] = fmt.Errorf("not installed")
	}
	runner := &FakeRunner{
		OnPath:   map[string]bool{"apt": true, "apt-get": true},
		Failures: failures,
	}
	rc := NewReconciler(runner)

	rec := Detect(target, runner)
	if err := rc.Remove(context.Background(), target, rec); err != nil {
		t.Fatalf("Remove() = %v", err)
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("manual leftover survived the sweep")
	}
	if fileutil.IsFile(target.PackagedBinary) {
		t.Error("system binary survived removal")
	}
}
