package install

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stu2116Edward/dockman/internal/download"
	"github.com/stu2116Edward/dockman/internal/mirror"
	"github.com/stu2116Edward/dockman/internal/release"
	"github.com/stu2116Edward/dockman/internal/tui"
	cerrors "github.com/stu2116Edward/dockman/util/common/errors"
	"github.com/stu2116Edward/dockman/util/common/fileutil"
	"github.com/stu2116Edward/dockman/util/common/progress"
)

var demoPattern = regexp.MustCompile(`demo-v(\d+\.\d+\.\d+)`)

// demoServer serves a listing, one artifact and its digest, counting every
// artifact request and every existence probe separately.
type demoServer struct {
	srv      *httptest.Server
	hits     atomic.Int64
	probes   atomic.Int64
	payload  []byte
	digest   string
	noDigest bool
}

func newDemoServer(t *testing.T, versions []string, badDigest bool) *demoServer {
	t.Helper()
	ds := &demoServer{payload: []byte("#!/bin/sh\necho demo\n")}
	sum := sha256.Sum256(ds.payload)
	ds.digest = hex.EncodeToString(sum[:])
	if badDigest {
		ds.digest = strings.Repeat("0", 64)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		for _, v := range versions {
			fmt.Fprintf(w, "demo-v%s-x86_64\n", v)
		}
	})
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			ds.probes.Add(1)
			return
		}
		ds.hits.Add(1)
		if strings.HasSuffix(r.URL.Path, ".sha256") {
			if ds.noDigest {
				http.NotFound(w, r)
				return
			}
			fmt.Fprintf(w, "%s *%s\n", ds.digest, strings.TrimSuffix(filepath.Base(r.URL.Path), ".sha256"))
			return
		}
		w.Write(ds.payload)
	})
	ds.srv = httptest.NewServer(mux)
	t.Cleanup(ds.srv.Close)
	return ds
}

func (ds *demoServer) endpoint() mirror.Endpoint {
	return mirror.Endpoint{
		Name:    "test",
		ListURL: ds.srv.URL + "/list",
		FileURL: ds.srv.URL + "/files/demo-v{version}-{arch}",
		SumURL:  ds.srv.URL + "/files/demo-v{version}-{arch}.sha256",
	}
}

func newTestManager(t *testing.T, target Target, runner Runner, prompter tui.Prompter) (*Manager, string) {
	t.Helper()
	cacheDir := t.TempDir()
	sel := mirror.NewSelector(cacheDir, 2*time.Second)
	dl := download.New(cacheDir, 2*time.Second, false)
	return NewManager(target, "x86_64", sel, dl, prompter, runner, progress.NewNopReporter()), cacheDir
}

func TestInstallLatestFromMirror(t *testing.T) {
	ds := newDemoServer(t, []string{"2.4.0", "2.5.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	runner := &FakeRunner{Outputs: map[string]string{
		target.ManualBinary + " --version": "demo version 2.5.0",
	}}
	prompter := &tui.Scripted{Confirms: []bool{false}} // keep the artifact
	mgr, _ := newTestManager(t, target, runner, prompter)

	if err := mgr.Install(context.Background(), ""); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if mgr.State() != StateInstalled {
		t.Errorf("State() = %v, want %v", mgr.State(), StateInstalled)
	}

	data, err := os.ReadFile(target.ManualBinary)
	if err != nil {
		t.Fatalf("placed binary: %v", err)
	}
	if !bytes.Equal(data, ds.payload) {
		t.Error("placed binary does not match the served artifact")
	}

	var checked bool
	for _, call := range runner.Calls {
		if call == target.ManualBinary+" --version" {
			checked = true
		}
	}
	if !checked {
		t.Errorf("post-install version check never ran: %v", runner.Calls)
	}
}

func TestInstallPinnedFromCacheSkipsNetwork(t *testing.T) {
	ds := newDemoServer(t, []string{"2.4.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	runner := &FakeRunner{}
	prompter := &tui.Scripted{} // unverified prompt falls through to its default
	mgr, cacheDir := newTestManager(t, target, runner, prompter)

	cached := filepath.Join(cacheDir, "demo-v2.4.0-x86_64")
	if err := os.WriteFile(cached, ds.payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Install(context.Background(), "2.4.0"); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if got := ds.hits.Load(); got != 0 {
		t.Errorf("artifact requests = %d, want 0 for a cached install", got)
	}
	if !fileutil.IsFile(target.ManualBinary) {
		t.Error("binary was not placed from the cache")
	}
}

func TestInstallKeepsExistingWhenDeclined(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"
	touch(t, target.ManualBinary)

	runner := &FakeRunner{OnPath: map[string]bool{"demo": true}}
	prompter := &tui.Scripted{Confirms: []bool{false}}
	mgr, _ := newTestManager(t, target, runner, prompter)

	if err := mgr.Install(context.Background(), ""); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if got := ds.hits.Load(); got != 0 {
		t.Errorf("artifact requests = %d, want 0 after declining a reinstall", got)
	}
	if len(prompter.Asked) == 0 || !strings.Contains(prompter.Asked[0], "Reinstall") {
		t.Errorf("reinstall confirmation was not asked: %v", prompter.Asked)
	}
}

func TestInstallCorruptDeclinedDeletesArtifact(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, true)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	runner := &FakeRunner{}
	prompter := &tui.Scripted{Confirms: []bool{false}} // refuse the corrupt artifact
	mgr, cacheDir := newTestManager(t, target, runner, prompter)

	err := mgr.Install(context.Background(), "2.5.0")
	if !errors.Is(err, cerrors.ErrDownloadFailed) {
		t.Fatalf("Install() = %v, want ErrDownloadFailed", err)
	}

	artifact := filepath.Join(cacheDir, "demo-v2.5.0-x86_64")
	if fileutil.Exists(artifact) {
		t.Error("declined corrupt artifact was not deleted")
	}
	if fileutil.Exists(artifact + ".sha256") {
		t.Error("digest of a declined corrupt artifact was not deleted")
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("corrupt artifact was placed anyway")
	}
}

func TestInstallCorruptAcceptedProceeds(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, true)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	runner := &FakeRunner{}
	// accept the corrupt artifact, then keep the download
	prompter := &tui.Scripted{Confirms: []bool{true, false}}
	mgr, _ := newTestManager(t, target, runner, prompter)

	if err := mgr.Install(context.Background(), "2.5.0"); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if !fileutil.IsFile(target.ManualBinary) {
		t.Error("accepted artifact was not placed")
	}
}

func TestUninstallAbsentIsNoOp(t *testing.T) {
	target := tempTarget(t)
	prompter := &tui.Scripted{}
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() = %v", err)
	}
	if len(prompter.Asked) != 0 {
		t.Errorf("confirmation asked for an absent install: %v", prompter.Asked)
	}
	if mgr.State() != StateNotInstalled {
		t.Errorf("State() = %v, want %v", mgr.State(), StateNotInstalled)
	}
}

func TestUninstallRemovesManualInstall(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.ManualBinary)

	prompter := &tui.Scripted{Confirms: []bool{true}}
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() = %v", err)
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("manual binary survived uninstall")
	}
	if mgr.State() != StateNotInstalled {
		t.Errorf("State() = %v, want %v", mgr.State(), StateNotInstalled)
	}
}

func TestInstallLatestNeverReprobesListingMirror(t *testing.T) {
	ds := newDemoServer(t, []string{"2.4.0", "2.5.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	prompter := &tui.Scripted{Confirms: []bool{false}} // keep the artifact
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Install(context.Background(), ""); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	// The mirror that answered the listing won the failover; its file URL
	// is used directly instead of being probed a second time.
	if got := ds.probes.Load(); got != 0 {
		t.Errorf("existence probes = %d, want 0 for a latest install", got)
	}
}

func TestInstallLatestPrefersCachedArtifact(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	prompter := &tui.Scripted{} // unverified prompt falls through to its default
	mgr, cacheDir := newTestManager(t, target, &FakeRunner{}, prompter)

	cached := filepath.Join(cacheDir, "demo-v2.5.0-x86_64")
	if err := os.WriteFile(cached, ds.payload, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Install(context.Background(), ""); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if got := ds.hits.Load(); got != 0 {
		t.Errorf("artifact requests = %d, want 0 when the latest version is cached", got)
	}
	if !fileutil.IsFile(target.ManualBinary) {
		t.Error("binary was not placed from the cache")
	}
}

func TestInstallVerifiesAgainstPublishedAssetName(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, false)
	target := tempTarget(t)
	ep := ds.endpoint()
	ep.SumURL = ds.srv.URL + "/files/demo-linux-{arch}.sha256"
	target.Endpoints = []mirror.Endpoint{ep}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"
	target.AssetPattern = "demo-linux-{arch}"

	runner := &FakeRunner{}
	prompter := &tui.Scripted{Confirms: []bool{false}} // keep the artifact
	mgr, _ := newTestManager(t, target, runner, prompter)

	if err := mgr.Install(context.Background(), "2.5.0"); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	// The digest listing names the published asset, not the cache file.
	// A match through the published name must count as verified, so no
	// override prompt may appear.
	for _, q := range prompter.Asked {
		if strings.Contains(q, "verification") || strings.Contains(q, "corrupt") {
			t.Errorf("verified artifact raised an override prompt: %v", prompter.Asked)
		}
	}
	if !fileutil.IsFile(target.ManualBinary) {
		t.Error("verified binary was not placed")
	}
}

func TestInstallUnverifiedDeclinedAborts(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, false)
	ds.noDigest = true
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"

	prompter := &tui.Scripted{Confirms: []bool{false}} // refuse the unverified artifact
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Install(context.Background(), "2.5.0"); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if mgr.State() != StateNotInstalled {
		t.Errorf("State() = %v, want %v", mgr.State(), StateNotInstalled)
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("declined unverified artifact was placed anyway")
	}
}

func TestUninstallConfirmDefaultsToYes(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.ManualBinary)

	prompter := &tui.Scripted{} // bare input accepts the default
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Uninstall(context.Background()); err != nil {
		t.Fatalf("Uninstall() = %v", err)
	}
	if len(prompter.Asked) == 0 || !strings.Contains(prompter.Asked[0], "Remove") {
		t.Errorf("removal confirmation was not asked: %v", prompter.Asked)
	}
	if fileutil.IsFile(target.ManualBinary) {
		t.Error("default-accepted uninstall removed nothing")
	}
}

func TestReinstallConfirmDefaultsToYes(t *testing.T) {
	ds := newDemoServer(t, []string{"2.5.0"}, false)
	target := tempTarget(t)
	target.Endpoints = []mirror.Endpoint{ds.endpoint()}
	target.Extract = release.ListingExtractor(demoPattern)
	target.CachePattern = "demo-v{version}-{arch}"
	touch(t, target.ManualBinary)

	prompter := &tui.Scripted{} // bare input accepts the default
	mgr, _ := newTestManager(t, target, &FakeRunner{}, prompter)

	if err := mgr.Install(context.Background(), ""); err != nil {
		t.Fatalf("Install() = %v", err)
	}
	if got := ds.hits.Load(); got == 0 {
		t.Error("default-accepted reinstall never fetched the artifact")
	}
	if mgr.State() != StateInstalled {
		t.Errorf("State() = %v, want %v", mgr.State(), StateInstalled)
	}
}

// leakyRemovalRunner mimics a package removal whose postrm deletes the
// system binary but leaves a stray copy in the manual location.
type leakyRemovalRunner struct {
	*FakeRunner
	deletes string
	creates string
}

func (r *leakyRemovalRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	out, err := r.FakeRunner.Run(ctx, name, args...)
	if err == nil && strings.Contains(name+" "+strings.Join(args, " "), "remove") {
		_ = os.Remove(r.deletes)
		_ = os.WriteFile(r.creates, []byte("#!/bin/sh\n"), 0o755)
	}
	return out, err
}

func TestUninstallResidualFailsLoudly(t *testing.T) {
	target := tempTarget(t)
	touch(t, target.PackagedBinary)
	touch(t, target.ManualBinary) // pre-create the parent dir, then clear it
	if err := os.Remove(target.ManualBinary); err != nil {
		t.Fatal(err)
	}

	base := &FakeRunner{
		OnPath:  map[string]bool{"apt": true, "apt-get": true},
		Outputs: map[string]string{"dpkg-query -W demo-ce": "demo-ce\t1.0"},
	}
	runner := &leakyRemovalRunner{
		FakeRunner: base,
		deletes:    target.PackagedBinary,
		creates:    target.ManualBinary,
	}
	prompter := &tui.Scripted{Confirms: []bool{true}}
	mgr, _ := newTestManager(t, target, runner, prompter)

	err := mgr.Uninstall(context.Background())
	if !errors.Is(err, cerrors.ErrUninstallIncomplete) {
		t.Fatalf("Uninstall() = %v, want ErrUninstallIncomplete", err)
	}
	var uerr *cerrors.UninstallError
	if !errors.As(err, &uerr) {
		t.Fatalf("Uninstall() error type = %T, want *UninstallError", err)
	}
	if len(uerr.Residual) == 0 {
		t.Error("UninstallError carries no residual paths")
	}
}

func TestInstallTarballMaterializesService(t *testing.T) {
	payload := makeTarball(t, map[string]string{
		"docker/docker":  "engine-cli",
		"docker/dockerd": "engine-daemon",
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/files/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".sha256") {
			sum := sha256.Sum256(payload)
			fmt.Fprintf(w, "%s\n", hex.EncodeToString(sum[:]))
			return
		}
		w.Write(payload)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	target := tempTarget(t)
	target.Kind = KindTarball
	target.BinDir = filepath.Dir(target.PackagedBinary)
	target.ServiceName = "demo"
	target.CachePattern = "demo-{version}.tgz"
	target.Endpoints = []mirror.Endpoint{{
		Name:    "test",
		FileURL: srv.URL + "/files/demo-{version}.tgz",
		SumURL:  srv.URL + "/files/demo-{version}.tgz.sha256",
	}}

	runner := &FakeRunner{}
	prompter := &tui.Scripted{Confirms: []bool{true}} // drop the artifact
	mgr, _ := newTestManager(t, target, runner, prompter)

	if err := mgr.Install(context.Background(), "1.0.0"); err != nil {
		t.Fatalf("Install() = %v", err)
	}

	for _, name := range []string{"docker", "dockerd"} {
		if !fileutil.IsFile(filepath.Join(target.BinDir, name)) {
			t.Errorf("tarball member %s was not placed", name)
		}
	}
	unit, err := os.ReadFile(target.UnitPath)
	if err != nil {
		t.Fatalf("unit file: %v", err)
	}
	if !strings.Contains(string(unit), "Restart=on-failure") {
		t.Error("unit file is missing the restart policy")
	}

	var reloaded, activated bool
	for _, call := range runner.Calls {
		switch call {
		case "systemctl daemon-reload":
			reloaded = true
		case "systemctl enable --now demo":
			activated = true
		}
	}
	if !reloaded || !activated {
		t.Errorf("service bring-up incomplete, calls: %v", runner.Calls)
	}
}

func makeTarball(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for name, body := range members {
		if err := tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o755,
			Size: int64(len(body)),
		}); err != nil {
			t.Fatal(err)
		}
		if _, err := tw.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
