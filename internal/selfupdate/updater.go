package selfupdate

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/mod/semver"
)

// binaryName is the executable inside release archives.
const binaryName = "socratic"

// backupSuffix names the copy of the replaced binary kept for Rollback.
const backupSuffix = ".previous"

// maxDownload caps a release archive. A socratic build is well under it.
const maxDownload = 128 << 20

// Update stages reported through the progress callback.
const (
	StageResolve = "resolve"
	StageFetch   = "fetch"
	StageVerify  = "verify"
	StageSmoke   = "smoke-test"
	StageInstall = "install"
)

var (
	ErrDevBuild      = errors.New("cannot update a development build")
	ErrAlreadyLatest = errors.New("already running the latest version")
	ErrChecksum      = errors.New("checksum verification failed")
	ErrDowngrade     = errors.New("target version is older than the running version")
	ErrContainer     = errors.New("running in a container; pull a new image instead")
	ErrNoBackup      = errors.New("no previous binary to roll back to")
	ErrSmokeTest     = errors.New("new binary failed its smoke test")
)

// UpdateInput selects the release to install. An empty TargetVersion
// installs the latest release.
type UpdateInput struct {
	CurrentVersion string
	TargetVersion  string
	// AllowDowngrade permits a TargetVersion older than CurrentVersion.
	AllowDowngrade bool
}

type UpdateProgress struct {
	Stage   string
	Message string
}

// UpdateResult describes an installed release.
type UpdateResult struct {
	From   string
	To     string
	Path   string
	Backup string
}

// Update downloads a release, verifies its checksum, runs the new binary's
// version command and only then swaps it in, keeping the old binary next
// to it for Rollback. The running process keeps its old image, so a
// `socratic serve` needs a restart to pick the new build up.
func (c *Checker) Update(ctx context.Context, input *UpdateInput, progress func(UpdateProgress)) (*UpdateResult, error) {
	if input.CurrentVersion == "" || input.CurrentVersion == "(devel)" {
		return nil, ErrDevBuild
	}
	if c.inContainer() {
		return nil, ErrContainer
	}

	progress(UpdateProgress{Stage: StageResolve, Message: "Resolving release..."})
	tag, err := c.resolve(ctx, input)
	if err != nil {
		return nil, err
	}

	asset, err := assetName(tag)
	if err != nil {
		return nil, err
	}
	base := fmt.Sprintf("%s/%s/%s/releases/download/%s", strings.TrimRight(c.downloadBaseURL, "/"), c.owner, c.repo, tag)

	progress(UpdateProgress{Stage: StageFetch, Message: fmt.Sprintf("Downloading %s...", asset)})
	archive, err := c.download(ctx, base+"/"+asset)
	if err != nil {
		return nil, fmt.Errorf("download archive: %w", err)
	}
	sums, err := c.download(ctx, base+"/checksums.txt")
	if err != nil {
		return nil, fmt.Errorf("download checksums: %w", err)
	}

	progress(UpdateProgress{Stage: StageVerify, Message: "Verifying checksum..."})
	want, ok := parseChecksums(sums)[asset]
	if !ok {
		return nil, fmt.Errorf("no checksum for %s in checksums.txt", asset)
	}
	if err := verifyChecksum(archive, want); err != nil {
		return nil, err
	}
	bin, err := extractFromTarGz(archive, binaryName)
	if err != nil {
		return nil, fmt.Errorf("extract binary: %w", err)
	}

	target, err := c.execPath()
	if err != nil {
		return nil, fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}

	staged, cleanup, err := stage(bin, target)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	progress(UpdateProgress{Stage: StageSmoke, Message: "Checking the new binary..."})
	if err := c.smokeTest(ctx, staged, tag); err != nil {
		return nil, err
	}

	progress(UpdateProgress{Stage: StageInstall, Message: fmt.Sprintf("Installing %s...", tag)})
	backup, err := install(staged, target)
	if err != nil {
		return nil, fmt.Errorf("install: %w", err)
	}
	return &UpdateResult{From: input.CurrentVersion, To: tag, Path: target, Backup: backup}, nil
}

// Rollback restores the binary replaced by the last Update.
func (c *Checker) Rollback() (string, error) {
	target, err := c.execPath()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	backup := target + backupSuffix
	if _, err := os.Stat(backup); errors.Is(err, os.ErrNotExist) {
		return "", ErrNoBackup
	}
	if err := os.Rename(backup, target); err != nil {
		return "", fmt.Errorf("restore %s: %w", backup, err)
	}
	return target, nil
}

// resolve picks the release tag to install.
func (c *Checker) resolve(ctx context.Context, input *UpdateInput) (string, error) {
	if input.TargetVersion == "" {
		res, err := c.Check(ctx, &CheckInput{Version: input.CurrentVersion})
		if err != nil {
			return "", fmt.Errorf("check for updates: %w", err)
		}
		if !res.UpdateAvailable {
			return "", ErrAlreadyLatest
		}
		return canonical(res.LatestVersion), nil
	}

	target, current := canonical(input.TargetVersion), canonical(input.CurrentVersion)
	if !semver.IsValid(target) {
		return "", fmt.Errorf("invalid target version %q", input.TargetVersion)
	}
	if semver.IsValid(current) {
		switch cmp := semver.Compare(target, current); {
		case cmp == 0:
			return "", ErrAlreadyLatest
		case cmp < 0 && !input.AllowDowngrade:
			return "", fmt.Errorf("%w: %s < %s", ErrDowngrade, target, current)
		}
	}
	return target, nil
}

// assetName is the archive for this platform. Releases ship Linux and macOS
// builds for amd64 and arm64 only.
func assetName(tag string) (string, error) {
	return assetNameFor(tag, runtime.GOOS, runtime.GOARCH)
}

func assetNameFor(tag, goos, goarch string) (string, error) {
	switch goos {
	case "linux", "darwin":
	default:
		return "", fmt.Errorf("no %s release for %s", binaryName, goos)
	}
	switch goarch {
	case "amd64", "arm64":
	default:
		return "", fmt.Errorf("no %s release for %s/%s", binaryName, goos, goarch)
	}
	return fmt.Sprintf("%s_%s_%s_%s.tar.gz", binaryName, strings.TrimPrefix(tag, "v"), goos, goarch), nil
}

func (c *Checker) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownload+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxDownload {
		return nil, fmt.Errorf("%s is larger than %d MiB", url, maxDownload>>20)
	}
	return data, nil
}

// parseChecksums reads a goreleaser checksums.txt ("<sha256>  <file>").
func parseChecksums(data []byte) map[string]string {
	out := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		parts := strings.Fields(line)
		if len(parts) != 2 {
			continue
		}
		out[parts[1]] = strings.ToLower(parts[0])
	}
	return out
}

func verifyChecksum(data []byte, wantHex string) error {
	h := sha256.Sum256(data)
	if got := hex.EncodeToString(h[:]); got != wantHex {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksum, wantHex, got)
	}
	return nil
}

func extractFromTarGz(data []byte, name string) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip: %w", err)
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read tar: %w", err)
		}
		if filepath.Base(hdr.Name) == name && hdr.Typeflag == tar.TypeReg {
			return io.ReadAll(io.LimitReader(tr, maxDownload))
		}
	}
	return nil, fmt.Errorf("binary %q not found in archive", name)
}

// stage writes the new binary next to target so the final rename stays on
// one filesystem. cleanup removes whatever install did not consume.
func stage(bin []byte, target string) (string, func(), error) {
	dir, err := os.MkdirTemp(filepath.Dir(target), "."+binaryName+"-update-*")
	if err != nil {
		return "", nil, fmt.Errorf("create staging dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	path := filepath.Join(dir, binaryName)
	if err := os.WriteFile(path, bin, 0o755); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write staged binary: %w", err)
	}
	return path, cleanup, nil
}

// runVersion executes `<path> version` and returns its output.
func runVersion(ctx context.Context, path string) (string, error) {
	out, err := exec.CommandContext(ctx, path, "version").Output()
	return string(out), err
}

// smokeTest requires the staged binary to start and report the tag.
func (c *Checker) smokeTest(ctx context.Context, path, tag string) error {
	out, err := c.runVersion(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSmokeTest, err)
	}
	if !strings.Contains(out, strings.TrimPrefix(tag, "v")) {
		return fmt.Errorf("%w: reported %q, want %s", ErrSmokeTest, strings.TrimSpace(out), tag)
	}
	return nil
}

// install moves target aside as the backup and renames staged over it,
// putting the backup back if the rename fails.
func install(staged, target string) (string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("stat target: %w", err)
	}
	if err := os.Chmod(staged, info.Mode().Perm()); err != nil {
		return "", fmt.Errorf("chmod staged binary: %w", err)
	}

	backup := target + backupSuffix
	_ = os.Remove(backup)
	if err := os.Link(target, backup); err != nil {
		return "", fmt.Errorf("keep previous binary: %w", err)
	}
	if err := os.Rename(staged, target); err != nil {
		_ = os.Remove(backup)
		return "", fmt.Errorf("replace binary: %w", err)
	}
	return backup, nil
}
