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
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssetNameFor(t *testing.T) {
	tests := []struct {
		goos, goarch string
		want         string
	}{
		{"linux", "amd64", "socratic_1.4.0_linux_amd64.tar.gz"},
		{"linux", "arm64", "socratic_1.4.0_linux_arm64.tar.gz"},
		{"darwin", "arm64", "socratic_1.4.0_darwin_arm64.tar.gz"},
		{"windows", "amd64", ""},
		{"linux", "386", ""},
	}
	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.goarch, func(t *testing.T) {
			got, err := assetNameFor("v1.4.0", tt.goos, tt.goarch)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseChecksums(t *testing.T) {
	got := parseChecksums([]byte("ABC123  socratic_1.4.0_linux_amd64.tar.gz\nbadline\n\nfoo bar baz\ndef456  checksums.sig\n"))
	assert.Equal(t, map[string]string{
		"socratic_1.4.0_linux_amd64.tar.gz": "abc123",
		"checksums.sig":                     "def456",
	}, got)
}

func TestResolve(t *testing.T) {
	c := NewChecker(WithBaseURL(releaseServer(t, "v2.0.0").URL))
	ctx := context.Background()

	tests := []struct {
		name    string
		in      UpdateInput
		want    string
		wantErr error
	}{
		{"latest", UpdateInput{CurrentVersion: "v1.0.0"}, "v2.0.0", nil},
		{"latest equals current", UpdateInput{CurrentVersion: "2.0.0"}, "", ErrAlreadyLatest},
		{"pinned newer", UpdateInput{CurrentVersion: "v1.0.0", TargetVersion: "1.5.0"}, "v1.5.0", nil},
		{"pinned same", UpdateInput{CurrentVersion: "v1.5.0", TargetVersion: "v1.5.0"}, "", ErrAlreadyLatest},
		{"pinned older", UpdateInput{CurrentVersion: "v1.5.0", TargetVersion: "v1.4.0"}, "", ErrDowngrade},
		{"pinned older allowed", UpdateInput{CurrentVersion: "v1.5.0", TargetVersion: "v1.4.0", AllowDowngrade: true}, "v1.4.0", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.resolve(ctx, &tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := c.resolve(ctx, &UpdateInput{CurrentVersion: "v1.0.0", TargetVersion: "nightly"})
	assert.Error(t, err)
}

// fakeRelease serves v2.0.0 of socratic with the given archive and
// checksum for this platform.
type fakeRelease struct {
	asset    string
	archive  []byte
	checksum string
}

func newFakeRelease(t *testing.T, bin []byte) *fakeRelease {
	t.Helper()
	asset, err := assetName("v2.0.0")
	if err != nil {
		t.Skipf("no release for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	archive := buildTarGz(t, "socratic", bin)
	sum := sha256.Sum256(archive)
	return &fakeRelease{asset: asset, archive: archive, checksum: hex.EncodeToString(sum[:])}
}

func (f *fakeRelease) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/abhisek/socratic/releases/latest":
			_, _ = w.Write([]byte(`{"tag_name":"v2.0.0","html_url":"https://example.com/v2.0.0"}`))
		case "/abhisek/socratic/releases/download/v2.0.0/" + f.asset:
			_, _ = w.Write(f.archive)
		case "/abhisek/socratic/releases/download/v2.0.0/checksums.txt":
			_, _ = fmt.Fprintf(w, "%s  %s\n", f.checksum, f.asset)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func installed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "socratic")
	require.NoError(t, os.WriteFile(path, []byte("old build"), 0o750))
	return path
}

func testChecker(srv *httptest.Server, execPath string, reported string) *Checker {
	return NewChecker(
		WithBaseURL(srv.URL),
		WithDownloadBaseURL(srv.URL),
		withExecPath(func() (string, error) { return execPath, nil }),
		withContainerCheck(func() bool { return false }),
		withRunVersion(func(_ context.Context, path string) (string, error) {
			if _, err := os.Stat(path); err != nil {
				return "", err
			}
			return reported, nil
		}),
	)
}

func TestUpdateInstallsAndKeepsBackup(t *testing.T) {
	rel := newFakeRelease(t, []byte("new build"))
	target := installed(t)
	c := testChecker(rel.server(t), target, "socratic v2.0.0\n")

	var stages []string
	res, err := c.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, func(p UpdateProgress) {
		stages = append(stages, p.Stage)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{StageResolve, StageFetch, StageVerify, StageSmoke, StageInstall}, stages)
	assert.Equal(t, "v2.0.0", res.To)

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "new build", string(got))
	info, err := os.Stat(target)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o750), info.Mode().Perm(), "mode of the replaced binary is kept")

	old, err := os.ReadFile(res.Backup)
	require.NoError(t, err)
	assert.Equal(t, "old build", string(old))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "staging dir is removed")

	restored, err := c.Rollback()
	require.NoError(t, err)
	got, err = os.ReadFile(restored)
	require.NoError(t, err)
	assert.Equal(t, "old build", string(got))

	_, err = c.Rollback()
	assert.ErrorIs(t, err, ErrNoBackup)
}

func TestUpdateSmokeTestFailureLeavesBinary(t *testing.T) {
	rel := newFakeRelease(t, []byte("broken build"))
	target := installed(t)

	for name, c := range map[string]*Checker{
		"wrong version": testChecker(rel.server(t), target, "socratic v1.9.0\n"),
		"does not start": NewChecker(
			WithBaseURL(rel.server(t).URL),
			WithDownloadBaseURL(rel.server(t).URL),
			withExecPath(func() (string, error) { return target, nil }),
			withContainerCheck(func() bool { return false }),
			withRunVersion(func(context.Context, string) (string, error) { return "", errors.New("exec format error") }),
		),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := c.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, func(UpdateProgress) {})
			assert.ErrorIs(t, err, ErrSmokeTest)

			got, err := os.ReadFile(target)
			require.NoError(t, err)
			assert.Equal(t, "old build", string(got))
			_, err = os.Stat(target + backupSuffix)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestUpdateChecksumMismatch(t *testing.T) {
	rel := newFakeRelease(t, []byte("new build"))
	rel.checksum = "0000000000000000000000000000000000000000000000000000000000000000"
	target := installed(t)

	_, err := testChecker(rel.server(t), target, "socratic v2.0.0").
		Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, func(UpdateProgress) {})
	assert.ErrorIs(t, err, ErrChecksum)
}

func TestUpdateMissingAsset(t *testing.T) {
	rel := newFakeRelease(t, []byte("new build"))
	rel.asset = "socratic_2.0.0_plan9_amd64.tar.gz"
	target := installed(t)

	_, err := testChecker(rel.server(t), target, "socratic v2.0.0").
		Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, func(UpdateProgress) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download archive")
}

func TestUpdateRefusals(t *testing.T) {
	noop := func(UpdateProgress) {}

	_, err := NewChecker().Update(context.Background(), &UpdateInput{CurrentVersion: "(devel)"}, noop)
	assert.ErrorIs(t, err, ErrDevBuild)

	c := NewChecker(withContainerCheck(func() bool { return true }))
	_, err = c.Update(context.Background(), &UpdateInput{CurrentVersion: "v1.0.0"}, noop)
	assert.ErrorIs(t, err, ErrContainer)
}

func TestExtractFromTarGz(t *testing.T) {
	archive := buildTarGz(t, "socratic_2.0.0_linux_amd64/socratic", []byte("bin"))
	got, err := extractFromTarGz(archive, "socratic")
	require.NoError(t, err)
	assert.Equal(t, "bin", string(got))

	_, err = extractFromTarGz(buildTarGz(t, "README.md", []byte("x")), "socratic")
	assert.ErrorContains(t, err, "not found")
}

func buildTarGz(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gw)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     name,
		Size:     int64(len(content)),
		Mode:     0o755,
		Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gw.Close())
	return buf.Bytes()
}
