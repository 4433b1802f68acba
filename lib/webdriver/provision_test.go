package webdriver

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	for _, tc := range []struct {
		output string
		full   string
		major  int
	}{
		{"Google Chrome 122.0.6261.94 \n", "122.0.6261.94", 122},
		{"Chromium 114.0.5735.90 snap", "114.0.5735.90", 114},
		{"ChromeDriver 122.0.6261.94 (12ab34cd-refs/branch-heads)", "122.0.6261.94", 122},
	} {
		v, err := ParseVersion(tc.output)
		require.NoError(t, err, tc.output)
		require.Equal(t, tc.full, v.Full)
		require.Equal(t, tc.major, v.Major)
	}

	_, err := ParseVersion("command not found")
	require.Error(t, err)
}

func TestChromeBinaryOverride(t *testing.T) {
	t.Setenv("GOOGLE_CHROME_BIN", "/opt/chrome/chrome")
	require.Equal(t, "/opt/chrome/chrome", ChromeBinary())

	t.Setenv("GOOGLE_CHROME_BIN", "")
	require.Equal(t, "google-chrome", ChromeBinary())
}

func TestResolveDriverVersion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/LATEST_RELEASE_122":
			w.Write([]byte("122.0.6261.94\n"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p := NewProvisioner(t.TempDir())
	p.CftEndpoint = server.URL
	p.LegacyEndpoint = server.URL

	version, err := p.ResolveDriverVersion(context.Background(), 122)
	require.NoError(t, err)
	require.Equal(t, "122.0.6261.94", version)

	_, err = p.ResolveDriverVersion(context.Background(), 999)
	require.Error(t, err)
}

func driverZip(t *testing.T, entryName string, contents []byte) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	f, err := zw.Create(entryName)
	require.NoError(t, err)
	_, err = f.Write(contents)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestInstall(t *testing.T) {
	fakeDriver := []byte("#!/bin/sh\necho \"ChromeDriver 122.0.6261.94\"\n")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/LATEST_RELEASE_122":
			w.Write([]byte("122.0.6261.94"))
		case strings.HasSuffix(r.URL.Path, ".zip"):
			require.Contains(t, r.URL.Path, "/122.0.6261.94/")
			w.Write(driverZip(t, "chromedriver-linux64/chromedriver", fakeDriver))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	installDir := t.TempDir()
	p := NewProvisioner(installDir)
	p.CftEndpoint = server.URL
	p.CftDownload = server.URL
	p.LegacyEndpoint = server.URL

	path, err := p.Install(context.Background(), Version{Full: "122.0.6261.94", Major: 122})
	require.NoError(t, err)
	require.Equal(t, filepath.Join(installDir, driverFilename()), path)

	installed, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, fakeDriver, installed)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		require.NotZero(t, info.Mode()&0111)
	}
}

func TestInstallDownloadFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/LATEST_RELEASE_122" {
			w.Write([]byte("122.0.6261.94"))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	p := NewProvisioner(t.TempDir())
	p.CftEndpoint = server.URL
	p.CftDownload = server.URL
	p.LegacyEndpoint = server.URL

	_, err := p.Install(context.Background(), Version{Full: "122.0.6261.94", Major: 122})
	require.Error(t, err)
}

func TestVerify(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script driver stub")
	}

	dir := t.TempDir()
	driver := filepath.Join(dir, "chromedriver")
	err := os.WriteFile(driver, []byte("#!/bin/sh\necho \"ChromeDriver 122.0.6261.94 (refs/heads)\"\n"), 0755)
	require.NoError(t, err)

	err = Verify(context.Background(), driver, Version{Full: "122.0.6261.128", Major: 122})
	require.NoError(t, err)

	err = Verify(context.Background(), driver, Version{Full: "123.0.6312.58", Major: 123})
	require.Error(t, err)
	require.Contains(t, err.Error(), "mismatch")
}
