package webdriver

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/webdriver")

// chrome switched driver distribution to chrome-for-testing at 115,
// older majors still resolve through the legacy bucket
const cftSplitMajor = 115

const (
	defaultCftEndpoint    = "https://googlechromelabs.github.io/chrome-for-testing"
	defaultCftDownload    = "https://storage.googleapis.com/chrome-for-testing-public"
	defaultLegacyEndpoint = "https://chromedriver.storage.googleapis.com"
	driverDownloadTimeout = time.Minute * 3
	versionResolveTimeout = time.Second * 15
)

// Provisioner installs a chromedriver binary matching the installed
// browser. Any failure along the way is terminal, a scraper with a
// mismatched driver pair cannot do anything useful.
type Provisioner struct {
	// directory the driver binary is installed into
	InstallDir string

	// endpoint overrides for tests
	CftEndpoint    string
	CftDownload    string
	LegacyEndpoint string

	http *resty.Client
}

func NewProvisioner(installDir string) *Provisioner {
	client := resty.New()
	client.SetTimeout(driverDownloadTimeout)
	return &Provisioner{
		InstallDir:     installDir,
		CftEndpoint:    defaultCftEndpoint,
		CftDownload:    defaultCftDownload,
		LegacyEndpoint: defaultLegacyEndpoint,
		http:           client,
	}
}

// ResolveDriverVersion finds the newest driver release for a browser
// major version.
func (p *Provisioner) ResolveDriverVersion(ctx context.Context, major int) (string, error) {
	ctx, span := tracer.Start(ctx, "ResolveDriverVersion")
	defer span.End()
	span.SetAttributes(attribute.Int("chrome_major", major))

	ctx, cancel := context.WithTimeout(ctx, versionResolveTimeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/LATEST_RELEASE_%d", p.CftEndpoint, major)
	if major < cftSplitMajor {
		endpoint = fmt.Sprintf("%s/LATEST_RELEASE_%d", p.LegacyEndpoint, major)
	}

	res, err := p.http.R().SetContext(ctx).Get(endpoint)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve driver version")
		return "", err
	}
	if res.IsError() {
		err = fmt.Errorf("resolve driver version: %s returned %d", endpoint, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve driver version")
		return "", err
	}

	version := strings.TrimSpace(res.String())
	span.SetAttributes(attribute.String("driver_version", version))
	return version, nil
}

func driverPlatform() (string, error) {
	switch runtime.GOOS + "/" + runtime.GOARCH {
	case "linux/amd64":
		return "linux64", nil
	case "darwin/arm64":
		return "mac-arm64", nil
	case "darwin/amd64":
		return "mac-x64", nil
	case "windows/amd64":
		return "win64", nil
	}
	return "", fmt.Errorf("no chromedriver build for %s/%s", runtime.GOOS, runtime.GOARCH)
}

func (p *Provisioner) downloadUrl(version string, major int) (string, error) {
	platform, err := driverPlatform()
	if err != nil {
		return "", err
	}
	if major < cftSplitMajor {
		// the legacy bucket used a different naming scheme
		legacy := map[string]string{
			"linux64":   "linux64",
			"mac-x64":   "mac64",
			"mac-arm64": "mac_arm64",
			"win64":     "win32",
		}[platform]
		return fmt.Sprintf("%s/%s/chromedriver_%s.zip", p.LegacyEndpoint, version, legacy), nil
	}
	return fmt.Sprintf(
		"%s/%s/%s/chromedriver-%s.zip",
		p.CftDownload, version, platform, platform,
	), nil
}

// downloads the driver archive and extracts the chromedriver binary
// out of it
func (p *Provisioner) fetchDriver(ctx context.Context, version string, major int) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "fetchDriver")
	defer span.End()

	url, err := p.downloadUrl(version, major)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no download url")
		return nil, err
	}
	span.SetAttributes(attribute.String("url", url))

	res, err := p.http.R().SetContext(ctx).Get(url)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "driver download failed")
		return nil, fmt.Errorf("download chromedriver: %w", err)
	}
	if res.IsError() {
		err = fmt.Errorf("download chromedriver: %s returned %d", url, res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "driver download failed")
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(res.Body()), int64(len(res.Body())))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "driver archive unreadable")
		return nil, fmt.Errorf("read chromedriver archive: %w", err)
	}

	for _, f := range reader.File {
		name := filepath.Base(f.Name)
		if name != "chromedriver" && name != "chromedriver.exe" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}

	err = fmt.Errorf("no chromedriver binary in archive %s", url)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return nil, err
}

func driverFilename() string {
	if runtime.GOOS == "windows" {
		return "chromedriver.exe"
	}
	return "chromedriver"
}

// Install provisions a driver matching the given browser version and
// returns the path of the installed binary.
func (p *Provisioner) Install(ctx context.Context, chrome Version) (string, error) {
	ctx, span := tracer.Start(ctx, "Install")
	defer span.End()
	span.SetAttributes(attribute.String("chrome_version", chrome.Full))

	driverVersion, err := p.ResolveDriverVersion(ctx, chrome.Major)
	if err != nil {
		return "", err
	}

	binary, err := p.fetchDriver(ctx, driverVersion, chrome.Major)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(p.InstallDir, 0777)
	if err != nil {
		return "", err
	}
	target := filepath.Join(p.InstallDir, driverFilename())
	err = os.WriteFile(target, binary, 0755)
	if err != nil {
		return "", fmt.Errorf("install chromedriver: %w", err)
	}

	slog.InfoContext(
		ctx, "installed chromedriver",
		"path", target,
		"version", driverVersion,
	)
	return target, nil
}

// Verify checks that the installed driver actually runs and agrees
// with the browser on major version.
func Verify(ctx context.Context, driverPath string, chrome Version) error {
	driver, err := DetectDriver(ctx, driverPath)
	if err != nil {
		return err
	}
	if driver.Major != chrome.Major {
		return fmt.Errorf(
			"driver/browser major version mismatch: chromedriver %s vs chrome %s",
			driver.Full, chrome.Full,
		)
	}
	return nil
}
