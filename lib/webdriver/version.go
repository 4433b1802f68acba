package webdriver

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
)

// Version is a parsed browser or driver version.
type Version struct {
	Full  string
	Major int
}

var versionRegex = regexp.MustCompile(`\d+(?:\.\d+){1,3}`)

// ParseVersion extracts a dotted version out of `--version` style
// output, e.g. "Google Chrome 122.0.6261.94" or "ChromeDriver
// 122.0.6261.94 (...)".
func ParseVersion(output string) (Version, error) {
	full := versionRegex.FindString(output)
	if full == "" {
		return Version{}, fmt.Errorf("no version found in %q", strings.TrimSpace(output))
	}
	major, err := strconv.Atoi(strings.SplitN(full, ".", 2)[0])
	if err != nil {
		return Version{}, err
	}
	return Version{Full: full, Major: major}, nil
}

// ChromeBinary returns the browser binary to use, honoring the
// GOOGLE_CHROME_BIN override the container images set.
func ChromeBinary() string {
	if bin := os.Getenv("GOOGLE_CHROME_BIN"); bin != "" {
		return bin
	}
	return "google-chrome"
}

func versionOf(ctx context.Context, binary string) (Version, error) {
	out, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return Version{}, fmt.Errorf("run %s --version: %w", binary, err)
	}
	return ParseVersion(string(out))
}

// DetectChrome reports the version of the installed browser.
func DetectChrome(ctx context.Context) (Version, error) {
	return versionOf(ctx, ChromeBinary())
}

// DetectDriver reports the version of a chromedriver binary.
func DetectDriver(ctx context.Context, driverPath string) (Version, error) {
	return versionOf(ctx, driverPath)
}
