package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"padelscout-backend/lib/scrapers/playtomic"
	"padelscout-backend/lib/timezone"
)

const artifactStamp = "2006-01-02_15-04-05"

func artifactSlug(clubName string) string {
	return strings.ReplaceAll(clubName, " ", "_")
}

// writeArtifacts drops the parsed availability as json plus the page
// screenshot into their configured directories. Artifact failures are
// logged and swallowed, they never fail a club.
func (s Service) writeArtifacts(ctx context.Context, clubName string, availability playtomic.ClubAvailability, screenshot []byte) {
	stamp := timezone.Now().Format(artifactStamp)

	if s.options.ArtifactsDir != "" {
		name := fmt.Sprintf("court_data_%s_%s.json", artifactSlug(clubName), stamp)
		err := writeJsonArtifact(filepath.Join(s.options.ArtifactsDir, name), availability)
		if err != nil {
			slog.WarnContext(ctx, "failed to write artifact",
				"club", clubName,
				"err", err,
			)
		}
	}

	if s.options.ScreenshotsDir != "" && len(screenshot) > 0 {
		name := fmt.Sprintf("screenshot_%s_%s.png", artifactSlug(clubName), stamp)
		err := writeScreenshot(filepath.Join(s.options.ScreenshotsDir, name), screenshot)
		if err != nil {
			slog.WarnContext(ctx, "failed to write screenshot",
				"club", clubName,
				"err", err,
			)
		}
	}
}

func writeJsonArtifact(path string, availability playtomic.ClubAvailability) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	buf, err := json.MarshalIndent(availability, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func writeScreenshot(path string, screenshot []byte) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}
	return os.WriteFile(path, screenshot, 0644)
}

// PruneArtifacts deletes artifacts and screenshots older than maxAge,
// long running loops would otherwise fill the disk.
func (s Service) PruneArtifacts(ctx context.Context, maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)
	for _, dir := range []string{s.options.ArtifactsDir, s.options.ScreenshotsDir} {
		if dir == "" {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil || info.IsDir() {
				continue
			}
			if info.ModTime().Before(cutoff) {
				err := os.Remove(filepath.Join(dir, entry.Name()))
				if err != nil {
					slog.WarnContext(ctx, "failed to prune artifact",
						"file", entry.Name(),
						"err", err,
					)
				}
			}
		}
	}
}
