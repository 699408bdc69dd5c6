// Package downloads runs the external media downloader and drains the
// download queue.
package downloads

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"archivarr/internal/domain/consts"
	"archivarr/internal/domain/errs"
	"archivarr/internal/logging"
	"archivarr/internal/models"
)

// Progress is one parsed progress line from the downloader.
type Progress struct {
	Percent float64
	Speed   string
	ETA     string
}

// Result describes a finished media download.
type Result struct {
	VideoPath     string
	ThumbnailPath string
	Quality       string
	SizeBytes     int64
}

// Options carry the per-run download settings.
type Options struct {
	StorageDir string
	MaxQuality string // "1080p", "720p", ...
}

// Downloader fetches one video's media into the per-video storage
// directory, reporting progress as it goes.
type Downloader interface {
	Download(ctx context.Context, v *models.Video, opts Options, onProgress func(Progress)) (*Result, error)
}

// YTDLP shells out to yt-dlp.
type YTDLP struct {
	Bin string
}

// NewYTDLP returns a downloader using the given binary, defaulting to
// yt-dlp on PATH.
func NewYTDLP(bin string) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &YTDLP{Bin: bin}
}

// progressRx matches yt-dlp's --newline progress output, e.g.
// "[download]  42.3% of ~120.51MiB at 3.52MiB/s ETA 00:21".
var progressRx = regexp.MustCompile(`\[download\]\s+(\d+(?:\.\d+)?)%(?:\s+of\s+~?\s*\S+)?(?:\s+at\s+(\S+))?(?:\s+ETA\s+(\S+))?`)

// Download runs yt-dlp for the video, capped at the configured maximum
// quality with graceful degradation when the source has nothing that
// tall. Media lands at <storage>/videos/<remoteID>/video.mp4 plus
// thumbnail.jpg. Failures come back pre-classified.
func (y *YTDLP) Download(ctx context.Context, v *models.Video, opts Options, onProgress func(Progress)) (*Result, error) {
	destDir := filepath.Join(opts.StorageDir, consts.VideosSubdir, v.RemoteID)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, errs.NewDownloadError(errs.KindStorage, fmt.Errorf("failed to create video directory: %w", err))
	}

	height := qualityHeight(opts.MaxQuality)
	args := []string{
		"-f", fmt.Sprintf("bestvideo[height<=%d]+bestaudio/best[height<=%d]/best", height, height),
		"--merge-output-format", "mp4",
		"--newline",
		"--no-playlist",
		"--write-thumbnail",
		"--convert-thumbnails", "jpg",
		"-o", filepath.Join(destDir, "video.%(ext)s"),
		"-o", "thumbnail:" + filepath.Join(destDir, "thumbnail.%(ext)s"),
		"https://www.youtube.com/watch?v=" + v.RemoteID,
	}

	cmd := exec.CommandContext(ctx, y.Bin, args...)
	logging.D(2, "Built download command for video %q: %v", v.RemoteID, cmd.String())

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errs.NewDownloadError(errs.KindTransient, fmt.Errorf("stdout pipe error: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errs.NewDownloadError(errs.KindTransient, fmt.Errorf("stderr pipe error: %w", err))
	}

	if err := cmd.Start(); err != nil {
		return nil, errs.NewDownloadError(errs.KindTransient, fmt.Errorf("failed to start downloader: %w", err))
	}

	var (
		tail tailBuffer
		wg   sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(io.MultiReader(stdout, stderr))
		scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			logging.D(4, "Video %q downloader output: %q", v.RemoteID, line)
			tail.add(line)

			if m := progressRx.FindStringSubmatch(line); m != nil && onProgress != nil {
				pct, _ := strconv.ParseFloat(m[1], 64)
				onProgress(Progress{Percent: pct, Speed: m[2], ETA: m[3]})
			}
		}
	}()

	wg.Wait()
	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errs.ClassifyDownload(fmt.Errorf("downloader failed: %w", err), tail.String())
	}

	videoPath := filepath.Join(destDir, consts.VideoFileName)
	info, err := os.Stat(videoPath)
	if err != nil {
		return nil, errs.ClassifyDownload(fmt.Errorf("downloaded file missing: %w", err), tail.String())
	}
	if info.Size() == 0 {
		return nil, errs.NewDownloadError(errs.KindTransient, fmt.Errorf("downloaded file %q is empty", videoPath))
	}

	res := &Result{
		VideoPath: videoPath,
		Quality:   opts.MaxQuality,
		SizeBytes: info.Size(),
	}

	thumbPath := filepath.Join(destDir, consts.ThumbnailFileName)
	if _, err := os.Stat(thumbPath); err == nil {
		res.ThumbnailPath = thumbPath
	} else {
		logging.D(1, "No thumbnail written for video %q", v.RemoteID)
	}

	return res, nil
}

// ******************************** Private ********************************

// qualityHeight converts a quality label like "1080p" to a pixel
// height, defaulting to 1080 on anything unparseable.
func qualityHeight(q string) int {
	q = strings.TrimSuffix(strings.TrimSpace(strings.ToLower(q)), "p")
	h, err := strconv.Atoi(q)
	if err != nil || h <= 0 {
		return 1080
	}
	return h
}

// tailBuffer retains the last few output lines for error
// classification.
type tailBuffer struct {
	mu    sync.Mutex
	lines []string
}

const tailLines = 40

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLines {
		t.lines = t.lines[len(t.lines)-tailLines:]
	}
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
