package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const maxStderrBytes = 8 * 1024

type StitchRequest struct {
	Clips        []string
	Output       string
	ClipDuration float64
	Transition   float64
	FPS          int
	Codec        string
	Threads      int
}

type Stitcher struct {
	ffmpegPath  string
	ffprobePath string
	logger      *zap.Logger
}

func NewStitcher(logger *zap.Logger) (*Stitcher, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	// ffprobe is optional; Probe falls back to parsing ffmpeg output.
	ffprobePath, _ := exec.LookPath("ffprobe")

	logger = logger.With(zap.String("component", "stitcher"))
	logger.Debug("found ffmpeg", zap.String("ffmpeg", ffmpegPath), zap.String("ffprobe", ffprobePath))

	return &Stitcher{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		logger:      logger,
	}, nil
}

func (s *Stitcher) Stitch(ctx context.Context, req StitchRequest) error {
	args, err := BuildStitchArgs(req)
	if err != nil {
		return err
	}

	s.logger.Debug("running ffmpeg", zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &tailWriter{buf: &stderr, limit: maxStderrBytes}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg stitch failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	if _, err := os.Stat(req.Output); err != nil {
		return fmt.Errorf("ffmpeg did not create %s: %w", req.Output, err)
	}
	return nil
}

// BuildStitchArgs renders the ffmpeg command line that trims every clip to
// ClipDuration, fades the first clip in and the last clip out, and chains
// crossfades so adjacent clips overlap by Transition seconds.
func BuildStitchArgs(req StitchRequest) ([]string, error) {
	n := len(req.Clips)
	if n == 0 {
		return nil, fmt.Errorf("no clips to stitch")
	}
	if req.Output == "" {
		return nil, fmt.Errorf("output path is required")
	}
	if req.ClipDuration <= 0 {
		return nil, fmt.Errorf("invalid clip duration: %f", req.ClipDuration)
	}
	if req.Transition < 0 || (n > 1 && req.Transition >= req.ClipDuration) {
		return nil, fmt.Errorf("transition %.3fs does not fit clip duration %.3fs", req.Transition, req.ClipDuration)
	}

	fps := req.FPS
	if fps <= 0 {
		fps = 24
	}
	codec := req.Codec
	if codec == "" {
		codec = "libx264"
	}

	args := []string{"-y", "-hide_banner", "-loglevel", "error"}
	for _, clip := range req.Clips {
		args = append(args, "-i", clip)
	}

	d := req.ClipDuration
	t := req.Transition

	var filters []string
	for i := 0; i < n; i++ {
		chain := fmt.Sprintf("[%d:v]tpad=stop_mode=clone:stop_duration=%s,trim=duration=%s,setpts=PTS-STARTPTS,fps=%d,format=yuv420p,settb=AVTB",
			i, ff(d), ff(d), fps)
		if t > 0 && i == 0 {
			chain += fmt.Sprintf(",fade=t=in:st=0:d=%s", ff(t))
		}
		if t > 0 && i == n-1 {
			chain += fmt.Sprintf(",fade=t=out:st=%s:d=%s", ff(d-t), ff(t))
		}
		filters = append(filters, chain+fmt.Sprintf("[v%d]", i))
	}

	last := "v0"
	for i := 1; i < n; i++ {
		out := fmt.Sprintf("x%d", i)
		offset := float64(i) * (d - t)
		filters = append(filters, fmt.Sprintf("[%s][v%d]xfade=transition=fade:duration=%s:offset=%s[%s]",
			last, i, ff(t), ff(offset), out))
		last = out
	}

	args = append(args,
		"-filter_complex", strings.Join(filters, ";"),
		"-map", "["+last+"]",
		"-an",
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(fps),
	)
	if req.Threads > 0 {
		args = append(args, "-threads", strconv.Itoa(req.Threads))
	}
	args = append(args, req.Output)

	return args, nil
}

// TimelineDuration is the runtime of the stitched video.
func TimelineDuration(n int, clipDuration, transition float64) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n)*clipDuration - float64(n-1)*transition
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// tailWriter keeps only the last limit bytes written to it.
type tailWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *tailWriter) Write(p []byte) (int, error) {
	n := len(p)
	w.buf.Write(p)
	if w.buf.Len() > w.limit {
		b := w.buf.Bytes()
		tail := append([]byte(nil), b[len(b)-w.limit:]...)
		w.buf.Reset()
		w.buf.Write(tail)
	}
	return n, nil
}
