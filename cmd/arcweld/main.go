// Command arcweld rewrites runs of G0/G1 moves in a G-code file into G2/G3
// arcs within a configured tolerance envelope (spec §1).
//
// Grounded on the teacher's main.go: a flat list of flags, validate-then-
// os.Exit on misuse, then a single pass over the input. Unlike the teacher
// (ioutil.ReadFile of the whole document into an in-memory vm.Machine), this
// CLI streams the input and output files line by line, since the welder is a
// line-at-a-time state machine rather than a batch VM.
package main

import (
	"bufio"
	"fmt"
	"os"
	"time"

	"github.com/cheggaaa/pb/v3"
	flag "github.com/spf13/pflag"

	"arcweld/arcfit"
	"arcweld/internal/weldlog"
	"arcweld/progress"
	"arcweld/welder"
)

const version = "1.0.0"

var (
	inputFile  = flag.String("input", "", "G-code file to process")
	outputFile = flag.String("output", "", "Location to write the processed G-code")

	resolutionMM         = flag.Float64("resolution_mm", 0.05, "Absolute chord-deviation cap (mm)")
	pathTolerancePercent = flag.Float64("path_tolerance_percent", 0.05, "Relative per-segment length cap (0-1)")
	maxRadiusMM          = flag.Float64("max_radius_mm", 1000, "Reject arcs with a larger radius (mm)")
	minArcSegments       = flag.Int("min_arc_segments", 0, "Firmware-interpolation floor: minimum segments per arc (0 disables)")
	mmPerArcSegment      = flag.Float64("mm_per_arc_segment", 0, "Firmware-interpolation floor: mm per segment (0 disables)")
	g90InfluencesExtruder = flag.Bool("g90_influences_extruder", false, "G90/G91 also switch extruder mode")
	allow3DArcs          = flag.Bool("allow_3d_arcs", false, "Permit helical (Z-progressing) arcs")
	allowDynamicPrecision = flag.Bool("allow_dynamic_precision", false, "Track max observed decimal places per axis and widen arc precision to match")
	defaultXYZPrecision  = flag.Int("default_xyz_precision", 3, "Initial/floor decimal precision for X/Y/Z/I/J")
	defaultEPrecision    = flag.Int("default_e_precision", 5, "Initial/floor decimal precision for E")
	bufferSize           = flag.Int("buffer_size", 200, "Upper bound on open-run length")
	extruderCount        = flag.Int("extruder_count", 1, "Number of extruders to initialize tracking for")

	progressInterval = flag.Int("progress_interval", 1, "Seconds between progress callback invocations (notification_period_seconds)")
	quiet            = flag.Bool("quiet", false, "Suppress the terminal progress bar")

	logLevel      = flag.String("log_level", "info", "debug|info|warn|error")
	logFile       = flag.String("log_file", "", "Optional rotating log file path")
	logMaxSizeMB  = flag.Int("log_max_size_mb", 100, "Log file rotation size (MB)")
	logMaxBackups = flag.Int("log_max_backups", 3, "Rotated log files to retain")
	logMaxAgeDays = flag.Int("log_max_age_days", 28, "Days to retain rotated log files")
)

// result mirrors spec §6's exit-codes/results shape.
type result struct {
	Success       bool
	Cancelled     bool
	FinalProgress progress.Snapshot
	Message       string
}

func main() {
	flag.Parse()
	if *inputFile == "" || *outputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --input and --output are both required")
		flag.Usage()
		os.Exit(1)
	}

	logger := weldlog.New(weldlog.Config{
		Level:      parseLogLevel(*logLevel),
		File:       *logFile,
		MaxSizeMB:  *logMaxSizeMB,
		MaxBackups: *logMaxBackups,
		MaxAgeDays: *logMaxAgeDays,
	})
	defer logger.Sync()

	res := run(logger)
	logger.Sync()

	if !res.Success {
		if res.Message != "" {
			fmt.Fprintf(os.Stderr, "Error: %s\n", res.Message)
		}
		if res.Cancelled {
			os.Exit(130)
		}
		os.Exit(2)
	}
}

func run(logger *weldlog.Logger) result {
	in, err := os.Open(*inputFile)
	if err != nil {
		return result{Message: fmt.Sprintf("could not open input: %s", err)}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return result{Message: fmt.Sprintf("could not stat input: %s", err)}
	}
	totalBytes := info.Size()

	out, err := os.Create(*outputFile)
	if err != nil {
		return result{Message: fmt.Sprintf("could not create output: %s", err)}
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	defer w.Flush()

	var bytesWritten int64
	bytesWritten += writeHeader(w)

	cfg := welder.Config{
		Arc: arcfit.Config{
			ResolutionMM:         *resolutionMM,
			PathTolerancePercent: *pathTolerancePercent,
			MaxRadiusMM:          *maxRadiusMM,
			MinArcSegments:       *minArcSegments,
			MMPerArcSegment:      *mmPerArcSegment,
			Allow3DArcs:          *allow3DArcs,
			MinSegments:          3,
			MaxSegments:          *bufferSize,
			XYZPrecision:         *defaultXYZPrecision,
			EPrecision:           *defaultEPrecision,
		},
		G90InfluencesExtruder: *g90InfluencesExtruder,
		AllowDynamicPrecision: *allowDynamicPrecision,
		ExtruderCount:         *extruderCount,
		Output: func(line string) error {
			n, err := w.WriteString(line + "\n")
			bytesWritten += int64(n)
			return err
		},
	}
	histogramBoundaries := []float64{1, 5, 10, 25, 50, 100}
	weld := welder.New(cfg, histogramBoundaries)

	var bar *pb.ProgressBar
	if !*quiet {
		bar = pb.Full.Start64(totalBytes)
	}

	cancel := make(chan struct{})
	registerSignals(cancel)

	reporter := progress.NewReporter(time.Duration(*progressInterval)*time.Second, func(snap progress.Snapshot, l *weldlog.Logger) bool {
		if bar != nil {
			bar.SetCurrent(snap.BytesRead)
		}
		l.Debugf("progress: %d/%d bytes, %d lines, %d arcs", snap.BytesRead, snap.TotalBytes, snap.LinesProcessed, snap.ArcsCreated)
		select {
		case <-cancel:
			return false
		default:
			return true
		}
	}, logger)

	start := time.Now()
	var bytesRead int64
	snapshot := func() progress.Snapshot {
		ratio, percent := progress.ComputeCompression(bytesRead, bytesWritten)
		return progress.Snapshot{
			BytesRead:             bytesRead,
			TotalBytes:            totalBytes,
			LinesProcessed:        weld.Counters.LinesProcessed,
			GCodesProcessed:       weld.Counters.GCodesProcessed,
			Elapsed:               time.Since(start),
			CompressionRatio:      ratio,
			CompressionPercent:    percent,
			ArcsCreated:           weld.Counters.ArcsCreated,
			PointsCompressed:      weld.Counters.PointsCompressed,
			FirmwareCompensations: weld.Counters.FirmwareCompensations,
			OriginalHistogram:     weld.Stats.Original.Snapshot(),
			CompressedHistogram:   weld.Stats.Compressed.Snapshot(),
		}
	}

	reporter.Start(snapshot())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	cancelled := false
	for scanner.Scan() {
		line := scanner.Text()
		bytesRead += int64(len(line)) + 1
		if err := weld.ProcessLine(line); err != nil {
			if bar != nil {
				bar.Finish()
			}
			return result{Message: fmt.Sprintf("processing failed: %s", err), FinalProgress: snapshot()}
		}
		if !reporter.Tick(snapshot()) {
			cancelled = true
			break
		}
	}
	if err := scanner.Err(); err != nil {
		if bar != nil {
			bar.Finish()
		}
		return result{Message: fmt.Sprintf("read error: %s", err), FinalProgress: snapshot()}
	}

	if err := weld.Finish(); err != nil {
		if bar != nil {
			bar.Finish()
		}
		return result{Message: fmt.Sprintf("finalize failed: %s", err), FinalProgress: snapshot()}
	}
	if err := w.Flush(); err != nil {
		return result{Message: fmt.Sprintf("write error: %s", err), FinalProgress: snapshot()}
	}

	final := snapshot()
	reporter.End(final)
	if bar != nil {
		bar.Finish()
	}

	return result{Success: !cancelled, Cancelled: cancelled, FinalProgress: final}
}

// writeHeader writes the arcweld configuration header and returns the number
// of bytes written, so the caller can fold it into the output byte count
// used for compression-ratio reporting.
func writeHeader(w *bufio.Writer) int64 {
	var n int64
	printf := func(format string, args ...any) {
		c, _ := fmt.Fprintf(w, format, args...)
		n += int64(c)
	}
	printf("; arcweld version=%s\n", version)
	printf("; resolution=%.2fmm\n", *resolutionMM)
	printf("; path_tolerance=%.0f%%\n", *pathTolerancePercent*100)
	printf("; max_radius=%.2fmm\n", *maxRadiusMM)
	if *mmPerArcSegment > 0 && *minArcSegments > 0 {
		printf("; firmware_compensation=True\n")
		printf("; mm_per_arc_segment=%.2fmm\n", *mmPerArcSegment)
		printf("; min_arc_segments=%d\n", *minArcSegments)
	}
	if *allow3DArcs {
		printf("; allow_3d_arcs=True\n")
	}
	if *allowDynamicPrecision {
		printf("; allow_dynamic_precision=True\n")
	}
	printf("; default_xyz_precision=%d\n", *defaultXYZPrecision)
	printf("; default_e_precision=%d\n\n", *defaultEPrecision)
	return n
}

func parseLogLevel(s string) weldlog.Level {
	switch s {
	case "debug":
		return weldlog.DebugLevel
	case "warn":
		return weldlog.WarnLevel
	case "error":
		return weldlog.ErrorLevel
	default:
		return weldlog.InfoLevel
	}
}
