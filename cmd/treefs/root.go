package main

import (
	"fmt"
	"io"
	"log/syslog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lsyslog "github.com/sirupsen/logrus/hooks/syslog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/treefs/treefs"
)

var rootCmd = &cobra.Command{
	Use:           "treefs <document> <mountpoint>",
	Short:         "Mount a tree document as a read-only virtual filesystem",
	Version:       treefs.Version,
	Args:          cobra.ExactArgs(2),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.String("log-level", "INFO", "logging verbosity (DEBUG, INFO, WARNING, ERROR, CRITICAL)")
	f.Bool("log-to-syslog", false, "route diagnostics to the system log instead of stdout")
	f.Float64("rate-limit", 0, "minimum delay between operations, in seconds")
	f.Int("iop-limit", 0, "maximum operations per second (0 disables)")
	f.Bool("report-stats", false, "log IOPS and throughput once per second")
	f.String("block-size", "128K", "block size for semi-random data generation")
	f.Int("pre-generated-blocks", treefs.DefaultBlockCount, "number of pre-generated semi-random blocks")
	f.Uint32("seed", treefs.DefaultSeed, "seed for semi-random block generation")
	f.String("fill-char", "", "single character used to fill read data (default: NUL)")
	f.Bool("semi-random", false, "serve semi-random file contents")
	f.Bool("no-macos-cache-files", false, "do not synthesize macOS indexer-suppression files")
	f.Bool("ignore-appledouble", false, "silence warnings for missing \"._\" companion files")
	f.Uint32("uid", uint32(os.Getuid()), "uid reported for every entry")
	f.Uint32("gid", uint32(os.Getgid()), "gid reported for every entry")
	f.String("mtime", "2017-10-17", "modification time for every entry (YYYY-MM-DD or epoch seconds)")
	f.String("unicode-normalization", treefs.DefaultNormalization, "path normalization form (NFC, NFD, NFKC, NFKD, none)")
	f.Bool("allow-other", false, "allow other users to access the mount")
	f.Bool("fuse-debug", false, "trace the FUSE protocol")

	rootCmd.MarkFlagsMutuallyExclusive("fill-char", "semi-random")

	viper.SetEnvPrefix("TREEFS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindPFlags(f); err != nil {
		logrus.Fatalf("binding flags: %v", err)
	}
}

func run(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()

	logger, err := setupLogging(v.GetString("log-level"), v.GetBool("log-to-syslog"))
	if err != nil {
		return err
	}

	opts, err := buildOptions(v, args[1], logger)
	if err != nil {
		return err
	}

	logger.Infof("starting treefs %s", treefs.Version)
	logBanner(logger, opts)

	tree, err := treefs.LoadFile(args[0], opts)
	if err != nil {
		return err
	}

	tfs, err := treefs.Mount(tree, opts)
	if err != nil {
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)
	go func() {
		s := <-sig
		logger.Infof("received %v, unmounting", s)
		if err := tfs.Unmount(); err != nil {
			logger.Errorf("unmount: %v", err)
		}
	}()

	return tfs.Wait()
}

// buildOptions assembles treefs options from the bound flag and
// environment values. Every rejected value wraps ErrInvalidConfig.
func buildOptions(v *viper.Viper, mountpoint string, logger *logrus.Logger) (*treefs.Options, error) {
	opts := treefs.DefaultOptions(mountpoint)
	opts.Logger = logger

	if fill := v.GetString("fill-char"); fill != "" {
		if len(fill) != 1 {
			return nil, fmt.Errorf("%w: fill-char must be a single character, got %q", treefs.ErrInvalidConfig, fill)
		}
		opts.FillByte = fill[0]
	}
	if v.GetBool("semi-random") {
		opts.Mode = treefs.SemiRandomMode
	}

	rate := v.GetFloat64("rate-limit")
	if rate < 0 {
		return nil, fmt.Errorf("%w: negative rate limit %v", treefs.ErrInvalidConfig, rate)
	}
	opts.RateLimit = time.Duration(rate * float64(time.Second))
	opts.IOPLimit = v.GetInt("iop-limit")
	opts.ReportStats = v.GetBool("report-stats")

	blockSize, err := treefs.ParseSize(v.GetString("block-size"))
	if err != nil {
		return nil, fmt.Errorf("%w: block-size: %v", treefs.ErrInvalidConfig, err)
	}
	opts.BlockSize = blockSize
	opts.BlockCount = v.GetInt("pre-generated-blocks")
	opts.Seed = v.GetUint32("seed")

	opts.UID = v.GetUint32("uid")
	opts.GID = v.GetUint32("gid")

	mtime, err := parseMTime(v.GetString("mtime"))
	if err != nil {
		return nil, err
	}
	opts.MTime = mtime

	opts.Normalization = v.GetString("unicode-normalization")
	opts.MacOSCacheFiles = !v.GetBool("no-macos-cache-files")
	opts.IgnoreAppleDouble = v.GetBool("ignore-appledouble")
	opts.AllowOther = v.GetBool("allow-other")
	opts.Debug = v.GetBool("fuse-debug")

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// parseMTime accepts a YYYY-MM-DD date or integer epoch seconds.
func parseMTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if epoch, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(epoch, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: mtime %q is neither YYYY-MM-DD nor epoch seconds", treefs.ErrInvalidConfig, s)
}

// setupLogging builds the process logger. The accepted level names
// match the enumeration tool's conventions.
func setupLogging(level string, toSyslog bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	switch strings.ToUpper(level) {
	case "DEBUG":
		logger.SetLevel(logrus.DebugLevel)
	case "INFO":
		logger.SetLevel(logrus.InfoLevel)
	case "WARNING":
		logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logger.SetLevel(logrus.ErrorLevel)
	case "CRITICAL":
		logger.SetLevel(logrus.FatalLevel)
	default:
		return nil, fmt.Errorf("%w: unknown log level %q", treefs.ErrInvalidConfig, level)
	}

	if toSyslog {
		hook, err := lsyslog.NewSyslogHook("", "", syslog.LOG_INFO, "treefs")
		if err != nil {
			return nil, fmt.Errorf("%w: connecting to syslog: %v", treefs.ErrInvalidConfig, err)
		}
		logger.AddHook(hook)
		logger.SetOutput(io.Discard)
	}

	return logger, nil
}

// logBanner records the effective configuration at startup.
func logBanner(logger *logrus.Logger, opts *treefs.Options) {
	mode := "fill"
	if opts.Mode == treefs.SemiRandomMode {
		mode = "semi-random"
	}
	logger.Infof("fill mode: %s", mode)
	if opts.Mode == treefs.SemiRandomMode {
		logger.Infof("block geometry: %d blocks of %s, seed %d",
			opts.BlockCount, treefs.HumanizeBytes(opts.BlockSize), opts.Seed)
	}
	logger.Infof("rate limit: %v, iop limit: %d", opts.RateLimit, opts.IOPLimit)
	logger.Infof("unicode normalization: %s", opts.Normalization)
}
