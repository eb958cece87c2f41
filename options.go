package treefs

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Options configures the loaded tree and the mounted filesystem.
//
// Use DefaultOptions() for sensible defaults, then customize. Validate
// reports the first rejected value wrapped in ErrInvalidConfig.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	Mountpoint string

	// Mode selects the content synthesis strategy.
	Mode SynthMode

	// FillByte is the byte repeated in FillMode.
	FillByte byte

	// RateLimit is the minimum spacing between operations. Zero
	// disables pacing.
	RateLimit time.Duration

	// IOPLimit caps admitted operations per second. Zero disables
	// the budget.
	IOPLimit int

	// ReportStats enables the once-per-second IOPS/throughput log.
	ReportStats bool

	// BlockSize and BlockCount set the semi-random block geometry.
	BlockSize uint64
	BlockCount int

	// Seed initializes the block generator state.
	Seed uint32

	// UID and GID are the uniform ownership reported for every entry.
	UID uint32
	GID uint32

	// MTime is the uniform modification time reported for every entry.
	MTime time.Time

	// Normalization names the Unicode form used for path comparison:
	// NFC, NFD, NFKC, NFKD, or none.
	Normalization string

	// MacOSCacheFiles synthesizes the indexer-suppression entries in
	// the root directory.
	MacOSCacheFiles bool

	// IgnoreAppleDouble demotes missing "._" companion lookups from
	// warnings to debug noise.
	IgnoreAppleDouble bool

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf on Linux.
	AllowOther bool

	// FSName is the name shown in the mount table.
	FSName string

	// Debug enables go-fuse protocol tracing.
	Debug bool

	// Logger receives diagnostics. Nil means the logrus standard
	// logger.
	Logger *logrus.Logger
}

// defaultMTime is the modification time reported when none is
// configured.
var defaultMTime = time.Date(2017, time.October, 17, 0, 0, 0, 0, time.UTC)

// DefaultOptions returns options with the stock geometry: fill mode
// with NUL bytes, seed 4, 100 pre-generated 128 KiB blocks, NFD
// normalization, and the cache-suppression entries enabled.
func DefaultOptions(mountpoint string) *Options {
	return &Options{
		Mountpoint:      mountpoint,
		Mode:            FillMode,
		FillByte:        0,
		BlockSize:       DefaultBlockSize,
		BlockCount:      DefaultBlockCount,
		Seed:            DefaultSeed,
		MTime:           defaultMTime,
		Normalization:   DefaultNormalization,
		MacOSCacheFiles: true,
		FSName:          "treefs",
		Logger:          logrus.StandardLogger(),
	}
}

// Validate checks option ranges. Errors wrap ErrInvalidConfig.
func (o *Options) Validate() error {
	if o.RateLimit < 0 {
		return invalidConfigf("negative rate limit %v", o.RateLimit)
	}
	if o.IOPLimit < 0 {
		return invalidConfigf("negative iop limit %d", o.IOPLimit)
	}
	if o.BlockSize == 0 {
		return invalidConfigf("block size must be positive")
	}
	if o.BlockCount <= 0 {
		return invalidConfigf("pre-generated block count must be positive")
	}
	if _, err := newSanitizer(o.Normalization); err != nil {
		return err
	}
	return nil
}

// logger returns the configured logger, defaulting to the logrus
// standard logger.
func (o *Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}
