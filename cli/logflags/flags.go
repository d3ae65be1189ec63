package logflags

import (
	"errors"
	"flag"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Flags struct {
	level   zapcore.Level
	devMode bool
	path    string
	maxSize int
	maxAge  int
}

func (f *Flags) SetFlags(fs *flag.FlagSet) {
	f.level = zapcore.WarnLevel
	fs.Var(&f.level, "log.level", "logging level [debug,info,warn,error]")
	fs.BoolVar(&f.devMode, "log.devmode", false, "development mode (console encoding, stack traces on warnings)")
	fs.StringVar(&f.path, "log.path", "", "path to log file (stderr if unset)")
	fs.IntVar(&f.maxSize, "log.filesize", 100, "maximum size in megabytes of the log file before it is rotated")
	fs.IntVar(&f.maxAge, "log.fileage", 0, "maximum number of days to retain rotated log files (0 retains all)")
}

// Open returns a logger configured by the flags.  The caller should Sync
// the logger before exiting.
func (f *Flags) Open() (*zap.Logger, error) {
	if f.maxSize <= 0 {
		return nil, errors.New("log file size must be greater than zero")
	}
	var encoder zapcore.Encoder
	var opts []zap.Option
	if f.devMode {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	core := zapcore.NewCore(encoder, f.sink(), zap.NewAtomicLevelAt(f.level))
	return zap.New(core, opts...), nil
}

func (f *Flags) sink() zapcore.WriteSyncer {
	if f.path == "" {
		return zapcore.Lock(os.Stderr)
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename: f.path,
		MaxSize:  f.maxSize,
		MaxAge:   f.maxAge,
	})
}
