package server

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/zond/juicecmd"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger returns a logger writing to stderr and to the rotated log file
// of c. Close the returned closer when done.
func NewLogger(c *Config) (*logrus.Logger, io.Closer, error) {
	path := c.logFile()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, juicecmd.WithStack(err)
	}
	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    c.LogMaxSizeMB,
		MaxBackups: 5,
		Compress:   true,
	}
	log := logrus.New()
	log.SetOutput(io.MultiWriter(os.Stderr, file))
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	if c.Verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log, file, nil
}
