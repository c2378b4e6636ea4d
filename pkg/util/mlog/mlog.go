package mlog

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Log wraps logrus.Logger and holds information of logging file.
type Log struct {
	*logrus.Logger

	file     *os.File
	location string
	mu       sync.Mutex
}

var global *Log

// Init creates the global logger which writes to the given location.
// Location "stderr" is reserved for logging to the standard error.
func Init(location string) error {
	l, err := New(location)
	if err != nil {
		return err
	}

	global = l
	return nil
}

// New creates Log object.
// TODO: logging with linux logrotate.
func New(location string) (*Log, error) {
	l := &Log{}

	l.Logger = logrus.New()
	l.location = location

	if l.location == "stderr" {
		l.Out = os.Stderr
		l.file = nil
	} else {
		f, err := os.OpenFile(location, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err != nil {
			return nil, err
		}
		l.Out = f
		l.file = f
	}

	return l, nil
}

// GetPackageLogger returns a logger entry tagged with the given package name.
func GetPackageLogger(pkg string) *logrus.Entry {
	if global == nil {
		Init("stderr")
	}
	return global.WithField("package", pkg)
}

// GetFunctionLogger returns a logger entry tagged with the given function name.
func GetFunctionLogger(l *logrus.Entry, function string) *logrus.Entry {
	return l.WithField("function", function)
}

// GetMethodLogger returns a logger entry tagged with the given method name.
func GetMethodLogger(l *logrus.Entry, method string) *logrus.Entry {
	return l.WithField("method", method)
}
