// package logging builds the application loggers
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a slog logger writing text or json records to w
func New(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenAccessLog returns a size rotated file for access log lines
func OpenAccessLog(path string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    100, // MB
		MaxBackups: 30,
		MaxAge:     90, // days
		Compress:   true,
	}
}

// AccessEntry is one served request
type AccessEntry struct {
	Time       time.Time
	RemoteAddr string
	Method     string
	URI        string
	Proto      string
	Status     int
	Bytes      int64
	Referer    string
	UserAgent  string
}

// AccessLog writes entries in the Apache combined log format
type AccessLog struct {
	mu sync.Mutex
	w  io.Writer
}

// NewAccessLog creates an access log writing to w
func NewAccessLog(w io.Writer) *AccessLog {
	return &AccessLog{w: w}
}

// Write appends e as a single line
func (a *AccessLog) Write(e AccessEntry) error {
	host, _, err := net.SplitHostPort(e.RemoteAddr)
	if err != nil {
		host = e.RemoteAddr
	}

	line := fmt.Sprintf("%s - - [%s] \"%s %s %s\" %d %s %q %q\n",
		host,
		e.Time.Format("02/Jan/2006:15:04:05 -0700"),
		e.Method, e.URI, e.Proto,
		e.Status,
		bytesField(e.Bytes),
		dashIfEmpty(e.Referer),
		dashIfEmpty(e.UserAgent),
	)

	a.mu.Lock()
	defer a.mu.Unlock()

	_, err = io.WriteString(a.w, line)
	return err
}

func bytesField(n int64) string {
	if n <= 0 {
		return "-"
	}
	return fmt.Sprint(n)
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
