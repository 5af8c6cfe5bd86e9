// Package logger は zerolog を用いたアプリケーション共通のロガーを提供します。
package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Options はロガー生成時の設定です。
type Options struct {
	// Level は trace, debug, info, warn, error のいずれかです。空や未知の値は info として扱います。
	Level string
	// Pretty が true の場合はコンソール向けの整形出力を行います。
	Pretty bool
	// Output は出力先です。nil の場合は os.Stdout を使います。
	Output io.Writer
}

var (
	mu       sync.RWMutex
	instance = zerolog.Nop()
)

// New は Options から zerolog.Logger を生成します。
func New(opts Options) zerolog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(ParseLevel(opts.Level)).
		With().
		Timestamp().
		Logger()
}

// Init はプロセス全体で共有するロガーを設定して返します。
func Init(opts Options) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	l := New(opts)

	mu.Lock()
	instance = l
	mu.Unlock()

	return l
}

// Get は共有ロガーを返します。Init 前は何も出力しないロガーです。
func Get() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return instance
}

// Reset は共有ロガーを初期状態に戻します。テスト用です。
func Reset() {
	mu.Lock()
	instance = zerolog.Nop()
	mu.Unlock()
}

// ParseLevel は文字列を zerolog.Level に変換します。
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
