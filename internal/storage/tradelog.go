package storage

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TradeLog is the append-only "wall-clock message" line log for trade and
// signal events.
type TradeLog struct {
	mu   sync.Mutex
	file *os.File
}

func NewTradeLog(path string) (*TradeLog, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trade log: %w", err)
	}
	return &TradeLog{file: file}, nil
}

func (l *TradeLog) Logf(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	line := time.Now().Format("15:04:05") + " " + fmt.Sprintf(format, args...) + "\n"
	l.file.WriteString(line)
}

func (l *TradeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
