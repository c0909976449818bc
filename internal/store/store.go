// Package store keeps the append-only chart log: a UTF-8 CSV file with a
// single date,time,content header row and one row per generated chart.
package store

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/jshclinic/aichart/internal/chart"
	"go.uber.org/zap"
)

var header = []string{"date", "time", "content"}

// utf8BOM is written once when the log is created so spreadsheet tools detect
// the encoding. Readers tolerate its presence or absence.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Store struct {
	path   string
	mu     sync.Mutex
	lock   *flock.Flock
	logger *zap.Logger
}

func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:   filepath.Clean(path),
		lock:   flock.New(filepath.Clean(path) + ".lock"),
		logger: logger,
	}
}

func (s *Store) Path() string {
	return s.path
}

// Append writes rec as one CSV row. The row is encoded in memory and written
// with a single call under an exclusive file lock, so a failed write never
// leaves a header without its row or a partial row from another writer.
func (s *Store) Append(rec chart.Record) error {
	rec, err := rec.Normalize()
	if err != nil {
		return chart.NewError(chart.KindPersistence, "append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("create log directory: %w", err))
	}

	if err := s.lock.Lock(); err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("lock chart log: %w", err))
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to unlock chart log", zap.Error(err))
		}
	}()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("open chart log: %w", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("stat chart log: %w", err))
	}

	var buf bytes.Buffer
	if info.Size() == 0 {
		buf.Write(utf8BOM)
	}
	w := csv.NewWriter(&buf)
	if info.Size() == 0 {
		_ = w.Write(header)
	}
	_ = w.Write([]string{rec.Date, rec.Time, rec.Content})
	w.Flush()
	if err := w.Error(); err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("encode row: %w", err))
	}

	if _, err := f.Write(buf.Bytes()); err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("write chart log: %w", err))
	}
	if err := f.Sync(); err != nil {
		return chart.NewError(chart.KindPersistence, "append", fmt.Errorf("sync chart log: %w", err))
	}

	s.logger.Debug("chart appended", zap.String("path", s.path), zap.String("date", rec.Date), zap.String("time", rec.Time))
	return nil
}

// LoadAll returns every record in file order. A missing or empty log yields
// no records; an unreadable or malformed log is a query error.
func (s *Store) LoadAll() ([]chart.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	return decode(data)
}

// QueryByDate returns the records for date (YYYY-MM-DD), most recent time first.
// Records sharing a time are returned latest-appended first.
func (s *Store) QueryByDate(date string) ([]chart.Record, error) {
	day, err := chart.ParseDate(date)
	if err != nil {
		return nil, chart.NewError(chart.KindQuery, "query", err)
	}

	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}

	matched := make([]chart.Record, 0)
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Date == day {
			matched = append(matched, all[i])
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Time > matched[j].Time
	})
	return matched, nil
}

func (s *Store) readLocked() ([]byte, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err := s.lock.RLock(); err != nil {
		return nil, chart.NewError(chart.KindQuery, "load", fmt.Errorf("lock chart log: %w", err))
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to unlock chart log", zap.Error(err))
		}
	}()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, chart.NewError(chart.KindQuery, "load", fmt.Errorf("read chart log: %w", err))
	}
	return data, nil
}

func decode(data []byte) ([]chart.Record, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(header)

	first, err := r.Read()
	if err != nil {
		return nil, chart.NewError(chart.KindQuery, "load", fmt.Errorf("read header: %w", err))
	}
	if !isHeader(first) {
		return nil, chart.NewError(chart.KindQuery, "load", fmt.Errorf("unexpected header %q", strings.Join(first, ",")))
	}

	var records []chart.Record
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, chart.NewError(chart.KindQuery, "load", err)
		}

		rec, err := chart.Record{Date: row[0], Time: row[1], Content: row[2]}.Normalize()
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, chart.NewError(chart.KindQuery, "load", fmt.Errorf("row at line %d: %w", line, err))
		}
		records = append(records, rec)
	}
	return records, nil
}

func isHeader(row []string) bool {
	for i, name := range header {
		if !strings.EqualFold(strings.TrimSpace(row[i]), name) {
			return false
		}
	}
	return true
}
