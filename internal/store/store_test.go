package store

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jshclinic/aichart/internal/chart"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "logs", "charts.csv"), nil)
}

func rec(date, clock, content string) chart.Record {
	return chart.Record{Date: date, Time: clock, Content: content}
}

func TestLoadAllMissingLogIsEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	records, err := s.LoadAll()
	require.NoError(t, err)
	require.Empty(t, records)

	byDate, err := s.QueryByDate("2026-10-18")
	require.NoError(t, err)
	require.NotNil(t, byDate)
	require.Empty(t, byDate)
}

func TestAppendThenQueryIncludesRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	r := rec("2026-10-18", "09:00:00", "S]\nC/C\n#1 요통, \"심함\"\n\nP]\n침 치료")
	require.NoError(t, s.Append(r))

	got, err := s.QueryByDate("2026-10-18")
	require.NoError(t, err)
	require.Equal(t, []chart.Record{r}, got)
}

func TestAppendWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(rec("2026-10-18", "09:00:00", "first")))
	require.NoError(t, s.Append(rec("2026-10-18", "09:05:00", "second")))
	require.NoError(t, s.Append(rec("2026-10-19", "10:00:00", "third")))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, utf8BOM))
	require.Equal(t, 1, strings.Count(string(data), "date,time,content"))

	all, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, []string{"first", "second", "third"}, []string{all[0].Content, all[1].Content, all[2].Content})
}

func TestQueryByDateOrdersMostRecentFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(rec("2026-10-18", "09:00:00", "early")))
	require.NoError(t, s.Append(rec("2026-10-17", "23:59:59", "yesterday")))
	require.NoError(t, s.Append(rec("2026-10-18", "09:05:00", "later")))
	require.NoError(t, s.Append(rec("2026-10-18", "08:30:00", "backdated")))

	got, err := s.QueryByDate("2026-10-18")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "09:05:00", got[0].Time)
	require.Equal(t, "09:00:00", got[1].Time)
	require.Equal(t, "08:30:00", got[2].Time)
}

func TestQueryByDateOrdersUnpaddedHoursByTime(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "charts.csv")
	content := "date,time,content\n2026-10-18,9:05:00,edited\n2026-10-18,10:00:00,later\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := New(path, nil).QueryByDate("2026-10-18")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "later", got[0].Content)
	require.Equal(t, "09:05:00", got[1].Time)
}

func TestQueryByDateSameTimeLatestAppendedFirst(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	require.NoError(t, s.Append(rec("2026-10-18", "09:00:00", "one")))
	require.NoError(t, s.Append(rec("2026-10-18", "09:00:00", "two")))

	got, err := s.QueryByDate("2026-10-18")
	require.NoError(t, err)
	require.Equal(t, "two", got[0].Content)
	require.Equal(t, "one", got[1].Content)
}

func TestQueryByDateRejectsInvalidDate(t *testing.T) {
	t.Parallel()

	_, err := newTestStore(t).QueryByDate("18.10.2026")
	require.ErrorIs(t, err, chart.ErrQuery)
}

func TestLoadAllToleratesMissingBOM(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "charts.csv")
	content := "date,time,content\n2026-10-18,09:00:00,\"S]\nline two\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	all, err := New(path, nil).LoadAll()
	require.NoError(t, err)
	require.Equal(t, []chart.Record{rec("2026-10-18", "09:00:00", "S]\nline two")}, all)
}

func TestLoadAllEmptyFileIsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "charts.csv")
	require.NoError(t, os.WriteFile(path, utf8BOM, 0o644))

	all, err := New(path, nil).LoadAll()
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestLoadAllMalformedLogIsQueryError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "wrong column count", content: "date,time,content\n2026-10-18,09:00:00\n"},
		{name: "extra column", content: "date,time,content\n2026-10-18,09:00:00,a,b\n"},
		{name: "wrong header", content: "day,hour,text\n2026-10-18,09:00:00,a\n"},
		{name: "bad date", content: "date,time,content\nOct 18,09:00:00,a\n"},
		{name: "bad time", content: "date,time,content\n2026-10-18,nine,a\n"},
		{name: "unterminated quote", content: "date,time,content\n2026-10-18,09:00:00,\"open\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "charts.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))

			s := New(path, nil)
			_, err := s.LoadAll()
			require.ErrorIs(t, err, chart.ErrQuery)

			_, err = s.QueryByDate("2026-10-18")
			require.ErrorIs(t, err, chart.ErrQuery)
		})
	}
}

func TestAppendUnwritableLogIsPersistenceError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "charts.csv")
	require.NoError(t, os.Mkdir(path, 0o755))

	err := New(path, nil).Append(rec("2026-10-18", "09:00:00", "S]"))
	require.ErrorIs(t, err, chart.ErrPersistence)
}

func TestAppendRejectsInvalidRecord(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	err := s.Append(rec("", "09:00:00", "S]"))
	require.ErrorIs(t, err, chart.ErrPersistence)

	_, statErr := os.Stat(s.Path())
	require.True(t, os.IsNotExist(statErr))
}
