package feed

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/quantlab/meanrev/internal/core"
)

// requiredColumns must all be present in the CSV header.
var requiredColumns = []string{"day", "open", "high", "low", "close", "volume"}

// dateLayouts are tried in order when parsing the day column.
var dateLayouts = []string{"2006-01-02", "2006/01/02", "2006-01-02 15:04:05"}

// CSVLoader reads daily bars from a header-driven CSV file. Exported
// spreadsheets are often UTF-16 or carry a UTF-8 BOM, so the reader
// sniffs the first bytes and decodes accordingly.
type CSVLoader struct {
	path string
}

// NewCSVLoader creates a loader for the CSV file at path.
func NewCSVLoader(path string) *CSVLoader {
	return &CSVLoader{path: path}
}

func (l *CSVLoader) Name() string {
	return "csv"
}

func (l *CSVLoader) Load(ctx context.Context) ([]core.Bar, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.path, err)
	}
	defer f.Close()

	return parseCSV(ctx, decodeReader(f))
}

// decodeReader wraps r with a UTF-16 decoder when a UTF-16 BOM is
// present and strips a UTF-8 BOM otherwise.
func decodeReader(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, _ := br.Peek(3)

	if len(head) >= 2 {
		if head[0] == 0xFF && head[1] == 0xFE {
			return transform.NewReader(br, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder())
		}
		if head[0] == 0xFE && head[1] == 0xFF {
			return transform.NewReader(br, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder())
		}
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}

func parseCSV(ctx context.Context, r io.Reader) ([]core.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, core.WrapError(core.ErrInvalidDataFormat, fmt.Errorf("reading header: %w", err))
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, core.WrapError(core.ErrInvalidDataFormat,
				fmt.Errorf("missing column %q", name))
		}
	}

	var bars []core.Bar
	for line := 2; ; line++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidDataFormat,
				fmt.Errorf("line %d: %w", line, err))
		}

		bar, err := parseRecord(record, cols)
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidDataFormat,
				fmt.Errorf("line %d: %w", line, err))
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func parseRecord(record []string, cols map[string]int) (core.Bar, error) {
	day, err := parseDate(record[cols["day"]])
	if err != nil {
		return core.Bar{}, err
	}

	fields := [5]float64{}
	for i, name := range []string{"open", "high", "low", "close", "volume"} {
		raw := strings.TrimSpace(record[cols[name]])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return core.Bar{}, fmt.Errorf("parsing %s %q: %w", name, raw, err)
		}
		fields[i] = v
	}

	return core.Bar{
		Date:   day,
		Open:   fields[0],
		High:   fields[1],
		Low:    fields[2],
		Close:  fields[3],
		Volume: fields[4],
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parsing day %q: unrecognized date format", raw)
}
