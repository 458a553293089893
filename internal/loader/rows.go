package loader

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"
)

const maxLineSize = 16 << 20

// row gives case-insensitive access to one raw record, whatever its file format.
type row interface {
	// str returns the trimmed value of the first present, non-empty key.
	str(keys ...string) string
	// list returns the value of the first present key as a list.
	list(keys ...string) []string
}

// rowFunc is called once per record. A returned error aborts the file.
type rowFunc func(line int, r row) error

// formatFor reports the reader for a file extension, or nil when unsupported.
func formatFor(name string) func(io.Reader, rowFunc, func(int, string)) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return readCSV
	case ".jsonl", ".ndjson":
		return readJSONLines
	case ".json":
		return readJSONArray
	}
	return nil
}

// readFile streams the records of path to fn. Records that cannot be parsed
// at all are reported to bad and do not reach fn.
func readFile(path string, fn rowFunc, bad func(line int, reason string)) error {
	read := formatFor(path)
	if read == nil {
		return fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return read(f, fn, bad)
}

// csvRow

type csvRow struct {
	header map[string]int
	fields []string
}

func (r csvRow) str(keys ...string) string {
	for _, k := range keys {
		i, ok := r.header[k]
		if !ok || i >= len(r.fields) {
			continue
		}
		if v := strings.TrimSpace(r.fields[i]); v != "" {
			return v
		}
	}
	return ""
}

func (r csvRow) list(keys ...string) []string {
	return parseList(r.str(keys...))
}

func readCSV(in io.Reader, fn rowFunc, bad func(int, string)) error {
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	head, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	header := make(map[string]int, len(head))
	for i, h := range head {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := strings.ToLower(strings.TrimSpace(h))
		if _, dup := header[key]; !dup {
			header[key] = i
		}
	}

	for {
		fields, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			bad(perr.Line, perr.Err.Error())
			continue
		}
		if err != nil {
			return err
		}
		line, _ := reader.FieldPos(0)
		if err := fn(line, csvRow{header: header, fields: fields}); err != nil {
			return err
		}
	}
}

// jsonRow

type jsonRow map[string]gjson.Result

func newJSONRow(obj gjson.Result) jsonRow {
	r := make(jsonRow)
	obj.ForEach(func(key, value gjson.Result) bool {
		k := strings.ToLower(strings.TrimSpace(key.String()))
		if _, dup := r[k]; !dup {
			r[k] = value
		}
		return true
	})
	return r
}

func (r jsonRow) str(keys ...string) string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v.Type == gjson.Null {
			continue
		}
		if s := strings.TrimSpace(v.String()); s != "" {
			return s
		}
	}
	return ""
}

func (r jsonRow) list(keys ...string) []string {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || v.Type == gjson.Null {
			continue
		}
		if v.IsArray() {
			var out []string
			for _, item := range v.Array() {
				out = append(out, item.String())
			}
			return cleanList(out)
		}
		return parseList(v.String())
	}
	return nil
}

func readJSONLines(in io.Reader, fn rowFunc, bad func(int, string)) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if !gjson.Valid(text) {
			bad(line, "invalid JSON")
			continue
		}
		obj := gjson.Parse(text)
		if !obj.IsObject() {
			bad(line, "not a JSON object")
			continue
		}
		if err := fn(line, newJSONRow(obj)); err != nil {
			return err
		}
	}
	return sc.Err()
}

// readJSONArray reads a file holding one JSON array of objects.
// Line numbers are 1-based element positions.
func readJSONArray(in io.Reader, fn rowFunc, bad func(int, string)) error {
	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(data) {
		return errors.New("invalid JSON document")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return errors.New("JSON document is not an array")
	}
	var ferr error
	pos := 0
	doc.ForEach(func(_, value gjson.Result) bool {
		pos++
		if !value.IsObject() {
			bad(pos, "not a JSON object")
			return true
		}
		ferr = fn(pos, newJSONRow(value))
		return ferr == nil
	})
	return ferr
}
