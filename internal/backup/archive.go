package backup

import (
	"archive/zip"
	"bufio"
	"bytes"
	"errors"
	"io"
	"iter"

	"encoding/json/v2"
)

// errFileNotFound indicates a file was not found in the backup archive.
var errFileNotFound = errors.New("file not found in backup")

// writeJSON encodes a single value into w.
func writeJSON(w io.Writer, v any) error {
	return json.MarshalWrite(w, v)
}

// readJSON decodes a single value from r.
func readJSON(r io.Reader, v any) error {
	return json.UnmarshalRead(r, v)
}

// jsonlWriter streams records as JSON lines into a file within a zip
// archive.
type jsonlWriter struct {
	w     io.Writer
	count int
}

func newJSONLWriter(zw *zip.Writer, path string) (*jsonlWriter, error) {
	w, err := zw.Create(path)
	if err != nil {
		return nil, err
	}
	return &jsonlWriter{w: w}, nil
}

func (w *jsonlWriter) write(record any) error {
	if err := json.MarshalWrite(w.w, record); err != nil {
		return err
	}
	if _, err := w.w.Write([]byte{'\n'}); err != nil {
		return err
	}
	w.count++
	return nil
}

// openArchiveFile finds and opens a file inside a zip archive.
func openArchiveFile(zr *zip.ReadCloser, path string) (io.ReadCloser, error) {
	for _, f := range zr.File {
		if f.Name == path {
			return f.Open()
		}
	}
	return nil, errFileNotFound
}

// readJSONL streams records of type T from a JSONL file in the archive.
// The reader is closed when iteration finishes. Blank lines are skipped;
// a malformed line yields its error and iteration continues.
func readJSONL[T any](rc io.ReadCloser) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		defer rc.Close()

		scanner := bufio.NewScanner(rc)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var record T
			if err := json.UnmarshalRead(bytes.NewReader(line), &record); err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			if !yield(&record, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(nil, err)
		}
	}
}
