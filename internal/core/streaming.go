package core

// streaming.go provides the write path for exports.
//
// Rows leave the engine cursor one at a time and pass through a fixed
// chain of writers, so memory stays O(row) regardless of export size:
//
//	csv.Writer -> [lz4.Writer] -> countingWriter -> destination
//
// Use newExportPipeline to build the chain and flush it periodically.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/pierrec/lz4/v4"
)

// countingWriter tracks bytes written to the destination.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// flusher matches http.Flusher without importing net/http.
type flusher interface {
	Flush()
}

// exportPipeline is the writer chain for one export.
type exportPipeline struct {
	csv     *csv.Writer
	lz4     *lz4.Writer
	counter *countingWriter
	dst     io.Writer
}

func newExportPipeline(dst io.Writer, compress bool) *exportPipeline {
	p := &exportPipeline{
		counter: &countingWriter{w: dst},
		dst:     dst,
	}
	var w io.Writer = p.counter
	if compress {
		p.lz4 = lz4.NewWriter(p.counter)
		w = p.lz4
	}
	p.csv = csv.NewWriter(w)
	return p
}

func (p *exportPipeline) writeRecord(record []string) error {
	return p.csv.Write(record)
}

// flush pushes buffered rows all the way to the client.
func (p *exportPipeline) flush() error {
	p.csv.Flush()
	if err := p.csv.Error(); err != nil {
		return err
	}
	if p.lz4 != nil {
		if err := p.lz4.Flush(); err != nil {
			return err
		}
	}
	if f, ok := p.dst.(flusher); ok {
		f.Flush()
	}
	return nil
}

// close flushes and terminates the lz4 frame, if any.
func (p *exportPipeline) close() error {
	if err := p.flush(); err != nil {
		return err
	}
	if p.lz4 != nil {
		if err := p.lz4.Close(); err != nil {
			return err
		}
		if f, ok := p.dst.(flusher); ok {
			f.Flush()
		}
	}
	return nil
}

func (p *exportPipeline) bytesWritten() int64 {
	return p.counter.n
}

// formatCell renders an engine value as CSV cell text.
// NULL becomes the empty string; composite values are JSON-encoded.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(x)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case json.Number:
		return string(x)
	case time.Time:
		return formatTime(x)
	case uuid.UUID:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
