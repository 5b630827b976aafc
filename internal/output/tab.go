// Package output provides tab-delimited writers for contacts, co-evolution
// metrics, histograms and counter summaries.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-epistasis/internal/contact"
	"github.com/inodb/vibe-epistasis/internal/stats"
)

// ContactWriter writes contacts in the contact TSV format.
type ContactWriter struct {
	w       *bufio.Writer
	columns []string
	n       int
}

// NewContactWriter creates a new contact writer.
func NewContactWriter(w io.Writer) *ContactWriter {
	return &ContactWriter{
		w:       bufio.NewWriter(w),
		columns: contact.Columns,
	}
}

// WriteHeader writes the header line.
func (cw *ContactWriter) WriteHeader() error {
	_, err := cw.w.WriteString(strings.Join(cw.columns, "\t") + "\n")
	return err
}

// Write writes a single contact.
func (cw *ContactWriter) Write(r *contact.Record) error {
	cw.n++
	_, err := cw.w.WriteString(r.String() + "\n")
	return err
}

// Count returns the number of contacts written.
func (cw *ContactWriter) Count() int {
	return cw.n
}

// Flush flushes any buffered data to the underlying writer.
func (cw *ContactWriter) Flush() error {
	return cw.w.Flush()
}

// Metrics are the information measures reported for one contact.
type Metrics struct {
	MutualInformation float64
	CondEntropy       float64
	JointEntropy      float64
	Conservation1     float64
	Conservation2     float64
}

// MetricColumns follow the contact columns in MI output.
var MetricColumns = []string{
	"mi",
	"cond_entropy",
	"joint_entropy",
	"conservation1",
	"conservation2",
}

// MIWriter writes contacts followed by their information metrics.
type MIWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewMIWriter creates a new metrics writer.
func NewMIWriter(w io.Writer) *MIWriter {
	cols := make([]string, 0, len(contact.Columns)+len(MetricColumns))
	cols = append(cols, contact.Columns...)
	cols = append(cols, MetricColumns...)
	return &MIWriter{w: bufio.NewWriter(w), columns: cols}
}

// WriteHeader writes the header line.
func (mw *MIWriter) WriteHeader() error {
	_, err := mw.w.WriteString(strings.Join(mw.columns, "\t") + "\n")
	return err
}

// Write writes a contact and its metrics.
func (mw *MIWriter) Write(r *contact.Record, m Metrics) error {
	values := append(r.Fields(),
		formatFloat(m.MutualInformation),
		formatFloat(m.CondEntropy),
		formatFloat(m.JointEntropy),
		formatFloat(m.Conservation1),
		formatFloat(m.Conservation2),
	)
	_, err := mw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (mw *MIWriter) Flush() error {
	return mw.w.Flush()
}

// Bin is one histogram bin covering [Lo, Hi).
type Bin struct {
	Lo, Hi float64
	Count  float64
}

// WriteHistogram writes "lo\thi\tcount" lines after a header.
func WriteHistogram(w io.Writer, bins []Bin) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("#lo\thi\tcount\n")
	for _, b := range bins {
		fmt.Fprintf(bw, "%s\t%s\t%s\n", formatFloat(b.Lo), formatFloat(b.Hi), formatFloat(b.Count))
	}
	return bw.Flush()
}

// WriteCounts writes a titled counter summary, one "key\tcount" line per
// category.
func WriteCounts(w io.Writer, title string, c *stats.Counter) error {
	_, err := fmt.Fprintf(w, "%s:\n%s", title, c)
	return err
}

// WriteScores writes a titled score summary sorted by descending score.
func WriteScores(w io.Writer, title string, c *stats.Counter) error {
	if _, err := fmt.Fprintf(w, "%s:\n", title); err != nil {
		return err
	}
	return c.WriteScores(w)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
