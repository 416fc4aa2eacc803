// Package convert turns DragonShield folder exports into Moxfield
// collection import files.
package convert

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/Granipouss/mtg-collection-pipe/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrParse is returned for exports that cannot be read
var ErrParse = errors.New("malformed export")

// Export columns
const (
	ColumnName     = "Card Name"
	ColumnQuantity = "Quantity"
)

// ImportHeader is the column layout of a Moxfield collection import
var ImportHeader = []string{
	"Count",
	"Tradelist Count",
	"Name",
	"Edition",
	"Condition",
	"Language",
	"Foil",
	"Tags",
	"Last Modified",
	"Collector Number",
}

const (
	DefaultCondition = "Near Mint"
	DefaultLanguage  = "English"

	// same layout as JavaScript's Date.toISOString
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// Resolver looks up card metadata by name
type Resolver interface {
	Resolve(ctx context.Context, name string) (models.CardMetadata, error)
}

// Options tunes how exports are parsed
type Options struct {
	// SkipInvalidRows skips rows with a malformed quantity instead of failing
	SkipInvalidRows bool
}

// Converter reads exports and writes import files
type Converter struct {
	logger   *logrus.Logger
	resolver Resolver
	opts     Options
	now      func() time.Time
}

// NewConverter creates a converter. resolver may be nil when only
// ReadExport is used.
func NewConverter(logger *logrus.Logger, resolver Resolver, opts Options) *Converter {
	return &Converter{
		logger:   logger,
		resolver: resolver,
		opts:     opts,
		now:      time.Now,
	}
}

// ReadExportFile parses the export stored at path
func (c *Converter) ReadExportFile(path string) (*Aggregate, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export: %w", err)
	}
	defer file.Close()

	return c.ReadExport(file)
}

// ReadExport parses a DragonShield export. The first line is a "sep=,"
// directive and is skipped; the header row follows.
func (c *Converter) ReadExport(r io.Reader) (*Aggregate, error) {
	br := bufio.NewReader(r)
	if _, err := br.ReadString('\n'); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: export is empty", ErrParse)
		}
		return nil, fmt.Errorf("failed to read export: %w", err)
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: missing header row", ErrParse)
		}
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	nameCol, qtyCol, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	agg := NewAggregate()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}
		// +1 for the skipped directive line
		line, _ := reader.FieldPos(0)
		line++

		if nameCol >= len(record) || qtyCol >= len(record) {
			if err := c.invalid(line, "missing columns"); err != nil {
				return nil, err
			}
			continue
		}

		name := strings.TrimSpace(record[nameCol])
		if name == "" {
			c.logger.Debugf("Skipping line %d without a card name", line)
			continue
		}

		raw := strings.TrimSpace(record[qtyCol])
		qty, err := strconv.Atoi(raw)
		if err != nil || qty < 0 {
			if err := c.invalid(line, fmt.Sprintf("invalid quantity %q for %s", raw, name)); err != nil {
				return nil, err
			}
			continue
		}

		agg.Add(name, qty)
	}

	c.logger.Infof("Read export: %d unique cards, %d total cards", agg.Len(), agg.Total())
	return agg, nil
}

func (c *Converter) invalid(line int, reason string) error {
	if !c.opts.SkipInvalidRows {
		return fmt.Errorf("%w: line %d: %s", ErrParse, line, reason)
	}
	c.logger.Warnf("Skipping line %d: %s", line, reason)
	return nil
}

func locateColumns(header []string) (int, int, error) {
	nameCol, qtyCol := -1, -1
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		switch h {
		case ColumnName:
			nameCol = i
		case ColumnQuantity:
			qtyCol = i
		}
	}
	if nameCol < 0 {
		return 0, 0, fmt.Errorf("%w: missing %q column", ErrParse, ColumnName)
	}
	if qtyCol < 0 {
		return 0, 0, fmt.Errorf("%w: missing %q column", ErrParse, ColumnQuantity)
	}
	return nameCol, qtyCol, nil
}

// WriteImportFile writes the import file for agg at path
func (c *Converter) WriteImportFile(ctx context.Context, path string, agg *Aggregate) ([]models.ImportRow, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create import file: %w", err)
	}

	rows, err := c.WriteImport(ctx, file, agg)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close import file: %w", closeErr)
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// WriteImport resolves every card of agg, in order, and writes one Moxfield
// import row per card. The first lookup failure aborts the conversion.
func (c *Converter) WriteImport(ctx context.Context, w io.Writer, agg *Aggregate) ([]models.ImportRow, error) {
	if c.resolver == nil {
		return nil, errors.New("converter has no resolver")
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(ImportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	rows := make([]models.ImportRow, 0, agg.Len())
	for _, entry := range agg.Entries() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		meta, err := c.resolver.Resolve(ctx, entry.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", entry.Name, err)
		}

		row := models.ImportRow{
			Count:        entry.Quantity,
			Name:         entry.Name,
			Edition:      meta.Printing,
			Condition:    DefaultCondition,
			Language:     DefaultLanguage,
			LastModified: c.now().UTC(),
			Image:        meta.Image,
		}
		if err := writer.Write(importRecord(row)); err != nil {
			return nil, fmt.Errorf("failed to write row: %w", err)
		}
		rows = append(rows, row)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to write import: %w", err)
	}

	c.logger.Infof("Wrote import: %d rows", len(rows))
	return rows, nil
}

func importRecord(row models.ImportRow) []string {
	return []string{
		strconv.Itoa(row.Count),
		strconv.Itoa(row.TradelistCount),
		row.Name,
		row.Edition,
		row.Condition,
		row.Language,
		row.Foil,
		row.Tags,
		row.LastModified.Format(timestampLayout),
		row.CollectorNumber,
	}
}

// ReadImport parses a Moxfield import file written by WriteImport
func ReadImport(r io.Reader) ([]models.ImportRow, error) {
	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: missing header row", ErrParse)
	}
	if len(records[0]) != len(ImportHeader) {
		return nil, fmt.Errorf("%w: unexpected header %v", ErrParse, records[0])
	}

	rows := make([]models.ImportRow, 0, len(records)-1)
	for i, rec := range records[1:] {
		count, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid count %q", ErrParse, i+2, rec[0])
		}
		tradelist, err := strconv.Atoi(rec[1])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid tradelist count %q", ErrParse, i+2, rec[1])
		}
		modified, err := time.Parse(time.RFC3339, rec[8])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid timestamp %q", ErrParse, i+2, rec[8])
		}
		rows = append(rows, models.ImportRow{
			Count:           count,
			TradelistCount:  tradelist,
			Name:            rec[2],
			Edition:         rec[3],
			Condition:       rec[4],
			Language:        rec[5],
			Foil:            rec[6],
			Tags:            rec[7],
			LastModified:    modified,
			CollectorNumber: rec[9],
		})
	}
	return rows, nil
}
