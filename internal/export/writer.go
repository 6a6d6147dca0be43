package export

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"

	"sheet-compiler/internal/compare"
	"sheet-compiler/internal/config"
	"sheet-compiler/internal/expr"
	"sheet-compiler/internal/logger"
	"sheet-compiler/internal/table"
)

// maxSheetName is the xlsx limit on worksheet names.
const maxSheetName = 31

// Tables resolves table ids; the compile engine implements it.
type Tables interface {
	Lookup(id string) (*table.Table, bool)
}

// Writer writes workbooks under an output directory.
type Writer struct {
	fs   afero.Fs
	dir  string
	eval *expr.Evaluator
	log  logger.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithFs writes to fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(w *Writer) { w.fs = fs }
}

// WithEvaluator sets the evaluator for expression columns.
func WithEvaluator(e *expr.Evaluator) Option {
	return func(w *Writer) { w.eval = e }
}

// WithLogger sets the writer logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Writer) { w.log = l }
}

// NewWriter returns a writer for dir.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{fs: afero.NewOsFs(), dir: dir, eval: expr.New(), log: logger.Default()}
	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteWorkbook builds every sheet of wb from tables and saves the workbook.
// It returns the written path.
func (w *Writer) WriteWorkbook(wb config.Workbook, tables Tables) (string, error) {
	sheets := make([]*table.Table, 0, len(wb.Sheets))

	for _, sh := range wb.Sheets {
		t, ok := tables.Lookup(sh.From)
		if !ok {
			return "", fmt.Errorf("workbook %q sheet %q: unknown table %q", wb.SaveName, sh.Name, sh.From)
		}

		out, err := BuildSheet(t, sh, w.eval)
		if err != nil {
			return "", fmt.Errorf("workbook %q: %w", wb.SaveName, err)
		}

		sheets = append(sheets, out)
	}

	return w.save(wb.SaveName, sheets)
}

// WriteCompare writes the report of one comparison as compare_<name>.xlsx
// with a summary sheet, the added and removed rows, and one changed_<col>
// sheet per column with differences.
func (w *Writer) WriteCompare(name string, res *compare.Result) (string, error) {
	summary, err := Summary(res)
	if err != nil {
		return "", err
	}

	sheets := []*table.Table{summary, res.Added.WithName("added"), res.Removed.WithName("removed")}

	for _, c := range res.Changed() {
		sheets = append(sheets, res.Changes[c].WithName(sheetName("changed_"+c)))
	}

	return w.save("compare_"+name+".xlsx", sheets)
}

// Summary tabulates the row counts of a comparison.
func Summary(res *compare.Result) (*table.Table, error) {
	metrics := []string{"matched", "added", "removed"}
	counts := []any{res.Matched, res.Added.Len(), res.Removed.Len()}

	for _, c := range res.Changed() {
		metrics = append(metrics, "changed_"+c)
		counts = append(counts, res.Changes[c].Len())
	}

	records := make([][]any, len(metrics))
	for i := range metrics {
		records[i] = []any{metrics[i], counts[i]}
	}

	return table.FromRecords("summary", []string{"metric", "rows"}, records)
}

func (w *Writer) save(name string, sheets []*table.Table) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	used := make(map[string]bool, len(sheets))

	for i, t := range sheets {
		t = t.WithName(uniqueSheetName(used, t.Name))

		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), t.Name); err != nil {
				return "", fmt.Errorf("%s: %w", name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("%s: sheet %q: %w", name, t.Name, err)
		}

		if err := writeSheet(f, t); err != nil {
			return "", fmt.Errorf("%s: sheet %q: %w", name, t.Name, err)
		}
	}

	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	path := filepath.Join(w.dir, name)

	out, err := w.fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer out.Close()

	if _, err := f.WriteTo(out); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	w.log.Info("wrote workbook", "path", path, "sheets", len(sheets))

	return path, nil
}

func writeSheet(f *excelize.File, t *table.Table) error {
	header := make([]any, t.Width())
	for i, n := range t.ColumnNames() {
		header[i] = n
	}

	if err := f.SetSheetRow(t.Name, "A1", &header); err != nil {
		return err
	}

	for r := range t.Len() {
		rec := t.Record(r)

		row := make([]any, len(rec))
		for i, v := range rec {
			row[i] = v.Any()
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return err
		}
	}

	return nil
}

func sheetName(s string) string { return truncate(s, maxSheetName) }

// uniqueSheetName returns name, or name with a ~N suffix when a sheet of
// that name exists already. Sheet names compare case-insensitively.
func uniqueSheetName(used map[string]bool, name string) string {
	name = sheetName(name)
	out := name

	for n := 2; used[strings.ToLower(out)]; n++ {
		suffix := "~" + strconv.Itoa(n)
		out = truncate(name, maxSheetName-len(suffix)) + suffix
	}

	used[strings.ToLower(out)] = true

	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}

	return s
}
