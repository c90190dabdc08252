package report

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// BuildWorkbook exports the tabular sections to an XLSX workbook, one sheet
// per table section plus an overview sheet with the quality scores. Chart
// sections are exported as label/value pairs so the numbers stay inspectable.
func BuildWorkbook(doc *Document) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := overviewSheet(f, doc); err != nil {
		return nil, err
	}
	for _, sec := range doc.Sections {
		var err error
		switch sec.Kind {
		case KindTable:
			err = tableSheet(f, sec)
		case KindBar, KindHBar, KindLine:
			err = seriesSheet(f, sec)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// WriteWorkbook builds the workbook and streams it to w.
func WriteWorkbook(doc *Document, w io.Writer) error {
	f, err := BuildWorkbook(doc)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

func overviewSheet(f *xlsx.File, doc *Document) error {
	sh, err := f.AddSheet("overview")
	if err != nil {
		return eris.Wrap(err, "report: add overview sheet")
	}

	header := sh.AddRow()
	header.AddCell().SetString("Metric")
	header.AddCell().SetString("Value")

	addStr := func(k, v string) {
		r := sh.AddRow()
		r.AddCell().SetString(k)
		r.AddCell().SetString(v)
	}
	addNum := func(k string, v float64) {
		r := sh.AddRow()
		r.AddCell().SetString(k)
		r.AddCell().SetFloat(v)
	}

	addStr("Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05"))
	if doc.Placeholder {
		addStr("Status", "waiting for data")
		return nil
	}
	r := sh.AddRow()
	r.AddCell().SetString("Records")
	r.AddCell().SetInt(doc.RecordCount)

	addNum("Composite score", doc.Scores.Composite)
	addNum("Completeness", doc.Scores.Completeness)
	addNum("Accuracy", doc.Scores.Accuracy)
	addNum("Consistency", doc.Scores.Consistency)
	addNum("Timeliness", doc.Scores.Timeliness)
	addNum("Validity", doc.Scores.Validity)
	return nil
}

func tableSheet(f *xlsx.File, sec Section) error {
	sh, err := f.AddSheet(sheetName(sec.Key))
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %q", sec.Key)
	}
	header := sh.AddRow()
	for _, h := range sec.Table.Headers {
		header.AddCell().SetString(h)
	}
	for _, row := range sec.Table.Rows {
		r := sh.AddRow()
		for _, cell := range row {
			r.AddCell().SetString(cell)
		}
	}
	return nil
}

func seriesSheet(f *xlsx.File, sec Section) error {
	sh, err := f.AddSheet(sheetName(sec.Key))
	if err != nil {
		return eris.Wrapf(err, "report: add sheet %q", sec.Key)
	}
	header := sh.AddRow()
	header.AddCell().SetString("Label")
	header.AddCell().SetString("Value")
	for i, label := range sec.Series.Labels {
		r := sh.AddRow()
		r.AddCell().SetString(label)
		r.AddCell().SetFloat(sec.Series.Values[i])
	}
	return nil
}

// sheetName keeps names inside the 31-character Excel limit.
func sheetName(key string) string {
	if len(key) > 31 {
		return key[:31]
	}
	return key
}
