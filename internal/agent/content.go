package agent

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/rocketship-ai/rpbdd/internal/bdd"
	"github.com/rocketship-ai/rpbdd/internal/reportportal"
)

// renderTable draws headings and rows as an ASCII grid
func renderTable(headings []string, rows [][]string) string {
	t := table.NewWriter()
	style := table.StyleDefault
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	t.AppendHeader(toRow(headings))
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}
	return t.Render()
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// stepContent renders the doc string of a step as a fenced block followed by
// its data table
func stepContent(st *bdd.Step) string {
	var b strings.Builder
	if st.Text != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n", st.Text)
	}
	if st.Table != nil && len(st.Table.Headings) > 0 {
		b.WriteString(renderTable(st.Table.Headings, st.Table.Rows))
	}
	return b.String()
}

// itemDescription joins the item description lines and appends the active
// outline row, if any, as a table
func itemDescription(rc *bdd.Context, item bdd.Item) string {
	var desc string
	if lines := item.ItemDescription(); len(lines) > 0 {
		desc = "Description:\n" + strings.Join(lines, "\n")
	}
	if rc != nil && rc.ActiveOutline != nil {
		if desc != "" {
			desc += "\n\n"
		}
		row := rc.ActiveOutline
		desc += renderTable(row.Headings, [][]string{row.Cells})
	}
	return desc
}

func codeRef(loc bdd.Location) string {
	if loc.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s:%d", loc.File, loc.Line)
}

// parameters pairs outline headings with the cells of the current row
func parameters(row *bdd.Row) []reportportal.Parameter {
	if row == nil {
		return nil
	}
	params := make([]reportportal.Parameter, 0, len(row.Headings))
	for i, h := range row.Headings {
		var v string
		if i < len(row.Cells) {
			v = row.Cells[i]
		}
		params = append(params, reportportal.Parameter{Key: h, Value: v})
	}
	return params
}
