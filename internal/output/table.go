package output

import "github.com/pterm/pterm"

// RenderTable renders headers and rows as a table, suppressed in quiet or
// JSON mode (callers emit the same data as structured JSON in that case).
func RenderTable(headers []string, rows [][]string) error {
	if IsQuiet() || IsJSON() {
		return nil
	}
	data := pterm.TableData{headers}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
