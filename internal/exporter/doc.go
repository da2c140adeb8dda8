// Package exporter writes decoded statistical tables to CSV files and Excel
// workbooks.
//
// CSVWriter is the low level writer with headers, streaming and an optional
// UTF-8 BOM for Excel compatibility. TableExporter lays distribution tables,
// caption listings, shot events and switching times out as records. Workbook
// exports a batch of tables as one xlsx file with an index sheet followed by
// one sheet per table.
//
// Example usage:
//
//	exp := exporter.NewTableExporter(paths)
//	err := exp.ExportTable(table, "BUSA_voltage.csv")
//
//	err = exporter.WriteWorkbook(w, tables)
package exporter
