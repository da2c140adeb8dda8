// Package lis decodes the fixed-column list (.lis) reports written by ATP/EMTP.
//
// The central piece is the statistical-table scanner. It walks a report line by
// line looking for "Statistical distribution of peak voltage/current" captions
// for a named node or branch, decodes the fixed-width rows that follow, and the
// grouped and ungrouped mean, variance and standard deviation printed after
// "Summary of preceding table follows:". Three-phase studies print one table per
// phase followed by a SUMMARY table; the scanner counts A, B and C captions to
// find it.
//
// The same line-scanning primitive backs the listing operations: statistical
// variable names, peak shot events, random switching times and the coarse
// section segmentation of a report.
//
// Every scan opens its own cursor on a Source, so scans may run concurrently.
package lis
