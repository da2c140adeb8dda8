// Package report renders decoded distribution tables as charts.
//
// A chart shows the discrete frequency of every interval as a bar and the
// cumulative frequency as a line over the same count axis. Interval ticks are
// labelled with the per-unit peak value of the interval.
package report
