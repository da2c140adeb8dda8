// Package shared holds helpers used by more than one package that belong to
// no single layer. Its testutil subpackage captures slog output so tests can
// assert on the records a component logs:
//
//	logger, logs := testutil.NewTestLogger(t)
//	e := lis.NewExtractor(lis.WithLogger(logger))
//	...
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "phase caption out of sequence")
package shared
