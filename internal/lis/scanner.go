package lis

import (
	"log/slog"

	"lisstat/pkg/contracts/domain"
)

// scanState is the state of a table scan.
//
//	state                     event                           next
//	stateSearching            target caption, single table    stateReadingRows (after 2 header lines)
//	stateSearching            target caption, summary         stateSearching, phase advanced
//	stateSearching            phase reaches phaseCPending     stateInPhaseTable
//	stateInPhaseTable         target caption                  stateInPhaseTable (base refreshed)
//	stateInPhaseTable         table ending marker             stateAwaitingSummaryRows
//	stateAwaitingSummaryRows  4 + 7 lines skipped             stateReadingRows
//	stateReadingRows          ending marker and 3 lines       stateDone
//	any                       EOF while searching             stateFailed (TableNotFoundError)
//	any                       EOF inside a committed block    stateFailed (TruncatedTableError)
//	any                       decode error                    stateFailed
type scanState int

const (
	stateSearching scanState = iota
	stateInPhaseTable
	stateAwaitingSummaryRows
	stateReadingRows
	stateDone
	stateFailed
)

// phaseSeq counts target captions in summary mode. It counts occurrences and
// does not trust the phase letter printed in the caption.
//
//	phaseNone -> phaseA -> phaseB -> phaseCPending -> phaseCPending
type phaseSeq int

const (
	phaseNone phaseSeq = iota
	phaseA
	phaseB
	phaseCPending
)

func (p phaseSeq) advance() phaseSeq {
	if p == phaseCPending {
		return p
	}
	return p + 1
}

// letter is the phase a caption is expected to carry once p is reached.
func (p phaseSeq) letter() Phase {
	switch p {
	case phaseA:
		return PhaseA
	case phaseB:
		return PhaseB
	default:
		return PhaseC
	}
}

const (
	// tableHeaderLines follow a caption before the first row.
	tableHeaderLines = 2
	// phaseCTrailerLines follow the C phase ending marker before the banner.
	phaseCTrailerLines = 4
	// summaryBannerLines is the "SUMMARY   SUMMARY ..." block.
	summaryBannerLines = 7
)

// scanRequest is a validated table request with its resolved name sets.
type scanRequest struct {
	kind      domain.TableKind
	primary   string
	secondary string
	summary   bool
	names1    NameSet
	names2    NameSet
}

func newScanRequest(req domain.TableRequest) (scanRequest, error) {
	sr := scanRequest{
		kind:      req.Kind,
		primary:   req.Primary,
		secondary: req.Secondary,
		summary:   req.Summary,
	}
	var err error
	if sr.names1, err = resolveNodeName(req.Primary); err != nil {
		return sr, err
	}
	if req.Kind == domain.TableKindCurrent {
		if sr.names2, err = resolveNodeName(req.Secondary); err != nil {
			return sr, err
		}
	}
	return sr, nil
}

// matches reports whether line is a caption of the requested kind naming the target set(s).
func (r scanRequest) matches(line string) (n1, n2 string, ok bool) {
	n1, n2, ok = matchCaption(r.kind, line)
	if !ok || !r.names1.Contains(n1) {
		return "", "", false
	}
	if r.kind == domain.TableKindCurrent && !r.names2.Contains(n2) {
		return "", "", false
	}
	return n1, n2, true
}

// tableScanner drives one scan over a cursor.
type tableScanner struct {
	req    scanRequest
	cur    *cursor
	logger *slog.Logger

	state scanState
	phase phaseSeq
	table domain.StatisticalTable
	err   error
}

func newTableScanner(req scanRequest, cur *cursor, logger *slog.Logger) *tableScanner {
	return &tableScanner{
		req:    req,
		cur:    cur,
		logger: logger,
		table: domain.StatisticalTable{
			Kind:      req.kind,
			Primary:   req.primary,
			Secondary: req.secondary,
			Summary:   req.summary,
			Rows:      []domain.TableRow{},
		},
	}
}

// run drives the machine to a terminal state. The table is only returned on stateDone.
func (s *tableScanner) run() (*domain.StatisticalTable, error) {
	for s.state != stateDone && s.state != stateFailed {
		switch s.state {
		case stateSearching, stateInPhaseTable:
			s.search()
		case stateAwaitingSummaryRows:
			s.skipSummaryPreamble()
		case stateReadingRows:
			s.readRows()
		}
	}
	if s.state == stateFailed {
		return nil, s.err
	}
	table := s.table
	return &table, nil
}

func (s *tableScanner) fail(err error) {
	s.state = stateFailed
	s.err = err
}

// eof fails the scan at the end of input. A cursor failure (read error or
// cancelled context) wins over the outcome the caller would otherwise report.
func (s *tableScanner) eof(otherwise error) {
	if err := s.cur.failure(); err != nil {
		s.fail(err)
		return
	}
	s.fail(otherwise)
}

func (s *tableScanner) truncated(stage string) {
	s.eof(&TruncatedTableError{Line: s.cur.lineNo(), Stage: stage})
}

// search consumes one line in stateSearching or stateInPhaseTable.
func (s *tableScanner) search() {
	if !s.cur.next() {
		s.eof(&TableNotFoundError{
			Kind:      s.req.kind,
			Primary:   s.req.primary,
			Secondary: s.req.secondary,
			Summary:   s.req.summary,
		})
		return
	}
	line := s.cur.line()

	if s.state == stateInPhaseTable && IsTableEnding(line) {
		s.state = stateAwaitingSummaryRows
		return
	}

	n1, n2, ok := s.req.matches(line)
	if !ok {
		return
	}

	base, err := DecodeBase(s.req.kind, s.cur.lineNo(), line)
	if err != nil {
		s.fail(err)
		return
	}
	s.table.Base = base
	s.table.MatchedPrimary = n1
	s.table.MatchedSecondary = n2

	if !s.req.summary {
		if !s.cur.skip(tableHeaderLines) {
			s.truncated("table header")
			return
		}
		s.state = stateReadingRows
		return
	}

	s.phase = s.phase.advance()
	if got, _ := s.req.names1.PhaseOf(n1); got != s.phase.letter() {
		s.logger.Warn("phase caption out of sequence",
			slog.String("caption", n1),
			slog.String("expected_phase", s.phase.letter().String()),
			slog.Int("line", s.cur.lineNo()))
	}
	if s.phase == phaseCPending {
		s.state = stateInPhaseTable
	}
}

// skipSummaryPreamble drops the C phase trailer and the SUMMARY banner.
func (s *tableScanner) skipSummaryPreamble() {
	if !s.cur.skip(phaseCTrailerLines) {
		s.truncated("phase C trailer")
		return
	}
	if !s.cur.skip(summaryBannerLines) {
		s.truncated("summary banner")
		return
	}
	s.state = stateReadingRows
}

// readRows decodes rows up to the ending marker and then the statistics block.
func (s *tableScanner) readRows() {
	for {
		if !s.cur.next() {
			s.truncated("table rows")
			return
		}
		line := s.cur.line()
		if IsTableEnding(line) {
			break
		}
		row, err := DecodeRow(s.cur.lineNo(), line)
		if err != nil {
			s.fail(err)
			return
		}
		s.table.Rows = append(s.table.Rows, row)
	}

	var lines [3]string
	for i := range lines {
		if !s.cur.next() {
			s.truncated("table statistics")
			return
		}
		lines[i] = s.cur.line()
	}
	grouped, ungrouped, err := DecodeSummary(s.cur.lineNo()-2, lines)
	if err != nil {
		s.fail(err)
		return
	}
	s.table.Grouped = grouped
	s.table.Ungrouped = ungrouped
	s.state = stateDone
}
