package lis

import (
	"regexp"
	"strconv"
	"strings"
)

// Section names a coarse block of a list report.
type Section string

const (
	SectionInputCards             Section = "input_cards"
	SectionNodeConnections        Section = "node_connections"
	SectionPhasorUnknownVoltage   Section = "phasor_unknown_voltage"
	SectionPhasorSwitchCurrents   Section = "phasor_switch_currents"
	SectionPhasorKnownVoltage     Section = "phasor_known_voltage"
	SectionOutputVariables        Section = "output_variables"
	SectionStatisticalSimulations Section = "statistical_simulations"
	SectionStatisticalResults     Section = "statistical_results"
)

// sectionMarker pairs the line that opens a section with the line that closes it.
// The opening line belongs to the section, the closing line does not.
type sectionMarker struct {
	section    Section
	begin, end *regexp.Regexp
}

var sectionMarkers = []sectionMarker{
	{SectionInputCards,
		regexp.MustCompile(`^Descriptive interpretation of input data cards.`),
		regexp.MustCompile(`^$`)},
	{SectionNodeConnections,
		regexp.MustCompile(`^List of input elements that are connected to each node.`),
		regexp.MustCompile(`^--------------\+------------------------------`)},
	{SectionPhasorUnknownVoltage,
		regexp.MustCompile(`^Sinusoidal steady-state phasor solution, branch by branch.`),
		regexp.MustCompile(`^     Total network loss`)},
	{SectionPhasorSwitchCurrents,
		regexp.MustCompile(`^Output for steady-state phasor switch currents.`),
		regexp.MustCompile(`^$`)},
	{SectionPhasorKnownVoltage,
		regexp.MustCompile(`^Solution at nodes with known voltage.`),
		regexp.MustCompile(`^  ---- Initial flux of coil`)},
	{SectionOutputVariables,
		regexp.MustCompile(`^Column headings for the ([0-9 ]+) EMTP output variables follow.`),
		regexp.MustCompile(`^Blank card terminating all plot cards.`)},
	{SectionStatisticalSimulations,
		regexp.MustCompile(`^The data case now ready to be solved is a statistical overvoltage study`),
		regexp.MustCompile(`^ MAIN20 dumps OVER12 dice seed`)},
	{SectionStatisticalResults,
		regexp.MustCompile(`^MODTAB, AINCR, XMAXMX`),
		regexp.MustCompile(`^ .... Questionable Kolmogorov-Smirnov test result`)},
}

// AllSections lists every recognised section in report order.
func AllSections() []Section {
	out := make([]Section, len(sectionMarkers))
	for i, m := range sectionMarkers {
		out[i] = m.section
	}
	return out
}

// Segments is the result of segmenting one report.
type Segments struct {
	name            string
	lines           map[Section][]string
	outputVariables int
}

// segmenter assigns lines to at most one active section.
type segmenter struct {
	segs   *Segments
	active *sectionMarker
}

func newSegmenter(name string) *segmenter {
	return &segmenter{segs: &Segments{name: name, lines: make(map[Section][]string)}}
}

func (g *segmenter) feed(line string) {
	if g.active != nil && g.active.end.MatchString(line) {
		g.active = nil
	}
	for i := range sectionMarkers {
		m := &sectionMarkers[i]
		if sub := m.begin.FindStringSubmatch(line); sub != nil {
			g.active = m
			if m.section == SectionOutputVariables && len(sub) > 1 {
				if n, err := strconv.Atoi(strings.TrimSpace(sub[1])); err == nil {
					g.segs.outputVariables = n
				}
			}
			break
		}
	}
	if g.active != nil {
		g.segs.lines[g.active.section] = append(g.segs.lines[g.active.section], line)
	}
}

// Lines returns the lines of section in report order. Repeated occurrences are concatenated.
func (s *Segments) Lines(section Section) []string {
	return s.lines[section]
}

// Present lists the sections that hold at least one line, in report order.
func (s *Segments) Present() []Section {
	var out []Section
	for _, m := range sectionMarkers {
		if len(s.lines[m.section]) > 0 {
			out = append(out, m.section)
		}
	}
	return out
}

// Source exposes one section as a report of its own, so the other scans can
// be run on a pre-filtered range.
func (s *Segments) Source(section Section) Source {
	var b strings.Builder
	for _, line := range s.lines[section] {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return BytesSource(s.name+"#"+string(section), []byte(b.String()))
}

// InputCards returns the card images echoed in the input section: the text
// after the first '|' of each line. Lines without a '|' are skipped.
func (s *Segments) InputCards() []string {
	var cards []string
	for _, line := range s.lines[SectionInputCards] {
		if i := strings.IndexByte(line, '|'); i >= 0 {
			cards = append(cards, line[i+1:])
		}
	}
	return cards
}

// OutputVariableCount is the number announced by the output variables heading, or 0.
func (s *Segments) OutputVariableCount() int {
	return s.outputVariables
}
