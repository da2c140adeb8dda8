package lis

import (
	"regexp"
	"strings"

	"lisstat/pkg/contracts/domain"
)

// namePattern is a phase-qualified node name: a letter, up to four name
// characters, the phase letter and padding.
const namePattern = `[A-Z][A-Z0-9_\- ]{0,4}(?:A|B|C) {0,4}`

var (
	voltageCaptionRe = regexp.MustCompile(`(?i)^Statistical distribution of peak voltage at node  "(` + namePattern + `)"`)
	currentCaptionRe = regexp.MustCompile(`(?i)^Statistical distribution of peak current  for branch  "(` + namePattern + `)"  to  "(` + namePattern + `)"`)
	energyCaptionRe  = regexp.MustCompile(`(?i)^Statistical distribution of peak energy   for branch  "(` + namePattern + `)"  to  "(` + namePattern + `)".`)
	tableEndingRe    = regexp.MustCompile(`(?i)^Summary of preceding table follows:`)

	statOutputVoltageRe = regexp.MustCompile(`^Statistical output of  node  voltage`)
	statOutputCurrentRe = regexp.MustCompile(`^Statistical output of branch current`)
	statOutputEnergyRe  = regexp.MustCompile(`^Statistical output of branch energy `)
	peakExtremumRe      = regexp.MustCompile(`^      Peak extremum of subset has value `)
	shotLineRe          = regexp.MustCompile(`(?i)^      simulation ([0-9 ]{1,3})  for the variable having names  "([A-Z][A-Z0-9_\- ]{5})"  and  "(([A-Z][A-Z0-9_\- ]{5})| {6})".`)

	randomSwitchingRe = regexp.MustCompile(`^             Random switching times for simulation number`)
)

// MatchVoltageCaption reports whether line opens a peak voltage distribution
// table and returns the quoted node name with its padding.
func MatchVoltageCaption(line string) (string, bool) {
	m := voltageCaptionRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MatchCurrentCaption reports whether line opens a peak current distribution
// table and returns both branch node names.
func MatchCurrentCaption(line string) (string, string, bool) {
	m := currentCaptionRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// MatchEnergyCaption reports whether line opens a peak energy distribution
// table and returns both branch node names.
func MatchEnergyCaption(line string) (string, string, bool) {
	m := energyCaptionRe.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

// IsTableEnding reports whether line is the marker that follows the last row of a table.
func IsTableEnding(line string) bool {
	return tableEndingRe.MatchString(line)
}

// matchCaption dispatches on kind. Voltage captions leave n2 empty.
func matchCaption(kind domain.TableKind, line string) (n1, n2 string, ok bool) {
	switch kind {
	case domain.TableKindVoltage:
		n1, ok = MatchVoltageCaption(line)
	case domain.TableKindCurrent:
		n1, n2, ok = MatchCurrentCaption(line)
	case domain.TableKindEnergy:
		n1, n2, ok = MatchEnergyCaption(line)
	}
	return n1, n2, ok
}

// matchAnyCaption tries voltage, current and energy captions in that order.
func matchAnyCaption(line string) (domain.VariableName, bool) {
	for _, kind := range []domain.TableKind{domain.TableKindVoltage, domain.TableKindCurrent, domain.TableKindEnergy} {
		if n1, n2, ok := matchCaption(kind, line); ok {
			return domain.VariableName{
				Kind:  kind,
				Name1: strings.TrimRight(n1, " "),
				Name2: strings.TrimRight(n2, " "),
			}, true
		}
	}
	return domain.VariableName{}, false
}

// matchStatOutputHeader classifies a "Statistical output of ..." header line.
func matchStatOutputHeader(line string) (domain.TableKind, bool) {
	switch {
	case statOutputVoltageRe.MatchString(line):
		return domain.TableKindVoltage, true
	case statOutputCurrentRe.MatchString(line):
		return domain.TableKindCurrent, true
	case statOutputEnergyRe.MatchString(line):
		return domain.TableKindEnergy, true
	}
	return "", false
}
