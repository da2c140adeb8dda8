package lis

import (
	"strings"
	"unicode/utf8"
)

const (
	// NameWidth is the width of a node name field in a list report.
	NameWidth = 6
	// MaxPrefixLength leaves room for the phase letter.
	MaxPrefixLength = NameWidth - 1
)

// Phase is a phase letter of a three-phase node name.
type Phase byte

const (
	PhaseA Phase = 'A'
	PhaseB Phase = 'B'
	PhaseC Phase = 'C'
)

var phases = [3]Phase{PhaseA, PhaseB, PhaseC}

func (p Phase) String() string { return string(rune(p)) }

// NameSet holds the A, B and C qualified names derived from one prefix,
// each padded with spaces to NameWidth.
type NameSet [3]string

// ResolveNames builds the three phase-qualified names for prefix.
func ResolveNames(prefix string) (NameSet, error) {
	if len(prefix) > MaxPrefixLength {
		return NameSet{}, &NameTooLongError{Name: prefix, Prefix: prefix}
	}
	var set NameSet
	for i, p := range phases {
		name := prefix + p.String()
		set[i] = name + strings.Repeat(" ", NameWidth-len(name))
	}
	return set, nil
}

// StripPhaseSuffix trims surrounding whitespace and drops the phase letter.
func StripPhaseSuffix(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	_, size := utf8.DecodeLastRuneInString(name)
	return name[:len(name)-size]
}

// resolveNodeName normalises a caller-supplied, phase-qualified node name.
func resolveNodeName(name string) (NameSet, error) {
	set, err := ResolveNames(StripPhaseSuffix(name))
	if err != nil {
		return NameSet{}, &NameTooLongError{Name: name, Prefix: StripPhaseSuffix(name)}
	}
	return set, nil
}

// Contains reports whether name is one of the set's padded names.
func (s NameSet) Contains(name string) bool {
	_, ok := s.PhaseOf(name)
	return ok
}

// PhaseOf returns the phase whose padded name equals name.
func (s NameSet) PhaseOf(name string) (Phase, bool) {
	for i, n := range s {
		if n == name {
			return phases[i], true
		}
	}
	return 0, false
}

// Prefix returns the shared name prefix.
func (s NameSet) Prefix() string {
	return StripPhaseSuffix(s[0])
}
