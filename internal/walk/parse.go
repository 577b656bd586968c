// Package walk turns raw snmpwalk-style text into typed index maps.
//
// Input lines have the net-snmp shape "OID = TYPE: value". OIDs may be
// numeric (with or without a leading dot), iso-prefixed, or start with one
// of a handful of well-known MIB names; all are normalized to dotted
// numeric form before use. None of the parse functions return errors:
// lines that cannot be used are skipped and counted, blank lines are
// ignored, and when an index repeats the last occurrence wins. A STRING
// whose opening quote is not closed on the same line is unusable, except
// in ParseScalarString where it may continue over the following lines.
package walk

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Parser holds the patterns used to split walk output into bindings.
// The zero value is not usable; start from DefaultParser or NewParser.
type Parser struct {
	// Line must capture three groups: OID, value type, value.
	Line *regexp.Regexp
	// Enum matches net-snmp enum renderings such as "up(1)" and captures
	// the numeric part.
	Enum *regexp.Regexp
}

// NewParser returns a Parser with the standard net-snmp patterns.
func NewParser() *Parser {
	return &Parser{
		Line: regexp.MustCompile(`^\s*(\S+)\s*=\s*([A-Za-z][A-Za-z0-9-]*):\s?(.*?)\s*$`),
		Enum: regexp.MustCompile(`^[A-Za-z][\w-]*\((-?\d+)\)$`),
	}
}

// DefaultParser is used by the package-level functions.
var DefaultParser = NewParser()

var (
	numericOID = regexp.MustCompile(`^\d+(\.\d+)*$`)

	mibPrefixes = []struct{ name, oid string }{
		{"SNMPv2-MIB::sysDescr", "1.3.6.1.2.1.1.1"},
		{"SNMPv2-SMI::mib-2", "1.3.6.1.2.1"},
		{"SNMPv2-SMI::enterprises", "1.3.6.1.4.1"},
		{"BRIDGE-MIB::dot1dTpFdbPort", "1.3.6.1.2.1.17.4.3.1.2"},
		{"BRIDGE-MIB::dot1dBasePortIfIndex", "1.3.6.1.2.1.17.1.4.1.2"},
		{"IF-MIB::ifDescr", "1.3.6.1.2.1.2.2.1.2"},
		{"Q-BRIDGE-MIB::dot1qPvid", "1.3.6.1.2.1.17.7.1.4.5.1.1"},
		{"CISCO-VLAN-MEMBERSHIP-MIB::vmVlan", "1.3.6.1.4.1.9.9.68.1.2.2.1.2"},
		{"iso", "1"},
	}
)

// binding is one parsed "OID = TYPE: value" line.
type binding struct {
	oid   string
	typ   string
	value string
}

// NormalizeOID converts an OID to dotted numeric form without a leading
// dot. The second return is false when the OID cannot be normalized.
func NormalizeOID(oid string) (string, bool) {
	oid = strings.TrimPrefix(strings.TrimSpace(oid), ".")
	for _, p := range mibPrefixes {
		if !strings.HasPrefix(oid, p.name) {
			continue
		}
		rest := oid[len(p.name):]
		if rest != "" && rest[0] != '.' {
			continue
		}
		oid = p.oid + rest
		break
	}
	if !numericOID.MatchString(oid) {
		return "", false
	}
	return oid, true
}

// scan splits raw into bindings and calls fn for each. fn returns false
// when the binding is unusable. The return value counts non-blank lines
// that did not produce a usable binding. With multiLine set, a quoted
// string may continue over following lines until its closing quote; the
// binding is dropped if the next binding or the end of input comes first.
func (p *Parser) scan(raw string, multiLine bool, fn func(b binding) bool) (skipped int) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := p.Line.FindStringSubmatch(line)
		if m == nil {
			skipped++
			continue
		}
		b := binding{typ: m[2], value: m[3]}
		oid, ok := NormalizeOID(m[1])
		if !ok {
			skipped++
			continue
		}
		b.oid = oid

		if b.typ == "STRING" && strings.HasPrefix(b.value, `"`) && (len(b.value) == 1 || !closedQuote(b.value)) {
			if !multiLine {
				skipped++
				continue
			}
			last, value, closed := p.joinLines(lines, i, b.value)
			i = last
			if !closed {
				skipped++
				continue
			}
			b.value = value
		}

		if !fn(b) {
			skipped++
		}
	}
	return skipped
}

// joinLines appends the lines after lines[i] to first until one ends
// with a closing quote. It stops early, with closed false, before a line
// that starts a new binding. last is the index of the final consumed line.
func (p *Parser) joinLines(lines []string, i int, first string) (last int, value string, closed bool) {
	var sb strings.Builder
	sb.WriteString(first)
	for i+1 < len(lines) && !p.startsBinding(lines[i+1]) {
		i++
		next := strings.TrimRight(lines[i], " \t\r")
		sb.WriteByte('\n')
		sb.WriteString(next)
		if closedQuote(next) {
			return i, sb.String(), true
		}
	}
	return i, sb.String(), false
}

// startsBinding reports whether line looks like the start of a new
// binding rather than the continuation of a multi-line string.
func (p *Parser) startsBinding(line string) bool {
	m := p.Line.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	_, ok := NormalizeOID(m[1])
	return ok
}

// closedQuote reports whether s ends with an unescaped double quote.
func closedQuote(s string) bool {
	if len(s) == 0 || s[len(s)-1] != '"' {
		return false
	}
	if s == `"` {
		return true
	}
	return !strings.HasSuffix(s, `\"`) || strings.HasSuffix(s, `\\"`)
}

func dequote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
	}
	return s
}

func lastIndex(oid string) (int, bool) {
	i := strings.LastIndexByte(oid, '.')
	n, err := strconv.Atoi(oid[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (p *Parser) intValue(b binding) (int, bool) {
	switch b.typ {
	case "INTEGER", "Gauge32", "Unsigned32":
	default:
		return 0, false
	}
	v := b.value
	if m := p.Enum.FindStringSubmatch(v); m != nil {
		v = m[1]
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseInterfaceNames parses an ifDescr walk into ifIndex → port name.
func (p *Parser) ParseInterfaceNames(raw string) (map[int]string, int) {
	names := make(map[int]string)
	skipped := p.scan(raw, false, func(b binding) bool {
		if b.typ != "STRING" {
			return false
		}
		idx, ok := lastIndex(b.oid)
		if !ok {
			return false
		}
		name := dequote(b.value)
		if name == "" {
			return false
		}
		names[idx] = name
		return true
	})
	return names, skipped
}

// ParseVlanTable parses a VLAN membership walk into ifIndex → VLAN id.
func (p *Parser) ParseVlanTable(raw string) (map[int]int, int) {
	vlans := make(map[int]int)
	skipped := p.scan(raw, false, func(b binding) bool {
		idx, ok := lastIndex(b.oid)
		if !ok {
			return false
		}
		vlan, ok := p.intValue(b)
		if !ok {
			return false
		}
		vlans[idx] = vlan
		return true
	})
	return vlans, skipped
}

// ParseBridgePorts parses a dot1dBasePortIfIndex walk into bridge port →
// ifIndex.
func (p *Parser) ParseBridgePorts(raw string) (map[int]int, int) {
	return p.ParseVlanTable(raw)
}

// ParseMacTable parses a forwarding-table walk. The OID suffix after
// baseOID encodes the MAC as six decimal octets; when the OID does not
// start with baseOID the whole OID is taken as the suffix. Entries are
// returned in input order and are not deduplicated.
func (p *Parser) ParseMacTable(raw, baseOID string) ([]models.MacEntry, int) {
	base, _ := NormalizeOID(baseOID)
	var entries []models.MacEntry
	skipped := p.scan(raw, false, func(b binding) bool {
		if b.typ != "INTEGER" {
			return false
		}
		suffix := b.oid
		if base != "" && strings.HasPrefix(suffix, base+".") {
			suffix = suffix[len(base)+1:]
		}
		mac, ok := decodeMAC(suffix)
		if !ok {
			return false
		}
		ifIndex, ok := p.intValue(b)
		if !ok {
			return false
		}
		entries = append(entries, models.MacEntry{MAC: mac, IfIndex: ifIndex})
		return true
	})
	return entries, skipped
}

// decodeMAC decodes exactly six dotted decimal octets.
func decodeMAC(suffix string) (models.MAC, bool) {
	var mac models.MAC
	parts := strings.Split(suffix, ".")
	if len(parts) != len(mac) {
		return mac, false
	}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > 255 {
			return mac, false
		}
		mac[i] = byte(n)
	}
	return mac, true
}

// ParseScalarString returns the dequoted value of the first STRING binding
// in raw, or "" when there is none. Used for sysDescr, whose value may
// span several lines.
func (p *Parser) ParseScalarString(raw string) string {
	var out string
	found := false
	p.scan(raw, true, func(b binding) bool {
		if found || b.typ != "STRING" {
			return found
		}
		out = dequote(b.value)
		found = true
		return true
	})
	return out
}

// ParseInterfaceNames parses with DefaultParser.
func ParseInterfaceNames(raw string) (map[int]string, int) {
	return DefaultParser.ParseInterfaceNames(raw)
}

// ParseVlanTable parses with DefaultParser.
func ParseVlanTable(raw string) (map[int]int, int) {
	return DefaultParser.ParseVlanTable(raw)
}

// ParseBridgePorts parses with DefaultParser.
func ParseBridgePorts(raw string) (map[int]int, int) {
	return DefaultParser.ParseBridgePorts(raw)
}

// ParseMacTable parses with DefaultParser.
func ParseMacTable(raw, baseOID string) ([]models.MacEntry, int) {
	return DefaultParser.ParseMacTable(raw, baseOID)
}

// ParseScalarString parses with DefaultParser.
func ParseScalarString(raw string) string {
	return DefaultParser.ParseScalarString(raw)
}
