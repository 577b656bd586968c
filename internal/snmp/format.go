package snmp

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosnmp/gosnmp"
)

// FormatPDU renders a PDU the way `snmpwalk -On` prints it, e.g.
// `.1.3.6.1.2.1.2.2.1.2.1 = STRING: "Gi0/1"`.
func FormatPDU(pdu gosnmp.SnmpPDU) string {
	name := pdu.Name
	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}
	return name + " = " + formatValue(pdu)
}

func formatValue(pdu gosnmp.SnmpPDU) string {
	switch pdu.Type {
	case gosnmp.OctetString:
		b, _ := pdu.Value.([]byte)
		if printable(b) {
			return `STRING: "` + strings.ReplaceAll(string(b), `"`, `\"`) + `"`
		}
		return "Hex-STRING: " + hexBytes(b)
	case gosnmp.Integer:
		return "INTEGER: " + gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.Gauge32, gosnmp.Uinteger32:
		return "Gauge32: " + gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.Counter32:
		return "Counter32: " + gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.Counter64:
		return "Counter64: " + gosnmp.ToBigInt(pdu.Value).String()
	case gosnmp.TimeTicks:
		return "Timeticks: (" + gosnmp.ToBigInt(pdu.Value).String() + ")"
	case gosnmp.ObjectIdentifier:
		return fmt.Sprintf("OID: %v", pdu.Value)
	case gosnmp.IPAddress:
		return fmt.Sprintf("IpAddress: %v", pdu.Value)
	case gosnmp.Null:
		return "NULL"
	case gosnmp.NoSuchObject:
		return "No Such Object available on this agent at this OID"
	case gosnmp.NoSuchInstance:
		return "No Such Instance currently exists at this OID"
	case gosnmp.EndOfMibView:
		return "No more variables left in this MIB View (It is past the end of the MIB tree)"
	default:
		return fmt.Sprintf("%s: %v", pdu.Type, pdu.Value)
	}
}

func printable(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}

func hexBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, c := range b {
		parts[i] = fmt.Sprintf("%02X", c)
	}
	return strings.Join(parts, " ")
}
