package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/HerbHall/switchmap/internal/snmp"
)

// Compile-time interface guard.
var _ snmp.Gateway = (*FakeGateway)(nil)

// FakeGateway is a scripted snmp.Gateway. Walks return the raw text
// registered for (address, oid), the registered error, or an empty walk.
type FakeGateway struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	blocked   map[string]bool
	calls     map[string][]string
}

// NewFakeGateway returns an empty FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		blocked:   make(map[string]bool),
		calls:     make(map[string][]string),
	}
}

func key(address, oid string) string { return address + "|" + oid }

// Respond scripts the raw walk output for oid on address.
func (f *FakeGateway) Respond(address, oid, raw string) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key(address, oid)] = raw
	return f
}

// Fail scripts an error for oid on address.
func (f *FakeGateway) Fail(address, oid string, err error) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[key(address, oid)] = err
	return f
}

// Block makes walks of oid on address wait for the context to end and
// then fail with a timeout QueryError.
func (f *FakeGateway) Block(address, oid string) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[key(address, oid)] = true
	return f
}

// Walk implements snmp.Gateway.
func (f *FakeGateway) Walk(ctx context.Context, t snmp.Target, oid string) (string, error) {
	k := key(t.Address, oid)

	f.mu.Lock()
	f.calls[t.Address] = append(f.calls[t.Address], oid)
	raw, err, blocked := f.responses[k], f.errs[k], f.blocked[k]
	f.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return "", &snmp.QueryError{Kind: snmp.KindTimeout, Address: t.Address, OID: oid, Err: ctx.Err()}
	}
	if err != nil {
		return "", err
	}
	return raw, nil
}

// Calls returns the OIDs walked on address, in call order.
func (f *FakeGateway) Calls(address string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls[address]...)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// macSuffix turns "00:1B:E0:0A:14:1E" into ".0.27.224.10.20.30".
func macSuffix(mac string) string {
	var b strings.Builder
	for _, part := range strings.Split(mac, ":") {
		n, err := strconv.ParseUint(part, 16, 8)
		if err != nil {
			panic(fmt.Sprintf("testutil: bad MAC %q", mac))
		}
		b.WriteString(".")
		b.WriteString(strconv.FormatUint(n, 10))
	}
	return b.String()
}

func itoa(n int) string { return strconv.Itoa(n) }
