package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/switchmap/pkg/models"
)

// Compile-time interface guard.
var _ Directory = (*ZabbixAPI)(nil)

// snmpInterfaceType is the Zabbix interface type for SNMP agents.
const snmpInterfaceType = "2"

// ZabbixAPI reads devices through the Zabbix JSON-RPC API. Every call to
// Devices logs in once and reuses the session token for host.get.
type ZabbixAPI struct {
	httpClient       *http.Client
	url              string
	user             string
	password         string
	groupID          int
	legacyAuth       bool
	templates        map[int64]models.Vendor
	defaultCommunity string
	logger           *zap.Logger
	nextID           atomic.Int64
}

// NewZabbixAPI creates a JSON-RPC directory for cfg.URL (the full
// api_jsonrpc.php endpoint).
func NewZabbixAPI(cfg ZabbixConfig, defaultCommunity string, logger *zap.Logger) (*ZabbixAPI, error) {
	if cfg.URL == "" {
		return nil, errors.New("zabbix_api directory requires directory.zabbix.url")
	}
	templates, err := templateVendors(cfg.Templates)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZabbixAPI{
		httpClient:       &http.Client{Timeout: timeout},
		url:              strings.TrimRight(cfg.URL, "/"),
		user:             cfg.User,
		password:         cfg.Password,
		groupID:          cfg.GroupID,
		legacyAuth:       cfg.LegacyAuth,
		templates:        templates,
		defaultCommunity: defaultCommunity,
		logger:           logger,
	}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	Auth    string `json:"auth,omitempty"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// RPCError is an error object returned by the Zabbix API.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("zabbix api error %d: %s %s", e.Code, e.Message, e.Data)
}

type zbxHost struct {
	Host            string         `json:"host"`
	Interfaces      []zbxInterface `json:"interfaces"`
	ParentTemplates []struct {
		TemplateID string `json:"templateid"`
	} `json:"parentTemplates"`
}

type zbxInterface struct {
	IP      string          `json:"ip"`
	Type    string          `json:"type"`
	Main    string          `json:"main"`
	Details json.RawMessage `json:"details"`
}

type zbxDetails struct {
	Community string `json:"community"`
}

func (z *ZabbixAPI) Devices(ctx context.Context) ([]models.Device, error) {
	token, err := z.login(ctx)
	if err != nil {
		return nil, err
	}

	params := map[string]any{
		"groupids":              []string{strconv.Itoa(z.groupID)},
		"output":                []string{"host"},
		"selectInterfaces":      []string{"ip", "type", "main", "details"},
		"selectParentTemplates": []string{"templateid"},
	}
	var hosts []zbxHost
	if err := z.call(ctx, "host.get", params, token, &hosts); err != nil {
		return nil, fmt.Errorf("host.get: %w", err)
	}

	c := newCollector()
	for _, h := range hosts {
		iface, ok := snmpInterface(h.Interfaces)
		if !ok {
			z.logger.Debug("zabbix host has no SNMP interface", zap.String("switch", h.Host))
			continue
		}
		c.add(models.Device{
			Hostname:   h.Host,
			Address:    iface.IP,
			Credential: community(interfaceCommunity(iface), z.defaultCommunity),
			Vendor:     z.vendorFor(h),
		})
	}

	devices := c.devices()
	z.logger.Debug("zabbix api hosts loaded",
		zap.Int("group_id", z.groupID),
		zap.Int("devices", len(devices)),
	)
	return devices, nil
}

// snmpInterface picks the main SNMP interface, or the first one.
func snmpInterface(ifaces []zbxInterface) (zbxInterface, bool) {
	var (
		first zbxInterface
		found bool
	)
	for _, i := range ifaces {
		if i.Type != snmpInterfaceType {
			continue
		}
		if i.Main == "1" {
			return i, true
		}
		if !found {
			first, found = i, true
		}
	}
	return first, found
}

// interfaceCommunity extracts details.community. Zabbix returns details as
// an empty array for interfaces without details.
func interfaceCommunity(i zbxInterface) string {
	var d zbxDetails
	if len(i.Details) == 0 || json.Unmarshal(i.Details, &d) != nil {
		return ""
	}
	return d.Community
}

func (z *ZabbixAPI) vendorFor(h zbxHost) models.Vendor {
	for _, t := range h.ParentTemplates {
		id, err := strconv.ParseInt(t.TemplateID, 10, 64)
		if err != nil {
			continue
		}
		if v, ok := z.templates[id]; ok && v.Known() {
			return v
		}
	}
	return models.VendorUnknown
}

func (z *ZabbixAPI) login(ctx context.Context) (string, error) {
	params := map[string]string{"username": z.user, "password": z.password}
	if z.legacyAuth {
		params = map[string]string{"user": z.user, "password": z.password}
	}
	var token string
	if err := z.call(ctx, "user.login", params, "", &token); err != nil {
		return "", fmt.Errorf("user.login: %w", err)
	}
	if token == "" {
		return "", errors.New("user.login: empty session token")
	}
	return token, nil
}

// call performs one JSON-RPC request. The session token travels in the
// Authorization header, or in the body "auth" field when legacyAuth is set.
func (z *ZabbixAPI) call(ctx context.Context, method string, params any, token string, result any) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      z.nextID.Add(1),
	}
	if token != "" && z.legacyAuth {
		req.Auth = token
	}
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json-rpc")
	httpReq.Header.Set("Accept", "application/json")
	if token != "" && !z.legacyAuth {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := z.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("http POST %s: %w", z.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("zabbix api returned %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		return rpcResp.Error
	}
	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}
