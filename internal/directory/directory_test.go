package directory

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/switchmap/pkg/models"
)

func TestNew_SelectsType(t *testing.T) {
	d, err := New(Config{Type: TypeStatic}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Static{}, d)

	d, err = New(Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, &Static{}, d)

	d, err = New(Config{Type: TypeZabbixAPI, Zabbix: ZabbixConfig{URL: "http://zabbix.local/api_jsonrpc.php"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ZabbixAPI{}, d)

	d, err = New(Config{Type: TypeZabbixSQL, Zabbix: ZabbixConfig{DSN: "zabbix:secret@tcp(127.0.0.1:3306)/zabbix"}}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ZabbixSQL{}, d)
	require.NoError(t, d.(*ZabbixSQL).Close())

	_, err = New(Config{Type: "ldap"}, nil)
	assert.Error(t, err)

	_, err = New(Config{Type: TypeZabbixSQL}, nil)
	assert.Error(t, err)

	_, err = New(Config{Type: TypeZabbixAPI}, nil)
	assert.Error(t, err)
}

func TestCommunity(t *testing.T) {
	assert.Equal(t, "s3cret", community("s3cret", "public"))
	assert.Equal(t, "public", community("", "public"))
	assert.Equal(t, "public", community("  ", "public"))
	assert.Equal(t, "public", community("{$SNMP_COMMUNITY}", "public"))
}

func TestTemplateVendors(t *testing.T) {
	m, err := templateVendors(nil)
	require.NoError(t, err)
	assert.Equal(t, models.VendorProCurve, m[10250])
	assert.Equal(t, models.VendorCisco, m[10251])
	assert.Equal(t, models.VendorAruba, m[10252])

	m, err = templateVendors(map[string]string{"500": "cisco"})
	require.NoError(t, err)
	assert.Equal(t, map[int64]models.Vendor{500: models.VendorCisco}, m)

	_, err = templateVendors(map[string]string{"abc": "cisco"})
	assert.Error(t, err)
}

func TestStatic_HostsAndFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`hosts:
  - hostname: edge-sw-02
    address: 10.0.0.2
    vendor: aruba
  - hostname: core-sw-01
    address: 10.0.0.1
    vendor: Cisco
`), 0o600))

	s := NewStatic([]HostConfig{
		{Hostname: "core-sw-01", Address: "10.0.0.1", Community: "s3cret"},
		{Address: "10.0.0.3", Vendor: "juniper"},
	}, path, "public")

	devices, err := s.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 3)

	assert.Equal(t, models.Device{Hostname: "core-sw-01", Address: "10.0.0.1", Credential: "s3cret", Vendor: models.VendorCisco}, devices[0])
	assert.Equal(t, models.Device{Hostname: "10.0.0.3", Address: "10.0.0.3", Credential: "public", Vendor: models.VendorUnknown}, devices[1])
	assert.Equal(t, models.Device{Hostname: "edge-sw-02", Address: "10.0.0.2", Credential: "public", Vendor: models.VendorAruba}, devices[2])
}

func TestStatic_MissingAddress(t *testing.T) {
	_, err := NewStatic([]HostConfig{{Hostname: "x"}}, "", "public").Devices(context.Background())
	assert.Error(t, err)
}

func TestStatic_MissingFile(t *testing.T) {
	_, err := NewStatic(nil, filepath.Join(t.TempDir(), "nope.yaml"), "public").Devices(context.Background())
	assert.Error(t, err)
}

func TestZabbixSQL_Devices(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"host", "ip", "community", "templateid"}).
		AddRow("core-sw-01", "10.0.0.1", "s3cret", 10186).
		AddRow("core-sw-01", "10.0.0.1", "s3cret", 10251).
		AddRow("edge-sw-02", "10.0.0.2", "{$SNMP_COMMUNITY}", 10252).
		AddRow("old-sw-03", "10.0.0.3", nil, 10250).
		AddRow("lab-sw-04", "10.0.0.4", "lab", nil)
	mock.ExpectQuery(zabbixHostsQuery).WithArgs(28).WillReturnRows(rows)

	z, err := NewZabbixSQLFromDB(db, ZabbixConfig{GroupID: 28}, "public", nil)
	require.NoError(t, err)

	devices, err := z.Devices(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []models.Device{
		{Hostname: "core-sw-01", Address: "10.0.0.1", Credential: "s3cret", Vendor: models.VendorCisco},
		{Hostname: "edge-sw-02", Address: "10.0.0.2", Credential: "public", Vendor: models.VendorAruba},
		{Hostname: "old-sw-03", Address: "10.0.0.3", Credential: "public", Vendor: models.VendorProCurve},
		{Hostname: "lab-sw-04", Address: "10.0.0.4", Credential: "lab", Vendor: models.VendorUnknown},
	}, devices)
}

func TestZabbixSQL_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(zabbixHostsQuery).WithArgs(7).WillReturnError(errors.New("access denied"))

	z, err := NewZabbixSQLFromDB(db, ZabbixConfig{GroupID: 7}, "public", nil)
	require.NoError(t, err)

	_, err = z.Devices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

// newMockZabbix serves user.login and host.get like a Zabbix frontend.
func newMockZabbix(t *testing.T, legacy bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api_jsonrpc.php", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			Auth   string          `json:"auth"`
			ID     int64           `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &req))

		switch req.Method {
		case "user.login":
			var p map[string]string
			require.NoError(t, json.Unmarshal(req.Params, &p))
			userKey := "username"
			if legacy {
				userKey = "user"
			}
			if p[userKey] != "Admin" || p["password"] != "zabbix" {
				writeRPC(w, req.ID, nil, &RPCError{Code: -32602, Message: "Invalid params.", Data: "Incorrect user name or password"})
				return
			}
			writeRPC(w, req.ID, "tok123", nil)
		case "host.get":
			token := req.Auth
			if !legacy {
				token = r.Header.Get("Authorization")
				if len(token) > len("Bearer ") {
					token = token[len("Bearer "):]
				}
			}
			if token != "tok123" {
				writeRPC(w, req.ID, nil, &RPCError{Code: -32602, Message: "Not authorised."})
				return
			}
			var p struct {
				GroupIDs []string `json:"groupids"`
			}
			require.NoError(t, json.Unmarshal(req.Params, &p))
			assert.Equal(t, []string{"28"}, p.GroupIDs)
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":2,"result":[
				{"host":"core-sw-01","interfaces":[
					{"ip":"10.0.0.1","type":"1","main":"1","details":[]},
					{"ip":"10.0.0.1","type":"2","main":"1","details":{"version":"2","community":"s3cret"}}
				],"parentTemplates":[{"templateid":"10001"},{"templateid":"10251"}]},
				{"host":"edge-sw-02","interfaces":[
					{"ip":"10.0.0.2","type":"2","main":"1","details":{"version":"2","community":"{$SNMP_COMMUNITY}"}}
				],"parentTemplates":[{"templateid":"10252"}]},
				{"host":"agent-only","interfaces":[
					{"ip":"10.0.0.9","type":"1","main":"1","details":[]}
				],"parentTemplates":[]},
				{"host":"mystery-sw","interfaces":[
					{"ip":"10.0.0.5","type":"2","main":"0","details":[]}
				],"parentTemplates":[]}
			]}`))
		default:
			writeRPC(w, req.ID, nil, &RPCError{Code: -32601, Message: "Method not found."})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeRPC(w http.ResponseWriter, id int64, result any, rpcErr *RPCError) {
	resp := map[string]any{"jsonrpc": "2.0", "id": id}
	if rpcErr != nil {
		resp["error"] = rpcErr
	} else {
		resp["result"] = result
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func TestZabbixAPI_Devices(t *testing.T) {
	for _, legacy := range []bool{false, true} {
		srv := newMockZabbix(t, legacy)
		z, err := NewZabbixAPI(ZabbixConfig{
			URL:        srv.URL + "/api_jsonrpc.php",
			User:       "Admin",
			Password:   "zabbix",
			GroupID:    28,
			LegacyAuth: legacy,
		}, "public", nil)
		require.NoError(t, err)

		devices, err := z.Devices(context.Background())
		require.NoError(t, err, "legacy=%v", legacy)
		assert.Equal(t, []models.Device{
			{Hostname: "core-sw-01", Address: "10.0.0.1", Credential: "s3cret", Vendor: models.VendorCisco},
			{Hostname: "edge-sw-02", Address: "10.0.0.2", Credential: "public", Vendor: models.VendorAruba},
			{Hostname: "mystery-sw", Address: "10.0.0.5", Credential: "public", Vendor: models.VendorUnknown},
		}, devices, "legacy=%v", legacy)
	}
}

func TestZabbixAPI_LoginFailure(t *testing.T) {
	srv := newMockZabbix(t, false)
	z, err := NewZabbixAPI(ZabbixConfig{URL: srv.URL + "/api_jsonrpc.php", User: "Admin", Password: "wrong"}, "public", nil)
	require.NoError(t, err)

	_, err = z.Devices(context.Background())
	require.Error(t, err)
	var rpcErr *RPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, -32602, rpcErr.Code)
}

func TestZabbixAPI_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	z, err := NewZabbixAPI(ZabbixConfig{URL: srv.URL}, "public", nil)
	require.NoError(t, err)
	_, err = z.Devices(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
