// Package odoo is the XML-RPC client for the Odoo CRM backend.
// It speaks the external API: /xmlrpc/2/common for authentication and
// /xmlrpc/2/object for model calls (execute_kw).
package odoo

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kolo/xmlrpc"

	"github.com/servibot/quoteflow/internal/infra/metrics"
)

// Config holds the connection parameters. Credentials come from the
// environment or the config file (see daemon.Config).
type Config struct {
	URL      string
	Database string
	Login    string
	APIKey   string
}

// Client is an authenticated Odoo connection. Safe for concurrent use;
// each call is an independent HTTP round-trip.
type Client struct {
	cfg    Config
	uid    int64
	object *xmlrpc.Client
}

// Dial connects and authenticates against the Odoo instance.
func Dial(cfg Config) (*Client, error) {
	if cfg.URL == "" || cfg.Database == "" || cfg.Login == "" || cfg.APIKey == "" {
		return nil, fmt.Errorf("odoo: missing connection parameters (url/db/login/api key)")
	}
	base := strings.TrimRight(cfg.URL, "/")

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 60 * time.Second,
	}

	common, err := xmlrpc.NewClient(base+"/xmlrpc/2/common", transport)
	if err != nil {
		return nil, fmt.Errorf("odoo: common endpoint: %w", err)
	}
	defer common.Close()

	object, err := xmlrpc.NewClient(base+"/xmlrpc/2/object", transport)
	if err != nil {
		return nil, fmt.Errorf("odoo: object endpoint: %w", err)
	}

	var reply interface{}
	args := []interface{}{cfg.Database, cfg.Login, cfg.APIKey, map[string]interface{}{}}
	if err := common.Call("authenticate", args, &reply); err != nil {
		object.Close()
		return nil, fmt.Errorf("odoo: authenticate: %w", err)
	}

	uid, ok := toInt64(reply)
	if !ok || uid <= 0 {
		object.Close()
		return nil, fmt.Errorf("odoo: authentication rejected for %s", cfg.Login)
	}

	return &Client{cfg: cfg, uid: uid, object: object}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.object.Close()
}

// UID returns the authenticated user id.
func (c *Client) UID() int64 { return c.uid }

// ExecuteKw invokes a method on a model through execute_kw.
func (c *Client) ExecuteKw(model, method string, args []interface{}, kw map[string]interface{}) (interface{}, error) {
	if args == nil {
		args = []interface{}{}
	}
	if kw == nil {
		kw = map[string]interface{}{}
	}

	metrics.CRMCalls.WithLabelValues(model, method).Inc()

	var reply interface{}
	call := []interface{}{c.cfg.Database, c.uid, c.cfg.APIKey, model, method, args, kw}
	if err := c.object.Call("execute_kw", call, &reply); err != nil {
		return nil, fmt.Errorf("odoo: %s.%s: %w", model, method, err)
	}
	return reply, nil
}

// SearchRead searches a model with a domain filter and reads the given
// fields. limit <= 0 means no limit.
func (c *Client) SearchRead(model string, filter []interface{}, fields []string, limit int) ([]Record, error) {
	kw := map[string]interface{}{"fields": fields}
	if limit > 0 {
		kw["limit"] = limit
	}
	reply, err := c.ExecuteKw(model, "search_read", []interface{}{filter}, kw)
	if err != nil {
		return nil, err
	}
	return toRecords(reply), nil
}

// Create inserts a record and returns its id.
func (c *Client) Create(model string, values map[string]interface{}) (int64, error) {
	reply, err := c.ExecuteKw(model, "create", []interface{}{values}, nil)
	if err != nil {
		return 0, err
	}
	id, ok := toInt64(reply)
	if !ok {
		return 0, fmt.Errorf("odoo: create %s returned %T, want id", model, reply)
	}
	return id, nil
}

// Write updates one record by id.
func (c *Client) Write(model string, id int64, values map[string]interface{}) (bool, error) {
	reply, err := c.ExecuteKw(model, "write", []interface{}{[]int64{id}, values}, nil)
	if err != nil {
		return false, err
	}
	ok, _ := reply.(bool)
	return ok, nil
}

// Read fetches one record by id. Returns nil when the id does not exist.
func (c *Client) Read(model string, id int64, fields []string) (Record, error) {
	kw := map[string]interface{}{"fields": fields}
	reply, err := c.ExecuteKw(model, "read", []interface{}{[]int64{id}}, kw)
	if err != nil {
		return nil, err
	}
	recs := toRecords(reply)
	if len(recs) == 0 {
		return nil, nil
	}
	return recs[0], nil
}

// Ping issues a cheap authenticated call, used by the health checker.
func (c *Client) Ping() error {
	_, err := c.ExecuteKw("res.users", "search_count", []interface{}{
		[]interface{}{[]interface{}{"id", "=", c.uid}},
	}, nil)
	return err
}
