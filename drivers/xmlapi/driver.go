// Package xmlapi implements the controller driver for the UCS Manager XML
// API: every method is an XML document POSTed to /nuova, authenticated by
// the cookie returned from aaaLogin.
//
// Sessions opened by the lifecycle engine last a single operation, so the
// driver never refreshes its cookie.
package xmlapi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/nanoncore/nano-ucsm/types"
)

const (
	// APIPath is the XML API endpoint on the controller
	APIPath = "/nuova"

	defaultHTTPSPort = 443
	defaultHTTPPort  = 80
	maxResponseSize  = 32 << 20
)

type pendingChange struct {
	mo     *types.ManagedObject
	status string
}

// Driver implements types.Controller over the XML API
type Driver struct {
	config  *types.ControllerConfig
	client  *http.Client
	url     string
	mu      sync.Mutex
	cookie  string
	pending []pendingChange
}

// NewDriver creates a new XML API driver
func NewDriver(config *types.ControllerConfig) (types.Controller, error) {
	d, err := newDriver(config, nil)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewDriverWithClient creates a driver that sends requests through client.
// The client's own timeout and TLS settings are used as-is.
func NewDriverWithClient(config *types.ControllerConfig, client *http.Client) (types.Controller, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	d, err := newDriver(config, client)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func newDriver(config *types.ControllerConfig, client *http.Client) (*Driver, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if config.Address == "" {
		return nil, fmt.Errorf("address is required")
	}

	// Default timeout
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	scheme, port := "http", defaultHTTPPort
	if config.TLSEnabled {
		scheme, port = "https", defaultHTTPSPort
	}
	endpoint := url.URL{Scheme: scheme, Host: config.Endpoint(port), Path: APIPath}

	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if config.TLSEnabled {
			transport.TLSClientConfig = &tls.Config{
				InsecureSkipVerify: config.TLSSkipVerify, //nolint:gosec // User-controlled
			}
		}
		client = &http.Client{Timeout: config.Timeout, Transport: transport}
	}

	return &Driver{
		config: config,
		client: client,
		url:    endpoint.String(),
	}, nil
}

// URL returns the XML API endpoint
func (d *Driver) URL() string {
	return d.url
}

// Login sends aaaLogin and keeps the returned cookie
func (d *Driver) Login(ctx context.Context) error {
	resp, err := d.post(ctx, MethodLogin, aaaLogin{
		InName:     d.config.Username,
		InPassword: d.config.Password,
	})
	if err != nil {
		return err
	}
	if resp.OutCookie == "" {
		return &types.ProtocolError{Op: MethodLogin, Description: "controller returned no session cookie"}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cookie = resp.OutCookie
	d.pending = nil
	return nil
}

// Logout sends aaaLogout. The local session is dropped even when the
// request fails.
func (d *Driver) Logout(ctx context.Context) error {
	d.mu.Lock()
	cookie := d.cookie
	d.cookie = ""
	d.pending = nil
	d.mu.Unlock()

	if cookie == "" {
		return nil
	}
	_, err := d.post(ctx, MethodLogout, aaaLogout{InCookie: cookie})
	return err
}

// IsConnected returns true if a session cookie is held
func (d *Driver) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cookie != ""
}

// QueryDN sends configResolveDn
func (d *Driver) QueryDN(ctx context.Context, dn string) (*types.ManagedObject, error) {
	cookie, err := d.sessionCookie()
	if err != nil {
		return nil, err
	}

	resp, err := d.post(ctx, MethodResolveDn, configResolveDn{
		Cookie:         cookie,
		Dn:             dn,
		InHierarchical: "false",
	})
	if err != nil {
		return nil, err
	}

	mos := resp.objects()
	if len(mos) == 0 {
		return nil, nil
	}
	if mos[0].DN == "" {
		mos[0].DN = dn
	}
	return mos[0], nil
}

// QueryClass sends configResolveClass with the filters ANDed into an inFilter
func (d *Driver) QueryClass(ctx context.Context, classID types.ClassID, filters ...types.Filter) ([]*types.ManagedObject, error) {
	cookie, err := d.sessionCookie()
	if err != nil {
		return nil, err
	}

	resp, err := d.post(ctx, MethodResolveClass, configResolveClass{
		Cookie:         cookie,
		ClassID:        string(classID),
		InHierarchical: "false",
		InFilter:       filterElement(classID, filters),
	})
	if err != nil {
		return nil, err
	}
	return resp.objects(), nil
}

// AddMO stages a create
func (d *Driver) AddMO(mo *types.ManagedObject, modifyPresent bool) error {
	status := StatusCreated
	if modifyPresent {
		status = StatusCreatedModified
	}
	return d.stage(mo, status)
}

// ModifyMO stages a modify
func (d *Driver) ModifyMO(mo *types.ManagedObject) error {
	return d.stage(mo, StatusModified)
}

// RemoveMO stages a delete
func (d *Driver) RemoveMO(mo *types.ManagedObject) error {
	return d.stage(mo, StatusDeleted)
}

// Commit sends every staged change in one configConfMos
func (d *Driver) Commit(ctx context.Context) error {
	d.mu.Lock()
	cookie := d.cookie
	pending := d.pending
	d.pending = nil
	d.mu.Unlock()

	if cookie == "" {
		return types.ErrNotConnected
	}
	if len(pending) == 0 {
		return nil
	}

	req := configConfMos{Cookie: cookie, InHierarchical: "false"}
	for _, p := range pending {
		req.InConfigs.Pairs = append(req.InConfigs.Pairs, pair{
			Key: p.mo.DN,
			MO:  fromMO(p.mo, p.status, true),
		})
	}

	_, err := d.post(ctx, MethodConfigConfMos, req)
	return err
}

func (d *Driver) stage(mo *types.ManagedObject, status string) error {
	if mo == nil || mo.DN == "" {
		return fmt.Errorf("object with a DN is required")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cookie == "" {
		return types.ErrNotConnected
	}
	d.pending = append(d.pending, pendingChange{mo: mo.Clone(), status: status})
	return nil
}

func (d *Driver) sessionCookie() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cookie == "" {
		return "", types.ErrNotConnected
	}
	return d.cookie, nil
}

// post marshals a method, sends it and decodes the answer. Failures to
// reach the controller and 5xx answers are TransportErrors; anything the
// controller says no to is a ProtocolError.
func (d *Driver) post(ctx context.Context, method string, body interface{}) (*response, error) {
	payload, err := xml.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/xml")

	httpResp, err := d.client.Do(req)
	if err != nil {
		return nil, &types.TransportError{Op: method, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, &types.TransportError{Op: method, Err: err}
	}

	// 5xx comes from the web tier or a proxy in front of it, not from the
	// XML API.
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, &types.TransportError{
			Op:  method,
			Err: fmt.Errorf("HTTP %d %s", httpResp.StatusCode, http.StatusText(httpResp.StatusCode)),
		}
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, &types.ProtocolError{
			Op:          method,
			Code:        strconv.Itoa(httpResp.StatusCode),
			Description: http.StatusText(httpResp.StatusCode),
		}
	}

	var resp response
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, &types.ProtocolError{Op: method, Description: fmt.Sprintf("malformed response: %v", err)}
	}
	if resp.ErrorCode != "" {
		return nil, &types.ProtocolError{Op: method, Code: resp.ErrorCode, Description: resp.ErrorDescr}
	}
	return &resp, nil
}

// Ensure Driver implements required interfaces
var _ types.Controller = (*Driver)(nil)
