package hmc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// powerVMNamespace is the XML namespace of the HMC web management schema.
const powerVMNamespace = "http://www.ibm.com/xmlns/systems/power/firmware/web/mc/2012_10/"

const (
	logonPath        = "/rest/api/web/Logon"
	sessionHeader    = "X-API-Session"
	logonContentType = "application/vnd.ibm.powervm.web+xml; type=LogonRequest"
	logonAccept      = "application/vnd.ibm.powervm.web+xml; type=LogonResponse"
)

// RESTClient is the HMC REST API session used by the hybrid transport for
// read-only resource feeds. It implements ResourceFetcher.
type RESTClient struct {
	baseURL string
	http    *http.Client
	token   string

	logoffOnce sync.Once
}

// RESTOptions tunes the REST client.
type RESTOptions struct {
	// Port defaults to 12443, the HMC REST port.
	Port int
	// VerifyTLS enables certificate verification; HMCs ship self-signed
	// certificates, so callers usually leave this off.
	VerifyTLS bool
	// Timeout bounds each HTTP call.
	Timeout time.Duration
}

// NewRESTClient builds an unauthenticated client; call Logon before use.
func NewRESTClient(host string, opts RESTOptions) *RESTClient {
	port := opts.Port
	if port == 0 {
		port = 12443
	}
	return &RESTClient{
		baseURL: fmt.Sprintf("https://%s:%d", host, port),
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{
					InsecureSkipVerify: !opts.VerifyTLS, // #nosec G402
				},
			},
		},
	}
}

// Logon establishes the REST session. The session token arrives either in
// the X-API-Session response header or, on some HMC versions, only inside
// the LogonResponse body; both are checked.
func (c *RESTClient) Logon(ctx context.Context, creds Credentials) error {
	body := fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?>`+
			`<LogonRequest xmlns="%s" schemaVersion="V1_0">`+
			`<UserID>%s</UserID>`+
			`<Password>%s</Password>`+
			`</LogonRequest>`,
		powerVMNamespace, escapeXML(creds.Username), escapeXML(creds.Password))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+logonPath, strings.NewReader(body))
	if err != nil {
		return &ConnectionError{Host: c.baseURL, Err: err}
	}
	req.Header.Set("Content-Type", logonContentType)
	req.Header.Set("Accept", logonAccept)

	resp, err := c.http.Do(req)
	if err != nil {
		return &ConnectionError{Host: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		return &ConnectionError{
			Host: c.baseURL,
			Err:  fmt.Errorf("logon returned HTTP %d: %s", resp.StatusCode, preview(respBody)),
		}
	}

	token := resp.Header.Get(sessionHeader)
	if token == "" {
		token = ParseSessionToken(respBody)
	}
	if token == "" {
		return &ConnectionError{
			Host: c.baseURL,
			Err:  fmt.Errorf("logon response carried no session token (header or body): %s", preview(respBody)),
		}
	}

	c.token = token
	return nil
}

// FetchResource GETs a REST path with the session token and returns the raw
// document.
func (c *RESTClient) FetchResource(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &ResourceFetchError{Path: path, Err: err}
	}
	req.Header.Set(sessionHeader, c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ResourceFetchError{Path: path, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, &ResourceFetchError{Path: path, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ResourceFetchError{Path: path, StatusCode: resp.StatusCode, Body: preview(body)}
	}
	return body, nil
}

// Search runs a quick search against a resource type, e.g.
// Search(ctx, "ManagedSystem", "(SystemName=='power91')").
func (c *RESTClient) Search(ctx context.Context, resource, query string) ([]byte, error) {
	path := "/rest/api/uom/" + resource + "/search/" + url.PathEscape(query)
	return c.FetchResource(ctx, path)
}

// Logoff tears the session down. Best-effort and idempotent; the HMC
// expires abandoned sessions on its own.
func (c *RESTClient) Logoff(ctx context.Context) {
	c.logoffOnce.Do(func() {
		if c.token == "" {
			return
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+logonPath, nil)
		if err != nil {
			return
		}
		req.Header.Set(sessionHeader, c.token)
		if resp, err := c.http.Do(req); err == nil {
			_ = resp.Body.Close()
		}
		c.token = ""
	})
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

func preview(body []byte) string {
	const max = 500
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
