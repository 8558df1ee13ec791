package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ruteri/noc-monitor-publisher/interfaces"
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// Timeout bounds a single request. Zero means no timeout.
	Timeout time.Duration

	Log *slog.Logger
}

// Client looks names up in remote registries and invokes exported objects,
// connecting through a client socket factory.
type Client struct {
	log        *slog.Logger
	httpClient *http.Client
	transport  *http.Transport
}

func NewClient(csf interfaces.ClientSocketFactory, cfg *ClientConfig) (*Client, error) {
	if csf == nil {
		return nil, errors.New("client socket factory is required")
	}
	if cfg == nil {
		cfg = &ClientConfig{}
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	transport := &http.Transport{
		DialTLSContext:      csf.DialContext,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		log:       log,
		transport: transport,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

func baseURL(host string, port int) string {
	return "https://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Lookup resolves name in the registry served on host:port.
func (c *Client) Lookup(ctx context.Context, host string, port int, name string) (*interfaces.Stub, error) {
	u := baseURL(host, port) + "/registry/" + url.PathEscape(name)
	body, status, err := c.do(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s on %s", ErrNotBound, name, net.JoinHostPort(host, strconv.Itoa(port)))
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("lookup of %s failed with status %d: %s", name, status, bytes.TrimSpace(body))
	}

	stub := &interfaces.Stub{}
	if err := json.Unmarshal(body, stub); err != nil {
		return nil, fmt.Errorf("could not decode stub: %w", err)
	}
	return stub, nil
}

// List returns the names bound in the registry served on host:port.
func (c *Client) List(ctx context.Context, host string, port int) ([]string, error) {
	body, status, err := c.do(ctx, http.MethodGet, baseURL(host, port)+"/registry", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("registry listing failed with status %d: %s", status, bytes.TrimSpace(body))
	}

	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		return nil, fmt.Errorf("could not decode registry listing: %w", err)
	}
	return names, nil
}

// Invoke calls method on the object behind stub. args is encoded as JSON;
// the result is decoded into reply when reply is not nil.
func (c *Client) Invoke(ctx context.Context, stub *interfaces.Stub, method string, args any, reply any) error {
	if stub == nil {
		return errors.New("nil stub")
	}

	var payload []byte
	if args != nil {
		encoded, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("could not encode %s arguments: %w", method, err)
		}
		payload = encoded
	}

	u := baseURL(stub.Host, stub.Port) + "/objects/" + url.PathEscape(stub.ObjectID) + "/" + url.PathEscape(method)
	body, status, err := c.do(ctx, http.MethodPost, u, payload)
	if err != nil {
		return err
	}

	var resp invocationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("could not decode %s response (status %d): %w", method, status, err)
	}
	return decodeResponse(method, resp, reply)
}

func (c *Client) do(ctx context.Context, method, u string, payload []byte) ([]byte, int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, 0, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("Remote request failed", "url", u, "err", err)
		return nil, 0, fmt.Errorf("request to %s failed: %w", u, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("could not read response from %s: %w", u, err)
	}
	return respBody, resp.StatusCode, nil
}

// Close drops idle connections.
func (c *Client) Close() {
	c.transport.CloseIdleConnections()
}
