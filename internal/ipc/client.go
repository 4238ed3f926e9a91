package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"vigil/internal/api"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Vigil.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Vigil.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Vigil.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Submit enqueues one analysis job.
func (c *Client) Submit(submission api.SubmitRequest) (*SubmitResponse, error) {
	var resp SubmitResponse
	req := SubmitRequest{Submission: submission}
	if err := c.client.Call("Vigil.Submit", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns jobs optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Statuses: statuses}
	if err := c.client.Call("Vigil.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueDescribe returns details for a single job.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	var resp QueueDescribeResponse
	req := QueueDescribeRequest{ID: id}
	if err := c.client.Call("Vigil.QueueDescribe", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClear removes jobs, optionally restricted to the given statuses.
func (c *Client) QueueClear(statuses []string) (*QueueClearResponse, error) {
	var resp QueueClearResponse
	req := QueueClearRequest{Statuses: statuses}
	if err := c.client.Call("Vigil.QueueClear", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry retries failed jobs.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	req := QueueRetryRequest{IDs: ids}
	if err := c.client.Call("Vigil.QueueRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stats returns queue counters plus scheduler liveness.
func (c *Client) Stats() (*StatsResponse, error) {
	var resp StatsResponse
	if err := c.client.Call("Vigil.Stats", StatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecentAlerts returns recent alerts, newest first.
func (c *Client) RecentAlerts(limit int) (*AlertsResponse, error) {
	var resp AlertsResponse
	req := AlertsRequest{Limit: limit}
	if err := c.client.Call("Vigil.RecentAlerts", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Acknowledge marks one alert as acknowledged.
func (c *Client) Acknowledge(id string) (*AcknowledgeResponse, error) {
	var resp AcknowledgeResponse
	req := AcknowledgeRequest{ID: id}
	if err := c.client.Call("Vigil.Acknowledge", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Vigil.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	var resp TestNotificationResponse
	if err := c.client.Call("Vigil.TestNotification", TestNotificationRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
