package ipc

import (
	"errors"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

const (
	serviceName = "Lectern"
	dialTimeout = 2 * time.Second
)

// Client is a JSON-RPC connection to a running daemon. It is not safe to
// reuse after Close.
type Client struct {
	rpc *rpc.Client
}

// Dial connects to the daemon socket at path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{rpc: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close hangs up.
func (c *Client) Close() error {
	if c == nil || c.rpc == nil {
		return nil
	}
	err := c.rpc.Close()
	if errors.Is(err, rpc.ErrShutdown) {
		return nil
	}
	return err
}

// invoke calls Lectern.<method> and decodes the reply into a fresh R.
func invoke[R any](c *Client, method string, args any) (*R, error) {
	reply := new(R)
	if err := c.rpc.Call(serviceName+"."+method, args, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Daemon lifecycle.

func (c *Client) Start() (*StartResponse, error) {
	return invoke[StartResponse](c, "Start", StartRequest{})
}

func (c *Client) Stop() (*StopResponse, error) {
	return invoke[StopResponse](c, "Stop", StopRequest{})
}

func (c *Client) Status() (*StatusResponse, error) {
	return invoke[StatusResponse](c, "Status", StatusRequest{})
}

// Queue reads.

// AddFile enqueues a recording, or returns the existing item for the same path.
func (c *Client) AddFile(req AddFileRequest) (*AddFileResponse, error) {
	return invoke[AddFileResponse](c, "AddFile", req)
}

// QueueList lists items, limited to statuses when any are given.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return invoke[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	return invoke[QueueDescribeResponse](c, "QueueDescribe", QueueDescribeRequest{ID: id})
}

func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return invoke[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}

func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return invoke[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// Queue mutations.

func (c *Client) QueueClear() (*QueueClearResponse, error) {
	return invoke[QueueClearResponse](c, "QueueClear", QueueClearRequest{})
}

func (c *Client) QueueClearCompleted() (*QueueClearResponse, error) {
	return invoke[QueueClearResponse](c, "QueueClearCompleted", QueueClearCompletedRequest{})
}

func (c *Client) QueueClearFailed() (*QueueClearResponse, error) {
	return invoke[QueueClearResponse](c, "QueueClearFailed", QueueClearFailedRequest{})
}

func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	return invoke[QueueRemoveResponse](c, "QueueRemove", QueueRemoveRequest{IDs: ids})
}

// QueueRetry requeues failed items; nil ids means every failed item.
func (c *Client) QueueRetry(ids []int64) (*QueueUpdateResponse, error) {
	return invoke[QueueUpdateResponse](c, "QueueRetry", QueueRetryRequest{IDs: ids})
}

// ResetStuck rolls items left in a processing status back to where their
// stage starts.
func (c *Client) ResetStuck() (*QueueUpdateResponse, error) {
	return invoke[QueueUpdateResponse](c, "ResetStuck", ResetStuckRequest{})
}

// Diagnostics.

func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return invoke[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// LogTail pages through the daemon's in-memory log stream.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return invoke[LogTailResponse](c, "LogTail", req)
}
