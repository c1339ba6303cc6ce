package manager

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aditip149209/okview/pkg/node"
	"github.com/aditip149209/okview/pkg/table"
)

// Client reads the node registry of a remote manager.
type Client struct {
	Base   string
	Client *http.Client
}

func NewClient(addr string) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &Client{
		Base:   strings.TrimSuffix(addr, "/"),
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Nodes(ctx context.Context) ([]node.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Base+"/nodes", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e ErrResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			return nil, fmt.Errorf("manager answered %s: %s", resp.Status, e.Message)
		}
		return nil, fmt.Errorf("manager answered %s", resp.Status)
	}
	var nodes []node.Node
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("decoding nodes: %w", err)
	}
	return nodes, nil
}

// Fetch serves the cluster table of the remote manager.
func (c *Client) Fetch(ctx context.Context, _ string) (*table.Model, error) {
	nodes, err := c.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	return node.Table(nodes), nil
}
