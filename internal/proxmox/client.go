package proxmox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ensureops/ensure/internal/config"
	"github.com/ensureops/ensure/internal/poll"
)

// API is the surface of the cluster REST API the adapter consumes. It is an
// interface so tests can substitute a fake cluster.
type API interface {
	// Instances lists every container instance known cluster-wide.
	Instances(ctx context.Context) ([]Instance, error)
	// Nodes lists the names of the cluster nodes.
	Nodes(ctx context.Context) ([]string, error)
	// StorageContents lists the volume identifiers present on a node storage.
	StorageContents(ctx context.Context, node, storage string) ([]string, error)
	// InstanceStatus fetches the current lifecycle status of one instance.
	InstanceStatus(ctx context.Context, node string, vmid int) (InstanceStatus, error)

	// Mutating calls. Each returns immediately with an opaque task handle.
	CreateInstance(ctx context.Context, node string, req CreateRequest) (TaskID, error)
	StartInstance(ctx context.Context, node string, vmid int) (TaskID, error)
	ShutdownInstance(ctx context.Context, node string, vmid int, forceStop bool) (TaskID, error)
	UnmountInstance(ctx context.Context, node string, vmid int) (TaskID, error)
	DeleteInstance(ctx context.Context, node string, vmid int) (TaskID, error)

	// TaskStatus fetches the current status of an asynchronous task.
	TaskStatus(ctx context.Context, node string, task TaskID) (poll.Status, error)
	// TaskLog fetches the first available task log line for diagnostics.
	TaskLog(ctx context.Context, node string, task TaskID) (string, error)
}

// Client talks to the Proxmox VE REST API (api2/json). Authentication uses
// the ticket endpoint; the ticket cookie and CSRF token are held for the
// duration of one invocation only.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ticket     string
	csrfToken  string
}

var _ API = (*Client)(nil)

// NewClient authenticates against the cluster and returns a ready Client.
func NewClient(ctx context.Context, api config.ProxmoxAPI) (*Client, error) {
	baseURL := api.Host
	if !strings.Contains(baseURL, "://") {
		baseURL = "https://" + baseURL
	}
	baseURL = strings.TrimSuffix(baseURL, "/") + "/api2/json"

	httpClient := &http.Client{}
	if api.InsecureSkipVerify {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	c := &Client{baseURL: baseURL, httpClient: httpClient}
	if err := c.login(ctx, api.User, api.Password); err != nil {
		return nil, errors.Wrap(err, "authorization on proxmox cluster failed")
	}

	return c, nil
}

func (c *Client) login(ctx context.Context, user, password string) error {
	form := url.Values{}
	form.Set("username", user)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/access/ticket", strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "couldn't build ticket request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var ticket struct {
		Ticket    string `json:"ticket"`
		CSRFToken string `json:"CSRFPreventionToken"`
	}
	if err := c.do(req, &ticket); err != nil {
		return err
	}
	if ticket.Ticket == "" {
		return errors.New("ticket response contained no ticket")
	}

	c.ticket = ticket.Ticket
	c.csrfToken = ticket.CSRFToken
	return nil
}

// do executes the request and decodes the "data" envelope into out.
func (c *Client) do(req *http.Request, out any) error {
	if c.ticket != "" {
		req.AddCookie(&http.Cookie{Name: "PVEAuthCookie", Value: c.ticket})
	}
	if c.csrfToken != "" && req.Method != http.MethodGet {
		req.Header.Set("CSRFPreventionToken", c.csrfToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "couldn't read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return errors.Wrap(err, "couldn't decode response envelope")
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return errors.Wrap(err, "couldn't decode response data")
	}

	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, "couldn't build request")
	}
	return c.do(req, out)
}

func (c *Client) submit(ctx context.Context, method, path string, form url.Values) (TaskID, error) {
	var reader io.Reader
	if form != nil {
		reader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return "", errors.Wrap(err, "couldn't build request")
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	var upid string
	if err := c.do(req, &upid); err != nil {
		return "", err
	}
	if upid == "" {
		return "", errors.New("mutating call returned no task id")
	}

	return TaskID(upid), nil
}

func (c *Client) Instances(ctx context.Context) ([]Instance, error) {
	var raw []struct {
		VMID   int    `json:"vmid"`
		Node   string `json:"node"`
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/cluster/resources?type=vm", &raw); err != nil {
		return nil, errors.Wrap(err, "couldn't list cluster resources")
	}

	instances := make([]Instance, 0, len(raw))
	for _, r := range raw {
		instances = append(instances, Instance{
			VMID:   r.VMID,
			Node:   r.Node,
			Status: ParseInstanceStatus(r.Status),
		})
	}
	return instances, nil
}

func (c *Client) Nodes(ctx context.Context) ([]string, error) {
	var raw []struct {
		Node string `json:"node"`
	}
	if err := c.get(ctx, "/nodes", &raw); err != nil {
		return nil, errors.Wrap(err, "couldn't list cluster nodes")
	}

	nodes := make([]string, 0, len(raw))
	for _, r := range raw {
		nodes = append(nodes, r.Node)
	}
	return nodes, nil
}

func (c *Client) StorageContents(ctx context.Context, node, storage string) ([]string, error) {
	path := fmt.Sprintf("/nodes/%s/storage/%s/content", url.PathEscape(node), url.PathEscape(storage))

	var raw []struct {
		VolID string `json:"volid"`
	}
	if err := c.get(ctx, path, &raw); err != nil {
		return nil, errors.Wrapf(err, "couldn't list contents of storage %s on node %s", storage, node)
	}

	volumes := make([]string, 0, len(raw))
	for _, r := range raw {
		volumes = append(volumes, r.VolID)
	}
	return volumes, nil
}

func (c *Client) InstanceStatus(ctx context.Context, node string, vmid int) (InstanceStatus, error) {
	path := fmt.Sprintf("/nodes/%s/openvz/%d/status/current", url.PathEscape(node), vmid)

	var raw struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, path, &raw); err != nil {
		return StatusUnknown, errors.Wrapf(err, "couldn't get status of VM %d", vmid)
	}

	return ParseInstanceStatus(raw.Status), nil
}

func (c *Client) CreateInstance(ctx context.Context, node string, req CreateRequest) (TaskID, error) {
	form := url.Values{}
	form.Set("vmid", strconv.Itoa(req.VMID))
	form.Set("hostname", req.Hostname)
	form.Set("password", req.Password)
	form.Set("ostemplate", req.OSTemplate)
	form.Set("disk", strconv.Itoa(req.Disk))
	form.Set("cpus", strconv.Itoa(req.CPUs))
	form.Set("memory", strconv.Itoa(req.Memory))
	form.Set("swap", strconv.Itoa(req.Swap))
	form.Set("storage", req.Storage)
	form.Set("cpuunits", strconv.Itoa(req.CPUUnits))
	form.Set("onboot", boolFlag(req.OnBoot))
	form.Set("force", boolFlag(req.Force))
	if req.NetIf != "" {
		form.Set("netif", req.NetIf)
	}
	if req.IPAddress != "" {
		form.Set("ip_address", req.IPAddress)
	}
	if req.Nameserver != "" {
		form.Set("nameserver", req.Nameserver)
	}
	if req.SearchDomain != "" {
		form.Set("searchdomain", req.SearchDomain)
	}

	task, err := c.submit(ctx, http.MethodPost, fmt.Sprintf("/nodes/%s/openvz", url.PathEscape(node)), form)
	return task, errors.Wrapf(err, "couldn't create VM %d", req.VMID)
}

func (c *Client) StartInstance(ctx context.Context, node string, vmid int) (TaskID, error) {
	path := fmt.Sprintf("/nodes/%s/openvz/%d/status/start", url.PathEscape(node), vmid)
	task, err := c.submit(ctx, http.MethodPost, path, nil)
	return task, errors.Wrapf(err, "couldn't start VM %d", vmid)
}

func (c *Client) ShutdownInstance(ctx context.Context, node string, vmid int, forceStop bool) (TaskID, error) {
	path := fmt.Sprintf("/nodes/%s/openvz/%d/status/shutdown", url.PathEscape(node), vmid)

	var form url.Values
	if forceStop {
		form = url.Values{}
		form.Set("forceStop", "1")
	}

	task, err := c.submit(ctx, http.MethodPost, path, form)
	return task, errors.Wrapf(err, "couldn't shut down VM %d", vmid)
}

func (c *Client) UnmountInstance(ctx context.Context, node string, vmid int) (TaskID, error) {
	path := fmt.Sprintf("/nodes/%s/openvz/%d/status/umount", url.PathEscape(node), vmid)
	task, err := c.submit(ctx, http.MethodPost, path, nil)
	return task, errors.Wrapf(err, "couldn't unmount VM %d", vmid)
}

func (c *Client) DeleteInstance(ctx context.Context, node string, vmid int) (TaskID, error) {
	path := fmt.Sprintf("/nodes/%s/openvz/%d", url.PathEscape(node), vmid)
	task, err := c.submit(ctx, http.MethodDelete, path, nil)
	return task, errors.Wrapf(err, "couldn't delete VM %d", vmid)
}

func (c *Client) TaskStatus(ctx context.Context, node string, task TaskID) (poll.Status, error) {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/status", url.PathEscape(node), url.PathEscape(string(task)))

	var raw struct {
		Status     string `json:"status"`
		ExitStatus string `json:"exitstatus"`
	}
	if err := c.get(ctx, path, &raw); err != nil {
		return poll.Status{}, errors.Wrapf(err, "couldn't get status of task %s", task)
	}

	return poll.Status{State: poll.ParseState(raw.Status), ExitStatus: raw.ExitStatus}, nil
}

func (c *Client) TaskLog(ctx context.Context, node string, task TaskID) (string, error) {
	path := fmt.Sprintf("/nodes/%s/tasks/%s/log", url.PathEscape(node), url.PathEscape(string(task)))

	var raw []struct {
		Line string `json:"t"`
	}
	if err := c.get(ctx, path, &raw); err != nil {
		return "", errors.Wrapf(err, "couldn't get log of task %s", task)
	}
	if len(raw) == 0 {
		return "", nil
	}

	return raw[0].Line, nil
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
