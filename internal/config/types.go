package config

import (
	"gopkg.in/yaml.v3"
)

// DesiredState enumerates the lifecycle states a VM declaration may request.
type DesiredState string

const (
	StatePresent   DesiredState = "present"
	StateStarted   DesiredState = "started"
	StateStopped   DesiredState = "stopped"
	StateRestarted DesiredState = "restarted"
	StateAbsent    DesiredState = "absent"
)

// MonitorType enumerates the supported Datadog monitor types.
type MonitorType string

const (
	MonitorMetricAlert  MonitorType = "metric alert"
	MonitorServiceCheck MonitorType = "service check"
)

// ProxmoxAPI holds the connection settings for a Proxmox VE cluster.
// Password may be left empty and supplied via the PROXMOX_PASSWORD
// environment variable; that fallback is applied at the CLI boundary.
type ProxmoxAPI struct {
	Host               string `yaml:"host" validate:"required"`
	User               string `yaml:"user" validate:"required"`
	Password           string `yaml:"password"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// VMDeclaration is the desired state of one container instance. Every option
// the cluster API accepts is enumerated here with its type and default; the
// declaration is read-only input and is never mutated by the adapter.
type VMDeclaration struct {
	API ProxmoxAPI `yaml:"api"`

	// VMID is the numeric instance identifier, immutable once declared.
	VMID int `yaml:"vmid" validate:"required,min=1"`

	// State is the requested lifecycle state. Default: present.
	State DesiredState `yaml:"state" validate:"required,desired_state"`

	// Node names the cluster node a new instance is created on. Required
	// for state=present; autodiscovered from the cluster for other states.
	Node string `yaml:"node"`

	// Hostname, Password, and OSTemplate are required for state=present.
	Hostname   string `yaml:"hostname"`
	Password   string `yaml:"password"`
	OSTemplate string `yaml:"ostemplate"`

	// Disk is the root disk size in GB. Default: 3.
	Disk int `yaml:"disk" validate:"min=1"`
	// CPUs is the allocated CPU count. Default: 1.
	CPUs int `yaml:"cpus" validate:"min=1"`
	// Memory is the memory size in MB. Default: 512.
	Memory int `yaml:"memory" validate:"min=1"`
	// Swap is the swap size in MB. Default: 0.
	Swap int `yaml:"swap" validate:"min=0"`

	// NetIf specifies network interfaces for the container.
	NetIf string `yaml:"netif"`
	// IPAddress assigns a fixed address to the container.
	IPAddress string `yaml:"ip_address"`
	// OnBoot starts the instance during node bootup. Default: false.
	OnBoot bool `yaml:"onboot"`
	// Storage is the target storage for the instance. Default: "local".
	Storage string `yaml:"storage" validate:"required"`
	// CPUUnits is the CPU weight of the instance. Default: 1000.
	CPUUnits int `yaml:"cpuunits" validate:"min=1"`
	// Nameserver sets the DNS server address inside the container.
	Nameserver string `yaml:"nameserver"`
	// SearchDomain sets the DNS search domain inside the container.
	SearchDomain string `yaml:"searchdomain"`

	// Timeout is the polling budget in seconds for asynchronous cluster
	// tasks. Default: 30.
	Timeout int `yaml:"timeout" validate:"min=1"`

	// Force overwrites an existing instance for state=present and hard-stops
	// a running or mounted instance for state=stopped/restarted.
	Force bool `yaml:"force"`
}

// UnmarshalYAML decodes a VM declaration with defaults applied for every
// option the caller leaves unset.
func (d *VMDeclaration) UnmarshalYAML(value *yaml.Node) error {
	type rawVM VMDeclaration
	raw := rawVM{
		State:    StatePresent,
		Disk:     3,
		CPUs:     1,
		Memory:   512,
		Swap:     0,
		Storage:  "local",
		CPUUnits: 1000,
		Timeout:  30,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*d = VMDeclaration(raw)
	return nil
}

// DatadogAPI holds the credentials for the Datadog API. Site overrides the
// default API endpoint, mainly for tests. Keys may be left empty and
// supplied via the DATADOG_API_KEY / DATADOG_APP_KEY environment variables;
// that fallback is applied at the CLI boundary, which also enforces their
// presence.
type DatadogAPI struct {
	APIKey string `yaml:"api_key"`
	AppKey string `yaml:"app_key"`
	Site   string `yaml:"site"`
}

// MonitorDeclaration is the desired state of one Datadog monitor. Optional
// fields use pointers (or nil maps) so that only options the caller declared
// are forwarded to the API; declared options are forwarded verbatim.
type MonitorDeclaration struct {
	API DatadogAPI `yaml:"api"`

	// Type is the monitor type. One of "metric alert" or "service check".
	Type MonitorType `yaml:"type" validate:"required,monitor_type"`
	// Name identifies the monitor; it is the idempotency key.
	Name string `yaml:"name" validate:"required"`
	// Query is the monitor query string.
	Query string `yaml:"query" validate:"required"`

	// Message is included with notifications for the monitor.
	Message string `yaml:"message"`
	// Silenced maps scopes to epoch timestamps until which they are muted.
	Silenced map[string]int64 `yaml:"silenced"`
	// NotifyNoData alerts when data stops reporting.
	NotifyNoData *bool `yaml:"notify_no_data"`
	// NoDataTimeframe is the number of minutes before a no-data notification.
	NoDataTimeframe *int `yaml:"no_data_timeframe"`
	// TimeoutH is the number of hours before automatic resolution.
	TimeoutH *int `yaml:"timeout_h"`
	// RenotifyInterval is the number of minutes between re-notifications.
	RenotifyInterval *int `yaml:"renotify_interval"`
	// EscalationMessage is included with re-notifications.
	EscalationMessage string `yaml:"escalation_message"`
	// NotifyAudit notifies tagged users on changes to the monitor.
	NotifyAudit *bool `yaml:"notify_audit"`
	// Thresholds maps alert statuses to threshold values. Only valid for
	// service checks.
	Thresholds map[string]float64 `yaml:"thresholds"`
}
