package proxmox

// InstanceStatus enumerates the lifecycle statuses the cluster reports for a
// container instance. The remote API is not versioned against this contract,
// so unexpected values map to StatusUnknown.
type InstanceStatus string

const (
	StatusRunning InstanceStatus = "running"
	StatusStopped InstanceStatus = "stopped"
	StatusMounted InstanceStatus = "mounted"
	StatusUnknown InstanceStatus = "unknown"
)

// ParseInstanceStatus maps a raw status string onto the closed status set.
func ParseInstanceStatus(raw string) InstanceStatus {
	switch InstanceStatus(raw) {
	case StatusRunning:
		return StatusRunning
	case StatusStopped:
		return StatusStopped
	case StatusMounted:
		return StatusMounted
	default:
		return StatusUnknown
	}
}

// Instance is the observed state of one container in the cluster-wide
// resource listing.
type Instance struct {
	VMID   int
	Node   string
	Status InstanceStatus
}

// TaskID is the opaque handle (UPID) of an in-flight asynchronous cluster
// task. It lives for one polling session and is discarded once a terminal
// status is observed or the timeout fires.
type TaskID string

// CreateRequest carries the declared attributes forwarded on an instance
// create call. Every declared attribute is forwarded verbatim; optional
// string fields are omitted from the request when empty.
type CreateRequest struct {
	VMID         int
	Hostname     string
	Password     string
	OSTemplate   string
	Disk         int
	CPUs         int
	Memory       int
	Swap         int
	Storage      string
	CPUUnits     int
	NetIf        string
	IPAddress    string
	OnBoot       bool
	Nameserver   string
	SearchDomain string
	Force        bool
}
