package proxmox

import (
	"context"
	"fmt"
	"time"

	"github.com/ensureops/ensure/internal/config"
	"github.com/ensureops/ensure/internal/logger"
	"github.com/ensureops/ensure/internal/model"
	"github.com/ensureops/ensure/internal/poll"
	ensureerrors "github.com/ensureops/ensure/pkg/errors"
)

// Adapter reconciles a VM declaration against the observed cluster state:
// look up the instance, decide whether a mutating call is needed, dispatch
// at most one call per decision branch, and poll its task to completion.
// Invocations are strictly sequential; concurrent invocations against the
// same vmid are not coordinated.
type Adapter struct {
	api    API
	waiter *poll.Waiter
	log    *logger.Logger
}

// New builds an Adapter with the standard one-second polling cadence.
func New(api API, log *logger.Logger) *Adapter {
	return &Adapter{api: api, waiter: poll.NewWaiter(), log: log}
}

// NewWithWaiter builds an Adapter with a caller-supplied Waiter.
func NewWithWaiter(api API, waiter *poll.Waiter, log *logger.Logger) *Adapter {
	return &Adapter{api: api, waiter: waiter, log: log}
}

// Ensure drives the declared lifecycle state and returns exactly one
// Outcome or one fatal error.
func (a *Adapter) Ensure(ctx context.Context, decl *config.VMDeclaration) (*model.Outcome, error) {
	log := a.log.WithFields(map[string]any{"vmid": decl.VMID, "state": string(decl.State)})

	var (
		outcome *model.Outcome
		err     error
	)

	switch decl.State {
	case config.StatePresent:
		outcome, err = a.ensurePresent(ctx, log, decl)
		err = wrapFailure(err, "creation", decl.VMID)
	case config.StateStarted:
		outcome, err = a.ensureStarted(ctx, log, decl)
		err = wrapFailure(err, "starting", decl.VMID)
	case config.StateStopped:
		outcome, err = a.ensureStopped(ctx, log, decl)
		err = wrapFailure(err, "stopping", decl.VMID)
	case config.StateRestarted:
		outcome, err = a.ensureRestarted(ctx, log, decl)
		err = wrapFailure(err, "restarting", decl.VMID)
	case config.StateAbsent:
		outcome, err = a.ensureAbsent(ctx, log, decl)
		err = wrapFailure(err, "deletion", decl.VMID)
	default:
		return nil, fmt.Errorf("unsupported state %q", decl.State)
	}

	if err != nil {
		return nil, err
	}
	return outcome, nil
}

func wrapFailure(err error, operation string, vmid int) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s of VM %d failed: %w", operation, vmid, err)
}

// findInstance scans the cluster-wide resource listing for the declared
// identifier. Returns nil when no instance matches.
func (a *Adapter) findInstance(ctx context.Context, vmid int) (*Instance, error) {
	instances, err := a.api.Instances(ctx)
	if err != nil {
		return nil, err
	}

	for i := range instances {
		if instances[i].VMID == vmid {
			return &instances[i], nil
		}
	}
	return nil, nil
}

func (a *Adapter) ensurePresent(ctx context.Context, log *logger.Logger, decl *config.VMDeclaration) (*model.Outcome, error) {
	inst, err := a.findInstance(ctx, decl.VMID)
	if err != nil {
		return nil, err
	}

	if inst != nil && !decl.Force {
		log.Debug("instance already exists, nothing to do")
		return &model.Outcome{Message: fmt.Sprintf("VM with vmid = %d already exists", decl.VMID)}, nil
	}

	// Precondition order is fixed: declaration completeness, then node
	// existence, then template existence. The first violation wins.
	if decl.Node == "" || decl.Hostname == "" || decl.Password == "" || decl.OSTemplate == "" {
		return nil, ensureerrors.NewValidationError("", "node, hostname, password and ostemplate are mandatory for creating vm", nil)
	}

	nodes, err := a.api.Nodes(ctx)
	if err != nil {
		return nil, err
	}
	if !containsString(nodes, decl.Node) {
		return nil, ensureerrors.NewPreconditionError("node %q does not exist in cluster", decl.Node)
	}

	volumes, err := a.api.StorageContents(ctx, decl.Node, decl.Storage)
	if err != nil {
		return nil, err
	}
	if !containsString(volumes, decl.OSTemplate) {
		return nil, ensureerrors.NewPreconditionError("ostemplate %q does not exist on node %s and storage %s", decl.OSTemplate, decl.Node, decl.Storage)
	}

	log.Info("creating instance")
	task, err := a.api.CreateInstance(ctx, decl.Node, createRequest(decl))
	if err != nil {
		return nil, err
	}
	if err := a.await(ctx, "creating VM", decl.Node, task, decl.Timeout); err != nil {
		return nil, err
	}

	return &model.Outcome{
		Changed: true,
		Message: fmt.Sprintf("deployed VM %d from template %s", decl.VMID, decl.OSTemplate),
	}, nil
}

func (a *Adapter) ensureStarted(ctx context.Context, log *logger.Logger, decl *config.VMDeclaration) (*model.Outcome, error) {
	inst, err := a.requireInstance(ctx, decl.VMID)
	if err != nil {
		return nil, err
	}

	status, err := a.api.InstanceStatus(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	if status == StatusRunning {
		return &model.Outcome{Message: fmt.Sprintf("VM %d is already running", decl.VMID)}, nil
	}

	log.Info("starting instance")
	task, err := a.api.StartInstance(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	if err := a.await(ctx, "starting VM", inst.Node, task, decl.Timeout); err != nil {
		return nil, err
	}

	return &model.Outcome{Changed: true, Message: fmt.Sprintf("VM %d started", decl.VMID)}, nil
}

func (a *Adapter) ensureStopped(ctx context.Context, log *logger.Logger, decl *config.VMDeclaration) (*model.Outcome, error) {
	inst, err := a.requireInstance(ctx, decl.VMID)
	if err != nil {
		return nil, err
	}

	status, err := a.api.InstanceStatus(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}

	switch status {
	case StatusMounted:
		if !decl.Force {
			return &model.Outcome{Message: fmt.Sprintf("VM %d is already shutdown, but mounted. You can use force option to umount it.", decl.VMID)}, nil
		}

		log.Info("unmounting instance")
		task, err := a.api.UnmountInstance(ctx, inst.Node, decl.VMID)
		if err != nil {
			return nil, err
		}
		if err := a.await(ctx, "unmounting VM", inst.Node, task, decl.Timeout); err != nil {
			return nil, err
		}
		return &model.Outcome{Changed: true, Message: fmt.Sprintf("VM %d is shutting down", decl.VMID)}, nil

	case StatusStopped:
		return &model.Outcome{Message: fmt.Sprintf("VM %d is already shutdown", decl.VMID)}, nil

	default:
		log.Info("shutting down instance")
		task, err := a.api.ShutdownInstance(ctx, inst.Node, decl.VMID, decl.Force)
		if err != nil {
			return nil, err
		}
		if err := a.await(ctx, "stopping VM", inst.Node, task, decl.Timeout); err != nil {
			return nil, err
		}
		return &model.Outcome{Changed: true, Message: fmt.Sprintf("VM %d is shutting down", decl.VMID)}, nil
	}
}

func (a *Adapter) ensureRestarted(ctx context.Context, log *logger.Logger, decl *config.VMDeclaration) (*model.Outcome, error) {
	inst, err := a.requireInstance(ctx, decl.VMID)
	if err != nil {
		return nil, err
	}

	status, err := a.api.InstanceStatus(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	if status == StatusStopped || status == StatusMounted {
		return &model.Outcome{Message: fmt.Sprintf("VM %d is not running", decl.VMID)}, nil
	}

	// Restart is stop-then-start; changed only if both tasks complete.
	log.Info("shutting down instance")
	task, err := a.api.ShutdownInstance(ctx, inst.Node, decl.VMID, decl.Force)
	if err != nil {
		return nil, err
	}
	if err := a.await(ctx, "stopping VM", inst.Node, task, decl.Timeout); err != nil {
		return nil, err
	}

	log.Info("starting instance")
	task, err = a.api.StartInstance(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	if err := a.await(ctx, "starting VM", inst.Node, task, decl.Timeout); err != nil {
		return nil, err
	}

	return &model.Outcome{Changed: true, Message: fmt.Sprintf("VM %d is restarted", decl.VMID)}, nil
}

func (a *Adapter) ensureAbsent(ctx context.Context, log *logger.Logger, decl *config.VMDeclaration) (*model.Outcome, error) {
	inst, err := a.findInstance(ctx, decl.VMID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return &model.Outcome{Message: fmt.Sprintf("VM %d does not exist", decl.VMID)}, nil
	}

	status, err := a.api.InstanceStatus(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	switch status {
	case StatusRunning:
		return &model.Outcome{Message: fmt.Sprintf("VM %d is running. Stop it before deletion.", decl.VMID)}, nil
	case StatusMounted:
		return &model.Outcome{Message: fmt.Sprintf("VM %d is mounted. Stop it with force option before deletion.", decl.VMID)}, nil
	}

	log.Info("removing instance")
	task, err := a.api.DeleteInstance(ctx, inst.Node, decl.VMID)
	if err != nil {
		return nil, err
	}
	if err := a.await(ctx, "removing VM", inst.Node, task, decl.Timeout); err != nil {
		return nil, err
	}

	return &model.Outcome{Changed: true, Message: fmt.Sprintf("VM %d removed", decl.VMID)}, nil
}

// requireInstance resolves the declared identifier or fails the invocation.
// Used by the lifecycle states that cannot act on a missing instance.
func (a *Adapter) requireInstance(ctx context.Context, vmid int) (*Instance, error) {
	inst, err := a.findInstance(ctx, vmid)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, ensureerrors.NewPreconditionError("VM with vmid = %d does not exist in cluster", vmid)
	}
	return inst, nil
}

// await polls the task once per second until terminal success or until the
// declared timeout budget runs out. A timeout reports only; the partially
// applied remote action is never rolled back.
func (a *Adapter) await(ctx context.Context, op, node string, task TaskID, timeoutSeconds int) error {
	budget := time.Duration(timeoutSeconds) * time.Second

	return a.waiter.Wait(ctx, op, budget,
		func(ctx context.Context) (poll.Status, error) {
			return a.api.TaskStatus(ctx, node, task)
		},
		func(ctx context.Context) string {
			line, err := a.api.TaskLog(ctx, node, task)
			if err != nil {
				return ""
			}
			return line
		},
	)
}

func createRequest(decl *config.VMDeclaration) CreateRequest {
	return CreateRequest{
		VMID:         decl.VMID,
		Hostname:     decl.Hostname,
		Password:     decl.Password,
		OSTemplate:   decl.OSTemplate,
		Disk:         decl.Disk,
		CPUs:         decl.CPUs,
		Memory:       decl.Memory,
		Swap:         decl.Swap,
		Storage:      decl.Storage,
		CPUUnits:     decl.CPUUnits,
		NetIf:        decl.NetIf,
		IPAddress:    decl.IPAddress,
		OnBoot:       decl.OnBoot,
		Nameserver:   decl.Nameserver,
		SearchDomain: decl.SearchDomain,
		Force:        decl.Force,
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
