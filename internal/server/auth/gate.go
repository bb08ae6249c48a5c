package auth

import (
	"context"
	"slices"

	"github.com/dmitrijs2005/docgate/internal/common"
	"github.com/dmitrijs2005/docgate/internal/server/models"
)

// Operation names a host-facing gateway call.
type Operation string

const (
	OpOpenSession Operation = "config"
	OpStatus      Operation = "status"
	OpVersions    Operation = "versions"
	OpRestore     Operation = "restore"
	OpForceSave   Operation = "forcesave"
)

// Role values carried in host tokens.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleGuest  = "guest"
)

// Gate is the yes/no permission check run before each host-facing call.
// A nil error means allowed.
type Gate interface {
	Allow(ctx context.Context, p *Principal, op Operation, scope models.AssetScope) error
}

// RoleGate allows principals whose role is in Roles and whose workspace
// restriction, if any, covers the requested workspace.
type RoleGate struct {
	Roles []string
}

// NewRoleGate returns the default gate: admins and members only.
func NewRoleGate() *RoleGate {
	return &RoleGate{Roles: []string{RoleAdmin, RoleMember}}
}

func (g *RoleGate) Allow(_ context.Context, p *Principal, _ Operation, scope models.AssetScope) error {
	if p == nil {
		return common.ErrorUnauthorized
	}
	if !slices.Contains(g.Roles, p.Role) {
		return common.ErrForbidden
	}
	if len(p.Workspaces) > 0 && !slices.Contains(p.Workspaces, scope.WorkspaceSlug) {
		return common.ErrForbidden
	}
	return nil
}
