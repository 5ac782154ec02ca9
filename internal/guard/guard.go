// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package guard holds the authorization checks every mutation path runs
// before persisting: ownership of a resource, and role capabilities from a
// casbin RBAC policy for moderator actions.
package guard

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/google/uuid"

	"trailhub/internal/apperr"
	"trailhub/internal/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Owned is any resource with a single owning user.
type Owned interface {
	OwnerID() uuid.UUID
}

// IsOwner reports whether actorID owns r. A nil resource or a zero actor
// never owns anything.
func IsOwner(actorID uuid.UUID, r Owned) bool {
	if r == nil || actorID == uuid.Nil {
		return false
	}
	return r.OwnerID() == actorID
}

// RequireOwner returns a Forbidden error unless actorID owns r.
func RequireOwner(op string, actorID uuid.UUID, r Owned) error {
	if !IsOwner(actorID, r) {
		return apperr.Forbidden(op, "only the owner can do this")
	}
	return nil
}

// Capabilities checked against the policy.
const (
	ObjThread   = "thread"
	ObjPost     = "post"
	ObjCatalog  = "catalog"
	ObjSyncRuns = "sync_runs"
	ObjUsers    = "users"

	ActModerate = "moderate"
	ActDelete   = "delete"
	ActSync     = "sync"
	ActRead     = "read"
	ActManage   = "manage"
)

// Policy answers role capability questions.
type Policy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewPolicy builds the enforcer from the embedded model and policy.
func NewPolicy() (*Policy, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}

	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Policy{enforcer: enforcer}, nil
}

// loadPolicy parses "p, sub, obj, act" and "g, child, parent" lines.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("add policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Can reports whether role may perform act on obj. Enforcement errors deny.
func (p *Policy) Can(role models.Role, obj, act string) bool {
	ok, err := p.enforcer.Enforce(string(role), obj, act)
	return err == nil && ok
}

// CanModerate reports whether the actor holds the thread moderation capability.
func (p *Policy) CanModerate(actor models.Actor) bool {
	return p.Can(actor.Role, ObjThread, ActModerate)
}

// RequireOwnerOrModerator allows the owner of r or any moderator.
func (p *Policy) RequireOwnerOrModerator(op string, actor models.Actor, r Owned) error {
	if IsOwner(actor.ID, r) || p.CanModerate(actor) {
		return nil
	}
	return apperr.Forbidden(op, "only the creator or a moderator can do this")
}

// Require returns Forbidden unless the actor's role grants act on obj.
func (p *Policy) Require(op string, actor models.Actor, obj, act string) error {
	if !p.Can(actor.Role, obj, act) {
		return apperr.Forbidden(op, "insufficient privileges")
	}
	return nil
}
