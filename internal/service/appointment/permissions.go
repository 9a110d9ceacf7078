package appointment

import (
	"github.com/oshworks/osh-api/internal/model"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

type operation string

const (
	opCreate          operation = "create"
	opCreateForOthers operation = "create_for_others"
	opPropose         operation = "propose"
	opCancel          operation = "cancel"
	opCancelForOthers operation = "cancel_for_others"
	opObligatory      operation = "obligatory"
	opOverrideStatus  operation = "override_status"
	opAdminEdit       operation = "admin_edit"
)

// permissions is the single source of truth for which role may perform
// which workflow operation. Ownership restrictions (an EMPLOYEE acting
// on their own record only) are enforced separately by the service.
var permissions = map[operation]map[model.RoleName]bool{
	opCreate: {
		model.RoleEmployee: true,
		model.RoleHR:       true,
		model.RoleNurse:    true,
		model.RoleDoctor:   true,
	},
	opCreateForOthers: {
		model.RoleHR:     true,
		model.RoleNurse:  true,
		model.RoleDoctor: true,
	},
	opPropose: {
		model.RoleNurse:  true,
		model.RoleDoctor: true,
	},
	opCancel: {
		model.RoleEmployee: true,
		model.RoleHR:       true,
		model.RoleNurse:    true,
		model.RoleDoctor:   true,
	},
	opCancelForOthers: {
		model.RoleHR:     true,
		model.RoleNurse:  true,
		model.RoleDoctor: true,
	},
	opObligatory: {
		model.RoleHR: true,
	},
	opOverrideStatus: {
		model.RoleAdmin: true,
		model.RoleHR:    true,
	},
	opAdminEdit: {
		model.RoleAdmin: true,
		model.RoleHR:    true,
	},
}

func allowed(op operation, actor *model.AuthUser) bool {
	roles := permissions[op]
	for _, r := range actor.Roles {
		if roles[r] {
			return true
		}
	}
	return false
}

func requireOp(op operation, actor *model.AuthUser) error {
	if !allowed(op, actor) {
		return apperrors.Forbidden("", nil)
	}
	return nil
}
