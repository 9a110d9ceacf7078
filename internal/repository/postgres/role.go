package postgres

import (
	"context"
	"fmt"

	"github.com/oshworks/osh-api/internal/model"
)

func (r *roleRepository) List(ctx context.Context) ([]*model.Role, error) {
	query := `SELECT id, name FROM roles ORDER BY name`
	var roles []*model.Role
	if err := r.GetDB().SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

func (r *roleRepository) FindByNames(ctx context.Context, names []model.RoleName) ([]*model.Role, error) {
	roles := make([]*model.Role, 0, len(names))
	for _, name := range names {
		var role model.Role
		err := r.GetDB().GetContext(ctx, &role, `SELECT id, name FROM roles WHERE name = $1`, name)
		if err != nil {
			return nil, fmt.Errorf("role not found: %s", name)
		}
		roles = append(roles, &role)
	}
	return roles, nil
}
