package authcore

import (
	"context"
	"errors"
	"log"

	"github.com/sentralhq/authcore/permission"
)

// roleResolver maps a subject to its role and capability set via the
// directory, falling back to the default role when no assignment row
// exists. Backend failures are not masked by the fallback; only a
// confirmed missing assignment is.
type roleResolver struct {
	directory Directory
	table     *permission.Table
	metrics   *Metrics
	fallback  Role
}

func newRoleResolver(directory Directory, table *permission.Table, metrics *Metrics) *roleResolver {
	return &roleResolver{
		directory: directory,
		table:     table,
		metrics:   metrics,
		fallback:  RoleUser,
	}
}

func (r *roleResolver) Resolve(ctx context.Context, subjectID string) (RoleResolution, error) {
	roleName, err := r.directory.FetchRoleAssignment(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrRoleNotAssigned) {
			log.Print("authcore: no role assignment, falling back to default role")
			r.metrics.Inc(MetricRoleFallback)
			return r.resolution(r.fallback, true)
		}
		return RoleResolution{}, err
	}

	role := Role(roleName)
	res, err := r.resolution(role, false)
	if err != nil {
		// Unknown role names in the assignment table degrade to the
		// default role rather than failing the whole pipeline.
		log.Print("authcore: unknown role in assignment, falling back to default role")
		r.metrics.Inc(MetricRoleFallback)
		return r.resolution(r.fallback, true)
	}
	return res, nil
}

func (r *roleResolver) resolution(role Role, fallback bool) (RoleResolution, error) {
	set, ok := r.table.Resolve(string(role))
	if !ok {
		return RoleResolution{}, errors.New("role has no registered capability set")
	}
	return RoleResolution{
		Role:        role,
		Permissions: set,
		Fallback:    fallback,
	}, nil
}
