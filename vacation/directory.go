package vacation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
)

// =============================================================================
// DIRECTORY - Employee upsert and superior assignment
// =============================================================================

// Directory is the HR surface of the engine. Writes are admin-only and keep
// the Jefe forest acyclic.
type Directory struct {
	store  TxStore
	logger *zap.Logger
}

func NewDirectory(d Deps) *Directory {
	d = d.withDefaults()
	return &Directory{store: d.Store, logger: d.Logger.Named("vacation.directory")}
}

// SaveEmployee inserts or replaces e.
func (d *Directory) SaveEmployee(ctx context.Context, actor Actor, e Employee) (Employee, error) {
	if err := requireAdmin(actor, "save employee"); err != nil {
		return Employee{}, err
	}
	e.ID = generic.EntityID(strings.TrimSpace(string(e.ID)))
	if e.ID == "" {
		return Employee{}, &generic.ValidationError{Field: "id", Reason: "required"}
	}
	if e.HireDate.IsZero() {
		return Employee{}, &generic.ValidationError{Field: "fechaIngreso", Reason: "required"}
	}

	err := d.store.WithTx(ctx, func(s Store) error {
		if err := NewHierarchyResolver(s).CheckAssignment(ctx, e.ID, e.JefeID); err != nil {
			return err
		}
		return generic.WrapStorage("save employee", s.SaveEmployee(ctx, e))
	})
	if err != nil {
		return Employee{}, err
	}
	d.logger.Info("employee saved", zap.String("employee_id", string(e.ID)), zap.String("jefe_id", string(e.JefeID)))
	return e, nil
}

// AssignSuperior sets the Jefe of employee. An empty superior makes the
// employee a root.
func (d *Directory) AssignSuperior(ctx context.Context, actor Actor, employee, superior generic.EntityID) (Employee, error) {
	if err := requireAdmin(actor, "assign superior"); err != nil {
		return Employee{}, err
	}

	var saved Employee
	err := d.store.WithTx(ctx, func(s Store) error {
		e, err := s.GetEmployee(ctx, employee)
		if err != nil {
			return generic.WrapStorage("get employee", err)
		}
		if err := NewHierarchyResolver(s).CheckAssignment(ctx, employee, superior); err != nil {
			return err
		}
		e.JefeID = superior
		saved = e
		return generic.WrapStorage("save employee", s.SaveEmployee(ctx, e))
	})
	if err != nil {
		d.logger.Warn("superior assignment rejected",
			zap.String("employee_id", string(employee)), zap.String("jefe_id", string(superior)), zap.Error(err))
		return Employee{}, err
	}
	d.logger.Info("superior assigned", zap.String("employee_id", string(employee)), zap.String("jefe_id", string(superior)))
	return saved, nil
}

// Superiors returns the chain above employee, nearest first.
func (d *Directory) Superiors(ctx context.Context, employee generic.EntityID) ([]Employee, error) {
	return NewHierarchyResolver(d.store).Superiors(ctx, employee)
}

func requireAdmin(actor Actor, action string) error {
	if !actor.Active {
		return &ForbiddenError{ActorID: actor.ID, Action: action, Reason: "user is inactive"}
	}
	if !actor.IsAdmin() {
		return &ForbiddenError{ActorID: actor.ID, Action: action, Reason: "requires " + PermissionAdminister}
	}
	return nil
}
