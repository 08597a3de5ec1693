/*
handlers.go - HTTP API handlers for the vacation engine

PURPOSE:
  Exposes request lifecycle, balances and the employee directory over REST.
  Handlers decode and validate input, take the caller from the Identity
  middleware, delegate to the vacation package and map errors to status
  codes. No business rule lives here.

ENDPOINTS:
  Requests:
    POST   /api/solicitudes                  Submit (caller is requester)
    GET    /api/solicitudes                  Caller's requests, newest first
    GET    /api/solicitudes/pendientes       Pending requests the caller may decide
    GET    /api/solicitudes/{id}             Detail with puedeAprobar / puedeCancelar
    POST   /api/solicitudes/{id}/decision    Approve or reject
    POST   /api/solicitudes/{id}/cancelar    Cancel

  Balances:
    GET    /api/saldos/{empleadoId}            ?periodo=&fechaCorte=
    GET    /api/saldos/{empleadoId}/historial  ?fechaCorte=
    GET    /api/equipo/saldos                  ?periodo=&profundidad=&fechaCorte=

  Directory (admin):
    PUT    /api/empleados/{id}
    PUT    /api/empleados/{id}/jefe
    GET    /api/empleados/{id}/superiores

ERROR HANDLING:
  See errors.go. Every error goes through h.writeError, which uses
  generic.KindOf to choose the status.

SEE ALSO:
  - dto.go:       request/response data structures
  - identity.go:  caller extraction
  - server.go:    router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports whether a backing service answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Lifecycle *vacation.RequestLifecycleManager
	Balances  *vacation.BalanceService
	Directory *vacation.Directory
	Hierarchy *vacation.HierarchyResolver

	health   []Pinger
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler builds the services on deps. health is checked by /healthz.
func NewHandler(deps vacation.Deps, health ...Pinger) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.Logger = logger
	if deps.Locker == nil {
		// Lifecycle and ledger must serialize on the same locks.
		deps.Locker = generic.NewKeyedMutex()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Handler{
		Lifecycle: vacation.NewRequestLifecycleManager(deps),
		Balances:  vacation.NewBalanceService(deps),
		Directory: vacation.NewDirectory(deps),
		Hierarchy: vacation.NewHierarchyResolver(deps.Store),
		health:    health,
		validate:  v,
		logger:    logger.Named("api"),
	}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// SubmitRequest creates a pending request for the caller.
// POST /api/solicitudes
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor := mustActor(r)

	var req SubmitRequest
	if err := h.decode(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	in, err := req.toInput(actor.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.Lifecycle.Submit(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// ListOwnRequests returns the caller's requests.
// GET /api/solicitudes
func (h *Handler) ListOwnRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Lifecycle.ListOwn(r.Context(), mustActor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// ListPendingRequests returns the pending requests the caller may decide.
// GET /api/solicitudes/pendientes
func (h *Handler) ListPendingRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Lifecycle.ListPendingFor(r.Context(), mustActor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// GetRequest returns the detail view of a request.
// GET /api/solicitudes/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	d, err := h.Lifecycle.Detail(r.Context(), chi.URLParam(r, "id"), mustActor(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDetailDTO(d))
}

// DecideRequest approves or rejects a pending request.
// POST /api/solicitudes/{id}/decision
func (h *Handler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := h.decode(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	action, err := vacation.ParseDecision(req.Accion)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.Lifecycle.Decide(r.Context(), chi.URLParam(r, "id"), mustActor(r), action, req.Comentarios)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// CancelRequest cancels a request. The body is optional.
// POST /api/solicitudes/{id}/cancelar
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := h.decode(r, &req, true); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"), mustActor(r), req.MotivoCancelacion)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(updated))
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalance returns the balance view of an employee.
// GET /api/saldos/{empleadoId}?periodo=2025&fechaCorte=2025-06-30
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employee := generic.EntityID(chi.URLParam(r, "empleadoId"))
	if err := h.authorizeView(ctx, mustActor(r), employee); err != nil {
		h.writeError(w, r, err)
		return
	}

	cutoff, err := dateQuery(r, "fechaCorte")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	period, err := intQuery(r, "periodo", h.Balances.Today().Year())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	v, err := h.Balances.View(ctx, employee, period, cutoff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(v))
}

// GetHistory returns one balance per period since hire.
// GET /api/saldos/{empleadoId}/historial?fechaCorte=2025-06-30
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employee := generic.EntityID(chi.URLParam(r, "empleadoId"))
	if err := h.authorizeView(ctx, mustActor(r), employee); err != nil {
		h.writeError(w, r, err)
		return
	}

	cutoff, err := dateQuery(r, "fechaCorte")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	hist, err := h.Balances.History(ctx, employee, cutoff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHistoryDTOs(hist))
}

// GetTeamBalances returns the balances of the caller's subordinates.
// GET /api/equipo/saldos?periodo=2025&profundidad=1
func (h *Handler) GetTeamBalances(w http.ResponseWriter, r *http.Request) {
	cutoff, err := dateQuery(r, "fechaCorte")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	period, err := intQuery(r, "periodo", h.Balances.Today().Year())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	depth, err := intQuery(r, "profundidad", 1)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if depth < 0 {
		h.writeError(w, r, &generic.ValidationError{Field: "profundidad", Reason: "must not be negative"})
		return
	}
	if err := generic.ValidatePeriodYear(period); err != nil {
		h.writeError(w, r, err)
		return
	}

	team, err := h.Balances.TeamBalances(r.Context(), mustActor(r).ID, period, depth, cutoff)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]BalanceDTO, len(team))
	for i, v := range team {
		out[i] = toBalanceDTO(v)
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// DIRECTORY HANDLERS
// =============================================================================

// PutEmployee creates or replaces an employee.
// PUT /api/empleados/{id}
func (h *Handler) PutEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if err := h.decode(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	e, err := req.toEmployee(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.Directory.SaveEmployee(r.Context(), mustActor(r), e)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(saved))
}

// AssignSuperior sets the jefe of an employee.
// PUT /api/empleados/{id}/jefe
func (h *Handler) AssignSuperior(w http.ResponseWriter, r *http.Request) {
	var req AssignSuperiorRequest
	if err := h.decode(r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}

	saved, err := h.Directory.AssignSuperior(r.Context(), mustActor(r),
		generic.EntityID(chi.URLParam(r, "id")), generic.EntityID(req.JefeID))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(saved))
}

// GetSuperiors returns the chain above an employee, nearest first.
// GET /api/empleados/{id}/superiores
func (h *Handler) GetSuperiors(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	employee := generic.EntityID(chi.URLParam(r, "id"))
	if err := h.authorizeView(ctx, mustActor(r), employee); err != nil {
		h.writeError(w, r, err)
		return
	}

	chain, err := h.Directory.Superiors(ctx, employee)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(chain))
}

// Health reports whether the store (and lock backend) answer.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.health {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func mustActor(r *http.Request) vacation.Actor {
	a, _ := ActorFrom(r.Context())
	return a
}

func (h *Handler) authorizeView(ctx context.Context, actor vacation.Actor, employee generic.EntityID) error {
	ok, err := h.Hierarchy.CanView(ctx, actor, employee)
	if err != nil {
		return err
	}
	if !ok {
		return &vacation.ForbiddenError{ActorID: actor.ID, Action: "view", Reason: "not the employee or one of its superiors"}
	}
	return nil
}

// decode reads a JSON body into dst and runs the validator tags. With
// allowEmpty an absent body leaves dst at its zero value.
func (h *Handler) decode(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			return &generic.ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
		}
	}
	if err := h.validate.Struct(dst); err != nil {
		return validationFailure(err)
	}
	return nil
}

func (req SubmitRequest) toInput(requester generic.EntityID) (vacation.SubmitInput, error) {
	kind, err := vacation.ParseKind(req.TipoVacaciones)
	if err != nil {
		return vacation.SubmitInput{}, err
	}
	start, err := generic.ParseDate(req.FechaInicio)
	if err != nil {
		return vacation.SubmitInput{}, &generic.ValidationError{Field: "fechaInicio", Reason: "must be YYYY-MM-DD"}
	}
	end, err := generic.ParseDate(req.FechaFin)
	if err != nil {
		return vacation.SubmitInput{}, &generic.ValidationError{Field: "fechaFin", Reason: "must be YYYY-MM-DD"}
	}
	return vacation.SubmitInput{
		RequesterID: requester,
		Kind:        kind,
		Days:        req.DiasSolicitados,
		Start:       start,
		End:         end,
		Period:      req.Periodo,
		Notes:       req.Observaciones,
	}, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &generic.ValidationError{Field: name, Reason: "must be an integer"}
	}
	return n, nil
}

// dateQuery returns the zero TimePoint when the parameter is absent.
func dateQuery(r *http.Request, name string) (generic.TimePoint, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return generic.TimePoint{}, nil
	}
	tp, err := generic.ParseDate(v)
	if err != nil {
		return generic.TimePoint{}, &generic.ValidationError{Field: name, Reason: "must be YYYY-MM-DD"}
	}
	return tp, nil
}
