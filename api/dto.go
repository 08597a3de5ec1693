/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON contract of the vacation API. Field names follow the
  Spanish camelCase vocabulary the clients already use (tipoVacaciones,
  diasSolicitados, fechaCorte...), independent of the Go domain names.

NAMING CONVENTION:
  - *DTO:     response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  h.decode, which rejects unknown shapes and failed tags with a 400 before
  any domain call. Domain rules that need storage stay in the vacation
  package.

DATES:
  Calendar dates are "YYYY-MM-DD". Timestamps are RFC 3339 in UTC.

SEE ALSO:
  - handlers.go: uses these types
  - errors.go:   ErrorResponse mapping
*/
package api

import (
	"strconv"
	"time"

	"github.com/warp/vacation-engine/generic"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// SubmitRequest is the body of POST /api/solicitudes.
type SubmitRequest struct {
	TipoVacaciones  string `json:"tipoVacaciones" validate:"required,oneof=libres bloque"`
	DiasSolicitados int    `json:"diasSolicitados" validate:"gt=0"`
	FechaInicio     string `json:"fechaInicio" validate:"required,datetime=2006-01-02"`
	FechaFin        string `json:"fechaFin" validate:"required,datetime=2006-01-02"`
	Periodo         int    `json:"periodo" validate:"min=2020,max=2099"`
	Observaciones   string `json:"observaciones" validate:"max=1000"`
}

// DecisionRequest is the body of POST /api/solicitudes/{id}/decision.
type DecisionRequest struct {
	Accion      string `json:"accion" validate:"required,oneof=aprobar rechazar"`
	Comentarios string `json:"comentarios" validate:"max=1000"`
}

// CancelRequest is the body of POST /api/solicitudes/{id}/cancelar.
type CancelRequest struct {
	MotivoCancelacion string `json:"motivoCancelacion" validate:"max=500"`
}

// EmployeeRequest is the body of PUT /api/empleados/{id}.
type EmployeeRequest struct {
	Nombre       string `json:"nombre" validate:"max=200"`
	Email        string `json:"email" validate:"omitempty,email"`
	FechaIngreso string `json:"fechaIngreso" validate:"required,datetime=2006-01-02"`
	Extranjero   bool   `json:"extranjero"`
	JefeID       string `json:"jefeId"`
}

// AssignSuperiorRequest is the body of PUT /api/empleados/{id}/jefe. An
// empty jefeId makes the employee a root.
type AssignSuperiorRequest struct {
	JefeID string `json:"jefeId"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// RequestDTO is a vacation request.
type RequestDTO struct {
	ID                string  `json:"id"`
	UsuarioID         string  `json:"usuarioId"`
	AprobadorID       string  `json:"aprobadorId,omitempty"`
	SuperiorID        string  `json:"superiorId,omitempty"`
	TipoVacaciones    string  `json:"tipoVacaciones"`
	DiasSolicitados   int     `json:"diasSolicitados"`
	FechaInicio       string  `json:"fechaInicio"`
	FechaFin          string  `json:"fechaFin"`
	Estado            string  `json:"estado"`
	FechaSolicitud    string  `json:"fechaSolicitud"`
	FechaDecision     *string `json:"fechaDecision,omitempty"`
	Periodo           int     `json:"periodo"`
	DiasFinde         int     `json:"diasFinde"`
	Comentarios       string  `json:"comentarios,omitempty"`
	Observaciones     string  `json:"observaciones,omitempty"`
	MotivoCancelacion string  `json:"motivoCancelacion,omitempty"`
	FechaCancelacion  *string `json:"fechaCancelacion,omitempty"`
}

// PersonDTO is the short form of an employee inside other responses.
type PersonDTO struct {
	ID     string `json:"id"`
	Nombre string `json:"nombre"`
	Email  string `json:"email"`
}

// RequestDetailDTO is a request with the people involved and the actions
// the caller may take.
type RequestDetailDTO struct {
	RequestDTO
	Solicitante   PersonDTO  `json:"solicitante"`
	Aprobador     *PersonDTO `json:"aprobador,omitempty"`
	Superior      *PersonDTO `json:"superior,omitempty"`
	PuedeCancelar bool       `json:"puedeCancelar"`
	PuedeAprobar  bool       `json:"puedeAprobar"`
}

// BalanceDTO is the balance view of one employee and period.
type BalanceDTO struct {
	ID             string  `json:"id"`
	EmpleadoID     string  `json:"empleadoId"`
	NombreEmpleado string  `json:"nombreEmpleado"`
	Email          string  `json:"email"`
	Periodo        int     `json:"periodo"`
	DiasVencidas   int     `json:"diasVencidas"`
	DiasPendientes int     `json:"diasPendientes"`
	DiasTruncas    int     `json:"diasTruncas"`
	DiasLibres     int     `json:"diasLibres"`
	DiasBloque     int     `json:"diasBloque"`
	NombreManager  *string `json:"nombreManager,omitempty"`
	FechaCorte     string  `json:"fechaCorte"`
	TotalDias      int     `json:"totalDias"`
	TotalHistorico int     `json:"totalHistorico"`
}

// HistoryEntryDTO is one period of the balance history. Amounts are
// floating point on the wire.
type HistoryEntryDTO struct {
	Periodo    int     `json:"periodo"`
	Vencidas   float64 `json:"vencidas"`
	Pendientes float64 `json:"pendientes"`
	Truncas    float64 `json:"truncas"`
	DiasLibres float64 `json:"diasLibres"`
	DiasBloque float64 `json:"diasBloque"`
}

// EmployeeDTO is an employee of the directory.
type EmployeeDTO struct {
	ID           string `json:"id"`
	Nombre       string `json:"nombre"`
	Email        string `json:"email"`
	FechaIngreso string `json:"fechaIngreso"`
	Extranjero   bool   `json:"extranjero"`
	JefeID       string `json:"jefeId,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toRequestDTO(r vacation.VacationRequest) RequestDTO {
	return RequestDTO{
		ID:                r.ID,
		UsuarioID:         string(r.RequesterID),
		AprobadorID:       string(r.ApproverID),
		SuperiorID:        string(r.SuperiorID),
		TipoVacaciones:    string(r.Kind),
		DiasSolicitados:   r.Days,
		FechaInicio:       r.Start.String(),
		FechaFin:          r.End.String(),
		Estado:            string(r.State),
		FechaSolicitud:    r.SubmittedAt.UTC().Format(time.RFC3339),
		FechaDecision:     timestamp(r.DecidedAt),
		Periodo:           r.Period,
		DiasFinde:         r.WeekendDays,
		Comentarios:       r.Comments,
		Observaciones:     r.Notes,
		MotivoCancelacion: r.CancelReason,
		FechaCancelacion:  timestamp(r.CancelledAt),
	}
}

func toRequestDTOs(rs []vacation.VacationRequest) []RequestDTO {
	out := make([]RequestDTO, len(rs))
	for i, r := range rs {
		out[i] = toRequestDTO(r)
	}
	return out
}

func toRequestDetailDTO(d vacation.RequestDetail) RequestDetailDTO {
	return RequestDetailDTO{
		RequestDTO:    toRequestDTO(d.Request),
		Solicitante:   toPersonDTO(d.Requester),
		Aprobador:     toPersonPtr(d.Approver),
		Superior:      toPersonPtr(d.Superior),
		PuedeCancelar: d.PuedeCancelar,
		PuedeAprobar:  d.PuedeAprobar,
	}
}

func toPersonDTO(e vacation.Employee) PersonDTO {
	return PersonDTO{ID: string(e.ID), Nombre: e.Name, Email: e.Email}
}

func toPersonPtr(e *vacation.Employee) *PersonDTO {
	if e == nil {
		return nil
	}
	p := toPersonDTO(*e)
	return &p
}

func toBalanceDTO(v vacation.BalanceView) BalanceDTO {
	b := v.Balance
	dto := BalanceDTO{
		ID:             string(b.EmployeeID) + ":" + strconv.Itoa(b.Period),
		EmpleadoID:     string(v.Employee.ID),
		NombreEmpleado: v.Employee.Name,
		Email:          v.Employee.Email,
		Periodo:        b.Period,
		DiasVencidas:   b.Vencidas,
		DiasPendientes: b.Pendientes,
		DiasTruncas:    b.Truncas,
		DiasLibres:     b.DiasLibres,
		DiasBloque:     b.DiasBloque,
		FechaCorte:     b.FechaCorte.String(),
		TotalDias:      b.TotalDias(),
		TotalHistorico: b.TotalHistorico(),
	}
	if v.Manager != nil {
		name := v.Manager.Name
		dto.NombreManager = &name
	}
	return dto
}

func toHistoryDTOs(bs []vacation.Balance) []HistoryEntryDTO {
	out := make([]HistoryEntryDTO, len(bs))
	for i, b := range bs {
		out[i] = HistoryEntryDTO{
			Periodo:    b.Period,
			Vencidas:   float64(b.Vencidas),
			Pendientes: float64(b.Pendientes),
			Truncas:    float64(b.Truncas),
			DiasLibres: float64(b.DiasLibres),
			DiasBloque: float64(b.DiasBloque),
		}
	}
	return out
}

func toEmployeeDTO(e vacation.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           string(e.ID),
		Nombre:       e.Name,
		Email:        e.Email,
		FechaIngreso: e.HireDate.String(),
		Extranjero:   e.Foreign,
		JefeID:       string(e.JefeID),
	}
}

func toEmployeeDTOs(es []vacation.Employee) []EmployeeDTO {
	out := make([]EmployeeDTO, len(es))
	for i, e := range es {
		out[i] = toEmployeeDTO(e)
	}
	return out
}

func (req EmployeeRequest) toEmployee(id string) (vacation.Employee, error) {
	hired, err := generic.ParseDate(req.FechaIngreso)
	if err != nil {
		return vacation.Employee{}, &generic.ValidationError{Field: "fechaIngreso", Reason: "must be YYYY-MM-DD"}
	}
	return vacation.Employee{
		ID:       generic.EntityID(id),
		Name:     req.Nombre,
		Email:    req.Email,
		HireDate: hired,
		Foreign:  req.Extranjero,
		JefeID:   generic.EntityID(req.JefeID),
	}, nil
}

func timestamp(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}
