package ledger

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medical-access-ledger/internal/domain/events"
	"medical-access-ledger/internal/domain/identity"
	"medical-access-ledger/internal/domain/permissions"
	"medical-access-ledger/internal/domain/records"
	"medical-access-ledger/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 1000
)

func RegisterRoutes(r chi.Router, gw *Gateway) {
	// Self-service del paciente
	r.Route("/me", func(mr chi.Router) {
		mr.Put("/record", upsertRecordHandler(gw))
		mr.Get("/doctors", listMyDoctorsHandler(gw))
		mr.Post("/doctors", grantAccessHandler(gw))
		mr.Delete("/doctors/{doctor}", revokeAccessHandler(gw))
		mr.Get("/grants", listMyGrantsHandler(gw))
	})

	// Acceso a un paciente (self o médico autorizado)
	r.Route("/patients/{patient}", func(pr chi.Router) {
		pr.Get("/record", readRecordHandler(gw))
		pr.Get("/doctors", listDoctorsHandler(gw))
		pr.Get("/events", patientEventsHandler(gw))
	})

	r.Get("/events", listEventsHandler(gw))
}

type upsertRecordRequest struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	MedicalHistory string `json:"medical_history"`
	DocumentRef    string `json:"document_ref"` // hash del documento; opcional
}

type recordRefResponse struct {
	Owner     string    `json:"owner"`
	Sequence  uint64    `json:"sequence"`
	EventID   string    `json:"event_id"`
	UpdatedAt time.Time `json:"updated_at"`
}

type grantAccessRequest struct {
	Doctor string `json:"doctor"`
}

type eventRefResponse struct {
	Sequence uint64      `json:"sequence"`
	EventID  string      `json:"event_id"`
	Kind     events.Kind `json:"kind"`
}

type recordResponse struct {
	Owner          string    `json:"owner"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	MedicalHistory string    `json:"medical_history"`
	DocumentRef    string    `json:"document_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	// Solo en lecturas de terceros: el RecordAccessed que dejaron.
	AccessSequence uint64    `json:"access_sequence,omitempty"`
	AccessEventID  string    `json:"access_event_id,omitempty"`
}

type entryResponse struct {
	Doctor    string            `json:"doctor"`
	State     permissions.State `json:"state"`
	GrantedAt time.Time         `json:"granted_at"`
	Ordinal   uint64            `json:"ordinal"`
}

type eventResponse struct {
	Sequence  uint64      `json:"sequence"`
	ID        string      `json:"id"`
	Kind      events.Kind `json:"kind"`
	Patient   string      `json:"patient"`
	Doctor    string      `json:"doctor,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// upsertRecordHandler godoc
// @Summary      Crear o actualizar mi registro médico
// @Tags         records
// @Accept       json
// @Produce      json
// @Param        body  body      upsertRecordRequest  true  "registro"
// @Success      200   {object}  recordRefResponse
// @Failure      400   {string}  string
// @Failure      401   {string}  string
// @Router       /me/record [put]
func upsertRecordHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req upsertRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		ref, err := gw.AddOrUpdateRecord(r.Context(), caller, records.UpsertInput{
			Name:           req.Name,
			Age:            req.Age,
			MedicalHistory: req.MedicalHistory,
			DocumentRef:    req.DocumentRef,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordRefResponse{
			Owner:     ref.Owner.String(),
			Sequence:  ref.Sequence,
			EventID:   ref.EventID,
			UpdatedAt: ref.UpdatedAt,
		})
	}
}

// grantAccessHandler godoc
// @Summary      Dar acceso de lectura a un médico
// @Tags         access
// @Accept       json
// @Produce      json
// @Param        body  body      grantAccessRequest  true  "médico"
// @Success      201   {object}  eventRefResponse
// @Failure      400   {string}  string
// @Failure      404   {string}  string
// @Failure      409   {string}  string
// @Router       /me/doctors [post]
func grantAccessHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req grantAccessRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		doctor, err := identity.Parse(req.Doctor)
		if err != nil {
			http.Error(w, "doctor must be a 0x-prefixed 20-byte address", http.StatusBadRequest)
			return
		}

		ref, err := gw.GrantAccess(r.Context(), caller, doctor)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toEventRefResponse(ref))
	}
}

// revokeAccessHandler godoc
// @Summary      Revocar el acceso de un médico
// @Tags         access
// @Produce      json
// @Param        doctor  path      string  true  "dirección del médico"
// @Success      200     {object}  eventRefResponse
// @Failure      404     {string}  string
// @Failure      409     {string}  string
// @Router       /me/doctors/{doctor} [delete]
func revokeAccessHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		doctor, err := identity.Parse(chi.URLParam(r, "doctor"))
		if err != nil {
			http.Error(w, "doctor must be a 0x-prefixed 20-byte address", http.StatusBadRequest)
			return
		}

		ref, err := gw.RevokeAccess(r.Context(), caller, doctor)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toEventRefResponse(ref))
	}
}

// listMyDoctorsHandler godoc
// @Summary      Médicos con acceso a mi registro, en orden de grant
// @Tags         access
// @Produce      json
// @Success      200  {array}   string
// @Router       /me/doctors [get]
func listMyDoctorsHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeDoctors(w, r, gw, caller, caller)
	}
}

// listDoctorsHandler godoc
// @Summary      Médicos con acceso al registro del paciente (solo el paciente)
// @Tags         access
// @Produce      json
// @Param        patient  path      string  true  "dirección del paciente"
// @Success      200      {array}   string
// @Failure      403      {string}  string
// @Router       /patients/{patient}/doctors [get]
func listDoctorsHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patient, ok := patientParam(w, r)
		if !ok {
			return
		}
		writeDoctors(w, r, gw, caller, patient)
	}
}

func writeDoctors(w http.ResponseWriter, r *http.Request, gw *Gateway, caller, patient identity.Key) {
	doctors, err := gw.ListDoctors(r.Context(), caller, patient)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]string, 0, len(doctors))
	for _, d := range doctors {
		out = append(out, d.String())
	}
	writeJSON(w, http.StatusOK, out)
}

// listMyGrantsHandler godoc
// @Summary      Todas mis entries de permiso (incluye revocadas)
// @Tags         access
// @Produce      json
// @Success      200  {array}   entryResponse
// @Router       /me/grants [get]
func listMyGrantsHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		entries, err := gw.PatientGrants(r.Context(), caller, caller)
		if err != nil {
			writeError(w, err)
			return
		}

		out := make([]entryResponse, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryResponse{
				Doctor:    e.Doctor.String(),
				State:     e.State(),
				GrantedAt: e.GrantedAt,
				Ordinal:   e.Ordinal,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// readRecordHandler godoc
// @Summary      Leer el registro de un paciente
// @Description  El paciente lee el suyo; un médico necesita acceso vigente y la lectura queda en el log.
// @Tags         records
// @Produce      json
// @Param        patient  path      string  true  "dirección del paciente"
// @Success      200      {object}  recordResponse
// @Failure      403      {string}  string
// @Failure      404      {string}  string
// @Router       /patients/{patient}/record [get]
func readRecordHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patient, ok := patientParam(w, r)
		if !ok {
			return
		}

		rec, ref, err := gw.ReadRecordRef(r.Context(), caller, patient)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, recordResponse{
			Owner:          rec.Owner.String(),
			Name:           rec.Name,
			Age:            rec.Age,
			MedicalHistory: rec.MedicalHistory,
			DocumentRef:    rec.DocumentRef,
			CreatedAt:      rec.CreatedAt,
			UpdatedAt:      rec.UpdatedAt,
			AccessSequence: ref.Sequence,
			AccessEventID:  ref.EventID,
		})
	}
}

// patientEventsHandler godoc
// @Summary      Traza de auditoría del paciente (solo el paciente)
// @Tags         events
// @Produce      json
// @Param        patient  path      string  true   "dirección del paciente"
// @Param        limit    query     int     false  "máximo de eventos (default 50)"
// @Success      200      {array}   eventResponse
// @Failure      403      {string}  string
// @Router       /patients/{patient}/events [get]
func patientEventsHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := middleware.GetCaller(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		patient, ok := patientParam(w, r)
		if !ok {
			return
		}

		limit, err := parseLimit(r.URL.Query().Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		items, err := gw.PatientEvents(r.Context(), caller, patient, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponses(items))
	}
}

// listEventsHandler godoc
// @Summary      Log de eventos
// @Description  Sin from/to devuelve los más recientes primero. Con from y/o to recorre el rango en orden ascendente.
// @Tags         events
// @Produce      json
// @Param        limit  query     int  false  "máximo de eventos (default 50, tope 1000)"
// @Param        from   query     int  false  "sequence inicial (inclusive)"
// @Param        to     query     int  false  "sequence final (inclusive)"
// @Success      200    {array}   eventResponse
// @Failure      400    {string}  string
// @Router       /events [get]
func listEventsHandler(gw *Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetCaller(r.Context()); !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		q := r.URL.Query()
		limit, err := parseLimit(q.Get("limit"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		fromRaw, toRaw := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
		if fromRaw == "" && toRaw == "" {
			items, err := gw.RecentEvents(r.Context(), limit)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toEventResponses(items))
			return
		}

		from, err := parseSequence(fromRaw, 1)
		if err != nil {
			http.Error(w, "from must be a sequence number", http.StatusBadRequest)
			return
		}
		to, err := parseSequence(toRaw, math.MaxUint64)
		if err != nil {
			http.Error(w, "to must be a sequence number", http.StatusBadRequest)
			return
		}
		if from > to {
			http.Error(w, "from must be <= to", http.StatusBadRequest)
			return
		}

		// Collect toma limit <= 0 como "sin tope"; acá 0 es vacío, como en recent.
		if limit == 0 {
			writeJSON(w, http.StatusOK, []eventResponse{})
			return
		}
		items, err := events.Collect(gw.EventRange(r.Context(), from, to), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toEventResponses(items))
	}
}

func patientParam(w http.ResponseWriter, r *http.Request) (identity.Key, bool) {
	patient, err := identity.Parse(chi.URLParam(r, "patient"))
	if err != nil {
		http.Error(w, "patient must be a 0x-prefixed 20-byte address", http.StatusBadRequest)
		return identity.Key{}, false
	}
	return patient, true
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultEventLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("limit must be a non-negative integer")
	}
	if n > maxEventLimit {
		n = maxEventLimit
	}
	return n, nil
}

func parseSequence(raw string, def uint64) (uint64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseUint(raw, 10, 64)
}

func toEventRefResponse(ref EventRef) eventRefResponse {
	return eventRefResponse{Sequence: ref.Sequence, EventID: ref.EventID, Kind: ref.Kind}
}

func toEventResponses(items []events.Event) []eventResponse {
	out := make([]eventResponse, 0, len(items))
	for _, e := range items {
		resp := eventResponse{
			Sequence:  e.Sequence,
			ID:        e.ID,
			Kind:      e.Kind,
			Patient:   e.Patient.String(),
			Timestamp: e.Timestamp,
		}
		if e.HasDoctor() {
			resp.Doctor = e.Doctor.String()
		}
		out = append(out, resp)
	}
	return out
}

// writeError traduce la taxonomía del ledger a status HTTP.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, records.ErrInvalidInput),
		errors.Is(err, events.ErrInvalidInput),
		errors.Is(err, permissions.ErrInvalidDoctor):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAccessDenied):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, records.ErrNotFound):
		http.Error(w, "record not found", http.StatusNotFound)
	case errors.Is(err, permissions.ErrAlreadyGranted),
		errors.Is(err, permissions.ErrNotGranted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
