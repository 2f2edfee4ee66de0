package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/atvirokodosprendimai/envadmin/internal/core/domain"
	"github.com/atvirokodosprendimai/envadmin/internal/core/usecase"
)

type createVehicleRequest struct {
	PlateNumber string `json:"plate_number"`
	VIN         string `json:"vin"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	FuelType    string `json:"fuel_type"`
	OwnerName   string `json:"owner_name"`
	Status      string `json:"status"`
}

type vehicleResponse struct {
	ID          string `json:"id"`
	PlateNumber string `json:"plate_number"`
	VIN         string `json:"vin"`
	Make        string `json:"make"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	FuelType    string `json:"fuel_type"`
	OwnerName   string `json:"owner_name,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type createEmissionTestRequest struct {
	CO        float64    `json:"co_percent"`
	HC        float64    `json:"hc_ppm"`
	NOx       float64    `json:"nox_ppm"`
	Opacity   float64    `json:"opacity_m"`
	Inspector string     `json:"inspector"`
	Notes     string     `json:"notes"`
	TestedAt  *time.Time `json:"tested_at"`
}

type emissionTestResponse struct {
	ID        string  `json:"id"`
	VehicleID string  `json:"vehicle_id"`
	CO        float64 `json:"co_percent"`
	HC        float64 `json:"hc_ppm"`
	NOx       float64 `json:"nox_ppm"`
	Opacity   float64 `json:"opacity_m"`
	Result    string  `json:"result"`
	Inspector string  `json:"inspector"`
	Notes     string  `json:"notes,omitempty"`
	TestedAt  string  `json:"tested_at"`
	CreatedAt string  `json:"created_at"`
}

type pageResponse[T any] struct {
	Items      []T     `json:"items"`
	NextCursor *string `json:"next_cursor"`
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	if err := h.schemas.Validate(usecase.SchemaVehicleCreate, body); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	var req createVehicleRequest
	if err := decodeStrict(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	v, err := h.vehicles.Create(r.Context(), domain.Vehicle{
		PlateNumber: req.PlateNumber,
		VIN:         req.VIN,
		Make:        req.Make,
		Model:       req.Model,
		Year:        req.Year,
		FuelType:    req.FuelType,
		OwnerName:   req.OwnerName,
		Status:      req.Status,
	})
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toVehicleResponse(v))
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.vehicles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toVehicleResponse(v))
}

func (h *Handler) patchVehicle(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	if err := h.schemas.Validate(usecase.SchemaVehiclePatch, body); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	var patch map[string]json.RawMessage
	if err := decodeStrict(body, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	v, err := h.vehicles.Patch(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toVehicleResponse(v))
}

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.vehicles.List(r.Context(), domain.VehicleFilter{
		Status:   r.URL.Query().Get("status"),
		FuelType: r.URL.Query().Get("fuel_type"),
	}, page)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	items := make([]vehicleResponse, 0, len(result.Items))
	for _, v := range result.Items {
		items = append(items, toVehicleResponse(v))
	}
	writeJSON(w, http.StatusOK, pageResponse[vehicleResponse]{Items: items, NextCursor: nextCursor(result.NextCursor)})
}

func (h *Handler) createEmissionTest(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSONBody(w, r)
	if !ok {
		return
	}
	if err := h.schemas.Validate(usecase.SchemaEmissionTestCreate, body); err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	var req createEmissionTestRequest
	if err := decodeStrict(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	t := domain.EmissionTest{
		EmissionReading: domain.EmissionReading{CO: req.CO, HC: req.HC, NOx: req.NOx, Opacity: req.Opacity},
		Inspector:       req.Inspector,
		Notes:           req.Notes,
	}
	if req.TestedAt != nil {
		t.TestedAt = *req.TestedAt
	}

	stored, err := h.emissions.Record(r.Context(), chi.URLParam(r, "id"), t)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toEmissionTestResponse(stored))
}

func (h *Handler) listEmissionTests(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePageRequest(w, r)
	if !ok {
		return
	}

	result, err := h.emissions.ListByVehicle(r.Context(), chi.URLParam(r, "id"), page)
	if err != nil {
		h.handleDomainError(w, r, err)
		return
	}

	items := make([]emissionTestResponse, 0, len(result.Items))
	for _, t := range result.Items {
		items = append(items, toEmissionTestResponse(t))
	}
	writeJSON(w, http.StatusOK, pageResponse[emissionTestResponse]{Items: items, NextCursor: nextCursor(result.NextCursor)})
}

func toVehicleResponse(v domain.Vehicle) vehicleResponse {
	return vehicleResponse{
		ID:          v.ID,
		PlateNumber: v.PlateNumber,
		VIN:         v.VIN,
		Make:        v.Make,
		Model:       v.Model,
		Year:        v.Year,
		FuelType:    v.FuelType,
		OwnerName:   v.OwnerName,
		Status:      v.Status,
		CreatedAt:   v.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   v.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toEmissionTestResponse(t domain.EmissionTest) emissionTestResponse {
	return emissionTestResponse{
		ID:        t.ID,
		VehicleID: t.VehicleID,
		CO:        t.CO,
		HC:        t.HC,
		NOx:       t.NOx,
		Opacity:   t.Opacity,
		Result:    t.Result,
		Inspector: t.Inspector,
		Notes:     t.Notes,
		TestedAt:  t.TestedAt.UTC().Format(timeFormat),
		CreatedAt: t.CreatedAt.UTC().Format(timeFormat),
	}
}
