package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"rentcars/internal/export"
	"rentcars/internal/models"
	"rentcars/internal/rules"
	"rentcars/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleListAvailableCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.ListAvailableCars(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *HTTPServer) handleCreateReservation(w http.ResponseWriter, r *http.Request) {
	var in models.CreateReservationInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.validate.Struct(in); err != nil {
		s.writeError(w, r, service.ValidationError(err))
		return
	}

	reservation, err := s.reservations.CreateReservation(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reservation)
}

func (s *HTTPServer) handleUserReservations(w http.ResponseWriter, r *http.Request) {
	s.listForUser(w, r, r.URL.Query().Get("email"))
}

func (s *HTTPServer) handleMyReservations(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.Header.Get(userEmailHeader))
	if email == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Kind: kindUnauthorized, Message: userEmailHeader + " header is required"})
		return
	}
	s.listForUser(w, r, email)
}

func (s *HTTPServer) listForUser(w http.ResponseWriter, r *http.Request, email string) {
	reservations, err := s.reservations.ListReservationsForUser(r.Context(), email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reservations)
}

func (s *HTTPServer) handleAdminListCars(w http.ResponseWriter, r *http.Request) {
	cars, err := s.cars.ListCars(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *HTTPServer) handleAdminCreateCar(w http.ResponseWriter, r *http.Request) {
	var in models.CarInput
	if !s.decode(w, r, &in) {
		return
	}

	car, err := s.cars.CreateCar(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, car)
}

func (s *HTTPServer) handleAdminUpdateCar(w http.ResponseWriter, r *http.Request) {
	var in models.CarInput
	if !s.decode(w, r, &in) {
		return
	}

	car, err := s.cars.UpdateCar(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, car)
}

func (s *HTTPServer) handleAdminDeleteCar(w http.ResponseWriter, r *http.Request) {
	if err := s.cars.DeleteCar(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleExportReservations(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))

	reservations, err := s.reservations.ListReservations(r.Context(), from, to)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// the window was validated by ListReservations
	start, end := rules.StartOfDay(from).Time, rules.StartOfDay(to).Time

	var buf bytes.Buffer
	if err := export.WriteReservationsXLSX(&buf, start, end, reservations); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(start, end)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.PingContext(ctx); err != nil {
			s.log.Error().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body. It writes the 400 itself.
func (s *HTTPServer) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Kind:    string(service.KindInvalidInput),
			Message: "request body must be valid JSON",
		})
		return false
	}
	return true
}
