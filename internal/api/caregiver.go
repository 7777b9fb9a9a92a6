package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"mediminds/internal/assistant"
	"mediminds/internal/services"
	"mediminds/internal/session"
	"mediminds/pkg/models"

	"github.com/gorilla/mux"
)

// Elders

func (s *Server) listElders(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Elders())
}

func (s *Server) addElder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var elder models.Elder
	if err := decodeJSON(r, &elder); err != nil {
		s.fail(w, r, err)
		return
	}
	created, err := sess.AddElder(r.Context(), elder)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteElder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteElder(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Medicines

func (s *Server) listMedicines(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.MedicinesForElder(mux.Vars(r)["id"]))
}

func (s *Server) addMedicine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var m models.Medicine
	if err := decodeJSON(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	m.ElderID = mux.Vars(r)["id"]
	created, err := sess.AddMedicine(r.Context(), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) updateMedicine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var m models.Medicine
	if err := decodeJSON(r, &m); err != nil {
		s.fail(w, r, err)
		return
	}
	m.ID = mux.Vars(r)["id"]
	updated, err := sess.UpdateMedicine(r.Context(), m)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteMedicine(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type importResponse struct {
	Prescription models.Prescription `json:"prescription"`
	Medicines    []models.Medicine   `json:"medicines"`
}

func (s *Server) importPrescription(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var req session.ImportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	rx, added, err := sess.ImportPrescription(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, importResponse{Prescription: rx, Medicines: added})
}

// Vitals

func (s *Server) listVitals(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.VitalsForElder(mux.Vars(r)["id"]))
}

func (s *Server) addVital(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var v models.Vital
	if err := decodeJSON(r, &v); err != nil {
		s.fail(w, r, err)
		return
	}
	v.ElderID = mux.Vars(r)["id"]
	created, err := sess.AddVital(r.Context(), v)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) deleteVital(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	if err := sess.DeleteVital(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Records

func (s *Server) listPrescriptions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.PrescriptionsForElder(mux.Vars(r)["id"]))
}

func (s *Server) addPrescription(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var p models.Prescription
	if err := decodeJSON(r, &p); err != nil {
		s.fail(w, r, err)
		return
	}
	p.ElderID = mux.Vars(r)["id"]
	created, err := sess.AddPrescription(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listCarePlan(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.CarePlanEventsForElder(mux.Vars(r)["id"]))
}

func (s *Server) addCarePlanEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var e models.CarePlanEvent
	if err := decodeJSON(r, &e); err != nil {
		s.fail(w, r, err)
		return
	}
	e.ElderID = mux.Vars(r)["id"]
	created, err := sess.AddCarePlanEvent(r.Context(), e)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	appts, err := sess.Appointments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	elderID := mux.Vars(r)["id"]
	if _, found := sess.Elder(elderID); !found {
		s.fail(w, r, fmt.Errorf("elder %s: %w", elderID, session.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, sess.Summary(elderID))
}

type assistantRequest struct {
	Message string `json:"message"`
}

func (s *Server) askAssistant(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	elderID := mux.Vars(r)["id"]
	elder, found := sess.Elder(elderID)
	if !found {
		s.fail(w, r, fmt.Errorf("elder %s: %w", elderID, session.ErrNotFound))
		return
	}
	var req assistantRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	reply := assistant.Reply(elder, sess.MedicinesForElder(elderID), sess.VitalsForElder(elderID), req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// Reminders

func (s *Server) listElderReminders(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.RemindersForElder(mux.Vars(r)["id"]))
}

func (s *Server) todaysReminders(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.TodaysReminders())
}

type statusRequest struct {
	Status models.ReminderStatus `json:"status"`
}

func (s *Server) updateReminderStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if !req.Status.Valid() {
		s.fail(w, r, fmt.Errorf("%w: unknown status %q", services.ErrValidation, req.Status))
		return
	}
	updated, err := sess.UpdateReminderStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) snoozeReminder(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	updated, err := sess.SnoozeReminder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) reminderHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotImplemented, "reminder history is not configured")
		return
	}
	sess, ok := s.caregiverSession(w, r)
	if !ok {
		return
	}
	elderID := mux.Vars(r)["id"]
	if _, found := sess.Elder(elderID); !found {
		s.fail(w, r, fmt.Errorf("elder %s: %w", elderID, session.ErrNotFound))
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := s.deps.History.ReminderHistory(r.Context(), sess.Caregiver().UserID, elderID, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if events == nil {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, events)
}
