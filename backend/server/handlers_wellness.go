package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/server/context_key"
	"github.com/jghoshh/bienestar/backend/wellness"
)

func userID(r *http.Request) string {
	return contextKey.UserID(r.Context())
}

func (s *Server) handleSaveRecord(w http.ResponseWriter, r *http.Request) {
	var record models.WellnessRecord
	if err := decode(w, r, &record); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.wellness.SaveRecord(r.Context(), userID(r), record)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// handleTodayRecord answers null when nothing was logged today.
func (s *Server) handleTodayRecord(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetTodayRecord(r.Context(), userID(r)))
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetAllRecords(r.Context(), userID(r)))
}

func (s *Server) handleMedical(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetMedicalProfile(r.Context(), userID(r)))
}

func (s *Server) handleSaveMedical(w http.ResponseWriter, r *http.Request) {
	var profile models.MedicalProfile
	if err := decode(w, r, &profile); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.wellness.SaveMedicalProfile(r.Context(), userID(r), profile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleSaveActivity(w http.ResponseWriter, r *http.Request) {
	var activity models.ActivityLog
	if err := decode(w, r, &activity); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.wellness.SaveActivity(r.Context(), userID(r), activity)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// handleActivities lists the activities of ?date=, or all of them without
// the parameter. "today" stands for the current day.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := r.URL.Query().Get("date")
	switch date {
	case "":
		writeJSON(w, http.StatusOK, s.wellness.GetAllActivities(ctx, userID(r)))
	case "today":
		writeJSON(w, http.StatusOK, s.wellness.GetActivitiesByDate(ctx, userID(r), s.wellness.Today()))
	default:
		writeJSON(w, http.StatusOK, s.wellness.GetActivitiesByDate(ctx, userID(r), date))
	}
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := s.wellness.DeleteActivity(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveReminder(w http.ResponseWriter, r *http.Request) {
	var reminder models.Reminder
	if err := decode(w, r, &reminder); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.wellness.SaveReminder(r.Context(), userID(r), reminder)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetReminders(r.Context(), userID(r)))
}

func (s *Server) handleToggleReminder(w http.ResponseWriter, r *http.Request) {
	reminder, err := s.wellness.ToggleReminder(r.Context(), userID(r), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reminder)
}

func (s *Server) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	if err := s.wellness.DeleteReminder(r.Context(), userID(r), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGoals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetUserGoals(r.Context(), userID(r)))
}

func (s *Server) handleSaveGoals(w http.ResponseWriter, r *http.Request) {
	var goals models.UserGoals
	if err := decode(w, r, &goals); err != nil {
		s.writeError(w, r, err)
		return
	}
	saved, err := s.wellness.SaveUserGoals(r.Context(), userID(r), goals)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.GetUserStats(r.Context(), userID(r)))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.Statistics(r.Context(), userID(r)))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filter, err := wellness.ParseHistoryFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.wellness.History(r.Context(), userID(r), filter))
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.wellness.Home(r.Context(), userID(r)))
}
