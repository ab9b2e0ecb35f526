package opsapi

import (
	"encoding/json"
	"net/http"
)

type jsonResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, resp jsonResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jsonResponse{
		Success: true,
		Message: "ok",
		Data:    map[string]interface{}{"ws_clients": s.hub.clientCount()},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot.Load()
	if snap == nil {
		writeJSON(w, http.StatusOK, jsonResponse{Success: true, Message: "no snapshot yet"})
		return
	}
	writeJSON(w, http.StatusOK, jsonResponse{Success: true, Data: snap})
}
