// Package web поднимает небольшой HTTP-сервер статуса рядом с ботом:
// страница для людей, /health для оркестратора и /stats в JSON.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"edustack.in/resource-bot/internal/features/stats"
)

// Server — HTTP-сервер статуса.
type Server struct {
	srv     *http.Server
	stats   *stats.Service
	started time.Time
}

// NewServer собирает роутер и сервер на указанном адресе.
func NewServer(addr string, statsService *stats.Service) *Server {
	s := &Server{
		stats:   statsService,
		started: time.Now(),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start блокирует до остановки сервера.
func (s *Server) Start() error {
	log.WithField("addr", s.srv.Addr).Info("Веб-сервер статуса запущен")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown мягко останавливает сервер.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sum, err := s.stats.Collect(r.Context())
	if err != nil {
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<html><head><title>Resource Bot</title></head><body>
<h1>Resource Bot is running</h1>
<p>Uptime: %s</p>
<ul>
<li>Users: %d</li>
<li>Active subscribers: %d</li>
<li>Materials: %d</li>
<li>Pending requests: %d</li>
</ul>
</body></html>`,
		time.Since(s.started).Round(time.Second),
		sum.TotalUsers, sum.ActiveSubscribers, sum.TotalResources, sum.PendingRequests)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum, err := s.stats.Collect(r.Context())
	if err != nil {
		log.WithError(err).Error("Не удалось собрать статистику для /stats")
		http.Error(w, "stats unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sum)
}
