// Package web serves the status UI: past runs, their per-attempt decisions,
// and a form for storing the hut-site credentials the bot should use.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/hutbook/internal/auth"
	"github.com/example/hutbook/internal/crypto"
	"github.com/example/hutbook/internal/db"
	"github.com/example/hutbook/internal/history"
)

//go:embed templates/*.html static/*
var fs embed.FS

type Server struct {
	Auth    *auth.Store
	History *history.Store
	Enc     *crypto.AEAD

	BaseURL string
	Log     *slog.Logger
}

type tmplData struct {
	Title string
	User  int64

	Flash    string
	Runs     []history.Run
	Run      history.Run
	Attempts []history.Attempt
	Creds    auth.HutCredentials
	HasCreds bool
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.FileServer(http.FS(fs)))
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("/login", s.handleLogin)
	mux.HandleFunc("/logout", s.handleLogout)

	mux.Handle("/", s.Auth.RequireAuth(http.HandlerFunc(s.handleRuns)))
	mux.Handle("/runs/", s.Auth.RequireAuth(http.HandlerFunc(s.handleRun)))
	mux.Handle("/credentials", s.Auth.RequireAuth(http.HandlerFunc(s.handleCredentials)))

	return mux
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	uid, _ := auth.UserIDFromContext(r.Context())
	runs, err := s.History.ListRuns(r.Context(), 50)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, "templates/runs.html", tmplData{Title: "Runs", User: uid, Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/runs/"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	run, err := s.History.GetRun(r.Context(), id)
	if err != nil {
		if db.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	attempts, err := s.History.AttemptsForRun(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.render(w, "templates/run.html", tmplData{
		Title:    "Run " + id.String()[:8],
		User:     uid,
		Run:      run,
		Attempts: attempts,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, "templates/login.html", tmplData{Title: "Login"})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		username := strings.TrimSpace(r.FormValue("username"))
		id, err := s.Auth.Authenticate(r.Context(), username, r.FormValue("password"))
		if err != nil {
			s.render(w, "templates/login.html", tmplData{Title: "Login", Flash: "Invalid username/password"})
			return
		}
		if err := s.Auth.SetSession(w, r, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.ClearSession(w)
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) handleCredentials(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		creds, err := s.Auth.LoadHutCredentials(r.Context(), s.Enc, uid)
		hasCreds := err == nil
		if err != nil && !db.IsNotFound(err) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		creds.Password = "" // never echo it back into the form
		s.render(w, "templates/credentials.html", tmplData{
			Title: "Hut credentials", User: uid, Creds: creds, HasCreds: hasCreds,
		})
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		creds := auth.HutCredentials{
			Provider: strings.TrimSpace(r.FormValue("provider")),
			Username: strings.TrimSpace(r.FormValue("username")),
			Password: r.FormValue("password"),
		}
		if creds.Provider == "" {
			creds.Provider = "default"
		}
		if creds.Username == "" || creds.Password == "" {
			s.render(w, "templates/credentials.html", tmplData{
				Title: "Hut credentials", User: uid, Creds: creds,
				Flash: "Username and password are required",
			})
			return
		}
		if err := s.Auth.SaveHutCredentials(r.Context(), s.Enc, uid, creds); err != nil {
			s.log().Error("save credentials", "error", err)
			http.Error(w, "failed to save credentials", http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/credentials", http.StatusFound)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) render(w http.ResponseWriter, name string, data tmplData) {
	t, err := template.ParseFS(fs, "templates/base.html", name)
	if err != nil {
		http.Error(w, "template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, "render error: "+err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func Start(ctx context.Context, log *slog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Info("listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
