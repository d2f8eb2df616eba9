package preview

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/shouni/go-storybook-kit/pkg/asset"
	"github.com/shouni/go-storybook-kit/pkg/runner"
	"github.com/shouni/go-storybook-kit/pkg/store"
)

// ArtifactReader は生成物を読み出します。
type ArtifactReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

// ChapterLister は章IDの一覧を返します。
type ChapterLister interface {
	List(ctx context.Context) ([]string, error)
}

// Planner は章の生成計画を求めます。
type Planner interface {
	Run(ctx context.Context, chapterID string) (*runner.Plan, error)
}

// Server は出力ディレクトリをブラウザで確認するためのプレビューサーバーです。
type Server struct {
	router    chi.Router
	artifacts ArtifactReader
	chapters  ChapterLister
	planner   Planner
	static    http.FileSystem
	log       *slog.Logger
}

// NewServer はルーティングを設定した Server を生成します。
func NewServer(artifacts ArtifactReader, chapters ChapterLister, planner Planner, static http.FileSystem, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		artifacts: artifacts,
		chapters:  chapters,
		planner:   planner,
		static:    static,
		log:       log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api/chapters", func(r chi.Router) {
		r.Get("/", s.handleListChapters)
		r.Get("/{chapterID}/manifest", s.handleManifest)
		r.Get("/{chapterID}/plan", s.handlePlan)
	})

	r.Handle("/*", http.FileServer(s.static))

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleListChapters(w http.ResponseWriter, r *http.Request) {
	ids, err := s.chapters.List(r.Context())
	if err != nil {
		jsonError(w, "failed to list chapters: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, map[string]any{"chapters": ids})
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapterID")
	data, err := s.artifacts.Read(r.Context(), asset.ManifestPath(chapterID))
	if errors.Is(err, fs.ErrNotExist) {
		jsonError(w, "manifest not found for chapter "+chapterID, http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read manifest: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	chapterID := chi.URLParam(r, "chapterID")
	plan, err := s.planner.Run(r.Context(), chapterID)
	switch {
	case errors.Is(err, store.ErrChapterNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	type step struct {
		SectionID  string   `json:"sectionId"`
		Image      string   `json:"image,omitempty"`
		Arity      string   `json:"arity"`
		References []string `json:"references,omitempty"`
		Dangling   []string `json:"dangling,omitempty"`
		Imageless  []string `json:"imageless,omitempty"`
		Character  bool     `json:"generatesCharacter,omitempty"`
	}
	steps := make([]step, 0, len(plan.Steps))
	for _, st := range plan.Steps {
		steps = append(steps, step{
			SectionID:  st.SectionID,
			Image:      st.Image,
			Arity:      st.Arity.String(),
			References: st.References,
			Dangling:   st.Dangling,
			Imageless:  st.Imageless,
			Character:  st.Character,
		})
	}
	writeJSON(w, map[string]any{"chapterId": plan.ChapterID, "steps": steps})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
