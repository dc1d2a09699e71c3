package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/akhdanfadh/urlkeep/internal/transform"
	"github.com/akhdanfadh/urlkeep/internal/tree"
)

// TreeInfo describes one processed tree file.
type TreeInfo struct {
	Name    string `json:"name"`
	Area    string `json:"area"`
	Browser string `json:"browser"`
	Context string `json:"context"`
	Purpose string `json:"purpose"`
	Folders int    `json:"folders"`
	URLs    int    `json:"urls"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// handleListTrees lists the processed trees that follow the filename
// convention, sorted by name.
func (s *Server) handleListTrees(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.processedDir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Error("listing %s: %v", s.processedDir, err)
		jsonError(w, "failed to list trees", http.StatusInternalServerError)
		return
	}

	trees := []TreeInfo{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		meta, err := transform.ParseFilename(e.Name())
		if err != nil {
			continue
		}
		root, err := tree.ReadFile(filepath.Join(s.processedDir, e.Name()))
		if err != nil {
			s.log.Warn("reading %s: %v", e.Name(), err)
			continue
		}
		folders, urls := root.Counts()
		trees = append(trees, TreeInfo{
			Name:    meta.Stem(),
			Area:    meta.Area,
			Browser: meta.Browser,
			Context: meta.Context,
			Purpose: meta.Purpose,
			Folders: folders,
			URLs:    urls,
		})
	}
	writeJSON(w, map[string]any{"trees": trees})
}

// handleGetTree returns one processed tree. The optional folder query
// parameter selects a subtree by slash-separated folder names.
func (s *Server) handleGetTree(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSuffix(chi.URLParam(r, "name"), ".json")
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		jsonError(w, "invalid tree name", http.StatusBadRequest)
		return
	}
	meta, err := transform.ParseFilename(name + ".json")
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	root, err := tree.ReadFile(filepath.Join(s.processedDir, meta.Stem()+".json"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			jsonError(w, "tree not found", http.StatusNotFound)
			return
		}
		s.log.Error("reading tree %s: %v", name, err)
		jsonError(w, "failed to read tree", http.StatusInternalServerError)
		return
	}

	node := root
	if folder := r.URL.Query().Get("folder"); folder != "" {
		for part := range strings.SplitSeq(folder, "/") {
			child, ok := node.Folders[part]
			if !ok || child == nil {
				jsonError(w, "folder not found: "+folder, http.StatusNotFound)
				return
			}
			node = child
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := tree.Encode(w, node); err != nil {
		s.log.Error("encoding tree %s: %v", name, err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.links.Stats(r.Context())
	if err != nil {
		s.log.Error("%v", err)
		jsonError(w, "failed to read stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handleDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.links.Domains(r.Context())
	if err != nil {
		s.log.Error("%v", err)
		jsonError(w, "failed to list domains", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"domains": domains})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.links.Sources(r.Context())
	if err != nil {
		s.log.Error("%v", err)
		jsonError(w, "failed to list sources", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"sources": sources})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
