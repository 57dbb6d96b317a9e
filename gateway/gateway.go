// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package gateway implements the HTTP endpoints centarr exposes in
// front of Sonarr: show and episode metadata plus direct streaming of
// episode files from disk.
package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/centarr/centarr/noop"
	"github.com/centarr/centarr/slogfield"
	"github.com/centarr/centarr/sonarr"
)

// SonarrClient is the subset of the Sonarr API the gateway consumes.
type SonarrClient interface {
	ListSeries(ctx context.Context) ([]sonarr.Series, error)
	GetSeries(ctx context.Context, id int) (sonarr.Series, error)
	ListEpisodes(ctx context.Context, seriesID int) ([]sonarr.Episode, error)
	GetEpisode(ctx context.Context, seriesID, episodeID int) (sonarr.Episode, error)
}

type options struct {
	logHandler     slog.Handler
	diskPathPrefix string
	staticRoot     string
}

// Option configures the Gateway.
type Option func(*options)

// LogHandler configures the slog.Handler used by the Gateway.
func LogHandler(h slog.Handler) Option {
	return func(o *options) {
		o.logHandler = h
	}
}

// DiskPathPrefix remaps the episode file paths reported by Sonarr onto
// the local filesystem. Sonarr reports paths as seen from its own host,
// so when its media mount lives elsewhere here the prefix is joined in
// front of the reported path.
func DiskPathPrefix(prefix string) Option {
	return func(o *options) {
		o.diskPathPrefix = prefix
	}
}

// StaticDir sets the directory served for any path no API route
// matches.
//
// Default is the current working directory.
func StaticDir(root string) Option {
	return func(o *options) {
		o.staticRoot = root
	}
}

// Gateway serves the centarr API on top of a Sonarr instance.
type Gateway struct {
	log            *slog.Logger
	sonarr         SonarrClient
	diskPathPrefix string
	staticRoot     string
}

// New returns a Gateway backed by the given Sonarr client.
func New(client SonarrClient, opts ...Option) *Gateway {
	o := &options{
		logHandler: noop.LogHandler{},
		staticRoot: ".",
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Gateway{
		log:            slog.New(o.logHandler),
		sonarr:         client,
		diskPathPrefix: o.diskPathPrefix,
		staticRoot:     o.staticRoot,
	}
}

// ListShows serves GET /shows with every series Sonarr tracks.
func (g *Gateway) ListShows(w http.ResponseWriter, r *http.Request) {
	shows, err := g.sonarr.ListSeries(r.Context())
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to list series", slogfield.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	g.respondJSON(w, r, shows)
}

// GetShow serves GET /shows/{showID}. The episode list for the show is
// merged into the series record before responding.
func (g *Gateway) GetShow(w http.ResponseWriter, r *http.Request) {
	showID, ok := g.pathID(w, r, "showID")
	if !ok {
		return
	}

	show, err := g.sonarr.GetSeries(r.Context(), showID)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to get series", slogfield.Int("show_id", showID), slogfield.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	episodes, err := g.sonarr.ListEpisodes(r.Context(), showID)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to list episodes", slogfield.Int("show_id", showID), slogfield.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	show.Episodes = episodes

	g.respondJSON(w, r, show)
}

// GetEpisode serves GET /shows/{showID}/episodes/{episodeID}.
func (g *Gateway) GetEpisode(w http.ResponseWriter, r *http.Request) {
	showID, ok := g.pathID(w, r, "showID")
	if !ok {
		return
	}
	episodeID, ok := g.pathID(w, r, "episodeID")
	if !ok {
		return
	}

	episode, err := g.sonarr.GetEpisode(r.Context(), showID, episodeID)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to get episode", slogfield.Int("episode_id", episodeID), slogfield.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	g.respondJSON(w, r, episode)
}

// WatchEpisode serves GET /shows/{showID}/episodes/{episodeID}/watch by
// streaming the episode file straight from disk. Range requests are
// honoured so media players can seek.
func (g *Gateway) WatchEpisode(w http.ResponseWriter, r *http.Request) {
	showID, ok := g.pathID(w, r, "showID")
	if !ok {
		return
	}
	episodeID, ok := g.pathID(w, r, "episodeID")
	if !ok {
		return
	}

	episode, err := g.sonarr.GetEpisode(r.Context(), showID, episodeID)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to get episode", slogfield.Int("episode_id", episodeID), slogfield.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if episode.EpisodeFile == nil {
		http.Error(w, "Episode not found", http.StatusBadRequest)
		return
	}

	path := episode.EpisodeFile.Path
	if g.diskPathPrefix != "" {
		path = filepath.Join(g.diskPathPrefix, "."+path)
	}
	g.log.DebugContext(r.Context(), "opening episode file", slogfield.String("path", path))

	f, err := os.Open(path)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to open episode file", slogfield.String("path", path), slogfield.Error(err))
		http.Error(w, "Couldn't find file on disk", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to stat episode file", slogfield.String("path", path), slogfield.Error(err))
		http.Error(w, "Couldn't find file on disk", http.StatusInternalServerError)
		return
	}

	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

// Static returns the handler serving static assets for any path the
// API routes do not claim.
func (g *Gateway) Static() http.Handler {
	return http.FileServer(http.Dir(g.staticRoot))
}

func (g *Gateway) respondJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		g.log.ErrorContext(r.Context(), "failed to encode response body", slogfield.Error(err))
	}
}

func (g *Gateway) pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		http.Error(w, "invalid "+name, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
