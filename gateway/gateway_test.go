// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/centarr/centarr/sonarr"

	"github.com/stretchr/testify/assert"
)

type sonarrClient struct {
	listSeries   func(context.Context) ([]sonarr.Series, error)
	getSeries    func(context.Context, int) (sonarr.Series, error)
	listEpisodes func(context.Context, int) ([]sonarr.Episode, error)
	getEpisode   func(context.Context, int, int) (sonarr.Episode, error)
}

func (c sonarrClient) ListSeries(ctx context.Context) ([]sonarr.Series, error) {
	return c.listSeries(ctx)
}

func (c sonarrClient) GetSeries(ctx context.Context, id int) (sonarr.Series, error) {
	return c.getSeries(ctx, id)
}

func (c sonarrClient) ListEpisodes(ctx context.Context, seriesID int) ([]sonarr.Episode, error) {
	return c.listEpisodes(ctx, seriesID)
}

func (c sonarrClient) GetEpisode(ctx context.Context, seriesID, episodeID int) (sonarr.Episode, error) {
	return c.getEpisode(ctx, seriesID, episodeID)
}

func serve(g *Gateway) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/shows", g.ListShows)
	mux.HandleFunc("/shows/{showID}", g.GetShow)
	mux.HandleFunc("/shows/{showID}/episodes/{episodeID}", g.GetEpisode)
	mux.HandleFunc("/shows/{showID}/episodes/{episodeID}/watch", g.WatchEpisode)
	mux.Handle("/", g.Static())
	return httptest.NewServer(mux)
}

func TestGateway_ListShows(t *testing.T) {
	t.Run("will return the shows as json", func(t *testing.T) {
		t.Run("if sonarr lists them successfully", func(t *testing.T) {
			g := New(sonarrClient{
				listSeries: func(ctx context.Context) ([]sonarr.Series, error) {
					return []sonarr.Series{
						{ID: 1, Title: "one"},
						{ID: 2, Title: "two"},
					}, nil
				},
			})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "application/json", resp.Header.Get("Content-Type")) {
				return
			}

			var shows []sonarr.Series
			err = json.NewDecoder(resp.Body).Decode(&shows)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Len(t, shows, 2) {
				return
			}
		})
	})

	t.Run("will return a 500", func(t *testing.T) {
		t.Run("if sonarr is unreachable", func(t *testing.T) {
			g := New(sonarrClient{
				listSeries: func(ctx context.Context) ([]sonarr.Series, error) {
					return nil, errors.New("connection refused")
				},
			})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusInternalServerError, resp.StatusCode) {
				return
			}
		})
	})
}

func TestGateway_GetShow(t *testing.T) {
	t.Run("will merge episodes into the show", func(t *testing.T) {
		t.Run("if both lookups succeed", func(t *testing.T) {
			g := New(sonarrClient{
				getSeries: func(ctx context.Context, id int) (sonarr.Series, error) {
					return sonarr.Series{ID: id, Title: "show"}, nil
				},
				listEpisodes: func(ctx context.Context, seriesID int) ([]sonarr.Episode, error) {
					return []sonarr.Episode{
						{ID: 10, SeriesID: seriesID},
						{ID: 11, SeriesID: seriesID},
					}, nil
				},
			})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var show sonarr.Series
			err = json.NewDecoder(resp.Body).Decode(&show)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 42, show.ID) {
				return
			}
			if !assert.Len(t, show.Episodes, 2) {
				return
			}
		})
	})

	t.Run("will return a 400", func(t *testing.T) {
		t.Run("if the show id is not numeric", func(t *testing.T) {
			g := New(sonarrClient{})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/abc")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusBadRequest, resp.StatusCode) {
				return
			}
		})
	})
}

func TestGateway_GetEpisode(t *testing.T) {
	t.Run("will return the episode as json", func(t *testing.T) {
		t.Run("if sonarr knows the episode", func(t *testing.T) {
			g := New(sonarrClient{
				getEpisode: func(ctx context.Context, seriesID, episodeID int) (sonarr.Episode, error) {
					return sonarr.Episode{ID: episodeID, SeriesID: seriesID}, nil
				},
			})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42/episodes/7")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}

			var episode sonarr.Episode
			err = json.NewDecoder(resp.Body).Decode(&episode)
			if !assert.Nil(t, err) {
				return
			}
			if !assert.Equal(t, 7, episode.ID) {
				return
			}
			if !assert.Equal(t, 42, episode.SeriesID) {
				return
			}
		})
	})
}

func TestGateway_WatchEpisode(t *testing.T) {
	episodeWithFile := func(path string) sonarrClient {
		return sonarrClient{
			getEpisode: func(ctx context.Context, seriesID, episodeID int) (sonarr.Episode, error) {
				return sonarr.Episode{
					ID:       episodeID,
					SeriesID: seriesID,
					HasFile:  true,
					EpisodeFile: &sonarr.EpisodeFile{
						ID:   99,
						Path: path,
					},
				}, nil
			},
		}
	}

	t.Run("will stream the file", func(t *testing.T) {
		t.Run("if it exists on disk", func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "s01e01.mkv")
			err := os.WriteFile(path, []byte("episode bytes"), 0o644)
			if !assert.Nil(t, err) {
				return
			}

			g := New(episodeWithFile(path))

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42/episodes/7/watch")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, "bytes", resp.Header.Get("Accept-Ranges")) {
				return
			}
		})

		t.Run("if a range header is set", func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "s01e01.mkv")
			err := os.WriteFile(path, []byte("episode bytes"), 0o644)
			if !assert.Nil(t, err) {
				return
			}

			g := New(episodeWithFile(path))

			srv := serve(g)
			defer srv.Close()

			req, err := http.NewRequest(http.MethodGet, srv.URL+"/shows/42/episodes/7/watch", nil)
			if !assert.Nil(t, err) {
				return
			}
			req.Header.Set("Range", "bytes=0-6")

			resp, err := http.DefaultClient.Do(req)
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusPartialContent, resp.StatusCode) {
				return
			}
			if !assert.Equal(t, fmt.Sprintf("bytes 0-6/%d", len("episode bytes")), resp.Header.Get("Content-Range")) {
				return
			}
			if !assert.Equal(t, "7", resp.Header.Get("Content-Length")) {
				return
			}
		})
	})

	t.Run("will remap the file path", func(t *testing.T) {
		t.Run("if a disk path prefix is configured", func(t *testing.T) {
			dir := t.TempDir()
			err := os.MkdirAll(filepath.Join(dir, "tv", "show"), 0o755)
			if !assert.Nil(t, err) {
				return
			}
			err = os.WriteFile(filepath.Join(dir, "tv", "show", "s01e01.mkv"), []byte("episode bytes"), 0o644)
			if !assert.Nil(t, err) {
				return
			}

			// Sonarr reports the path as seen from its own host.
			g := New(
				episodeWithFile("/tv/show/s01e01.mkv"),
				DiskPathPrefix(dir),
			)

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42/episodes/7/watch")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
		})
	})

	t.Run("will return a 400", func(t *testing.T) {
		t.Run("if the episode has no file record", func(t *testing.T) {
			g := New(sonarrClient{
				getEpisode: func(ctx context.Context, seriesID, episodeID int) (sonarr.Episode, error) {
					return sonarr.Episode{ID: episodeID, SeriesID: seriesID}, nil
				},
			})

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42/episodes/7/watch")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusBadRequest, resp.StatusCode) {
				return
			}
		})
	})

	t.Run("will return a 500", func(t *testing.T) {
		t.Run("if the file is missing on disk", func(t *testing.T) {
			g := New(episodeWithFile(filepath.Join(t.TempDir(), "missing.mkv")))

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/shows/42/episodes/7/watch")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusInternalServerError, resp.StatusCode) {
				return
			}
		})
	})
}

func TestGateway_Static(t *testing.T) {
	t.Run("will serve files from the static root", func(t *testing.T) {
		t.Run("if no api route matches the path", func(t *testing.T) {
			dir := t.TempDir()
			err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html></html>"), 0o644)
			if !assert.Nil(t, err) {
				return
			}

			g := New(sonarrClient{}, StaticDir(dir))

			srv := serve(g)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/index.html")
			if !assert.Nil(t, err) {
				return
			}
			defer resp.Body.Close()

			if !assert.Equal(t, http.StatusOK, resp.StatusCode) {
				return
			}
		})
	})
}
