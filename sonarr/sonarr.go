// Copyright (c) 2026 Centarr Authors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package sonarr implements a client for the Sonarr v3 HTTP API.
//
// Only the resources centarr serves through its gateway are modelled:
// series, episodes and episode files.
package sonarr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/centarr/centarr/internal/try"
)

// Image is artwork attached to a series, e.g. a poster or banner.
type Image struct {
	CoverType string `json:"coverType"`
	URL       string `json:"url"`
	RemoteURL string `json:"remoteUrl"`
}

// Series is a TV series tracked by Sonarr. Episodes is only populated
// when the caller explicitly merges episode records into the series.
type Series struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Images   []Image   `json:"images"`
	Episodes []Episode `json:"episodes,omitempty"`
}

// Episode is a single episode record. EpisodeFile is nil when Sonarr
// has no file on disk for the episode.
type Episode struct {
	ID                         int          `json:"id"`
	SeriesID                   int          `json:"seriesId"`
	EpisodeFileID              int          `json:"episodeFileId"`
	SeasonNumber               int          `json:"seasonNumber"`
	EpisodeNumber              int          `json:"episodeNumber"`
	Title                      string       `json:"title"`
	AirDate                    string       `json:"airDate"`
	AirDateUTC                 string       `json:"airDateUtc"`
	Overview                   string       `json:"overview,omitempty"`
	EpisodeFile                *EpisodeFile `json:"episodeFile,omitempty"`
	HasFile                    bool         `json:"hasFile"`
	Monitored                  bool         `json:"monitored"`
	AbsoluteEpisodeNumber      *int         `json:"absoluteEpisodeNumber,omitempty"`
	SceneAbsoluteEpisodeNumber *int         `json:"sceneAbsoluteEpisodeNumber,omitempty"`
	SceneEpisodeNumber         *int         `json:"sceneEpisodeNumber,omitempty"`
	SceneSeasonNumber          *int         `json:"sceneSeasonNumber,omitempty"`
	UnverifiedSceneNumbering   bool         `json:"unverifiedSceneNumbering"`
	LastSearchTime             string       `json:"lastSearchTime,omitempty"`
}

// EpisodeFile describes the media file Sonarr imported for an episode.
// Path is the location on the Sonarr host, not on the centarr host.
type EpisodeFile struct {
	ID                  int    `json:"id"`
	SeriesID            int    `json:"seriesId"`
	SeasonNumber        int    `json:"seasonNumber"`
	RelativePath        string `json:"relativePath"`
	Path                string `json:"path"`
	Size                int64  `json:"size"`
	DateAdded           string `json:"dateAdded"`
	OriginalFilePath    string `json:"originalFilePath"`
	QualityCutoffNotMet bool   `json:"qualityCutoffNotMet"`
	SceneName           string `json:"sceneName,omitempty"`
}

// Client talks to a single Sonarr instance. Every request carries the
// configured API key in the X-Api-Key header.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

type options struct {
	http *http.Client
}

// Option configures the Client.
type Option func(*options)

// HTTPClient overrides the underlying http.Client. Use this to layer
// retries and circuit breaking via [NewHTTPClient].
func HTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.http = c
	}
}

// NewClient returns a Client for the Sonarr instance at baseURL.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	o := &options{
		http: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    o.http,
	}
}

// StatusError occurs when Sonarr responds with a non-2xx status code.
type StatusError struct {
	StatusCode int
}

// Error implements the error interface.
func (e StatusError) Error() string {
	return fmt.Sprintf("sonarr responded with unexpected status code: %d", e.StatusCode)
}

// ListSeries returns every series Sonarr tracks.
func (c *Client) ListSeries(ctx context.Context) ([]Series, error) {
	var series []Series
	err := c.get(ctx, "/series", nil, &series)
	if err != nil {
		return nil, err
	}
	return series, nil
}

// GetSeries returns a single series by its id.
func (c *Client) GetSeries(ctx context.Context, id int) (Series, error) {
	var series Series
	err := c.get(ctx, "/series/"+strconv.Itoa(id), nil, &series)
	if err != nil {
		return Series{}, err
	}
	return series, nil
}

// ListEpisodes returns all episodes belonging to a series.
func (c *Client) ListEpisodes(ctx context.Context, seriesID int) ([]Episode, error) {
	var episodes []Episode
	err := c.get(ctx, "/episode", url.Values{"seriesId": []string{strconv.Itoa(seriesID)}}, &episodes)
	if err != nil {
		return nil, err
	}
	return episodes, nil
}

// GetEpisode returns a single episode by its id. Sonarr requires the
// owning series id as a query parameter.
func (c *Client) GetEpisode(ctx context.Context, seriesID, episodeID int) (Episode, error) {
	var episode Episode
	err := c.get(ctx, "/episode/"+strconv.Itoa(episodeID), url.Values{"seriesId": []string{strconv.Itoa(seriesID)}}, &episode)
	if err != nil {
		return Episode{}, err
	}
	return episode, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, into any) (err error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer try.Close(&err, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusError{StatusCode: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(into)
}
