// SPDX-License-Identifier: MIT
package recognition

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sessionkey/internal/log"
)

const (
	identifyPath     = "/v1/identify"
	dataType         = "audio"
	signatureVersion = "1"

	statusOK      = 0
	statusNoMatch = 1001
)

// ACRCloudOptions configures the ACRCloud identify client.
type ACRCloudOptions struct {
	Host         string
	AccessKey    string
	AccessSecret string
	Timeout      time.Duration
	// BaseURL overrides "https://<Host>", for tests.
	BaseURL string
}

// ACRCloud calls the ACRCloud identify API.
type ACRCloud struct {
	baseURL string
	key     string
	secret  string
	client  *http.Client
	now     func() time.Time
}

// NewACRCloud creates a client. The timeout bounds each whole request.
func NewACRCloud(opts ACRCloudOptions) *ACRCloud {
	base := opts.BaseURL
	if base == "" {
		base = "https://" + opts.Host
	}
	return &ACRCloud{
		baseURL: strings.TrimRight(base, "/"),
		key:     opts.AccessKey,
		secret:  opts.AccessSecret,
		client:  &http.Client{Timeout: opts.Timeout},
		now:     time.Now,
	}
}

// sign returns the base64 HMAC-SHA1 of the identify request description.
func (a *ACRCloud) sign(timestamp string) string {
	msg := strings.Join([]string{http.MethodPost, identifyPath, a.key, dataType, signatureVersion, timestamp}, "\n")
	mac := hmac.New(sha1.New, []byte(a.secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Recognize uploads the clip and maps the first music result to a Match.
func (a *ACRCloud) Recognize(ctx context.Context, audio []byte) (*Match, error) {
	timestamp := strconv.FormatInt(a.now().Unix(), 10)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := [][2]string{
		{"access_key", a.key},
		{"sample_bytes", strconv.Itoa(len(audio))},
		{"timestamp", timestamp},
		{"signature", a.sign(timestamp)},
		{"data_type", dataType},
		{"signature_version", signatureVersion},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, err
		}
	}
	part, err := mw.CreateFormFile("sample", "sample")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+identifyPath, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acrcloud request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("acrcloud: unexpected HTTP status %s", resp.Status)
	}

	var result identifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("acrcloud: decode response: %w", err)
	}

	switch result.Status.Code {
	case statusOK:
	case statusNoMatch:
		return nil, ErrNoMatch
	default:
		return nil, fmt.Errorf("acrcloud: status %d: %s", result.Status.Code, result.Status.Msg)
	}
	if len(result.Metadata.Music) == 0 {
		return nil, ErrNoMatch
	}

	m := result.Metadata.Music[0].match()
	log.Debugf("Recognition: matched %q by %q", m.Title, m.Artist)
	return m, nil
}

type identifyResponse struct {
	Status struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	} `json:"status"`
	Metadata struct {
		Music []musicResult `json:"music"`
	} `json:"metadata"`
}

type musicResult struct {
	Title   string `json:"title"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
	Album struct {
		Name        string `json:"name"`
		CoverArtURL string `json:"cover_art_url"`
	} `json:"album"`
	ReleaseDate      string `json:"release_date"`
	ExternalMetadata struct {
		Spotify struct {
			Track struct {
				ID string `json:"id"`
			} `json:"track"`
		} `json:"spotify"`
	} `json:"external_metadata"`
}

func (r musicResult) match() *Match {
	names := make([]string, 0, len(r.Artists))
	for _, a := range r.Artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	m := &Match{
		Title:       r.Title,
		Artist:      strings.Join(names, ", "),
		Album:       r.Album.Name,
		ReleaseDate: r.ReleaseDate,
		CoverArtURL: r.Album.CoverArtURL,
	}
	if id := r.ExternalMetadata.Spotify.Track.ID; id != "" {
		m.SpotifyURL = "https://open.spotify.com/track/" + id
	}
	return m
}
