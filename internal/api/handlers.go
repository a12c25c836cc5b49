package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"karolbroda.com/lyricsync/internal/lyrics"
)

type handlers struct {
	state *State
}

type trackResponse struct {
	Title    string  `json:"title"`
	Artist   string  `json:"artist"`
	Album    string  `json:"album,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type statusResponse struct {
	Track       *trackResponse `json:"track"`
	Hash        string         `json:"hash,omitempty"`
	Phase       string         `json:"phase"`
	Status      string         `json:"status"`
	Position    float64        `json:"position"`
	Offset      float64        `json:"offset"`
	Playing     bool           `json:"playing"`
	CurrentLine int            `json:"current_line"`
	Revision    string         `json:"revision,omitempty"`
}

type characterResponse struct {
	Char        string  `json:"char"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Highlighted bool    `json:"highlighted"`
}

type lineResponse struct {
	Start       float64             `json:"start"`
	End         float64             `json:"end"`
	Text        string              `json:"text"`
	Translated  string              `json:"translated,omitempty"`
	Highlighted int                 `json:"highlighted"`
	Characters  []characterResponse `json:"characters,omitempty"`
}

type lyricsResponse struct {
	Revision string         `json:"revision"`
	Hash     string         `json:"hash"`
	Lines    []lineResponse `json:"lines"`
}

type currentResponse struct {
	At       float64 `json:"at"`
	Index    int     `json:"index"`
	Text     string  `json:"text"`
	Revision string  `json:"revision"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()

	resp := statusResponse{
		Hash:        snap.Hash,
		Phase:       snap.Phase.String(),
		Status:      snap.Status,
		Position:    snap.Position,
		Offset:      snap.Offset,
		Playing:     snap.Playing,
		CurrentLine: snap.CurrentLine,
		Revision:    snap.Revision,
	}
	if snap.Track != nil {
		resp.Track = &trackResponse{
			Title:    snap.Track.Title,
			Artist:   snap.Track.Artist,
			Album:    snap.Track.Album,
			Duration: snap.Track.Duration,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// lyrics returns the loaded document. ?chars=1 adds per-character timing.
func (h *handlers) lyrics(w http.ResponseWriter, r *http.Request) {
	doc, revision := h.state.Document()
	if len(doc) == 0 {
		jsonError(w, "no lyrics loaded", http.StatusNotFound)
		return
	}

	withChars, _ := strconv.ParseBool(r.URL.Query().Get("chars"))

	resp := lyricsResponse{
		Revision: revision,
		Hash:     h.state.Snapshot().Hash,
		Lines:    make([]lineResponse, 0, len(doc)),
	}
	for _, line := range doc {
		lr := lineResponse{
			Start:       line.Start(),
			End:         line.End(),
			Text:        line.Text(),
			Translated:  line.Translated,
			Highlighted: line.HighlightedCount(),
		}
		if withChars {
			for _, c := range line.Characters {
				lr.Characters = append(lr.Characters, characterResponse{
					Char:        c.Char,
					Start:       c.StartTime,
					End:         c.EndTime,
					Highlighted: c.Highlighted,
				})
			}
		}
		resp.Lines = append(resp.Lines, lr)
	}

	writeJSON(w, http.StatusOK, resp)
}

// current returns the line spanning ?at= seconds, defaulting to the
// offset-adjusted playback position.
func (h *handlers) current(w http.ResponseWriter, r *http.Request) {
	doc, revision := h.state.Document()
	if len(doc) == 0 {
		jsonError(w, "no lyrics loaded", http.StatusNotFound)
		return
	}

	var at float64
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			jsonError(w, "invalid at parameter", http.StatusBadRequest)
			return
		}
		at = parsed
	} else {
		snap := h.state.Snapshot()
		at = snap.Position + snap.Offset
	}

	writeJSON(w, http.StatusOK, currentResponse{
		At:       at,
		Index:    lineAt(doc, at),
		Text:     lyrics.CurrentLineText(doc, at),
		Revision: revision,
	})
}

// lineAt is the index of the first line spanning seconds, or -1.
func lineAt(doc lyrics.Document, seconds float64) int {
	ms := seconds * 1000
	for i, line := range doc {
		if line.Contains(ms) {
			return i
		}
	}
	return -1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logger()
		l.Debug().Err(err).Msg("failed to write response")
	}
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
