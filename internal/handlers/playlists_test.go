package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidtube/backend/internal/models"
)

func TestAddVideoChecksPlaylistThenVideo(t *testing.T) {
	playlist := models.Playlist{ID: "p1", Owners: []string{"owner"}, Name: "favs"}
	video := models.Video{ID: "v1", Owners: []string{"owner"}}

	cases := []struct {
		name       string
		playlistID string
		videoID    string
		caller     string
		status     int
	}{
		{"both exist", "p1", "v1", "owner", http.StatusOK},
		{"missing playlist", "ghost", "v1", "owner", http.StatusNotFound},
		{"missing video", "p1", "ghost", "owner", http.StatusNotFound},
		{"foreign playlist", "p1", "v1", "intruder", http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := PlaylistHandler{
				Playlists: newFakePlaylistRepo(playlist),
				Videos:    newFakeVideoRepo(video),
			}

			req := authedRequest(http.MethodPost, "/api/v1/playlists/"+tc.playlistID+"/videos/"+tc.videoID, "", tc.caller)
			req.SetPathValue("playlistId", tc.playlistID)
			req.SetPathValue("videoId", tc.videoID)
			rec := httptest.NewRecorder()

			handler.AddVideo(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAddVideoTwiceConflicts(t *testing.T) {
	playlists := newFakePlaylistRepo(models.Playlist{ID: "p1", Owners: []string{"owner"}, VideoIDs: []string{"v1"}})
	handler := PlaylistHandler{Playlists: playlists, Videos: newFakeVideoRepo(models.Video{ID: "v1"})}

	req := authedRequest(http.MethodPost, "/api/v1/playlists/p1/videos/v1", "", "owner")
	req.SetPathValue("playlistId", "p1")
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.AddVideo(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePlaylistRequiresName(t *testing.T) {
	handler := PlaylistHandler{Playlists: newFakePlaylistRepo()}

	req := authedRequest(http.MethodPost, "/api/v1/playlists", `{"description":"no name"}`, "u1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
