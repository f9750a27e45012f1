package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vidtube/backend/internal/models"
)

func TestCreateCommentRequiresExistingVideo(t *testing.T) {
	handler := CommentHandler{Comments: newFakeCommentRepo(), Videos: newFakeVideoRepo()}

	req := authedRequest(http.MethodPost, "/api/v1/videos/ghost/comments", `{"content":"nice"}`, "u1")
	req.SetPathValue("videoId", "ghost")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateCommentAttachesAuthor(t *testing.T) {
	comments := newFakeCommentRepo()
	videos := newFakeVideoRepo(models.Video{ID: "v1", Owners: []string{"owner"}})
	handler := CommentHandler{Comments: comments, Videos: videos}

	req := authedRequest(http.MethodPost, "/api/v1/videos/v1/comments", `{"content":"nice"}`, "viewer")
	req.SetPathValue("videoId", "v1")
	rec := httptest.NewRecorder()

	handler.Create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	comments.mu.Lock()
	defer comments.mu.Unlock()
	for _, comment := range comments.comments {
		if comment.OwnerID != "viewer" || comment.VideoID != "v1" {
			t.Errorf("unexpected comment %+v", comment)
		}
	}
}

func TestCommentMutationsMissingBeforeForbidden(t *testing.T) {
	existing := models.Comment{ID: "c1", VideoID: "v1", OwnerID: "author", Content: "first"}

	cases := []struct {
		name      string
		commentID string
		caller    string
		status    int
	}{
		{"missing comment is not found", "ghost", "author", http.StatusNotFound},
		{"foreign comment is forbidden", "c1", "intruder", http.StatusForbidden},
		{"missing beats forbidden for strangers", "ghost", "intruder", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := CommentHandler{Comments: newFakeCommentRepo(existing)}

			req := authedRequest(http.MethodDelete, "/api/v1/comments/"+tc.commentID, "", tc.caller)
			req.SetPathValue("commentId", tc.commentID)
			rec := httptest.NewRecorder()

			handler.Delete(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateCommentByAuthor(t *testing.T) {
	comments := newFakeCommentRepo(models.Comment{ID: "c1", VideoID: "v1", OwnerID: "author", Content: "first"})
	handler := CommentHandler{Comments: comments}

	req := authedRequest(http.MethodPatch, "/api/v1/comments/c1", `{"content":"edited"}`, "author")
	req.SetPathValue("commentId", "c1")
	rec := httptest.NewRecorder()

	handler.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored, _ := comments.FindByID(t.Context(), "c1")
	if stored.Content != "edited" {
		t.Errorf("expected content updated, got %q", stored.Content)
	}
}
