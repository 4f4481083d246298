package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/vidshare/backend/internal/models"
	"github.com/vidshare/backend/internal/pagination"
)

func TestCurrentUserRequiresAuth(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/current-user"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/current-user", token: "garbage"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed token got %d", rec.Code)
	}

	// The refresh token is not accepted where an access token is required.
	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/current-user", token: sess.RefreshToken})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a refresh token got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/current-user", cookies: sess.Cookies})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected cookie auth to succeed got %d", rec.Code)
	}
	var user models.User
	decodeEnvelope(t, rec, &user)
	if user.ID != sess.UserID {
		t.Fatalf("unexpected user %+v", user)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatal("response leaked password material")
	}
}

func TestUpdateDetails(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signUp(t, "alice")
	srv.signUp(t, "bob")

	rec := srv.do(t, request{method: http.MethodPatch, path: "/api/v1/users/update-user-details", token: alice.AccessToken, body: map[string]string{
		"fullName": "Alice Liddell",
		"email":    "bob@example.com",
	}})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPatch, path: "/api/v1/users/update-user-details", token: alice.AccessToken, body: map[string]string{
		"fullName": "Alice Liddell",
		"email":    "liddell@example.com",
	}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var user models.User
	decodeEnvelope(t, rec, &user)
	if user.FullName != "Alice Liddell" || user.Email != "liddell@example.com" {
		t.Fatalf("details not updated: %+v", user)
	}
}

func TestChangeAvatar(t *testing.T) {
	srv := newTestServer(t, nil)
	sess := srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-avatar", token: sess.AccessToken, form: map[string]string{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a missing file got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-avatar", token: sess.AccessToken, files: map[string]string{"avatar": "me.png"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	var user models.User
	decodeEnvelope(t, rec, &user)
	if !strings.HasPrefix(user.Avatar, "https://cdn.test/avatars/"+sess.UserID+"/") {
		t.Fatalf("unexpected avatar location %q", user.Avatar)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/users/change-avatar", token: sess.AccessToken, files: map[string]string{"avatar": "again.png"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(srv.cleanup.locations) != 1 || srv.cleanup.locations[0] != user.Avatar {
		t.Fatalf("expected previous avatar to be queued, got %v", srv.cleanup.locations)
	}
}

func TestChannelProfile(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/subscriptions/c/" + alice.UserID, token: bob.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("subscribe: %d %s", rec.Code, rec.Body.String())
	}
	var state subscriptionState
	decodeEnvelope(t, rec, &state)
	if !state.Subscribed {
		t.Fatal("expected subscribed=true")
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/channel/alice", token: bob.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("channel: %d %s", rec.Code, rec.Body.String())
	}
	var profile models.ChannelProfile
	decodeEnvelope(t, rec, &profile)
	if profile.SubscriberCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile for subscriber %+v", profile)
	}

	// Anonymous viewers see the counts but never the flag.
	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/channel/alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("anonymous channel: %d", rec.Code)
	}
	profile = models.ChannelProfile{}
	decodeEnvelope(t, rec, &profile)
	if profile.SubscriberCount != 1 || profile.IsSubscribed {
		t.Fatalf("unexpected anonymous profile %+v", profile)
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/channel/nobody"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", rec.Code)
	}
}

func TestSelfSubscriptionRejected(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signUp(t, "alice")

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/subscriptions/c/" + alice.UserID, token: alice.AccessToken})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWatchHistoryAndLikedVideos(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signUp(t, "alice")
	bob := srv.signUp(t, "bob")

	first := srv.publish(t, alice, "first")
	second := srv.publish(t, alice, "second")

	for _, id := range []string{first.ID, second.ID} {
		rec := srv.do(t, request{method: http.MethodGet, path: "/api/v1/videos/" + id, token: bob.AccessToken})
		if rec.Code != http.StatusOK {
			t.Fatalf("watch %s: %d", id, rec.Code)
		}
	}

	rec := srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/history?limit=1&page=2", token: bob.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("history: %d %s", rec.Code, rec.Body.String())
	}
	var history pagination.Page[models.WatchedVideo]
	decodeEnvelope(t, rec, &history)
	if history.TotalItems != 2 || len(history.Items) != 1 || history.Items[0].ID != second.ID {
		t.Fatalf("unexpected history window %+v", history)
	}
	if history.Items[0].Owner.Username != "alice" {
		t.Fatalf("expected owner projection, got %+v", history.Items[0].Owner)
	}
	if history.NextPage != nil || history.PreviousPage == nil || *history.PreviousPage != 1 {
		t.Fatalf("unexpected page links %+v", history)
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/users/history?page=0", token: bob.AccessToken})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for page=0 got %d", rec.Code)
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/likes/videos", token: bob.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("liked videos: %d", rec.Code)
	}
	var liked []models.LikedVideo
	decodeEnvelope(t, rec, &liked)
	if liked == nil || len(liked) != 0 {
		t.Fatalf("expected an empty array, got %v", liked)
	}

	rec = srv.do(t, request{method: http.MethodPost, path: "/api/v1/likes/toggle/v/" + first.ID, token: bob.AccessToken})
	if rec.Code != http.StatusOK {
		t.Fatalf("like: %d %s", rec.Code, rec.Body.String())
	}

	rec = srv.do(t, request{method: http.MethodGet, path: "/api/v1/likes/videos", token: bob.AccessToken})
	decodeEnvelope(t, rec, &liked)
	if len(liked) != 1 || liked[0].VideoID != first.ID || liked[0].Owner.Email != "alice@example.com" {
		t.Fatalf("unexpected liked videos %+v", liked)
	}
}

func TestToggleLikeTwiceRestoresState(t *testing.T) {
	srv := newTestServer(t, nil)
	alice := srv.signUp(t, "alice")
	video := srv.publish(t, alice, "clip")

	want := []bool{true, false, true}
	for i, expected := range want {
		rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/likes/toggle/v/" + video.ID, token: alice.AccessToken})
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %d: %d", i, rec.Code)
		}
		var state likeState
		decodeEnvelope(t, rec, &state)
		if state.Liked != expected {
			t.Fatalf("toggle %d: expected liked=%v", i, expected)
		}
	}

	rec := srv.do(t, request{method: http.MethodPost, path: "/api/v1/likes/toggle/c/not-a-uuid", token: alice.AccessToken})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a malformed id got %d", rec.Code)
	}
}
