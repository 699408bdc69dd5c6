package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"archivarr/internal/domain/errs"
)

func testClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewHTTPClient("test-key")
	c.BaseURL = srv.URL
	return c
}

// TestQuotaClassification verifies a quota 403 maps to ErrQuotaExceeded.
func TestQuotaClassification(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Quota exceeded.","errors":[{"reason":"quotaExceeded"}]}}`))
	})

	_, _, err := c.VideoIDsPage(context.Background(), "uploads", "")
	if !errors.Is(err, errs.ErrQuotaExceeded) {
		t.Errorf("quota 403 returned %v, want ErrQuotaExceeded", err)
	}
}

// TestCommentForbiddenIsDisabled verifies a plain 403 on comment
// listing maps to the disabled sentinel, not a quota error.
func TestCommentForbiddenIsDisabled(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"disabled comments.","errors":[{"reason":"commentsDisabled"}]}}`))
	})

	_, _, err := c.CommentThreadsPage(context.Background(), "vid", "")
	if !errors.Is(err, errCommentsDisabled) {
		t.Errorf("comment 403 returned %v, want errCommentsDisabled", err)
	}
}

// TestChannelInfoMapping verifies the channel response maps onto the model.
func TestChannelInfoMapping(t *testing.T) {
	t.Parallel()

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("API key missing from request: %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{
            "id":"UC123",
            "snippet":{"title":"A Channel","customUrl":"@achannel","thumbnails":{"high":{"url":"http://img/h.jpg"}}},
            "statistics":{"subscriberCount":"1500","videoCount":"42","viewCount":"100000"},
            "contentDetails":{"relatedPlaylists":{"uploads":"UU123"}}
        }]}`))
	})

	ch, uploads, err := c.ChannelInfo(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("channel info failed: %v", err)
	}
	if uploads != "UU123" {
		t.Errorf("uploads playlist = %q, want UU123", uploads)
	}
	if ch.Title != "A Channel" || ch.SubscriberCount != 1500 || ch.VideoCount != 42 {
		t.Errorf("channel mapping wrong: %+v", ch)
	}
	if ch.AvatarURL != "http://img/h.jpg" {
		t.Errorf("avatar = %q, want best thumbnail", ch.AvatarURL)
	}
}

// TestParseISODuration verifies duration strings convert to seconds.
func TestParseISODuration(t *testing.T) {
	t.Parallel()

	cases := map[string]int64{
		"PT1H2M3S": 3723,
		"PT15M":    900,
		"PT42S":    42,
		"P1DT1H":   3600, // days ignored beyond the T marker
		"":         0,
	}
	for in, want := range cases {
		if got := parseISODuration(in); got != want {
			t.Errorf("parseISODuration(%q) = %d, want %d", in, got, want)
		}
	}
}
