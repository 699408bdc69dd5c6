package catalog

import (
	"context"
	"testing"
	"time"

	"archivarr/internal/domain/consts"
	"archivarr/internal/models"
)

// fakeClient serves canned pages in declaration order.
type fakeClient struct {
	pages    [][]*models.Video
	threads  []*models.Comment
	replies  map[string][]*models.Comment
	disabled bool
}

func (f *fakeClient) ChannelInfo(_ context.Context, remoteID string) (*models.Channel, string, error) {
	return &models.Channel{RemoteID: remoteID, Title: "Fake"}, "uploads-" + remoteID, nil
}

func (f *fakeClient) VideoIDsPage(_ context.Context, _, pageToken string) ([]string, string, error) {
	idx := 0
	if pageToken != "" {
		idx = int(pageToken[0] - '0')
	}
	if idx >= len(f.pages) {
		return nil, "", nil
	}
	ids := make([]string, len(f.pages[idx]))
	for i, v := range f.pages[idx] {
		ids[i] = v.RemoteID
	}
	next := ""
	if idx+1 < len(f.pages) {
		next = string(rune('0' + idx + 1))
	}
	return ids, next, nil
}

func (f *fakeClient) VideoDetails(_ context.Context, remoteIDs []string) ([]*models.Video, error) {
	var out []*models.Video
	for _, page := range f.pages {
		for _, v := range page {
			for _, id := range remoteIDs {
				if v.RemoteID == id {
					out = append(out, v)
				}
			}
		}
	}
	return out, nil
}

func (f *fakeClient) CommentThreadsPage(_ context.Context, _, _ string) ([]*models.Comment, string, error) {
	if f.disabled {
		return nil, "", errCommentsDisabled
	}
	return f.threads, "", nil
}

func (f *fakeClient) Replies(_ context.Context, parentRemoteID string) ([]*models.Comment, error) {
	return f.replies[parentRemoteID], nil
}

func video(id string, age time.Duration) *models.Video {
	return &models.Video{RemoteID: id, Title: id, UploadDate: time.Now().Add(-age)}
}

// TestVideosCutoff verifies per-item cutoff checks and the stop-at-cutoff
// behavior across untrusted page ordering.
func TestVideosCutoff(t *testing.T) {
	t.Parallel()

	// Page two opens with an out-of-window item ahead of an in-window
	// one, as a non-monotonic remote would; page three must never be
	// requested in stop mode.
	client := &fakeClient{pages: [][]*models.Video{
		{video("new-1", time.Hour), video("new-2", 2*time.Hour)},
		{video("old-1", 10*24*time.Hour), video("new-3", 3*time.Hour)},
		{video("new-4", 4*time.Hour)},
	}}
	fetcher := NewFetcher(client)

	cutoff := CutoffFor(consts.TimeFilterWeek, time.Now())

	var seen []string
	err := fetcher.Videos(context.Background(), "uploads", cutoff, true, func(v *models.Video) (bool, error) {
		seen = append(seen, v.RemoteID)
		return true, nil
	})
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	want := []string{"new-1", "new-2", "new-3"}
	if len(seen) != len(want) {
		t.Fatalf("stop-at-cutoff visited %v, want %v", seen, want)
	}
	for i, id := range want {
		if seen[i] != id {
			t.Errorf("stop-at-cutoff visited %v, want %v", seen, want)
			break
		}
	}

	// Without stop-at-cutoff the out-of-window item is skipped but
	// enumeration continues through every page.
	seen = nil
	err = fetcher.Videos(context.Background(), "uploads", cutoff, false, func(v *models.Video) (bool, error) {
		seen = append(seen, v.RemoteID)
		return true, nil
	})
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if len(seen) != 4 {
		t.Errorf("skip-and-continue visited %v, want 4 in-window items", seen)
	}
	for _, id := range seen {
		if id == "old-1" {
			t.Error("out-of-window item was visited")
		}
	}
}

// TestVideosEarlyStop verifies the visit callback can end enumeration.
func TestVideosEarlyStop(t *testing.T) {
	t.Parallel()

	client := &fakeClient{pages: [][]*models.Video{
		{video("v1", time.Hour), video("v2", 2*time.Hour), video("v3", 3*time.Hour)},
	}}

	var seen int
	err := NewFetcher(client).Videos(context.Background(), "uploads", time.Time{}, false, func(*models.Video) (bool, error) {
		seen++
		return seen < 2, nil
	})
	if err != nil {
		t.Fatalf("enumeration failed: %v", err)
	}
	if seen != 2 {
		t.Errorf("visited %d items after early stop, want 2", seen)
	}
}

// TestCommentsFlattened verifies replies land one level under their
// thread.
func TestCommentsFlattened(t *testing.T) {
	t.Parallel()

	client := &fakeClient{
		threads: []*models.Comment{
			{RemoteID: "t1", TopLevel: true, ReplyCount: 2},
			{RemoteID: "t2", TopLevel: true},
		},
		replies: map[string][]*models.Comment{
			"t1": {
				{RemoteID: "r1", ParentRemoteID: "t1"},
				{RemoteID: "r2", ParentRemoteID: "t1"},
			},
		},
	}

	comments, err := NewFetcher(client).Comments(context.Background(), "vid")
	if err != nil {
		t.Fatalf("comment fetch failed: %v", err)
	}
	if len(comments) != 4 {
		t.Fatalf("got %d comments, want 4", len(comments))
	}
	wantOrder := []string{"t1", "r1", "r2", "t2"}
	for i, want := range wantOrder {
		if comments[i].RemoteID != want {
			t.Errorf("comment %d = %q, want %q", i, comments[i].RemoteID, want)
		}
	}
}

// TestCommentsDisabled verifies a disabled comment section yields an
// empty result rather than an error.
func TestCommentsDisabled(t *testing.T) {
	t.Parallel()

	client := &fakeClient{disabled: true}
	comments, err := NewFetcher(client).Comments(context.Background(), "vid")
	if err != nil {
		t.Fatalf("disabled comments surfaced error: %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("got %d comments from a disabled section, want 0", len(comments))
	}
}

// TestCutoffFor verifies the time filter bounds.
func TestCutoffFor(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		filter consts.TimeFilter
		want   time.Time
	}{
		{consts.TimeFilterWeek, now.AddDate(0, 0, -7)},
		{consts.TimeFilterMonth, now.AddDate(0, 0, -30)},
		{consts.TimeFilterYear, now.AddDate(0, 0, -365)},
		{consts.TimeFilterAll, time.Time{}},
	}
	for _, c := range cases {
		if got := CutoffFor(c.filter, now); !got.Equal(c.want) {
			t.Errorf("CutoffFor(%s) = %v, want %v", c.filter, got, c.want)
		}
	}

	if !InWindow(time.Time{}, now.AddDate(0, 0, -7)) {
		t.Error("zero upload date should always pass the cutoff")
	}
}
