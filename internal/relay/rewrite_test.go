package relay

import (
	"strings"
	"testing"
)

func TestRewritePlaylist_segments_and_subplaylists(t *testing.T) {
	in := "#EXTM3U\nchunk1.ts\nsub.m3u8\n"
	want := "#EXTM3U\n/relay/1/chunk1.ts\n/relay/1/sub.m3u8\n"

	got := RewritePlaylist(in, MatchID("1"))
	if got != want {
		t.Errorf("RewritePlaylist:\ngot  %q\nwant %q", got, want)
	}
}

func TestRewritePlaylist_tag_lines_untouched(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:6\n#EXTINF:5.940,\nseg-001.ts\n"
	got := RewritePlaylist(in, MatchID("42"))

	if !strings.Contains(got, "#EXT-X-TARGETDURATION:6\n") {
		t.Errorf("tag line should pass through: %q", got)
	}
	if !strings.Contains(got, "#EXTINF:5.940,\n") {
		t.Errorf("EXTINF line should pass through: %q", got)
	}
	if !strings.Contains(got, "/relay/42/seg-001.ts") {
		t.Errorf("segment should be rewritten: %q", got)
	}
}

func TestRewritePlaylist_absolute_url_token(t *testing.T) {
	in := "https://cdn.example/path/video.m3u8\n"
	got := RewritePlaylist(in, MatchID("7"))
	if !strings.HasPrefix(got, "/relay/7/https://cdn.example/path/video.m3u8") {
		t.Errorf("absolute token ending in .m3u8 should be rewritten: %q", got)
	}
}

func TestRewritePlaylist_other_extensions_untouched(t *testing.T) {
	in := "init.mp4\nsegment.m4s\npreview.jpg\n"
	got := RewritePlaylist(in, MatchID("1"))
	if got != in {
		t.Errorf("non .ts/.m3u8 tokens should pass through:\ngot  %q\nwant %q", got, in)
	}
}

func TestRewritePlaylist_no_bare_tokens_remain(t *testing.T) {
	in := "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlow/index.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=2400000\nhigh/index.m3u8\n"
	got := RewritePlaylist(in, MatchID("m1"))

	for _, line := range strings.Split(got, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if (strings.HasSuffix(line, ".m3u8") || strings.HasSuffix(line, ".ts")) &&
			!strings.HasPrefix(line, "/relay/m1/") {
			t.Errorf("bare token left unrewritten: %q", line)
		}
	}
}

func TestRewritePlaylist_preserves_crlf_line_endings(t *testing.T) {
	in := "#EXTM3U\r\nchunk1.ts\r\nsub.m3u8\r\n"
	want := "#EXTM3U\r\n/relay/1/chunk1.ts\r\n/relay/1/sub.m3u8\r\n"

	got := RewritePlaylist(in, MatchID("1"))
	if got != want {
		t.Errorf("CRLF playlist:\ngot  %q\nwant %q", got, want)
	}
}

func TestRewritePlaylist_preserves_whitespace_runs(t *testing.T) {
	in := "a.ts  b.ts\tc.m3u8 "
	want := "/relay/1/a.ts  /relay/1/b.ts\t/relay/1/c.m3u8 "

	got := RewritePlaylist(in, MatchID("1"))
	if got != want {
		t.Errorf("whitespace on a modified line must survive:\ngot  %q\nwant %q", got, want)
	}
}

func TestRewritePlaylist_empty_body(t *testing.T) {
	if got := RewritePlaylist("", MatchID("1")); got != "" {
		t.Errorf("empty body should stay empty, got %q", got)
	}
}

func TestBaseDirURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://cdn.example/a/master.m3u8", "https://cdn.example/a/"},
		{"https://cdn.example/master.m3u8", "https://cdn.example/"},
		{"https://cdn.example/a/b/c/playlist.m3u8?token=x", "https://cdn.example/a/b/c/"},
		{"no-separator", "no-separator"},
	}
	for _, tt := range tests {
		if got := BaseDirURL(tt.in); got != tt.want {
			t.Errorf("BaseDirURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
