package relay

import "strings"

// PlaylistContentType is the MIME type served for rewritten playlists.
const PlaylistContentType = "application/vnd.apple.mpegurl"

// RelayPathPrefix is the public path prefix rewritten tokens point at.
const RelayPathPrefix = "/relay/"

// RewritePlaylist replaces every whitespace-delimited token ending in .m3u8
// or .ts with a relay path for the given match, leaving all other text
// intact. Rewriting is purely textual: tag lines and unrecognized tokens pass
// through byte-for-byte. Fragmented-MP4 segment extensions and byte-range
// sub-tags are not recognized.
func RewritePlaylist(body string, id MatchID) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = rewriteLine(line, id)
	}
	return strings.Join(lines, "\n")
}

// rewriteLine substitutes qualifying tokens in place. Whitespace runs and a
// trailing \r on CRLF playlists are copied through verbatim, so every byte
// that is not a rewritten token survives unchanged.
func rewriteLine(line string, id MatchID) string {
	var b strings.Builder
	changed := false
	for i := 0; i < len(line); {
		if isSpace(line[i]) {
			j := i
			for j < len(line) && isSpace(line[j]) {
				j++
			}
			b.WriteString(line[i:j])
			i = j
			continue
		}
		j := i
		for j < len(line) && !isSpace(line[j]) {
			j++
		}
		tok := line[i:j]
		if strings.HasSuffix(tok, ".m3u8") || strings.HasSuffix(tok, ".ts") {
			b.WriteString(RelayPathPrefix)
			b.WriteString(string(id))
			b.WriteString("/")
			changed = true
		}
		b.WriteString(tok)
		i = j
	}
	if !changed {
		return line
	}
	return b.String()
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}
	return false
}

// BaseDirURL truncates a playlist URL to its last path separator, inclusive.
// Relative segment references from that playlist resolve against the result.
func BaseDirURL(rawURL string) string {
	i := strings.LastIndex(rawURL, "/")
	if i < 0 {
		return rawURL
	}
	return rawURL[:i+1]
}
