package eventlog

import (
	"sort"
	"strings"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// Search term bounds and result caps, carried over unchanged from the
// original group_chat_core's search().
const (
	MinTermLength = 3
	MaxTermLength = 30
	MaxSearchUsers = 5
)

// MessageMatch is one search hit: the matching message plus the score
// it ranked by, so the façade can decide how many to surface.
type MessageMatch struct {
	ThreadRoot *ids.MessageIndex
	Event      EventWrapper
	Score      int
}

// SearchMessages tokenizes query into space-separated terms (each
// clamped to [MinTermLength, MaxTermLength], discarding the rest),
// requires every visible message to contain all terms (case-insensitive
// substring match), and ranks matches by term-hit count first and then
// recency — the same two-level ordering build_thread_preview-adjacent
// code in the original applies to search hits, newest relevant first.
func (l *Log) SearchMessages(minVisible ids.EventIndex, query string, maxResults int, now ids.TimestampMillis) []MessageMatch {
	terms := tokenizeQuery(query)
	if len(terms) == 0 {
		return nil
	}

	var matches []MessageMatch
	reader := l.MainReader(minVisible)
	matches = append(matches, searchSubLog(reader, nil, terms)...)
	for root, thread := range l.threads {
		root := root
		tr := l.visibleReaderFor(thread, minVisible, &root)
		matches = append(matches, searchSubLog(tr, &root, terms)...)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Event.Timestamp > matches[j].Event.Timestamp
	})
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}
	return matches
}

func searchSubLog(r *Reader, root *ids.MessageIndex, terms []string) []MessageMatch {
	var out []MessageMatch
	for _, w := range r.Iter() {
		if w.Event.Kind != KindMessage || w.Event.Message == nil {
			continue
		}
		if w.Event.Message.DeletedBy != nil {
			continue
		}
		text, ok := w.Event.Message.Content.PlainText()
		if !ok {
			continue
		}
		lower := strings.ToLower(text)
		score := 0
		allPresent := true
		for _, term := range terms {
			count := strings.Count(lower, term)
			if count == 0 {
				allPresent = false
				break
			}
			score += count
		}
		if allPresent {
			out = append(out, MessageMatch{ThreadRoot: root, Event: w, Score: score})
		}
	}
	return out
}

func tokenizeQuery(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < MinTermLength {
			continue
		}
		if len(f) > MaxTermLength {
			f = f[:MaxTermLength]
		}
		terms = append(terms, f)
	}
	return terms
}
