// Package eventlog implements the append-only event log at the heart of
// GroupChatCore (§4.1 of the source spec): a main chat log plus one
// independent sub-log per thread root, each with its own dense monotonic
// EventIndex and MessageIndex counters, grounded on ChatEvents /
// ChatEventsList in the original group_chat_core's lib.rs.
package eventlog

import (
	"sort"

	"github.com/openmesh-chat/groupchat-core/internal/ids"
)

// recentlyUpdatedCap bounds the secondary "recently touched" index the
// original caps at 1000 entries so incremental sync never has to scan
// the whole log to answer has_updates_since.
const recentlyUpdatedCap = 1000

// subLog is one append-only event sequence: the main log, or a single
// thread's log. Each has its own EventIndex/MessageIndex numbering.
type subLog struct {
	events             []EventWrapper
	nextEventIndex     ids.EventIndex
	nextMessageIndex   ids.MessageIndex
	posByMessageIndex  map[ids.MessageIndex]int
	posByMessageID     map[ids.MessageId]int
	expiresAt          map[ids.EventIndex]ids.TimestampMillis
}

func newSubLog() *subLog {
	return &subLog{
		posByMessageIndex: make(map[ids.MessageIndex]int),
		posByMessageID:    make(map[ids.MessageId]int),
		expiresAt:         make(map[ids.EventIndex]ids.TimestampMillis),
	}
}

func (s *subLog) latestEventIndex() (ids.EventIndex, bool) {
	if len(s.events) == 0 {
		return 0, false
	}
	return s.events[len(s.events)-1].Index, true
}

func (s *subLog) push(event Event, now ids.TimestampMillis, ttl *int64) EventWrapper {
	index := s.nextEventIndex
	s.nextEventIndex++

	w := EventWrapper{Index: index, Timestamp: now, Event: event}

	if event.Kind == KindMessage && event.Message != nil {
		event.Message.MessageIndex = s.nextMessageIndex
		s.nextMessageIndex++
		w.Event = event
	}

	pos := len(s.events)
	s.events = append(s.events, w)

	if event.Kind == KindMessage && event.Message != nil {
		s.posByMessageIndex[event.Message.MessageIndex] = pos
		s.posByMessageID[event.Message.MessageID] = pos
	}
	if ttl != nil {
		s.expiresAt[index] = now + *ttl
	}
	return w
}

func (s *subLog) byPos(pos int) *EventWrapper {
	if pos < 0 || pos >= len(s.events) {
		return nil
	}
	return &s.events[pos]
}

func (s *subLog) eventByIndex(index ids.EventIndex) (*EventWrapper, int) {
	// Event indexes are dense and start at 0, so position == index as
	// long as nothing has been removed; removal punches holes, so fall
	// back to a search when the fast path misses.
	if int(index) < len(s.events) && s.events[int(index)].Index == index {
		return &s.events[int(index)], int(index)
	}
	lo, hi := 0, len(s.events)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if s.events[mid].Index == index {
			return &s.events[mid], mid
		} else if s.events[mid].Index < index {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return nil, -1
}

// Log owns the main sub-log and all thread sub-logs for one chat.
type Log struct {
	main            *subLog
	threads         map[ids.MessageIndex]*subLog
	ttlMillis       *int64
	recentlyUpdated []RecentUpdate
	pinned          []ids.MessageIndex
	dateLastPinned  *ids.TimestampMillis
}

// RecentUpdate records one touch of the log for has_updates_since, newest
// appended last; IterRecentlyUpdatedEvents scans from the tail.
type RecentUpdate struct {
	ThreadRoot *ids.MessageIndex
	EventIndex ids.EventIndex
	Timestamp  ids.TimestampMillis
}

// New creates a log for a freshly-created group, pushing the single
// synthetic "group created" event the original's ChatEvents::new always
// starts with.
func New(name, description string, createdBy ids.UserId, now ids.TimestampMillis) *Log {
	l := &Log{main: newSubLog(), threads: make(map[ids.MessageIndex]*subLog)}
	l.pushMain(Event{Kind: KindGroupCreated, GroupCreated: &GroupCreatedData{
		Name: name, Description: description, CreatedBy: createdBy,
	}}, now)
	return l
}

func (l *Log) touch(threadRoot *ids.MessageIndex, index ids.EventIndex, now ids.TimestampMillis) {
	l.recentlyUpdated = append(l.recentlyUpdated, RecentUpdate{ThreadRoot: threadRoot, EventIndex: index, Timestamp: now})
	if len(l.recentlyUpdated) > recentlyUpdatedCap {
		l.recentlyUpdated = l.recentlyUpdated[len(l.recentlyUpdated)-recentlyUpdatedCap:]
	}
}

// PushMainEvent appends event to the main log.
func (l *Log) PushMainEvent(event Event, now ids.TimestampMillis) EventWrapper {
	w := l.main.push(event, now, l.ttlMillis)
	l.touch(nil, w.Index, now)
	return w
}

func (l *Log) pushMain(event Event, now ids.TimestampMillis) EventWrapper {
	return l.PushMainEvent(event, now)
}

// PushThreadEvent appends event to root's thread log, creating the
// sub-log on first use, and updates the root message's ThreadSummary in
// the main log.
func (l *Log) PushThreadEvent(root ids.MessageIndex, event Event, now ids.TimestampMillis, author ids.UserId) (EventWrapper, bool) {
	rootPos, ok := l.main.posByMessageIndex[root]
	if !ok {
		return EventWrapper{}, false
	}
	thread, exists := l.threads[root]
	if !exists {
		thread = newSubLog()
		l.threads[root] = thread
	}
	w := thread.push(event, now, l.ttlMillis)
	l.touch(&root, w.Index, now)

	rootMsg := l.main.events[rootPos].Event.Message
	if rootMsg != nil {
		if rootMsg.ThreadSummary == nil {
			rootMsg.ThreadSummary = &ThreadSummary{}
			rootMsg.ThreadSummary.addParticipant(rootMsg.Sender)
		}
		ts := rootMsg.ThreadSummary
		if event.Kind == KindMessage {
			ts.ReplyCount++
		}
		ts.LatestEventIndex = w.Index
		ts.LatestEventTimestamp = now
		ts.addParticipant(author)
	}
	return w, true
}

// PushMessageArgs carries everything needed to construct and push a new
// message event, main-chat or thread, mirroring send_message's shape in
// the original.
type PushMessageArgs struct {
	Sender     ids.UserId
	MessageID  ids.MessageId
	Content    MessageContent
	RepliesTo  *ReplyContext
	Mentioned  []ids.UserId
	Forwarded  bool
	ThreadRoot *ids.MessageIndex
	Now        ids.TimestampMillis
}

// PushMessage appends a message event to the main log, or to the given
// thread's log when ThreadRoot is set. Returns ok=false if ThreadRoot
// names a message that does not exist.
func (l *Log) PushMessage(args PushMessageArgs) (EventWrapper, bool) {
	event := Event{Kind: KindMessage, Message: &MessageEventData{
		MessageID: args.MessageID,
		Sender:    args.Sender,
		Content:   args.Content,
		RepliesTo: args.RepliesTo,
		Mentioned: args.Mentioned,
		Forwarded: args.Forwarded,
	}}
	if args.ThreadRoot != nil {
		return l.PushThreadEvent(*args.ThreadRoot, event, args.Now, args.Sender)
	}
	return l.PushMainEvent(event, args.Now), true
}

// Reader is a read-only, visibility-bounded view over one sub-log.
type Reader struct {
	log          *subLog
	minVisible   ids.EventIndex
	threadRoot   *ids.MessageIndex
}

func (l *Log) visibleReaderFor(log *subLog, minVisible ids.EventIndex, threadRoot *ids.MessageIndex) *Reader {
	return &Reader{log: log, minVisible: minVisible, threadRoot: threadRoot}
}

// MainReader returns a Reader over the main log bounded by minVisible
// (0 sees everything, used internally by owner-level queries).
func (l *Log) MainReader(minVisible ids.EventIndex) *Reader {
	return l.visibleReaderFor(l.main, minVisible, nil)
}

// ThreadReader returns a Reader over root's thread log, or ok=false if
// the thread does not exist.
func (l *Log) ThreadReader(root ids.MessageIndex, minVisible ids.EventIndex) (*Reader, bool) {
	t, ok := l.threads[root]
	if !ok {
		return nil, false
	}
	return l.visibleReaderFor(t, minVisible, &root), true
}

// EventsReader picks the main or a thread reader depending on whether
// threadRoot is set, matching events_reader in the original.
func (l *Log) EventsReader(minVisible ids.EventIndex, threadRoot *ids.MessageIndex) (*Reader, bool) {
	if threadRoot == nil {
		return l.MainReader(minVisible), true
	}
	return l.ThreadReader(*threadRoot, minVisible)
}

// IsAccessible reports whether eventIndex is both visible to minVisible
// and not past the log's current frontier — the check every read
// operation in the original performs before returning anything.
func (r *Reader) IsAccessible(eventIndex ids.EventIndex) bool {
	if eventIndex < r.minVisible {
		return false
	}
	latest, ok := r.log.latestEventIndex()
	if !ok {
		return false
	}
	return eventIndex <= latest
}

// LatestEventIndex returns the most recent event index in this sub-log.
func (r *Reader) LatestEventIndex() (ids.EventIndex, bool) { return r.log.latestEventIndex() }

func (r *Reader) NextEventIndex() ids.EventIndex     { return r.log.nextEventIndex }
func (r *Reader) NextMessageIndex() ids.MessageIndex { return r.log.nextMessageIndex }

func (r *Reader) visible(w EventWrapper) bool { return w.Index >= r.minVisible }

// Iter returns every visible event, oldest first.
func (r *Reader) Iter() []EventWrapper {
	out := make([]EventWrapper, 0, len(r.log.events))
	for _, w := range r.log.events {
		if r.visible(w) {
			out = append(out, w)
		}
	}
	return out
}

// Scan returns up to maxEvents visible events (capped additionally at
// maxMessages message events), starting at `start` (or the oldest/newest
// visible event if nil) and moving in the given direction — the same
// shape as ChatEventsListReader::scan in the original, used to answer
// paginated event/message fetches.
func (r *Reader) Scan(start *ids.EventIndex, ascending bool, maxEvents, maxMessages int) []EventWrapper {
	events := r.log.events
	startPos := 0
	if start != nil {
		if _, pos := r.log.eventByIndex(*start); pos >= 0 {
			startPos = pos
		} else if ascending {
			startPos = len(events)
		}
	} else if !ascending {
		startPos = len(events) - 1
	}

	out := make([]EventWrapper, 0, maxEvents)
	messageCount := 0
	if ascending {
		for pos := startPos; pos < len(events) && len(out) < maxEvents && messageCount < maxMessages; pos++ {
			w := events[pos]
			if !r.visible(w) {
				continue
			}
			out = append(out, w)
			if w.Event.Kind == KindMessage {
				messageCount++
			}
		}
	} else {
		for pos := startPos; pos >= 0 && len(out) < maxEvents && messageCount < maxMessages; pos-- {
			w := events[pos]
			if !r.visible(w) {
				continue
			}
			out = append(out, w)
			if w.Event.Kind == KindMessage {
				messageCount++
			}
		}
	}
	return out
}

// Window returns events centered on midMessageIndex: up to half of
// maxMessages older and half newer, capped by maxEvents total, matching
// events_window's "jump to a message and see context" behavior.
func (r *Reader) Window(midMessageIndex ids.MessageIndex, maxEvents, maxMessages int) []EventWrapper {
	pos, ok := r.log.posByMessageIndex[midMessageIndex]
	if !ok {
		return nil
	}
	mid := r.log.events[pos].Index
	older := r.Scan(&mid, false, maxEvents/2, maxMessages/2)
	newer := r.Scan(&mid, true, maxEvents-len(older), maxMessages-countMessages(older))
	// Both scans start at mid itself; keep it only once.
	if len(older) > 0 && len(newer) > 0 && newer[0].Index == mid {
		newer = newer[1:]
	}

	// older comes back newest-first; reverse so the merged result is
	// oldest-first end to end.
	for i, j := 0, len(older)-1; i < j; i, j = i+1, j-1 {
		older[i], older[j] = older[j], older[i]
	}
	return append(older, newer...)
}

func countMessages(events []EventWrapper) int {
	n := 0
	for _, w := range events {
		if w.Event.Kind == KindMessage {
			n++
		}
	}
	return n
}

// GetByIndexes returns the visible events among the given indexes, in
// the order requested; inaccessible indexes are silently dropped.
func (r *Reader) GetByIndexes(indexes []ids.EventIndex) []EventWrapper {
	out := make([]EventWrapper, 0, len(indexes))
	for _, idx := range indexes {
		if w, pos := r.log.eventByIndex(idx); pos >= 0 && r.visible(*w) {
			out = append(out, *w)
		}
	}
	return out
}

// MessageByIndex looks up a message event by its MessageIndex.
func (r *Reader) MessageByIndex(mi ids.MessageIndex) (*EventWrapper, bool) {
	pos, ok := r.log.posByMessageIndex[mi]
	if !ok {
		return nil, false
	}
	w := &r.log.events[pos]
	if !r.visible(*w) {
		return nil, false
	}
	return w, true
}

// MessageByID looks up a message event by its stable MessageId.
func (r *Reader) MessageByID(id ids.MessageId) (*EventWrapper, bool) {
	pos, ok := r.log.posByMessageID[id]
	if !ok {
		return nil, false
	}
	w := &r.log.events[pos]
	if !r.visible(*w) {
		return nil, false
	}
	return w, true
}

// EventIndexForMessage maps a MessageIndex back to its EventIndex.
func (r *Reader) EventIndexForMessage(mi ids.MessageIndex) (ids.EventIndex, bool) {
	w, ok := r.MessageByIndex(mi)
	if !ok {
		return 0, false
	}
	return w.Index, true
}

// IterLatestMessages returns up to limit of the most recent message
// events, newest first.
func (r *Reader) IterLatestMessages(limit int) []EventWrapper {
	out := make([]EventWrapper, 0, limit)
	for pos := len(r.log.events) - 1; pos >= 0 && len(out) < limit; pos-- {
		w := r.log.events[pos]
		if w.Event.Kind == KindMessage && r.visible(w) {
			out = append(out, w)
		}
	}
	return out
}

// IterRecentlyUpdatedEvents returns every recorded touch with timestamp
// strictly after since, most recent first, matching
// GroupChatCore::has_updates_since's scan of the bounded recency index.
func (l *Log) IterRecentlyUpdatedEvents(since ids.TimestampMillis) []RecentUpdate {
	out := make([]RecentUpdate, 0)
	for i := len(l.recentlyUpdated) - 1; i >= 0; i-- {
		ru := l.recentlyUpdated[i]
		if ru.Timestamp <= since {
			break
		}
		out = append(out, ru)
	}
	return out
}

// HasUpdatesSince reports whether anything in the log changed after
// since — the cheap check the façade calls before doing any real work
// building an incremental summary.
func (l *Log) HasUpdatesSince(since ids.TimestampMillis) bool {
	if len(l.recentlyUpdated) == 0 {
		return false
	}
	return l.recentlyUpdated[len(l.recentlyUpdated)-1].Timestamp > since
}

// SetEventsTTL updates the log-wide time-to-live; nil disables expiry.
// Existing events keep whatever expiry they were pushed with — the
// change only affects events pushed from now on, matching the original's
// events_ttl semantics.
func (l *Log) SetEventsTTL(ttl *int64) { l.ttlMillis = ttl }

// ExpiredEventsResult reports what RemoveExpiredEvents actually removed,
// split by sub-log so the façade can fix up thread-summary counts and
// pinned-message bookkeeping per thread.
type ExpiredEventsResult struct {
	MainRemoved   []ids.EventIndex
	ThreadRemoved map[ids.MessageIndex][]ids.EventIndex
}

// RemoveExpiredEvents deletes every event (in the main log and all
// thread logs) whose expiry deadline is at or before now, matching
// remove_expired_events in the original. Removed events are dropped from
// the slice, but the surviving events keep their EventIndex values (the
// sequence simply has gaps), since EventIndex values must stay stable
// for anyone holding a reference to a later, still-live event.
func (l *Log) RemoveExpiredEvents(now ids.TimestampMillis) ExpiredEventsResult {
	result := ExpiredEventsResult{ThreadRemoved: make(map[ids.MessageIndex][]ids.EventIndex)}
	result.MainRemoved = removeExpiredFrom(l.main, now)
	for root, thread := range l.threads {
		if removed := removeExpiredFrom(thread, now); len(removed) > 0 {
			result.ThreadRemoved[root] = removed
		}
	}
	return result
}

func removeExpiredFrom(s *subLog, now ids.TimestampMillis) []ids.EventIndex {
	var removed []ids.EventIndex
	kept := s.events[:0]
	for _, w := range s.events {
		if deadline, ok := s.expiresAt[w.Index]; ok && deadline <= now {
			removed = append(removed, w.Index)
			delete(s.expiresAt, w.Index)
			if w.Event.Kind == KindMessage && w.Event.Message != nil {
				delete(s.posByMessageIndex, w.Event.Message.MessageIndex)
				delete(s.posByMessageID, w.Event.Message.MessageID)
			}
			continue
		}
		kept = append(kept, w)
	}
	s.events = kept
	// posByMessageIndex/posByMessageID positions shift after a removal;
	// rebuild them rather than patch in place since expiry is rare and
	// this keeps the lookup tables trivially correct.
	s.posByMessageIndex = make(map[ids.MessageIndex]int, len(s.posByMessageIndex))
	s.posByMessageID = make(map[ids.MessageId]int, len(s.posByMessageID))
	for pos, w := range s.events {
		if w.Event.Kind == KindMessage && w.Event.Message != nil {
			s.posByMessageIndex[w.Event.Message.MessageIndex] = pos
			s.posByMessageID[w.Event.Message.MessageID] = pos
		}
	}
	return removed
}

// --- pinned messages -------------------------------------------------

// PinMessage inserts messageIndex into the ascending, deduplicated
// pinned slice via binary search, matching pin_message in the original.
// Returns false if it was already pinned.
func (l *Log) PinMessage(messageIndex ids.MessageIndex, now ids.TimestampMillis) bool {
	i := sort.Search(len(l.pinned), func(i int) bool { return l.pinned[i] >= messageIndex })
	if i < len(l.pinned) && l.pinned[i] == messageIndex {
		return false
	}
	l.pinned = append(l.pinned, 0)
	copy(l.pinned[i+1:], l.pinned[i:])
	l.pinned[i] = messageIndex
	l.dateLastPinned = &now
	return true
}

// UnpinMessage removes messageIndex from the pinned slice via binary
// search. Returns false if it was not pinned.
func (l *Log) UnpinMessage(messageIndex ids.MessageIndex, now ids.TimestampMillis) bool {
	i := sort.Search(len(l.pinned), func(i int) bool { return l.pinned[i] >= messageIndex })
	if i >= len(l.pinned) || l.pinned[i] != messageIndex {
		return false
	}
	l.pinned = append(l.pinned[:i], l.pinned[i+1:]...)
	l.dateLastPinned = &now
	return true
}

// UnpinIfPinned removes messageIndex if present, reporting whether it
// was pinned — used by delete_messages, which must silently unpin a
// deleted message rather than erroring if it happens not to be pinned.
func (l *Log) UnpinIfPinned(messageIndex ids.MessageIndex, now ids.TimestampMillis) bool {
	return l.UnpinMessage(messageIndex, now)
}

func (l *Log) PinnedMessages() []ids.MessageIndex { return append([]ids.MessageIndex(nil), l.pinned...) }

func (l *Log) DateLastPinned() *ids.TimestampMillis { return l.dateLastPinned }

// MessageEventMut returns a pointer to the live MessageEventData for
// mutation in place (reactions, tips, delete/undelete) — callers in the
// groupchat façade hold the only reference and apply one command at a
// time, so in-place mutation needs no locking of its own.
func (l *Log) MessageEventMut(threadRoot *ids.MessageIndex, messageIndex ids.MessageIndex) *MessageEventData {
	s := l.main
	if threadRoot != nil {
		t, ok := l.threads[*threadRoot]
		if !ok {
			return nil
		}
		s = t
	}
	pos, ok := s.posByMessageIndex[messageIndex]
	if !ok {
		return nil
	}
	return s.events[pos].Event.Message
}

func (l *Log) MessageEventMutByID(threadRoot *ids.MessageIndex, id ids.MessageId) *MessageEventData {
	s := l.main
	if threadRoot != nil {
		t, ok := l.threads[*threadRoot]
		if !ok {
			return nil
		}
		s = t
	}
	pos, ok := s.posByMessageID[id]
	if !ok {
		return nil
	}
	return s.events[pos].Event.Message
}

// RecordTouch exposes the recency index to the façade for events it
// pushes itself through other means (kept for symmetry; in practice all
// pushes go through PushMainEvent/PushThreadEvent above).
func (l *Log) RecordTouch(threadRoot *ids.MessageIndex, index ids.EventIndex, now ids.TimestampMillis) {
	l.touch(threadRoot, index, now)
}
