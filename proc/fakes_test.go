package proc

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

var testEmojis = sys.Emojis{Success: "🎶", Warning: "💡", Error: "🚫", Loading: "⌚", Searching: "🔎"}

// fakeEngine answers from a table and reports asynchronously like the real engine.
type fakeEngine struct {
	mu       sync.Mutex
	results  map[string]LoadResult
	queries  []string
	fallback LoadResult
	wg       sync.WaitGroup
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{results: make(map[string]LoadResult), fallback: NoMatches{}}
}

func (e *fakeEngine) on(query string, res LoadResult) *fakeEngine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.results[query] = res
	return e
}

func (e *fakeEngine) Load(_ context.Context, _ snowflake.ID, query string, cb func(LoadResult)) {
	e.mu.Lock()
	e.queries = append(e.queries, query)
	res, ok := e.results[query]
	if !ok {
		res = e.fallback
	}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		cb(res)
	}()
}

func (e *fakeEngine) Queries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.queries...)
}

func (e *fakeEngine) Wait() { e.wg.Wait() }

type fakeStatus struct {
	id    snowflake.ID
	mu    sync.Mutex
	texts []string
}

func (s *fakeStatus) ID() snowflake.ID { return s.id }

func (s *fakeStatus) Edit(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
}

func (s *fakeStatus) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.texts) == 0 {
		return ""
	}
	return s.texts[len(s.texts)-1]
}

func (s *fakeStatus) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

type fakeReplier struct {
	mu      sync.Mutex
	next    snowflake.ID
	replies []*fakeStatus
}

func (r *fakeReplier) Reply(text string) StatusMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	s := &fakeStatus{id: r.next, texts: []string{text}}
	r.replies = append(r.replies, s)
	return s
}

func (r *fakeReplier) Replies() []*fakeStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeStatus(nil), r.replies...)
}

// Status is the reply the request kept editing.
func (r *fakeReplier) Status() *fakeStatus {
	rs := r.Replies()
	if len(rs) == 0 {
		return nil
	}
	return rs[len(rs)-1]
}

type fakeAffordances struct {
	permitted  bool
	presentErr error
	immediate  string

	mu        sync.Mutex
	onChoice  func(string)
	requester snowflake.ID
	choices   []string
	cancels   atomic.Int32
	cleared   chan struct{}
}

func newFakeAffordances(permitted bool) *fakeAffordances {
	return &fakeAffordances{permitted: permitted, cleared: make(chan struct{}, 4)}
}

func (a *fakeAffordances) Permitted() bool { return a.permitted }

func (a *fakeAffordances) Present(_ StatusMessage, requester snowflake.ID, choices []string, onChoice func(string)) (func(), error) {
	a.mu.Lock()
	a.requester = requester
	a.choices = choices
	a.mu.Unlock()
	if a.immediate != "" {
		onChoice(a.immediate)
	}
	if a.presentErr != nil {
		return nil, a.presentErr
	}
	a.mu.Lock()
	a.onChoice = onChoice
	a.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { a.cancels.Add(1) }) }, nil
}

func (a *fakeAffordances) choose(choice string) {
	a.mu.Lock()
	fn := a.onChoice
	a.mu.Unlock()
	if fn != nil {
		fn(choice)
	}
}

func (a *fakeAffordances) Clear(StatusMessage) {
	a.cleared <- struct{}{}
}

func (a *fakeAffordances) waitCleared() bool {
	select {
	case <-a.cleared:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

type fakeCatalog struct {
	exchanges atomic.Int32
	lookups   atomic.Int32
	delay     time.Duration
	expiry    time.Duration

	mu          sync.Mutex
	exchangeErr error
	trackErrs   []error
	track       *CatalogTrack
	tokens      []string
}

func (c *fakeCatalog) ExchangeCredential(ctx context.Context) (*Credential, error) {
	n := c.exchanges.Add(1)
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exchangeErr != nil {
		return nil, c.exchangeErr
	}
	cred := &Credential{Token: "token-" + string(rune('0'+n))}
	if c.expiry != 0 {
		cred.Expiry = time.Now().Add(c.expiry)
	}
	return cred, nil
}

func (c *fakeCatalog) GetTrack(_ context.Context, cred *Credential, _ string) (*CatalogTrack, error) {
	c.lookups.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = append(c.tokens, cred.Token)
	if len(c.trackErrs) > 0 {
		err := c.trackErrs[0]
		c.trackErrs = c.trackErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return c.track, nil
}

func track(title string, d time.Duration) *Track {
	return &Track{Title: title, Duration: d, URI: "https://example.com/" + title}
}

func tracks(n int, d time.Duration) []*Track {
	out := make([]*Track, n)
	for i := range out {
		out[i] = track(string(rune('a'+i)), d)
	}
	return out
}
