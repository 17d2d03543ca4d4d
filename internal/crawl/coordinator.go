package crawl

import (
	"context"
	"net/url"
	"time"

	"github.com/arifwn/linkguard/internal/delay"
	"github.com/arifwn/linkguard/internal/events"
	"github.com/arifwn/linkguard/internal/extractor"
	"github.com/arifwn/linkguard/internal/fetcher"
	"github.com/arifwn/linkguard/internal/frontier"
	"github.com/arifwn/linkguard/internal/observe"
	"github.com/arifwn/linkguard/internal/queue"
	"github.com/arifwn/linkguard/internal/skip"
	"github.com/arifwn/linkguard/pkg/urlutil"
)

// Coordinator is the single control-plane authority for one crawl run
// (spec.md §4.7): it is the only component that decides whether a task
// is skipped, delayed, probed, or recursed into. Downstream
// collaborators (Probe Client, Link Extractor, Skip Policy, Delay
// Cache) classify and transform; they never decide continuation.
type Coordinator struct {
	probe      *fetcher.Client
	skipPolicy *skip.Policy
	delays     *delay.Cache
	visited    *frontier.VisitCache
	results    *ResultSet
	subscriber events.Subscriber
	sink       *observe.Sink
	recurse    bool
	now        func() time.Time

	queue *queue.Queue[frontier.CrawlTask]
}

// Config bundles the collaborators a Coordinator needs. All fields are
// required except Subscriber and Sink, which default to no-ops,
// SkipPolicy, whose nil value skips nothing beyond the scheme gate, and
// Now, which defaults to time.Now.
type Config struct {
	Probe      *fetcher.Client
	SkipPolicy *skip.Policy
	Delays     *delay.Cache
	Visited    *frontier.VisitCache
	Results    *ResultSet
	Subscriber *events.Subscriber
	Sink       *observe.Sink
	Recurse    bool
	Now        func() time.Time
}

func New(cfg Config) *Coordinator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	sink := cfg.Sink
	if sink == nil {
		sink = observe.NewNoop()
	}
	return &Coordinator{
		probe:      cfg.Probe,
		skipPolicy: cfg.SkipPolicy,
		delays:     cfg.Delays,
		visited:    cfg.Visited,
		results:    cfg.Results,
		subscriber: events.OrNoop(cfg.Subscriber),
		sink:       sink,
		recurse:    cfg.Recurse,
		now:        now,
	}
}

// AttachQueue wires the Work Queue the coordinator schedules into. It
// must be called once, before Run, since the coordinator both serves
// as the queue's task handler and reschedules/enqueues onto it.
func (c *Coordinator) AttachQueue(q *queue.Queue[frontier.CrawlTask]) {
	c.queue = q
}

// Submit is the sole entry point for adding a URL to the run — seed
// URLs and recursively-discovered URLs both funnel through here, so
// the Visit Cache's compare-and-insert is never bypassed (spec.md §5).
func (c *Coordinator) Submit(u url.URL, crawlBody bool, rootPath url.URL, parent *url.URL) {
	if !c.visited.TryAdd(u.String()) {
		return
	}
	c.queue.Add(frontier.CrawlTask{
		URL:      u,
		Crawl:    crawlBody,
		Parent:   parent,
		RootPath: rootPath,
	}, 0)
}

// Handle implements queue.Handler[frontier.CrawlTask] and is the body
// of spec.md §4.7's 8 numbered steps.
func (c *Coordinator) Handle(ctx context.Context, task frontier.CrawlTask) {
	// Step 1: scheme gate.
	if !urlutil.IsHTTP(task.URL) {
		c.emit(LinkResult{URL: task.URL, Status: 0, State: StateSkipped, Parent: task.Parent})
		return
	}

	// Step 2: skip predicate / regex list.
	if c.skipPolicy != nil && c.skipPolicy.ShouldSkip(ctx, task.URL) {
		c.emit(LinkResult{URL: task.URL, Status: 0, State: StateSkipped, Parent: task.Parent})
		return
	}

	// Step 3: delay cache gate.
	if wait, blocked := c.delays.Resolve(task.URL.Host, c.now()); blocked {
		c.queue.Add(task, wait)
		return
	}

	// Step 4: probe.
	start := c.now()
	res, probeErr := c.probe.Probe(ctx, task.URL, task.Crawl)
	c.sink.RecordProbe(task.URL, statusOrZero(res, probeErr), c.now().Sub(start))

	// Step 5: Retry-After handling. Only applies to an actual 429
	// response; a transport failure has no headers to read.
	if probeErr == nil && res.StatusCode() == 429 {
		if retryAfter := res.Headers()["Retry-After"]; retryAfter != "" {
			if notBefore, ok := delay.ParseRetryAfter(retryAfter, c.now()); ok {
				c.delays.Set(task.URL.Host, notBefore)
				c.sink.RecordError(c.now(), "crawl", "Handle", observe.CauseRateLimited, "429 rescheduled", task.URL)
				c.queue.Add(task, notBefore.Sub(c.now()))
				return
			}
		}
	}

	// Step 6: classify.
	result := classify(task, res, probeErr)

	// Step 7: emit.
	c.emit(result)

	// Step 8: recurse.
	if !task.Crawl || probeErr != nil || !c.recurse || !res.IsHTML() {
		return
	}
	c.subscriber.EmitPageStart(events.PageStartEvent{URL: task.URL})
	c.recurseInto(task, res)
}

func statusOrZero(res fetcher.Result, err error) int {
	if err != nil {
		return 0
	}
	return res.StatusCode()
}

func classify(task frontier.CrawlTask, res fetcher.Result, probeErr error) LinkResult {
	if probeErr != nil {
		return LinkResult{
			URL:            task.URL,
			Status:         0,
			State:          StateBroken,
			Parent:         task.Parent,
			FailureDetails: []FailureDetail{{Message: probeErr.Error()}},
		}
	}
	status := res.StatusCode()
	state := StateBroken
	if status >= 200 && status < 300 {
		state = StateOK
	}
	return LinkResult{URL: task.URL, Status: status, State: state, Parent: task.Parent}
}

func (c *Coordinator) recurseInto(task frontier.CrawlTask, res fetcher.Result) {
	links, err := extractor.Extract(task.URL, []byte(res.Body()))
	if err != nil {
		c.sink.RecordError(c.now(), "crawl", "recurseInto", observe.CauseContentInvalid, err.Error(), task.URL)
		return
	}

	for _, link := range links {
		if link.URL == nil {
			parent := task.URL
			c.emit(LinkResult{
				URL:            url.URL{},
				Status:         0,
				State:          StateBroken,
				Parent:         &parent,
				FailureDetails: []FailureDetail{{Message: "unresolvable href: " + link.OriginalHref}},
			})
			continue
		}
		childCrawl := c.recurse && urlutil.SameOrigin(task.RootPath, *link.URL)
		parent := task.URL
		c.Submit(*link.URL, childCrawl, task.RootPath, &parent)
	}
}

func (c *Coordinator) emit(lr LinkResult) {
	c.results.Append(lr)
	c.subscriber.EmitLink(events.LinkEvent{
		URL:    lr.URL,
		Status: lr.Status,
		State:  string(lr.State),
		Parent: lr.Parent,
	})
}
