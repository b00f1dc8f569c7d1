package tree

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/vanderheijden86/vtree/pkg/model"
)

// Loader populates the children of a node whose children are not loaded
// yet. Load runs on its own goroutine and must not touch the tree.
type Loader interface {
	Load(ctx context.Context, n model.Node) ([]model.Node, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, n model.Node) ([]model.Node, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, n model.Node) ([]model.Node, error) {
	return f(ctx, n)
}

// Scheduler runs callbacks on the controller's logical thread in a later
// turn. Post must be safe to call from any goroutine.
type Scheduler interface {
	Post(fn func())
}

// request is one pending lazy load.
type request struct {
	id      ulid.ULID
	node    model.Node
	started time.Time
}

// fetcher runs lazy loads off the controller thread. Pending requests are
// tracked in a table owned by the fetcher; a completion whose request was
// forgotten (closed node, disposed tree) is dropped. Loader calls are shared
// per node identity only; distinct nodes never share a result, even when
// their keys or labels are equal.
type fetcher struct {
	loader Loader
	sched  Scheduler
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group
	wg     sync.WaitGroup

	mu      sync.Mutex
	pending map[ulid.ULID]*request
	closed  bool

	loads atomic.Int64 // Loader invocations
}

func newFetcher(loader Loader, sched Scheduler, log zerolog.Logger) *fetcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &fetcher{
		loader:  loader,
		sched:   sched,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[ulid.ULID]*request),
	}
}

// start begins loading n and returns the request id. done runs on the
// scheduler, once, unless the request is forgotten first.
func (f *fetcher) start(n model.Node, done func(children []model.Node, err error)) ulid.ULID {
	req := &request{id: ulid.Make(), node: n, started: time.Now()}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return req.id
	}
	f.pending[req.id] = req
	f.wg.Add(1)
	f.mu.Unlock()

	f.log.Debug().Str("request", req.id.String()).Str("node", n.Label()).Msg("lazy load started")

	go func() {
		defer f.wg.Done()
		v, err, shared := f.group.Do(identity(n), func() (any, error) {
			f.loads.Add(1)
			return f.safeLoad(n)
		})
		children, _ := v.([]model.Node)
		f.sched.Post(func() {
			if !f.take(req.id) {
				f.log.Debug().Str("request", req.id.String()).Msg("lazy load result dropped")
				return
			}
			f.log.Debug().
				Str("request", req.id.String()).
				Str("node", n.Label()).
				Int("children", len(children)).
				Bool("shared", shared).
				Dur("took", time.Since(req.started)).
				Err(err).
				Msg("lazy load finished")
			done(children, err)
		})
	}()
	return req.id
}

// identity is the singleflight key of n.
func identity(n model.Node) string {
	return fmt.Sprintf("%p", n)
}

// safeLoad calls the loader and turns panics into a LoadError.
func (f *fetcher) safeLoad(n model.Node) (children []model.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &LoadError{
				Node:  n,
				Cause: fmt.Errorf("panic: %v\n%s", r, debug.Stack()),
				Time:  time.Now(),
			}
		}
	}()
	children, err = f.loader.Load(f.ctx, n)
	if err != nil {
		err = &LoadError{Node: n, Cause: err, Time: time.Now()}
	}
	return children, err
}

// take removes id from the pending table and reports whether it was there.
func (f *fetcher) take(id ulid.ULID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pending[id]; !ok {
		return false
	}
	delete(f.pending, id)
	return true
}

// forget drops a pending request; its completion becomes a no-op.
func (f *fetcher) forget(id ulid.ULID) {
	f.take(id)
}

// inFlight returns the number of pending requests.
func (f *fetcher) inFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// wait blocks until every started loader goroutine has posted its result.
func (f *fetcher) wait() {
	f.wg.Wait()
}

// close cancels in-flight loads and forgets every pending request. It is
// idempotent.
func (f *fetcher) close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.pending = make(map[ulid.ULID]*request)
	f.mu.Unlock()
	f.cancel()
}
