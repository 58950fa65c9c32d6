// Package client binds one viewer's cached user list to the remote service.
package client

import (
	"context"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/sync/singleflight"

	"github.com/drborges/apollo-react-spike/internal/cache"
	"github.com/drborges/apollo-react-spike/internal/models"
	"github.com/drborges/apollo-react-spike/internal/storage"
)

// Fetcher runs the remote FetchUsers query.
type Fetcher interface {
	FetchUsers(ctx context.Context) ([]models.User, error)
}

// Subscriber delivers users added remotely until ctx is done.
type Subscriber interface {
	SubscribeUserAdded(ctx context.Context, fn func(*models.User)) error
}

// Phase is the lifecycle of the remote read backing the list.
type Phase int

const (
	Loading Phase = iota
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return "loading"
	}
}

// LiveState is the state of the live update listener.
type LiveState int

const (
	LiveInactive LiveState = iota
	LiveSubscribed
	LiveClosed
)

// Status describes the last remote read.
type Status struct {
	Phase Phase
	Err   error
}

// View is what a renderer binds to.
type View struct {
	Status  Status
	Users   []models.User
	Version uint64
}

// Client owns the cache for one viewer. Local mutations never reach the remote service.
type Client struct {
	cache  *cache.Cache
	remote Fetcher
	live   Subscriber

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu        sync.Mutex
	status    Status
	liveState LiveState
	// snap is the newest cache snapshot seen; cache callbacks may arrive out of order
	snap      cache.Snapshot
	seq       uint64
	watchers  map[uint64]func(View)
	nextID    uint64
}

// New creates a client over a fresh cache backed by fields. live may be nil,
// in which case StartLiveUpdates is a no-op.
func New(remote Fetcher, live Subscriber, fields storage.FieldStore) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		cache:    cache.New(fields),
		remote:   remote,
		live:     live,
		ctx:      ctx,
		cancel:   cancel,
		watchers: make(map[uint64]func(View)),
	}
	c.cache.Watch(c.emit)
	return c
}

// View returns the current status and joined user list.
func (c *Client) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{Status: c.status, Users: c.snap.Users, Version: c.seq}
}

// Watch registers fn for every status or list change. The returned func unregisters it.
func (c *Client) Watch(fn func(View)) func() {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.watchers[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}

// Load fetches the user list unless a result is already cached.
func (c *Client) Load(ctx context.Context) error {
	if c.cache.Loaded() {
		return nil
	}
	_, err, _ := c.group.Do("load", func() (any, error) {
		if c.cache.Loaded() {
			return nil, nil
		}
		return nil, c.fetch(ctx)
	})
	return err
}

// Refresh discards the cached list, merged live users and local fields, then
// fetches again. A failure leaves the client in the Failed phase.
func (c *Client) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		c.setStatus(Status{Phase: Loading})
		c.cache.Reset()
		return nil, c.fetch(ctx)
	})
	return err
}

func (c *Client) fetch(ctx context.Context) error {
	// shared by concurrent callers, so one caller going away must not fail the rest
	ctx = context.WithoutCancel(ctx)

	c.setStatus(Status{Phase: Loading})
	users, err := c.remote.FetchUsers(ctx)
	if err != nil {
		glog.Infof("[c]fetch users error = %s\n", err)
		c.setStatus(Status{Phase: Failed, Err: err})
		return err
	}
	c.mu.Lock()
	c.status = Status{Phase: Ready}
	c.mu.Unlock()
	c.cache.WriteUsers(users)
	glog.V(2).Infof("[c]fetched %d users\n", len(users))
	return nil
}

// ToggleUserBlockState flips the local blocked flag of a cached user.
func (c *Client) ToggleUserBlockState(id int64) (models.ToggleResult, error) {
	return c.cache.ToggleUserBlockState(id)
}

// DeriveBlocked resolves the local blocked flag for id.
func (c *Client) DeriveBlocked(id int64) bool {
	return c.cache.DeriveBlocked(id)
}

// StartLiveUpdates subscribes to added users for the lifetime of the client.
// Calling it again, or on a client without a subscriber, does nothing.
func (c *Client) StartLiveUpdates() {
	if c.live == nil {
		return
	}
	c.mu.Lock()
	if c.liveState != LiveInactive {
		c.mu.Unlock()
		return
	}
	c.liveState = LiveSubscribed
	c.mu.Unlock()

	go func() {
		err := c.live.SubscribeUserAdded(c.ctx, c.onUserAdded)
		if err != nil && c.ctx.Err() == nil {
			glog.Infof("[c]live updates ended error = %s\n", err)
		}
		c.mu.Lock()
		c.liveState = LiveClosed
		c.mu.Unlock()
	}()
}

// LiveState reports the live update listener state.
func (c *Client) LiveState() LiveState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveState
}

func (c *Client) onUserAdded(u *models.User) {
	if u == nil {
		glog.V(2).Infof("[c]live event without payload\n")
		return
	}
	// nothing is displayed before the first read completes
	if !c.cache.Loaded() {
		return
	}
	if c.cache.MergeUserAdded(u) {
		glog.V(2).Infof("[c]live merged user %d\n", u.ID)
	}
}

// Close stops live updates. The cached state is left to the garbage collector.
func (c *Client) Close() {
	c.cancel()
}

func (c *Client) setStatus(status Status) {
	c.mu.Lock()
	c.status = status
	v, fns := c.publishLocked()
	c.mu.Unlock()
	notify(fns, v)
}

// emit receives cache snapshots. A snapshot older than one already seen is not
// applied, but still produces a view so every change reaches the watchers.
func (c *Client) emit(snap cache.Snapshot) {
	c.mu.Lock()
	if c.snap.Version <= snap.Version {
		c.snap = snap
	}
	v, fns := c.publishLocked()
	c.mu.Unlock()
	notify(fns, v)
}

// publishLocked numbers a view of the current state. The view with the highest
// Version always carries the newest snapshot.
func (c *Client) publishLocked() (View, []func(View)) {
	c.seq++
	v := View{Status: c.status, Users: c.snap.Users, Version: c.seq}
	fns := make([]func(View), 0, len(c.watchers))
	for _, fn := range c.watchers {
		fns = append(fns, fn)
	}
	return v, fns
}

func notify(fns []func(View), v View) {
	for _, fn := range fns {
		fn(v)
	}
}
