// Package ipfilter keeps in-memory IP blocklists (datacenter ranges, proxy
// and abuse lists) so analytics can ignore traffic that is not a shopper.
package ipfilter

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/farejai/fareja/internal/fetch"
)

const (
	refreshInterval = 24 * time.Hour
	fetchTimeout    = 30 * time.Second
	maxListBytes    = 32 << 20
	maxConcurrent   = 4
)

// Options configures a Filter. Sources are URLs of plain-text lists with one
// IP or CIDR per line; anything after the first field is ignored, so the
// "ip<tab>score" format works too. Static entries are always loaded.
type Options struct {
	Sources []string
	Static  []string
	Client  *fetch.Client
	Log     zerolog.Logger
}

// Filter answers Blocked lookups from the last successful load. All methods
// are safe for concurrent use.
type Filter struct {
	mu      sync.RWMutex
	ranges  []*net.IPNet
	ips     map[string]bool
	sources []string
	static  []string
	client  *fetch.Client
	log     zerolog.Logger
	stop    chan struct{}
	done    chan struct{}
}

// New loads the static entries and, if any sources are configured, starts a
// goroutine that fetches them now and every 24 hours after.
func New(opts Options) *Filter {
	f := &Filter{
		ips:     make(map[string]bool),
		sources: opts.Sources,
		static:  opts.Static,
		client:  opts.Client,
		log:     opts.Log,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	if f.client == nil {
		f.client = fetch.New(fetchTimeout)
	}
	f.ranges, f.ips = parseList(strings.NewReader(strings.Join(opts.Static, "\n")))

	if len(f.sources) == 0 {
		close(f.done)
		return f
	}
	go f.run()
	return f
}

// Enabled reports whether any list is configured.
func (f *Filter) Enabled() bool {
	return f != nil && (len(f.sources) > 0 || len(f.static) > 0)
}

// Blocked reports whether ip is on a loaded list. It is always false for a
// nil or empty filter, and for unparseable input.
func (f *Filter) Blocked(ip string) bool {
	if f == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.ips[parsed.String()] {
		return true
	}
	for _, n := range f.ranges {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Shutdown stops the background refresh and waits for it to exit.
func (f *Filter) Shutdown() {
	if f == nil {
		return
	}
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
	<-f.done
}

func (f *Filter) run() {
	defer close(f.done)
	f.refresh()

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.refresh()
		case <-f.stop:
			return
		}
	}
}

func (f *Filter) refresh() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-f.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	var mu sync.Mutex
	var failed []string
	ranges, ips := parseList(strings.NewReader(strings.Join(f.static, "\n")))

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrent)
	for _, src := range f.sources {
		g.Go(func() error {
			r, i, err := f.fetchList(ctx, src)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, fmt.Sprintf("%s: %v", src, err))
				return nil
			}
			ranges = append(ranges, r...)
			for ip := range i {
				ips[ip] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		f.log.Warn().Strs("errors", failed).Msg("ipfilter: partial refresh")
	}
	if len(failed) == len(f.sources) {
		// keep the previous lists rather than shrinking to the static set
		return
	}

	f.mu.Lock()
	f.ranges, f.ips = ranges, ips
	f.mu.Unlock()

	f.log.Info().Int("ranges", len(ranges)).Int("ips", len(ips)).Msg("ipfilter: lists loaded")
}

func (f *Filter) fetchList(ctx context.Context, src string) ([]*net.IPNet, map[string]bool, error) {
	resp, err := f.client.Get(ctx, src, fetch.Request{Accept: "text/plain, */*", Timeout: fetchTimeout, MaxBytes: maxListBytes})
	if err != nil {
		return nil, nil, err
	}
	r, i := parseList(bytes.NewReader(resp.Body))
	return r, i, nil
}

// parseList reads one entry per line. Blank lines and # comments are skipped,
// as are entries that are neither an IP nor a CIDR.
func parseList(r io.Reader) ([]*net.IPNet, map[string]bool) {
	var ranges []*net.IPNet
	ips := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		field := strings.Fields(line)[0]
		field = strings.Split(field, ",")[0]
		if strings.Contains(field, "/") {
			if _, n, err := net.ParseCIDR(field); err == nil {
				ranges = append(ranges, n)
			}
			continue
		}
		if ip := net.ParseIP(field); ip != nil {
			ips[ip.String()] = true
		}
	}
	return ranges, ips
}
