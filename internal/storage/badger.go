package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/prometheus/client_golang/prometheus"
)

// maxConflictRetries bounds Update retries after badger.ErrConflict.
const maxConflictRetries = 3

// BadgerEngine implements KVEngine on Badger v3.
type BadgerEngine struct {
	db     *badger.DB
	cfg    BadgerConfig
	logger *slog.Logger

	closed   atomic.Bool
	lastGC   atomic.Int64 // unix nanoseconds
	gcRounds atomic.Uint64

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// NewBadgerEngine opens the database and starts periodic value log GC.
func NewBadgerEngine(cfg KVConfig, logger *slog.Logger) (*BadgerEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Dir != "":
		opts = badger.DefaultOptions(cfg.Dir).WithSyncWrites(cfg.Badger.SyncWrites)
	default:
		return nil, errors.New("badger: dir is required")
	}
	opts = opts.WithLogger(badgerLogger{logger})
	if cfg.Badger.CacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.Badger.CacheSize)
	}
	if cfg.Badger.ValueLogFileSize > 0 {
		opts = opts.WithValueLogFileSize(cfg.Badger.ValueLogFileSize)
	}

	def := DefaultBadgerConfig()
	if cfg.Badger.GCInterval <= 0 {
		cfg.Badger.GCInterval = def.GCInterval
	}
	if cfg.Badger.GCThreshold <= 0 || cfg.Badger.GCThreshold >= 1 {
		cfg.Badger.GCThreshold = def.GCThreshold
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}

	e := &BadgerEngine{db: db, cfg: cfg.Badger, logger: logger, stop: make(chan struct{})}
	e.wg.Add(1)
	go e.gcLoop()

	logger.Info("badger engine opened", "dir", cfg.Dir, "in_memory", cfg.InMemory, "gc_interval", cfg.Badger.GCInterval)
	return e, nil
}

func (e *BadgerEngine) view(fn func(txn *badger.Txn) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.View(fn)
}

func (e *BadgerEngine) update(fn func(txn *badger.Txn) error) error {
	if e.closed.Load() {
		return ErrClosed
	}
	return e.db.Update(fn)
}

// Get implements KVEngine.
func (e *BadgerEngine) Get(_ context.Context, key []byte) ([]byte, error) {
	var value []byte
	err := e.view(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrKeyNotFound
		}
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, err
}

// Set implements KVEngine.
func (e *BadgerEngine) Set(_ context.Context, key, value []byte) error {
	return e.update(func(txn *badger.Txn) error { return txn.Set(key, value) })
}

// Delete implements KVEngine.
func (e *BadgerEngine) Delete(_ context.Context, key []byte) error {
	return e.update(func(txn *badger.Txn) error { return txn.Delete(key) })
}

// Update implements KVEngine. A commit conflict with a concurrent writer
// is retried, so fn may run more than once.
func (e *BadgerEngine) Update(ctx context.Context, key []byte, fn func(old []byte) ([]byte, error)) error {
	txnFn := func(txn *badger.Txn) error {
		var old []byte
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if old, err = item.ValueCopy(nil); err != nil {
				return err
			}
		}

		next, err := fn(old)
		switch {
		case err != nil:
			return err
		case next == nil:
			return txn.Delete(key)
		default:
			return txn.Set(key, next)
		}
	}

	var err error
	for range maxConflictRetries + 1 {
		if err = e.update(txnFn); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return err
}

// Scan implements KVEngine.
func (e *BadgerEngine) Scan(ctx context.Context, prefix []byte, fn func(key, value []byte) bool) error {
	return e.view(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), value) {
				return nil
			}
		}
		return nil
	})
}

// GC rewrites value log files until Badger finds nothing worth reclaiming
// and returns the number of rewrites.
func (e *BadgerEngine) GC(ctx context.Context) (int, error) {
	if e.closed.Load() {
		return 0, ErrClosed
	}

	rounds := 0
	for ctx.Err() == nil {
		err := e.db.RunValueLogGC(e.cfg.GCThreshold)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			break
		}
		if err != nil {
			return rounds, fmt.Errorf("badger: gc: %w", err)
		}
		rounds++
	}

	e.lastGC.Store(time.Now().UnixNano())
	e.gcRounds.Add(uint64(rounds))
	e.logger.Debug("badger gc finished", "rounds", rounds)
	return rounds, nil
}

// Stats implements KVEngine.
func (e *BadgerEngine) Stats(context.Context) (*KVStats, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	lsm, vlog := e.db.Size()
	s := &KVStats{LSMSize: uint64(lsm), ValueLogSize: uint64(vlog), GCRounds: e.gcRounds.Load()}
	if ns := e.lastGC.Load(); ns > 0 {
		s.LastGC = time.Unix(0, ns)
	}
	return s, nil
}

// Close stops GC and closes the database. Later calls return nil.
func (e *BadgerEngine) Close() error {
	var err error
	e.once.Do(func() {
		close(e.stop)
		e.wg.Wait()
		e.closed.Store(true)
		err = e.db.Close()
	})
	return err
}

func (e *BadgerEngine) gcLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), e.cfg.GCInterval/2)
			if _, err := e.GC(ctx); err != nil {
				e.logger.Error("badger gc failed", "error", err)
			}
			cancel()
		case <-e.stop:
			return
		}
	}
}

// Collector reports engine size and GC history at scrape time.
func (e *BadgerEngine) Collector(namespace string) prometheus.Collector {
	return &badgerCollector{
		engine: e,
		lsm: prometheus.NewDesc(prometheus.BuildFQName(namespace, "badger", "lsm_size_bytes"),
			"Badger LSM tree size in bytes.", nil, nil),
		vlog: prometheus.NewDesc(prometheus.BuildFQName(namespace, "badger", "value_log_size_bytes"),
			"Badger value log size in bytes.", nil, nil),
		lastGC: prometheus.NewDesc(prometheus.BuildFQName(namespace, "badger", "last_gc_timestamp_seconds"),
			"Unix time of the last value log GC.", nil, nil),
		rounds: prometheus.NewDesc(prometheus.BuildFQName(namespace, "badger", "gc_rounds_total"),
			"Value log files rewritten by GC.", nil, nil),
	}
}

type badgerCollector struct {
	engine                    *BadgerEngine
	lsm, vlog, lastGC, rounds *prometheus.Desc
}

func (c *badgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lsm
	ch <- c.vlog
	ch <- c.lastGC
	ch <- c.rounds
}

func (c *badgerCollector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.engine.Stats(context.Background())
	if err != nil {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.lsm, prometheus.GaugeValue, float64(s.LSMSize))
	ch <- prometheus.MustNewConstMetric(c.vlog, prometheus.GaugeValue, float64(s.ValueLogSize))
	ch <- prometheus.MustNewConstMetric(c.rounds, prometheus.CounterValue, float64(s.GCRounds))
	if !s.LastGC.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.lastGC, prometheus.GaugeValue, float64(s.LastGC.UnixNano())/1e9)
	}
}

// badgerLogger routes Badger's printf logging to slog. Badger's info
// lines are routine, so they go to debug.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(f string, args ...any)   { b.l.Error(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Warningf(f string, args ...any) { b.l.Warn(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Infof(f string, args ...any)    { b.l.Debug(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Debugf(f string, args ...any)   { b.l.Debug(fmt.Sprintf(f, args...)) }
