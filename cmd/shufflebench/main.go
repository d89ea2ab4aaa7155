package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unkn0wn-root/shuffleio"
	"github.com/unkn0wn-root/shuffleio/codec"
	asynchook "github.com/unkn0wn-root/shuffleio/hooks/async"
	"github.com/unkn0wn-root/shuffleio/hooks/prom"
	"github.com/unkn0wn-root/shuffleio/internal/config"
	zlog "github.com/unkn0wn-root/shuffleio/log/zerolog"
	"github.com/unkn0wn-root/shuffleio/store"
	bcstore "github.com/unkn0wn-root/shuffleio/store/bigcache"
	"github.com/unkn0wn-root/shuffleio/store/memstore"
	redisstore "github.com/unkn0wn-root/shuffleio/store/redis"
)

var (
	logger zerolog.Logger
	cfg    *config.Config

	configPath   string
	stages       int
	maps         int
	partitions   int
	records      int
	parallelRead bool
)

var rootCmd = &cobra.Command{
	Use:   "shufflebench",
	Short: "Drive a synthetic shuffle through shuffleio",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Write and read back a synthetic shuffle",
	Long:  "Run map tasks that write hashed records for every stage, then reduce tasks that read every partition back and verify the record count.",
	RunE:  runBench,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML config")
	runCmd.Flags().IntVar(&stages, "stages", 2, "shuffle stages")
	runCmd.Flags().IntVar(&maps, "maps", 8, "map tasks per stage")
	runCmd.Flags().IntVar(&partitions, "partitions", 16, "reduce partitions per stage")
	runCmd.Flags().IntVar(&records, "records", 10000, "records written by each map task")
	runCmd.Flags().BoolVar(&parallelRead, "parallel-read", false, "use parallel read sessions")
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger = setupLogging(cfg.Environment, cfg.LogLevel)
	return nil
}

func setupLogging(env, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var l zerolog.Logger
	if env == "development" {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return l.Level(lvl)
}

func openStore(c *config.Config) (store.Store, error) {
	switch c.Backend {
	case config.BackendBigcache:
		s, err := bcstore.New(bcstore.Config{
			LifeWindow:         c.Bigcache.LifeWindow,
			HardMaxCacheSizeMB: c.Bigcache.HardMaxCacheSizeMB,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendRedis:
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		s, err := redisstore.New(redisstore.Config{
			Client:      rdb,
			CloseClient: true,
			Namespace:   c.Redis.Namespace,
			TTL:         c.Redis.TTL,
		})
		if err != nil {
			_ = rdb.Close()
			return nil, err
		}
		return s, nil
	default:
		return memstore.New(memstore.Config{}), nil
	}
}

func runBench(cmd *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if stages <= 0 || maps <= 0 || partitions <= 0 || records < 0 {
		return errors.New("stages, maps and partitions must be positive; records must not be negative")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	logger = logger.With().Str("run", runID).Logger()

	reg := prometheus.NewRegistry()
	ph, err := prom.New(reg, "shuffleio")
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	hooks := asynchook.New(ph, 2, 1024)
	defer hooks.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}

	opts := cfg.Options()
	opts.Store = st
	opts.CloseStore = true
	opts.Logger = zlog.New(logger)
	opts.Hooks = hooks

	mgr, err := shuffleio.New(opts)
	if err != nil {
		_ = st.Close(ctx)
		return err
	}
	defer func() {
		if err := mgr.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("io manager close failed")
		}
	}()

	start := time.Now()
	for s := 0; s < stages; s++ {
		stageID := uint32(s)
		written, err := runMaps(ctx, mgr, stageID)
		if err != nil {
			return fmt.Errorf("stage %d map: %w", s, err)
		}
		read, err := runReduces(ctx, mgr, stageID)
		if err != nil {
			return fmt.Errorf("stage %d reduce: %w", s, err)
		}
		if read != written {
			return fmt.Errorf("stage %d: wrote %d records, read %d", s, written, read)
		}
		logger.Info().Uint32("stage", stageID).Int64("records", read).Msg("stage verified")
	}

	logger.Info().
		Int("stages", stages).
		Int("handles", mgr.Handles().Len()).
		Dur("elapsed", time.Since(start)).
		Uint64("hooks_dropped", hooks.Dropped()).
		Msg("shuffle complete")
	return nil
}

func runMaps(ctx context.Context, mgr shuffleio.IOManager, stageID uint32) (int64, error) {
	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for m := 0; m < maps; m++ {
		mapID := uint64(m)
		g.Go(func() error {
			ws, err := mgr.OpenWriteSession(gctx, partitions, stageID, mapID)
			if err != nil {
				return err
			}
			tw := shuffleio.TypedWriter[string, int64]{
				W:      ws,
				Keys:   codec.String{},
				Values: codec.Msgpack[int64]{Compact: true},
			}
			for i := 0; i < records; i++ {
				k := "k" + strconv.FormatUint(mapID, 10) + "-" + strconv.Itoa(i)
				if err := tw.WriteHashed(gctx, k, int64(i)); err != nil {
					return err
				}
			}
			status, err := ws.Close(gctx)
			if err != nil {
				return err
			}
			total.Add(status.Records)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}

func runReduces(ctx context.Context, mgr shuffleio.IOManager, stageID uint32) (int64, error) {
	var rs shuffleio.ReaderSession
	var err error
	if parallelRead {
		rs, err = mgr.OpenParallelReadSession(ctx, stageID)
	} else {
		rs, err = mgr.OpenReadSession(ctx, stageID)
	}
	if err != nil {
		return 0, err
	}
	defer rs.Close()

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < partitions; p++ {
		g.Go(func() error {
			it, err := rs.Records(gctx, p)
			if err != nil {
				return err
			}
			recs := shuffleio.NewTypedRecords(it, codec.String{}, codec.Msgpack[int64]{})
			var n int64
			for recs.Next() {
				n++
			}
			if err := recs.Err(); err != nil {
				return err
			}
			total.Add(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return total.Load(), nil
}
