// Command leech downloads a single torrent given its .torrent file. It
// never seeds and never exits on its own: once every piece is verified it
// logs completion, its trackers are told event=stopped, and the process
// blocks forever.
package main

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Shreyas-Kamath/torrent-go/config"
	"github.com/Shreyas-Kamath/torrent-go/core"
	"github.com/Shreyas-Kamath/torrent-go/filewriter"
	"github.com/Shreyas-Kamath/torrent-go/metainfo"
	"github.com/Shreyas-Kamath/torrent-go/piece"
	"github.com/Shreyas-Kamath/torrent-go/swarm"
	"github.com/Shreyas-Kamath/torrent-go/tracker"
)

func main() {
	outDir := flag.String("out", ".", "directory to write the downloaded files into")
	port := flag.Uint("port", 6881, "port advertised to trackers")
	configFile := flag.String("config", "", "optional YAML configuration file")
	logLevel := flag.String("log-level", "info", "zap log level: debug, info, warn, error")

	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: leech [flags] <torrent-file>")
		os.Exit(1)
	}

	zlog := newLogger(*logLevel)
	defer zlog.Sync()
	logger := zlog.Sugar()

	mi, err := metainfo.Load(flag.Arg(0))
	if err != nil {
		logger.Fatalf("Failed to load torrent file: %s", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Fatalf("Failed to load config: %s", err)
	}
	cfg.Swarm.ListenPort = uint16(*port)
	cfg.FileWriter.Dir = *outDir

	localID, err := core.GeneratePeerID()
	if err != nil {
		logger.Fatalf("Failed to generate local peer id: %s", err)
	}
	logger = logger.With("peer_id", localID, "info_hash", mi.InfoHash)

	clk := clock.New()
	mgr := piece.NewManager(cfg.Piece, mi, clk, logger)

	w, err := filewriter.New(cfg.FileWriter, mi, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize file writer: %s", err)
	}
	go filewriter.Run(w, mgr.WriteJobs(), logger)

	trackers := buildTrackers(mi.AnnounceURLs(), cfg.Tracker, logger)
	if len(trackers) == 0 {
		logger.Fatalf("No usable http(s) announce URLs in torrent")
	}

	sup := swarm.NewSupervisor(cfg.Swarm, mi, mgr, localID, cfg.Peer, clk, logger)
	sup.Start(trackers)

	logger.Infof("Downloading %d pieces (%d bytes) into %s", mi.NumPieces(), mi.TotalLength(), *outDir)

	<-mgr.DoneCh()
	logger.Infof("Download complete")

	select {}
}

func newLogger(level string) *zap.Logger {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.TimeKey = "ts"
	logger, err := zc.Build()
	if err != nil {
		panic(err)
	}
	return logger
}

func buildTrackers(announceURLs []string, cfg tracker.Config, logger *zap.SugaredLogger) []tracker.Tracker {
	var trackers []tracker.Tracker
	for _, u := range announceURLs {
		parsed, err := url.Parse(u)
		if err != nil || !strings.HasPrefix(parsed.Scheme, "http") {
			logger.With("announce", u).Infof("Skipping non-http announce URL")
			continue
		}
		trackers = append(trackers, tracker.NewHTTPTracker(u, cfg, logger))
	}
	return trackers
}
