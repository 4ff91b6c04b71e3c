package main

import (
	"flag"
	"os"
	"runtime/pprof"

	"github.com/op/go-logging"

	"github.com/raaidrt/timecat/internal/engine"
	mylogging "github.com/raaidrt/timecat/internal/logging"
	"github.com/raaidrt/timecat/internal/uci"
)

var (
	hashMB     = flag.Int("hash", engine.HashOption.Default, "transposition table size in MB")
	threads    = flag.Int("threads", engine.ThreadsOption.Default, "number of search threads")
	debug      = flag.Bool("debug", false, "verbose logging")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()
	log := mylogging.GetLog()

	if *debug {
		mylogging.SetLevel(logging.DEBUG)
	}

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatalf("could not create CPU profile: %v", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatalf("could not start CPU profile: %v", err)
		}
		defer pprof.StopCPUProfile()
	}

	eng := engine.NewEngine(*hashMB)
	if err := eng.SetThreads(*threads); err != nil {
		log.Fatalf("%v", err)
	}

	protocol := uci.New(eng, os.Stdout)
	protocol.Run(os.Stdin)
}
