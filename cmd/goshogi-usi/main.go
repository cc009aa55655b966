package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"

	"github.com/ymatsux/goshogi/internal/search"
	"github.com/ymatsux/goshogi/internal/usi"
)

// defaultNet is the NNUE weight file name looked for in the standard
// search locations when no EvalFile option is set.
const defaultNet = "goshogi.nnue"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")

func main() {
	flag.Parse()

	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("[goshogi-usi] CPU profiling enabled, writing to %s", profilePath)
	}

	eng := search.NewEngine(64)

	if err := autoLoadNNUE(eng); err != nil {
		log.Printf("[goshogi-usi] NNUE not loaded: %v (search uses the built-in pseudo-random network)", err)
	}

	protocol := usi.New(eng)
	protocol.Run()
}

// autoLoadNNUE searches the standard locations for a trained weight file,
// mirroring the teacher's autoLoadNNUE lookup order.
func autoLoadNNUE(eng *search.Engine) error {
	searchPaths := []string{
		getAppSupportDir(),
		filepath.Join(getHomeDir(), ".goshogi", "nnue"),
		"./nnue",
		".",
	}

	for _, dir := range searchPaths {
		path := filepath.Join(dir, defaultNet)
		if !fileExists(path) {
			continue
		}
		if err := eng.LoadNNUE(path); err != nil {
			log.Printf("[goshogi-usi] failed to load NNUE from %s: %v", dir, err)
			continue
		}
		eng.SetUseNNUE(true)
		log.Printf("[goshogi-usi] NNUE loaded from %s", path)
		return nil
	}

	return os.ErrNotExist
}

func getAppSupportDir() string {
	return filepath.Join(getHomeDir(), "Library", "Application Support", "goshogi", "nnue")
}

func getHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
