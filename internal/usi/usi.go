// Package usi implements the USI (Universal Shogi Interface) protocol:
// the stdin/stdout command loop, option table, go-parameter parsing, and
// the legality-revalidation-before-print pattern that guarantees every
// bestmove is legal in the position the controller last set up. Grounded
// on the teacher's internal/uci/uci.go, transposed from UCI to USI
// (usi/usiok/bestmove-with-drops/byoyomi) per spec.md §4.L.
package usi

import (
	"bufio"
	"fmt"
	"os"
	"runtime/pprof"
	"strconv"
	"strings"
	"time"

	"github.com/ymatsux/goshogi/internal/search"
	"github.com/ymatsux/goshogi/internal/shogi"
)

// USI drives the protocol loop over a search.Engine.
type USI struct {
	engine   *search.Engine
	position *shogi.Position

	positionKeys []uint64

	nnuePath string

	profileFile *os.File

	// gameoverSendsBestmove gates whether "gameover" emits a final
	// bestmove before stopping, per the GameoverSendsBestmove USI option:
	// some controllers expect one, others treat it as a protocol error.
	gameoverSendsBestmove bool

	out *bufio.Writer
}

// New returns a USI handler wrapping eng, starting from the initial
// position.
func New(eng *search.Engine) *USI {
	return &USI{
		engine:   eng,
		position: shogi.NewPosition(),
		out:      bufio.NewWriter(os.Stdout),
	}
}

// Run reads commands from stdin until "quit" or EOF.
func (u *USI) Run() {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		cmd, args := fields[0], fields[1:]

		switch cmd {
		case "usi":
			u.handleUSI()
		case "isready":
			u.println("readyok")
		case "usinewgame":
			u.handleNewGame()
		case "position":
			u.handlePosition(args)
		case "go":
			u.handleGo(args)
		case "stop":
			u.handleStop()
		case "ponderhit":
			u.engine.PonderHit()
		case "gameover":
			u.handleStop()
			if u.gameoverSendsBestmove {
				u.println("bestmove resign")
			}
		case "quit":
			u.handleQuit()
		case "setoption":
			u.handleSetOption(args)
		case "d":
			u.println(u.position.SFEN())
		case "perft":
			u.handlePerft(args)
		}
	}
}

func (u *USI) println(s string) {
	fmt.Fprintln(u.out, s)
	u.out.Flush()
}

func (u *USI) handleUSI() {
	u.println("id name GoShogi")
	u.println("id author goshogi contributors")
	u.println("option name USI_Hash type spin default 64 min 1 max 8192")
	u.println("option name USI_Ponder type check default false")
	u.println("option name Threads type spin default 1 min 1 max 64")
	u.println("option name UseNNUE type check default true")
	u.println("option name EvalFile type string default <empty>")
	u.println("option name OverheadMs type spin default 50 min 0 max 5000")
	u.println("option name NetworkDelay2Ms type spin default 10 min 0 max 5000")
	u.println("option name MinThinkMs type spin default 20 min 0 max 5000")
	u.println("option name SlowMoverPct type spin default 100 min 10 max 1000")
	u.println("option name MaxTimeRatio type spin default 80 min 10 max 100")
	u.println("option name ByoyomiSoftRatioPct type spin default 70 min 10 max 100")
	u.println("option name ByoyomiOverheadMs type spin default 50 min 0 max 5000")
	u.println("option name ByoyomiSafetyMs type spin default 50 min 0 max 5000")
	u.println("option name MoveHorizonTriggerMs type spin default 15000 min 0 max 600000")
	u.println("option name MoveHorizonMinMoves type spin default 8 min 1 max 50")
	u.println("option name MaterialLevel type spin default 5 min 1 max 9")
	u.println("option name GameoverSendsBestmove type check default false")
	u.println("option name NMP type check default true")
	u.println("option name Razoring type check default true")
	u.println("option name StaticBeta type check default true")
	u.println("option name Futility type check default true")
	u.println("option name LMP type check default true")
	u.println("option name SEEPruning type check default true")
	u.println("option name ProbCut type check default true")
	u.println("option name SmallProbCut type check default true")
	u.println("option name IID type check default true")
	u.println("option name SingularExt type check default true")
	u.println("option name QSChecks type check default true")
	u.println("option name ProbCutMargin type spin default 235 min 0 max 1000")
	u.println("option name SmallProbCutMargin type spin default 400 min 0 max 1000")
	u.println("option name StaticBetaMargin type spin default 80 min 0 max 1000")
	u.println("option name RazorMargin type spin default 280 min 0 max 1000")
	u.println("option name FutilityBase type spin default 200 min 0 max 1000")
	u.println("option name SingularMargin type spin default 53 min 0 max 1000")
	u.println("option name QSMaxQuietChecks type spin default 4 min 0 max 32")
	u.println("option name debug type check default false")
	u.println("option name cpuprofile type string default <empty>")
	u.println("usiok")
}

func (u *USI) handleNewGame() {
	u.engine.Clear()
	u.position = shogi.NewPosition()
	u.positionKeys = nil
}

// handlePosition parses:
//
//	position startpos
//	position startpos moves 7g7f 3c3d
//	position sfen <9 board fields> <side> <hands> <move-count> [moves ...]
func (u *USI) handlePosition(args []string) {
	if len(args) == 0 {
		return
	}

	u.positionKeys = nil
	var moveStart int

	switch args[0] {
	case "startpos":
		u.position = shogi.NewPosition()
		moveStart = 1
	case "sfen":
		fenEnd := len(args)
		for i := 1; i < len(args); i++ {
			if args[i] == "moves" {
				fenEnd = i
				break
			}
		}
		sfen := strings.Join(args[1:fenEnd], " ")
		pos := &shogi.Position{}
		if err := pos.SetSFEN(sfen); err != nil {
			fmt.Fprintf(os.Stderr, "info string invalid sfen: %v\n", err)
			return
		}
		u.position = pos
		moveStart = fenEnd
	default:
		return
	}

	for i := moveStart; i < len(args); i++ {
		if args[i] == "moves" {
			continue
		}
		m := u.parseMove(args[i])
		if m == shogi.NoMove {
			fmt.Fprintf(os.Stderr, "info string invalid move: %s\n", args[i])
			return
		}
		u.positionKeys = append(u.positionKeys, u.position.Key())
		u.position.DoMove(m)
	}
}

var usiLetterToPieceType = map[byte]shogi.PieceType{
	'P': shogi.Pawn, 'L': shogi.Lance, 'N': shogi.Knight, 'S': shogi.Silver,
	'G': shogi.Gold, 'B': shogi.Bishop, 'R': shogi.Rook,
}

// parseMove converts a USI move token ("7g7f", "7g7f+", or "P*5e") into
// the matching legal move in the current position, or NoMove if none
// matches.
func (u *USI) parseMove(s string) shogi.Move {
	legal := u.position.GenerateLegal()

	if len(s) >= 4 && s[1] == '*' {
		pt, ok := usiLetterToPieceType[s[0]]
		if !ok {
			return shogi.NoMove
		}
		to, err := shogi.ParseSquare(s[2:4])
		if err != nil {
			return shogi.NoMove
		}
		for i := 0; i < legal.Len(); i++ {
			m := legal.Get(i)
			if m.IsDrop() && m.DropPiece() == pt && m.To() == to {
				return m
			}
		}
		return shogi.NoMove
	}

	if len(s) != 4 && len(s) != 5 {
		return shogi.NoMove
	}
	from, err := shogi.ParseSquare(s[0:2])
	if err != nil {
		return shogi.NoMove
	}
	to, err := shogi.ParseSquare(s[2:4])
	if err != nil {
		return shogi.NoMove
	}
	promote := len(s) == 5 && s[4] == '+'

	for i := 0; i < legal.Len(); i++ {
		m := legal.Get(i)
		if !m.IsDrop() && m.From() == from && m.To() == to && m.IsPromotion() == promote {
			return m
		}
	}
	return shogi.NoMove
}

// handleGo parses go-command parameters and launches a search in its own
// goroutine so USI I/O (stop, quit) is never blocked by the search.
func (u *USI) handleGo(args []string) {
	limits := parseGoArgs(args)

	rootHistory := append([]uint64(nil), u.positionKeys...)
	searchPos := u.position.Copy()
	validationPos := u.position.Copy()

	u.engine.SetInfoHandler(func(r search.Result) {
		u.sendInfo(r)
	})

	go func() {
		bestMove := u.engine.SearchWithUCILimits(searchPos, rootHistory, limits)

		if bestMove != shogi.NoMove && validationPos.IsLegal(bestMove) {
			u.println("bestmove " + bestMove.String())
			return
		}

		fmt.Fprintf(os.Stderr, "info string search returned illegal or empty move, falling back\n")
		legal := validationPos.GenerateLegal()
		if legal.Len() > 0 {
			u.println("bestmove " + legal.Get(0).String())
		} else {
			u.println("bestmove resign")
		}
	}()
}

func parseGoArgs(args []string) search.UCILimits {
	var l search.UCILimits
	for i := 0; i < len(args); i++ {
		next := func() int {
			if i+1 < len(args) {
				i++
				n, _ := strconv.Atoi(args[i])
				return n
			}
			return 0
		}
		switch args[i] {
		case "btime":
			l.Time[shogi.Black] = next()
		case "wtime":
			l.Time[shogi.White] = next()
		case "binc":
			l.Inc[shogi.Black] = next()
		case "winc":
			l.Inc[shogi.White] = next()
		case "byoyomi":
			l.Byoyomi = next()
		case "movestogo":
			l.MovesToGo = next()
		case "movetime":
			l.MoveTime = next()
		case "depth":
			l.Depth = next()
		case "nodes":
			if i+1 < len(args) {
				i++
				n, _ := strconv.ParseUint(args[i], 10, 64)
				l.Nodes = n
			}
		case "infinite":
			l.Infinite = true
		case "ponder":
			l.Ponder = true
		}
	}
	return l
}

// sendInfo formats one search.Result as a USI "info" line.
func (u *USI) sendInfo(r search.Result) {
	var b strings.Builder
	fmt.Fprintf(&b, "info depth %d nodes %d", r.Depth, r.Nodes)

	if r.Score > search.MateScore-search.MaxPly {
		fmt.Fprintf(&b, " score mate %d", (search.MateScore-r.Score+1)/2)
	} else if r.Score < -search.MateScore+search.MaxPly {
		fmt.Fprintf(&b, " score mate %d", -(search.MateScore+r.Score+1)/2)
	} else {
		fmt.Fprintf(&b, " score cp %d", r.Score)
	}

	fmt.Fprintf(&b, " hashfull %d", 0)

	if len(r.PV) > 0 {
		testPos := u.position.Copy()
		valid := make([]string, 0, len(r.PV))
		for _, m := range r.PV {
			if !testPos.IsLegal(m) {
				break
			}
			valid = append(valid, m.String())
			testPos.DoMove(m)
		}
		if len(valid) > 0 {
			fmt.Fprintf(&b, " pv %s", strings.Join(valid, " "))
		}
	}

	u.println(b.String())
}

func (u *USI) handleStop() { u.engine.Stop() }

func (u *USI) handleQuit() {
	u.engine.Stop()
	if u.profileFile != nil {
		pprof.StopCPUProfile()
		u.profileFile.Close()
	}
	os.Exit(0)
}

func (u *USI) handleSetOption(args []string) {
	var name, value string
	readingName, readingValue := false, false
	for _, a := range args {
		switch a {
		case "name":
			readingName, readingValue = true, false
		case "value":
			readingName, readingValue = false, true
		default:
			if readingName {
				if name != "" {
					name += " "
				}
				name += a
			} else if readingValue {
				if value != "" {
					value += " "
				}
				value += a
			}
		}
	}

	switch strings.ToLower(name) {
	case "usi_hash":
		// The engine's TT is sized at construction; live resize is not
		// supported, matching the teacher's own "ignore for now" stance.
	case "threads":
		if n, err := strconv.Atoi(value); err == nil {
			u.engine.SetThreads(n)
		}
	case "usennue":
		u.engine.SetUseNNUE(strings.ToLower(value) == "true")
	case "evalfile":
		u.nnuePath = value
		if err := u.engine.LoadNNUE(value); err != nil {
			fmt.Fprintf(os.Stderr, "info string failed to load NNUE: %v\n", err)
		}
	case "overheadms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.OverheadMs = v }, value)
	case "networkdelay2ms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.NetworkDelay2Ms = v }, value)
	case "minthinkms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.MinThinkMs = v }, value)
	case "slowmoverpct":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.SlowMoverPct = v }, value)
	case "maxtimeratio":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.MaxTimeRatio = float64(v) / 100 }, value)
	case "byoyomisoftratiopct":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.ByoyomiSoftRatio = float64(v) / 100 }, value)
	case "byoyomioverheadms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.ByoyomiOverheadMs = v }, value)
	case "byoyomisafetyms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.ByoyomiSafetyMs = v }, value)
	case "movehorizontriggerms":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.MoveHorizonTriggerMs = v }, value)
	case "movehorizonminmoves":
		u.setTimeParam(func(p *search.TimeParameters, v int) { p.MoveHorizonMinMoves = v }, value)
	case "materiallevel":
		if n, err := strconv.Atoi(value); err == nil {
			u.engine.SetMaterialLevel(n)
		}
	case "gameoversendsbestmove":
		u.gameoverSendsBestmove = strings.ToLower(value) == "true"
	case "nmp":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.NMP = v }, value)
	case "razoring":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.Razoring = v }, value)
	case "staticbeta":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.StaticBeta = v }, value)
	case "futility":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.Futility = v }, value)
	case "lmp":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.LMP = v }, value)
	case "seepruning":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.SEEPruning = v }, value)
	case "probcut":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.ProbCut = v }, value)
	case "smallprobcut":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.SmallProbCut = v }, value)
	case "iid":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.IID = v }, value)
	case "singularext":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.SingularExt = v }, value)
	case "qschecks":
		u.setPruningBool(func(p *search.PruningOptions, v bool) { p.QSChecks = v }, value)
	case "probcutmargin":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.ProbCutMargin = v }, value)
	case "smallprobcutmargin":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.SmallProbCutMargin = v }, value)
	case "staticbetamargin":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.StaticBetaMargin = v }, value)
	case "razormargin":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.RazorMargin = v }, value)
	case "futilitybase":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.FutilityBase = v }, value)
	case "singularmargin":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.SingularMargin = v }, value)
	case "qsmaxquietchecks":
		u.setPruningInt(func(p *search.PruningOptions, v int) { p.QSMaxQuietChecks = v }, value)
	case "debug":
		// Reserved for future verbose diagnostics toggling.
	case "cpuprofile":
		if u.profileFile != nil {
			pprof.StopCPUProfile()
			u.profileFile.Close()
			u.profileFile = nil
		}
		if value != "" && value != "stop" {
			f, err := os.Create(value)
			if err != nil {
				fmt.Fprintf(os.Stderr, "info string failed to create profile: %v\n", err)
				return
			}
			if err := pprof.StartCPUProfile(f); err != nil {
				f.Close()
				fmt.Fprintf(os.Stderr, "info string failed to start profile: %v\n", err)
				return
			}
			u.profileFile = f
		}
	}
}

func (u *USI) setTimeParam(apply func(*search.TimeParameters, int), value string) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	p := u.engine.TimeParameters()
	apply(&p, n)
	u.engine.SetTimeParameters(p)
}

func (u *USI) setPruningBool(apply func(*search.PruningOptions, bool), value string) {
	p := u.engine.PruningOptions()
	apply(&p, strings.ToLower(value) == "true")
	u.engine.SetPruningOptions(p)
}

func (u *USI) setPruningInt(apply func(*search.PruningOptions, int), value string) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return
	}
	p := u.engine.PruningOptions()
	apply(&p, n)
	u.engine.SetPruningOptions(p)
}

func (u *USI) handlePerft(args []string) {
	depth := 5
	if len(args) > 0 {
		depth, _ = strconv.Atoi(args[0])
	}
	start := time.Now()
	nodes := u.engine.Perft(u.position, depth)
	elapsed := time.Since(start)
	u.println(fmt.Sprintf("Nodes: %d", nodes))
	u.println(fmt.Sprintf("Time: %v", elapsed))
	if elapsed > 0 {
		u.println(fmt.Sprintf("NPS: %.0f", float64(nodes)/elapsed.Seconds()))
	}
}
