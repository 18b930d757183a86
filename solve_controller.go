package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SolveRequest describes one position to solve. Cells use a1 notation.
type SolveRequest struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Black       []string `json:"black"`
	White       []string `json:"white"`
	ToPlay      string   `json:"to_play"`
	TimeLimitMs int      `json:"time_limit_ms"`
}

// SolveStatus is the externally visible state of the controller.
type SolveStatus struct {
	Running   bool             `json:"running"`
	Width     int              `json:"width"`
	Height    int              `json:"height"`
	ToPlay    string           `json:"to_play"`
	Result    string           `json:"result"`
	PV        []string         `json:"pv"`
	Proof     []string         `json:"proof"`
	Stats     BranchStatistics `json:"stats"`
	ElapsedMs int64            `json:"elapsed_ms"`
	Aborted   bool             `json:"aborted"`
	Board     string           `json:"board"`
}

// SolveController owns the solver and runs one solve at a time in a
// background goroutine.
type SolveController struct {
	hub *Hub

	mu      sync.Mutex
	running bool
	last    SolveStatus

	abort  atomic.Bool
	solver *DfsSolver
	ice    *ICEngine
}

func NewSolveController(cfg Config, hub *Hub) *SolveController {
	ice := NewICEngineFromConfig(cfg)
	return &SolveController{
		hub:    hub,
		ice:    ice,
		solver: NewSolverFromConfig(cfg),
	}
}

func (c *SolveController) Solver() *DfsSolver { return c.solver }

func (c *SolveController) Status() SolveStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := c.last
	status.Running = c.running
	return status
}

func (c *SolveController) Abort() {
	c.abort.Store(true)
}

// Start validates the request and launches the solve. Only one solve
// runs at a time.
func (c *SolveController) Start(req SolveRequest) error {
	cfg := GetConfig()
	width, height := req.Width, req.Height
	if width == 0 {
		width = cfg.BoardWidth
	}
	if height == 0 {
		height = cfg.BoardHeight
	}
	cb, err := NewConstBoard(width, height)
	if err != nil {
		return err
	}
	toPlay := Black
	switch req.ToPlay {
	case "", "black":
	case "white":
		toPlay = White
	default:
		return fmt.Errorf("unknown color %q", req.ToPlay)
	}
	var black, white Bitset
	for _, name := range req.Black {
		cell, err := ParseCellName(cb, name)
		if err != nil {
			return err
		}
		black.Set(cell)
	}
	for _, name := range req.White {
		cell, err := ParseCellName(cb, name)
		if err != nil {
			return err
		}
		white.Set(cell)
	}
	if black.Intersects(white) {
		return fmt.Errorf("overlapping stones")
	}

	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("solve already running")
	}
	c.running = true
	c.last = SolveStatus{
		Running: true,
		Width:   width,
		Height:  height,
		ToPlay:  toPlay.String(),
	}
	c.mu.Unlock()

	limit := time.Duration(req.TimeLimitMs) * time.Millisecond
	if req.TimeLimitMs == 0 {
		limit = time.Duration(cfg.SolverTimeLimitMs) * time.Millisecond
	}
	c.abort.Store(false)

	go c.run(cfg, cb, black, white, toPlay, limit)
	return nil
}

func (c *SolveController) run(cfg Config, cb *ConstBoard, black, white Bitset,
	toPlay HexColor, limit time.Duration) {

	h := NewHexBoardFromConfig(cfg, cb, c.ice)
	h.SetState(black, white)

	throttle := time.Duration(cfg.ProgressThrottleMs) * time.Millisecond
	var lastSent time.Time
	c.solver.OnProgress = func(p ProgressUpdate) {
		if c.hub == nil || !c.hub.HasClients() {
			return
		}
		if time.Since(lastSent) < throttle {
			return
		}
		lastSent = time.Now()
		c.hub.PublishProgress(progressPayload{
			ElapsedMs:      p.Elapsed.Milliseconds(),
			Depth:          p.Depth,
			TotalStates:    p.TotalStates,
			ExpandedStates: p.ExpandedStates,
			Completed:      p.Completed,
		})
	}

	started := time.Now()
	result, sol := c.solver.Solve(h, toPlay, limit, c.abort.Load)

	pv := make([]string, len(sol.PV))
	for i, m := range sol.PV {
		pv[i] = CellName(cb, m)
	}
	proof := make([]string, 0, sol.Proof.Count())
	sol.Proof.And(cb.Cells()).ForEach(func(cell HexCell) {
		proof = append(proof, CellName(cb, cell))
	})

	var highlight Bitset
	if len(sol.PV) > 0 {
		highlight.Set(sol.PV[0])
	}

	c.mu.Lock()
	c.running = false
	c.last = SolveStatus{
		Width:     cb.Width(),
		Height:    cb.Height(),
		ToPlay:    toPlay.String(),
		Result:    result.String(),
		PV:        pv,
		Proof:     proof,
		Stats:     sol.Stats,
		ElapsedMs: time.Since(started).Milliseconds(),
		Aborted:   c.solver.Aborted(),
		Board:     RenderBoard(h.Board(), highlight),
	}
	status := c.last
	c.mu.Unlock()

	if c.hub != nil {
		c.hub.PublishResult(solveResultPayload{
			Result:  status.Result,
			PV:      status.PV,
			Proof:   status.Proof,
			Aborted: status.Aborted,
		})
	}
	logrus.WithFields(logrus.Fields{
		"result":  status.Result,
		"elapsed": status.ElapsedMs,
		"aborted": status.Aborted,
	}).Info("controller: solve finished")
	if logrus.IsLevelEnabled(logrus.DebugLevel) {
		logrus.Debug("controller: stats dump\n" + c.solver.DumpStats(&sol))
	}
}
