package main

import (
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	BoardWidth  int `json:"board_width"`
	BoardHeight int `json:"board_height"`

	SolverTimeLimitMs    int  `json:"solver_time_limit_ms"`
	SolverMoveOrdering   int  `json:"solver_move_ordering"`
	SolverShrinkProofs   bool `json:"solver_shrink_proofs"`
	SolverSolveRootAgain bool `json:"solver_solve_root_again"`
	SolverUseDecomps     bool `json:"solver_use_decompositions"`
	SolverUsePriorOrder  bool `json:"solver_use_prior_ordering"`

	BoardUseConnections bool `json:"board_use_connections"`
	BoardUseInference   bool `json:"board_use_inference"`
	BoardUseDecomps     bool `json:"board_use_decompositions"`
	BoardBackupInfInfo  bool `json:"board_backup_inference_info"`

	IceFindPresimplicialPairs bool `json:"ice_find_presimplicial_pairs"`
	IceFindPermInferior       bool `json:"ice_find_permanently_inferior"`
	IceFindAllKillers         bool `json:"ice_find_all_pattern_killers"`
	IceFindAllReversers       bool `json:"ice_find_all_pattern_reversers"`
	IceFindAllDominators      bool `json:"ice_find_all_pattern_dominators"`
	IceUseHandCoded           bool `json:"ice_use_hand_coded_patterns"`
	IceBackupOpponentDead     bool `json:"ice_backup_opponent_dead"`
	IceThreeSidedDeadRegions  bool `json:"ice_find_three_sided_dead_regions"`
	IceIterativeDeadRegions   bool `json:"ice_iterative_dead_regions"`

	TtSize    int `json:"tt_size"`
	TtBuckets int `json:"tt_buckets"`

	StorePath      string `json:"store_path"`
	StoreMaxStones int    `json:"store_max_stones"`

	PatternFile string `json:"pattern_file"`

	ListenAddr         string `json:"listen_addr"`
	ProgressThrottleMs int    `json:"progress_throttle_ms"`
	LogLevel           string `json:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		BoardWidth:  7,
		BoardHeight: 7,

		// No time limit by default; callers solving interactively set one.
		SolverTimeLimitMs:    0,
		SolverMoveOrdering:   OrderWithMustplay | OrderFromCenter,
		SolverShrinkProofs:   true,
		SolverSolveRootAgain: false,
		SolverUseDecomps:     true,
		SolverUsePriorOrder:  true,

		BoardUseConnections: true,
		BoardUseInference:   true,
		BoardUseDecomps:     true,
		BoardBackupInfInfo:  true,

		IceFindPresimplicialPairs: true,
		IceFindPermInferior:       true,
		IceFindAllKillers:         true,
		IceFindAllReversers:       false,
		IceFindAllDominators:      false,
		IceUseHandCoded:           true,
		IceBackupOpponentDead:     false,
		IceThreeSidedDeadRegions:  false,
		IceIterativeDeadRegions:   false,

		TtSize:    1 << 18,
		TtBuckets: 4,

		StorePath:      "",
		StoreMaxStones: 20,

		PatternFile: "",

		ListenAddr:         ":8080",
		ProgressThrottleMs: 250,
		LogLevel:           "info",
	}
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

var configStore = &ConfigStore{config: DefaultConfig()}

func GetConfig() Config {
	return configStore.Get()
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}

// LoadEnvConfig layers .env and process environment over the defaults
// and installs the result in the global store.
func LoadEnvConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).Debug("config: no .env file loaded")
	}
	cfg := DefaultConfig()
	envInt("HEXSOLVE_BOARD_WIDTH", &cfg.BoardWidth)
	envInt("HEXSOLVE_BOARD_HEIGHT", &cfg.BoardHeight)
	envInt("HEXSOLVE_TIME_LIMIT_MS", &cfg.SolverTimeLimitMs)
	envInt("HEXSOLVE_MOVE_ORDERING", &cfg.SolverMoveOrdering)
	envBool("HEXSOLVE_SHRINK_PROOFS", &cfg.SolverShrinkProofs)
	envBool("HEXSOLVE_SOLVE_ROOT_AGAIN", &cfg.SolverSolveRootAgain)
	envBool("HEXSOLVE_USE_DECOMPOSITIONS", &cfg.SolverUseDecomps)
	envBool("HEXSOLVE_USE_PRIOR_ORDERING", &cfg.SolverUsePriorOrder)
	envBool("HEXSOLVE_BACKUP_OPPONENT_DEAD", &cfg.IceBackupOpponentDead)
	envBool("HEXSOLVE_THREE_SIDED_DEAD_REGIONS", &cfg.IceThreeSidedDeadRegions)
	envInt("HEXSOLVE_TT_SIZE", &cfg.TtSize)
	envInt("HEXSOLVE_TT_BUCKETS", &cfg.TtBuckets)
	envString("HEXSOLVE_STORE_PATH", &cfg.StorePath)
	envInt("HEXSOLVE_STORE_MAX_STONES", &cfg.StoreMaxStones)
	envString("HEXSOLVE_PATTERN_FILE", &cfg.PatternFile)
	envString("HEXSOLVE_LISTEN_ADDR", &cfg.ListenAddr)
	envInt("HEXSOLVE_PROGRESS_THROTTLE_MS", &cfg.ProgressThrottleMs)
	envString("HEXSOLVE_LOG_LEVEL", &cfg.LogLevel)
	configStore.Update(cfg)
	return cfg
}

func envBool(key string, dst *bool) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(v); err == nil {
			*dst = parsed
		} else {
			logrus.WithField("key", key).WithField("value", v).
				Warn("config: ignoring unparsable bool")
		}
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(v); err == nil {
			*dst = parsed
		} else {
			logrus.WithField("key", key).WithField("value", v).
				Warn("config: ignoring unparsable int")
		}
	}
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

// NewICEngineFromConfig builds the inference engine with the configured
// toggles and pattern file.
func NewICEngineFromConfig(cfg Config) *ICEngine {
	ice := NewICEngine(NewPatternLibrary(cfg.PatternFile))
	ice.FindPresimplicialPairs = cfg.IceFindPresimplicialPairs
	ice.FindPermanentlyInferior = cfg.IceFindPermInferior
	ice.FindAllPatternKillers = cfg.IceFindAllKillers
	ice.FindAllPatternReversers = cfg.IceFindAllReversers
	ice.FindAllPatternDominators = cfg.IceFindAllDominators
	ice.UseHandCodedPatterns = cfg.IceUseHandCoded
	ice.BackupOpponentDead = cfg.IceBackupOpponentDead
	ice.FindThreeSidedDeadRegions = cfg.IceThreeSidedDeadRegions
	ice.IterativeDeadRegions = cfg.IceIterativeDeadRegions
	return ice
}

// NewHexBoardFromConfig builds a board container with the configured
// maintenance toggles.
func NewHexBoardFromConfig(cfg Config, cb *ConstBoard, ice *ICEngine) *HexBoard {
	h := NewHexBoard(cb, ice)
	h.UseConnections = cfg.BoardUseConnections
	h.UseInference = cfg.BoardUseInference
	h.UseDecompositions = cfg.BoardUseDecomps
	h.BackupInferenceInfo = cfg.BoardBackupInfInfo
	return h
}

// NewSolverFromConfig wires a solver with the configured table, store,
// and ordering options.
func NewSolverFromConfig(cfg Config) *DfsSolver {
	tt := NewTranspositionTable(uint64(cfg.TtSize), cfg.TtBuckets)
	store := OpenPositionStore(cfg.StorePath, cfg.BoardWidth, cfg.BoardHeight,
		cfg.StoreMaxStones)
	var prior *PriorKnowledge
	if cfg.SolverUsePriorOrder {
		prior = NewPriorKnowledge()
	}
	s := NewDfsSolver(&SolverPositions{Store: store, TT: tt}, prior)
	s.UseDecompositions = cfg.SolverUseDecomps
	s.MoveOrdering = cfg.SolverMoveOrdering
	s.ShrinkProofs = cfg.SolverShrinkProofs
	s.SolveRootAgain = cfg.SolverSolveRootAgain
	return s
}
