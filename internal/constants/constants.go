package constants

import "time"

const (
	SchedulerTick      = 1 * time.Minute
	FeedsRefreshEvery  = 6 * time.Hour
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	TickTimeout        = 2 * time.Minute
)

const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

// Per-guild setting defaults, applied on first access.
const (
	DefaultCadenceMinutes   = 240
	DefaultPollMinutes      = 720
	DefaultPairCooldownDays = 14
	DefaultMinVotes         = 5
)

const (
	StartingElo       = 1500.0
	EloBaseK          = 24.0
	MatchmakerBudget  = 1500
	MaxSideSize       = 2
	VoterPageSize     = 100
	DueRunsBatchLimit = 25
	CloseConcurrency  = 4
)

const (
	LeaderboardLimit = 20
	HistoryLimit     = 15
)
